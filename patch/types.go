package patch

const (
	OperationAdd     = "add"
	OperationRemove  = "remove"
	OperationReplace = "replace"
)

type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// AppendPath returns the RFC 6901 pointer that appends to the array at pointer.
func AppendPath(pointer string) string {
	return pointer + "/-"
}

// FieldPointer returns the pointer of a top-level member named field.
func FieldPointer(field string) string {
	return "/" + escapeJSONPointer(field)
}

func escapeJSONPointer(token string) string {
	result := ""
	for _, ch := range token {
		switch ch {
		case '~':
			result += "~0"
		case '/':
			result += "~1"
		default:
			result += string(ch)
		}
	}
	return result
}

func unescapeJSONPointer(token string) string {
	result := ""
	for i := 0; i < len(token); i++ {
		if token[i] == '~' && i+1 < len(token) {
			switch token[i+1] {
			case '1':
				result += "/"
				i++
				continue
			case '0':
				result += "~"
				i++
				continue
			}
		}
		result += string(token[i])
	}
	return result
}
