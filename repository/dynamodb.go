package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skPrefixMsg = "MSG#"
	ttlDuration = 30 * 24 * time.Hour

	// sortKeyLayout is fixed width so that sort keys order like the times
	// they encode. RFC3339Nano trims trailing zeros and does not.
	sortKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the subset of *dynamodb.Client used by DynamoRepository.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoRepository stores transcripts in a single DynamoDB table keyed by
// PK=SESSION#<id> and SK=MSG#<timestamp>#<message id>.
type DynamoRepository struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func NewDynamoRepository(api dynamodbAPI, tableName string) (*DynamoRepository, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoRepository{api: api, tableName: tableName, now: time.Now}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func messageSK(msg *ChatMessage) string {
	return skPrefixMsg + msg.CreatedAt.UTC().Format(sortKeyLayout) + "#" + msg.ID
}

func (r *DynamoRepository) Save(ctx context.Context, msg *ChatMessage) error {
	if err := prepare(msg); err != nil {
		return err
	}
	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                r.messageItem(msg),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

func (r *DynamoRepository) GetHistory(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	out, err := r.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		// newest first so Limit keeps the most recent messages
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(min(limit, math.MaxInt32))),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}

	msgs := make([]*ChatMessage, 0, len(out.Items))
	for _, item := range out.Items {
		msg, err := itemToMessage(item)
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		msgs = append(msgs, msg)
	}
	reverse(msgs)
	return msgs, nil
}

func (r *DynamoRepository) messageItem(msg *ChatMessage) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(msg.SessionID)},
		"SK":        &types.AttributeValueMemberS{Value: messageSK(msg)},
		"id":        &types.AttributeValueMemberS{Value: msg.ID},
		"sessionId": &types.AttributeValueMemberS{Value: msg.SessionID},
		"userId":    &types.AttributeValueMemberS{Value: msg.UserID},
		"role":      &types.AttributeValueMemberS{Value: msg.Role},
		"content":   &types.AttributeValueMemberS{Value: msg.Content},
		"createdAt": &types.AttributeValueMemberS{Value: msg.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", r.now().Add(ttlDuration).Unix())},
	}
}

func itemToMessage(item map[string]types.AttributeValue) (*ChatMessage, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return nil, err
	}
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return nil, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return nil, err
	}
	content, _ := strAttr(item, "content") // allow empty
	userID, _ := strAttr(item, "userId")
	created, err := strAttr(item, "createdAt")
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("repository: parse createdAt: %w", err)
	}
	return &ChatMessage{
		ID:        id,
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

var _ ChatRepository = (*DynamoRepository)(nil)
