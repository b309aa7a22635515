package intent

import (
	"context"
	"strings"
)

// ConstantRecognizer ignores the conversation and always returns Label.
type ConstantRecognizer struct {
	Label Intent
}

func NewConstantRecognizer(label Intent) *ConstantRecognizer {
	return &ConstantRecognizer{Label: label}
}

func (c *ConstantRecognizer) RecognizeIntent(ctx context.Context, req *Request) (Intent, error) {
	return c.Label, nil
}

// KeywordRecognizer matches the latest user message against keyword lists.
// Intents are checked in Order; the first with a matching keyword wins.
type KeywordRecognizer struct {
	Keywords map[Intent][]string
	Order    []Intent
}

func NewKeywordRecognizer() *KeywordRecognizer {
	return &KeywordRecognizer{
		Keywords: map[Intent][]string{
			Human:   {"人工", "客服", "human", "agent", "representative"},
			Refund:  {"退款", "退钱", "退货", "refund", "money back", "return"},
			Order:   {"订单", "物流", "发货", "order", "shipping", "delivery", "track"},
			Product: {"产品", "商品", "价格", "product", "price", "stock"},
			Account: {"账号", "账户", "密码", "登录", "account", "password", "login"},
		},
		Order: []Intent{Human, Refund, Order, Product, Account},
	}
}

func (p *KeywordRecognizer) RecognizeIntent(ctx context.Context, req *Request) (Intent, error) {
	normalized := strings.ToLower(strings.TrimSpace(req.LatestUserMessage()))
	if normalized == "" {
		return Unknown, nil
	}
	for _, label := range p.Order {
		for _, keyword := range p.Keywords[label] {
			if strings.Contains(normalized, strings.ToLower(keyword)) {
				return label, nil
			}
		}
	}
	return Unknown, nil
}

// FallbackRecognizer returns the first successful result of its recognizers.
type FallbackRecognizer struct {
	recognizers []Recognizer
}

func NewFallbackRecognizer(recognizers ...Recognizer) *FallbackRecognizer {
	return &FallbackRecognizer{recognizers: recognizers}
}

func (p *FallbackRecognizer) RecognizeIntent(ctx context.Context, req *Request) (Intent, error) {
	var lastErr error
	for _, r := range p.recognizers {
		label, err := r.RecognizeIntent(ctx, req)
		if err == nil {
			return label, nil
		}
		lastErr = err
	}
	return Unknown, lastErr
}

var (
	_ Recognizer = (*ConstantRecognizer)(nil)
	_ Recognizer = (*KeywordRecognizer)(nil)
	_ Recognizer = (*FallbackRecognizer)(nil)
)
