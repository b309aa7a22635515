package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items per partition key and answers the single query
// shape DynamoRepository issues.
type fakeDynamo struct {
	items     map[string][]map[string]types.AttributeValue
	putErr    error
	lastPut   *dynamodb.PutItemInput
	lastQuery *dynamodb.QueryInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string][]map[string]types.AttributeValue{}}
}

func str(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	pk := str(in.Item, "PK")
	f.items[pk] = append(f.items[pk], in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQuery = in
	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	prefix := in.ExpressionAttributeValues[":prefix"].(*types.AttributeValueMemberS).Value

	var matched []map[string]types.AttributeValue
	for _, item := range f.items[pk] {
		if strings.HasPrefix(str(item, "SK"), prefix) {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return str(matched[i], "SK") < str(matched[j], "SK")
	})
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: matched}, nil
}

func seed(t *testing.T, repo ChatRepository, session string, n int) {
	t.Helper()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < n; i++ {
		msg := NewChatMessage(session, "user", fmt.Sprintf("m%d", i))
		msg.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Save(context.Background(), msg))
	}
}

func contents(msgs []*ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestRepositories_HistoryOrderAndLimit(t *testing.T) {
	dyn, err := NewDynamoRepository(newFakeDynamo(), "chat")
	require.NoError(t, err)

	repos := map[string]ChatRepository{
		"memory":   NewMemoryRepository(),
		"dynamodb": dyn,
	}
	for name, repo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo, "s1", 5)
			seed(t, repo, "s2", 1)

			got, err := repo.GetHistory(ctx, "s1", 3)
			require.NoError(t, err)
			assert.Equal(t, []string{"m2", "m3", "m4"}, contents(got))

			got, err = repo.GetHistory(ctx, "s1", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, contents(got))

			got, err = repo.GetHistory(ctx, "s2", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"m0"}, contents(got))

			got, err = repo.GetHistory(ctx, "s1", 0)
			require.NoError(t, err)
			assert.Empty(t, got)

			got, err = repo.GetHistory(ctx, "missing", 5)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestRepositories_SaveValidates(t *testing.T) {
	dyn, err := NewDynamoRepository(newFakeDynamo(), "chat")
	require.NoError(t, err)
	for _, repo := range []ChatRepository{NewMemoryRepository(), dyn} {
		ctx := context.Background()
		assert.Error(t, repo.Save(ctx, nil))
		assert.Error(t, repo.Save(ctx, &ChatMessage{Role: "user"}))
		assert.Error(t, repo.Save(ctx, &ChatMessage{SessionID: "s"}))

		msg := &ChatMessage{SessionID: "s", Role: "user", Content: "hi"}
		require.NoError(t, repo.Save(ctx, msg))
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	}
}

func TestDynamoRepository_Item(t *testing.T) {
	api := newFakeDynamo()
	repo, err := NewDynamoRepository(api, "chat")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	msg := &ChatMessage{ID: "id-1", SessionID: "s1", UserID: "u1", Role: "assistant", Content: "ok", CreatedAt: now}
	require.NoError(t, repo.Save(context.Background(), msg))

	item := api.lastPut.Item
	assert.Equal(t, "chat", *api.lastPut.TableName)
	assert.Equal(t, "SESSION#s1", str(item, "PK"))
	assert.Equal(t, "MSG#2026-03-01T00:00:00.000000000Z#id-1", str(item, "SK"))
	assert.Equal(t, "u1", str(item, "userId"))
	ttl := item["ttl"].(*types.AttributeValueMemberN).Value
	assert.Equal(t, fmt.Sprintf("%d", now.Add(30*24*time.Hour).Unix()), ttl)

	got, err := repo.GetHistory(context.Background(), "s1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, *msg, *got[0])
	assert.False(t, *api.lastQuery.ScanIndexForward)
}

func TestDynamoRepository_SubSecondOrder(t *testing.T) {
	api := newFakeDynamo()
	repo, err := NewDynamoRepository(api, "chat")
	require.NoError(t, err)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	newer := NewChatMessage("s", "user", "newer")
	newer.CreatedAt = base.Add(500 * time.Millisecond)
	older := NewChatMessage("s", "user", "older")
	older.CreatedAt = base
	later := NewChatMessage("s", "user", "later")
	later.CreatedAt = base.Add(time.Second + 10*time.Microsecond)
	for _, m := range []*ChatMessage{newer, later, older} {
		require.NoError(t, repo.Save(ctx, m))
	}

	got, err := repo.GetHistory(ctx, "s", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"later"}, contents(got))

	got, err = repo.GetHistory(ctx, "s", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"older", "newer", "later"}, contents(got))
	assert.True(t, got[1].CreatedAt.Equal(newer.CreatedAt))
}

func TestDynamoRepository_LimitClamped(t *testing.T) {
	api := newFakeDynamo()
	repo, err := NewDynamoRepository(api, "chat")
	require.NoError(t, err)

	_, err = repo.GetHistory(context.Background(), "s", math.MaxInt32+10)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), *api.lastQuery.Limit)
}

func TestDynamoRepository_Errors(t *testing.T) {
	_, err := NewDynamoRepository(nil, "chat")
	assert.Error(t, err)
	_, err = NewDynamoRepository(newFakeDynamo(), " ")
	assert.Error(t, err)

	api := newFakeDynamo()
	api.putErr = errors.New("throttled")
	repo, err := NewDynamoRepository(api, "chat")
	require.NoError(t, err)
	err = repo.Save(context.Background(), NewChatMessage("s", "user", "hi"))
	assert.ErrorIs(t, err, api.putErr)

	api.items["SESSION#bad"] = []map[string]types.AttributeValue{{
		"SK": &types.AttributeValueMemberS{Value: "MSG#x"},
	}}
	_, err = repo.GetHistory(context.Background(), "bad", 5)
	assert.Error(t, err)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	msg := NewChatMessage("s", "user", "hi")
	require.NoError(t, repo.Save(ctx, msg))
	msg.Content = "changed"

	got, err := repo.GetHistory(ctx, "s", 1)
	require.NoError(t, err)
	got[0].Content = "mutated"

	again, err := repo.GetHistory(ctx, "s", 1)
	require.NoError(t, err)
	assert.Equal(t, "hi", again[0].Content)
}

func TestNewPostgresRepository(t *testing.T) {
	_, err := NewPostgresRepository(nil)
	assert.Error(t, err)
	assert.Contains(t, PostgresSchema, "chat_messages")
}
