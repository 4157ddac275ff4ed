package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/shop-ai/internal/errx"
	"github.com/ashwinyue/shop-ai/internal/model"
	"github.com/ashwinyue/shop-ai/internal/repository"
	"github.com/ashwinyue/shop-ai/internal/testutil"
)

func newTestStore(t *testing.T, withCache bool) (*Store, *miniredis.Miniredis) {
	t.Helper()
	db := testutil.NewTestDB(t)
	repo := repository.NewConversationRepository(db.DB)
	if !withCache {
		return NewStore(repo, nil), nil
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(repo, NewHistoryCache(rdb, time.Hour, 20)), mr
}

// ========== roleToSchema 测试 ==========

func TestRoleToSchema(t *testing.T) {
	tests := []struct {
		role     string
		expected schema.RoleType
	}{
		{"user", schema.User},
		{"assistant", schema.Assistant},
		{"system", schema.System},
		{"tool", schema.System},
		{"", schema.User},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.expected, roleToSchema(tt.role))
		})
	}
}

// ========== ResolveSession 测试 ==========

func TestResolveSession(t *testing.T) {
	store, _ := newTestStore(t, false)
	ctx := context.Background()
	user := "u1"

	created, err := store.ResolveSession(ctx, "", &user)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.UserID)
	assert.Equal(t, "u1", *created.UserID)

	reused, err := store.ResolveSession(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, reused.ID)

	fresh, err := store.ResolveSession(ctx, "does-not-exist", nil)
	require.NoError(t, err)
	assert.NotEqual(t, "does-not-exist", fresh.ID)
	assert.NotEqual(t, created.ID, fresh.ID)
}

func TestResolveSession_InactiveNotResurrected(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewConversationRepository(db.DB)
	store := NewStore(repo, nil)
	ctx := context.Background()

	require.NoError(t, repo.CreateSession(ctx, &model.ConversationSession{ID: "closed", IsActive: false}))

	sess, err := store.ResolveSession(ctx, "closed", nil)
	require.NoError(t, err)
	assert.NotEqual(t, "closed", sess.ID)

	old, err := repo.GetSession(ctx, "closed")
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

// ========== RecentHistory 测试 ==========

func TestRecentHistory_Chronological(t *testing.T) {
	for _, withCache := range []bool{false, true} {
		t.Run(fmt.Sprintf("cache=%v", withCache), func(t *testing.T) {
			store, _ := newTestStore(t, withCache)
			ctx := context.Background()
			sess, err := store.ResolveSession(ctx, "", nil)
			require.NoError(t, err)

			for i := 0; i < 6; i++ {
				require.NoError(t, store.AppendUserMessage(ctx, sess.ID, fmt.Sprintf("q%d", i), model.IntentGreeting, nil))
				require.NoError(t, store.AppendAssistantMessage(ctx, sess.ID, fmt.Sprintf("a%d", i), nil, nil))
			}

			// 两次读取：第一次可能回填缓存，第二次可能命中缓存
			for round := 0; round < 2; round++ {
				history, err := store.RecentHistory(ctx, sess.ID, 4)
				require.NoError(t, err)
				require.Len(t, history, 4)
				assert.Equal(t, "q4", history[0].Content)
				assert.Equal(t, schema.User, history[0].Role)
				assert.Equal(t, "a4", history[1].Content)
				assert.Equal(t, schema.Assistant, history[1].Role)
				assert.Equal(t, "a5", history[3].Content)
			}

			require.NoError(t, store.AppendUserMessage(ctx, sess.ID, "q6", model.IntentFarewell, nil))
			history, err := store.RecentHistory(ctx, sess.ID, 2)
			require.NoError(t, err)
			require.Len(t, history, 2)
			assert.Equal(t, "a5", history[0].Content)
			assert.Equal(t, "q6", history[1].Content)
		})
	}
}

func TestRecentHistory_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t, false)
	ctx := context.Background()
	sess, err := store.ResolveSession(ctx, "", nil)
	require.NoError(t, err)

	const n = 9
	for i := 0; i < n; i++ {
		require.NoError(t, store.AppendUserMessage(ctx, sess.ID, fmt.Sprintf("m%d", i), model.IntentUnknown, nil))
	}
	history, err := store.RecentHistory(ctx, sess.ID, n+5)
	require.NoError(t, err)
	require.Len(t, history, n)
	for i, m := range history {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
	}
}

func TestRecentHistory_CacheFailureFallsBack(t *testing.T) {
	store, mr := newTestStore(t, true)
	ctx := context.Background()
	sess, err := store.ResolveSession(ctx, "", nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendUserMessage(ctx, sess.ID, "hello", model.IntentGreeting, nil))

	mr.Close()

	history, err := store.RecentHistory(ctx, sess.ID, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
}

func TestHistoryCache_FillAndAppend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewHistoryCache(rdb, time.Minute, 3)
	ctx := context.Background()

	// 未回填时追加不创建列表
	require.NoError(t, cache.Append(ctx, "s", historyEntry{Role: "user", Content: "lost"}))
	_, hit, err := cache.Recent(ctx, "s", 3)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Fill(ctx, "s", []historyEntry{
		{Role: "user", Content: "1"}, {Role: "assistant", Content: "2"},
		{Role: "user", Content: "3"}, {Role: "assistant", Content: "4"},
	}))
	require.NoError(t, cache.Append(ctx, "s", historyEntry{Role: "user", Content: "5"}))

	entries, hit, err := cache.Recent(ctx, "s", 3)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, entries, 3)
	assert.Equal(t, "3", entries[0].Content)
	assert.Equal(t, "5", entries[2].Content)

	// 超过缓存长度直接回源
	_, hit, err = cache.Recent(ctx, "s", 10)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.True(t, mr.TTL(historyKey("s")) > 0)
}

// ========== 持久化与会话查看 ==========

func TestGetConversation(t *testing.T) {
	store, _ := newTestStore(t, false)
	ctx := context.Background()
	sess, err := store.ResolveSession(ctx, "", nil)
	require.NoError(t, err)

	max := 100.0
	require.NoError(t, store.AppendUserMessage(ctx, sess.ID, "headphones under $100", model.IntentProductSearch,
		&model.ExtractedEntities{Categories: []string{"electronics"}, PriceMax: &max}))
	require.NoError(t, store.AppendAssistantMessage(ctx, sess.ID, "Here are some options", []string{"search_products"},
		[]json.RawMessage{json.RawMessage(`{"call_id":"abcd1234","tool_name":"search_products","success":true}`)}))

	conv, err := store.GetConversation(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)

	user := conv.Messages[0]
	assert.Equal(t, model.RoleUser, user.Role)
	require.NotNil(t, user.Intent)
	assert.Equal(t, "product_search", *user.Intent)
	require.NotNil(t, user.Entities)
	assert.Equal(t, []string{"electronics"}, user.Entities.Categories)
	assert.Nil(t, user.Entities.PriceMin)

	assistant := conv.Messages[1]
	assert.Nil(t, assistant.Intent)
	assert.Equal(t, []string{"search_products"}, assistant.ToolCalls)
	require.Len(t, assistant.ToolResults, 1)
	assert.JSONEq(t, `{"call_id":"abcd1234","tool_name":"search_products","success":true}`, string(assistant.ToolResults[0]))
}

func TestGetConversation_NotFound(t *testing.T) {
	store, _ := newTestStore(t, false)

	_, err := store.GetConversation(context.Background(), "missing")
	require.Error(t, err)

	var appErr *errx.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestAppendUserMessage_EmptyEntitiesNotStored(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewConversationRepository(db.DB)
	store := NewStore(repo, nil)
	ctx := context.Background()

	sess, err := store.ResolveSession(ctx, "", nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendUserMessage(ctx, sess.ID, "hi", model.IntentGreeting, &model.ExtractedEntities{}))

	rows, err := repo.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Entities)
	assert.Nil(t, rows[0].ToolCalls)
}
