package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"lovewire/domain"
)

func openTestCache(t *testing.T, limit *int) MessageCache {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMessageCache(db, slog.Default(), limit)
}

func cachedFixture(id, conversationID, text string, sentAt time.Time) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       "u2",
		Text:           lo.ToPtr(text),
		SentAt:         sentAt,
	}
}

func Test_Store_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	cache := openTestCache(t, nil)

	at := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		cachedFixture("m1", "c1", "first", at),
		cachedFixture("m2", "c1", "second", at.Add(1*time.Minute)),
		cachedFixture("m3", "c1", "third", at.Add(2*time.Minute)),
	}
	for _, msg := range messages {
		req.NoError(cache.StoreMessage(msg))
	}

	fetched, err := cache.GetMessages("c1")
	req.NoError(err)
	req.Equal(messages, fetched)
}

func Test_Store_Out_Of_Order_Reads_Chronological(t *testing.T) {
	req := require.New(t)
	cache := openTestCache(t, nil)

	at := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	req.NoError(cache.StoreMessage(cachedFixture("m3", "c1", "third", at.Add(2*time.Minute))))
	req.NoError(cache.StoreMessage(cachedFixture("m1", "c1", "first", at)))
	req.NoError(cache.StoreMessage(cachedFixture("m2", "c1", "second", at.Add(1*time.Minute))))

	fetched, err := cache.GetMessages("c1")
	req.NoError(err)
	req.Equal([]string{"m1", "m2", "m3"},
		lo.Map(fetched, func(m domain.Message, _ int) string { return m.ID }))
}

func Test_Limit_Keeps_Newest(t *testing.T) {
	req := require.New(t)
	limit := 2
	cache := openTestCache(t, &limit)

	at := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	for i, id := range []string{"m1", "m2", "m3"} {
		req.NoError(cache.StoreMessage(cachedFixture(id, "c1", id, at.Add(time.Duration(i)*time.Minute))))
	}

	fetched, err := cache.GetMessages("c1")
	req.NoError(err)
	req.Len(fetched, limit)
	req.Equal("m2", fetched[0].ID)
	req.Equal("m3", fetched[1].ID)
}

func Test_Conversations_Are_Isolated(t *testing.T) {
	req := require.New(t)
	cache := openTestCache(t, nil)

	at := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	req.NoError(cache.StoreMessage(cachedFixture("m1", "c1", "for c1", at)))
	req.NoError(cache.StoreMessage(cachedFixture("m2", "c2", "for c2", at)))

	fetched, err := cache.GetMessages("c1")
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("m1", fetched[0].ID)

	empty, err := cache.GetMessages("c3")
	req.NoError(err)
	req.Empty(empty)
}

func Test_Same_Nanosecond_No_Collision(t *testing.T) {
	req := require.New(t)
	cache := openTestCache(t, nil)

	at := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	req.NoError(cache.StoreMessage(cachedFixture("m1", "c1", "a", at)))
	req.NoError(cache.StoreMessage(cachedFixture("m2", "c1", "b", at)))

	fetched, err := cache.GetMessages("c1")
	req.NoError(err)
	req.Len(fetched, 2)
}

func Test_Optional_Fields_Survive_Roundtrip(t *testing.T) {
	req := require.New(t)
	cache := openTestCache(t, nil)

	msg := cachedFixture("m1", "c1", "with extras", time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC))
	msg.Image = lo.ToPtr("https://cdn.example.com/p.jpg")
	msg.ReplyTo = lo.ToPtr("m0")
	msg.IsRead = true
	msg.IsSentByMe = true
	req.NoError(cache.StoreMessage(msg))

	fetched, err := cache.GetMessages("c1")
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal(msg, fetched[0])
}
