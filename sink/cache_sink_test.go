package sink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lovewire/domain"
	"lovewire/domain/event"
	"lovewire/mocks"
)

func testSink(t *testing.T) (CacheSink, *mocks.MockIMessageCache) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	cache := mocks.NewMockIMessageCache(ctrl)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCacheSink(cache, log), cache
}

func TestCacheSink_PersistsInboundMessages(t *testing.T) {
	req := require.New(t)
	s, cache := testSink(t)

	msg := domain.Message{
		ID:             "m1",
		ConversationID: "c1",
		Text:           lo.ToPtr("hi"),
		SentAt:         time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC),
	}
	cache.EXPECT().StoreMessage(msg).Return(nil).Times(1)

	req.NoError(s.Consume(context.Background(), event.MessageReceived{Message: msg}))
}

func TestCacheSink_PersistsOptimisticSends(t *testing.T) {
	req := require.New(t)
	s, cache := testSink(t)

	msg := domain.Message{
		ID:             "local-1",
		ConversationID: "c1",
		Text:           lo.ToPtr("on its way"),
		SentAt:         time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC),
		IsSentByMe:     true,
	}
	cache.EXPECT().StoreMessage(msg).Return(nil).Times(1)

	req.NoError(s.Consume(context.Background(), event.MessageQueued{Message: msg}))
}

func TestCacheSink_IgnoresOtherEvents(t *testing.T) {
	req := require.New(t)
	s, _ := testSink(t)

	// No StoreMessage expectation: a presence event must not touch the cache.
	evt := event.UserStatusChanged{Status: domain.Status{UserID: "u1", IsOnline: true}}
	req.NoError(s.Consume(context.Background(), evt))
}

func TestCacheSink_PropagatesStoreErrors(t *testing.T) {
	req := require.New(t)
	s, cache := testSink(t)

	storeErr := errors.New("disk full")
	cache.EXPECT().StoreMessage(gomock.Any()).Return(storeErr).Times(1)

	err := s.Consume(context.Background(), event.MessageReceived{Message: domain.Message{ID: "m1"}})
	req.ErrorIs(err, storeErr)
}
