package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Rambha123/voxspace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newChat(store *memStore, pub *recordingPublisher) *ChatService {
	return NewChatService(store, staticMembership{"space-1": {"a1"}}, pub, ChatOptions{
		MaxMessageLength: 20,
		Now:              func() time.Time { return t0 },
	})
}

func alice() domain.Sender { return domain.Sender{ID: "a1", DisplayName: "Alice"} }

func TestSend_PersistsThenPublishes(t *testing.T) {
	store := &memStore{}
	pub := &recordingPublisher{fanout: 2}
	svc := newChat(store, pub)

	got, err := svc.Send(context.Background(), domain.Draft{Room: "a1_b2", Sender: alice(), Content: "  hi  "})
	require.NoError(t, err)

	assert.Equal(t, "hi", got.Content)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, t0, got.Timestamp)
	assert.Equal(t, 1, store.count("a1_b2"))
	require.Len(t, pub.published, 1)
	assert.Equal(t, got, pub.published[0])
}

func TestSend_KeepsClientTimestamp(t *testing.T) {
	svc := newChat(&memStore{}, &recordingPublisher{})
	ts := time.Date(2026, 4, 30, 8, 0, 0, 123456789, time.FixedZone("X", 3600))

	got, err := svc.Send(context.Background(), domain.Draft{Room: "a1_b2", Sender: alice(), Content: "x", Timestamp: ts})
	require.NoError(t, err)
	assert.True(t, got.Timestamp.Equal(ts.Truncate(time.Millisecond)))
	assert.Equal(t, time.UTC, got.Timestamp.Location())
}

func TestSend_FileReferenceBecomesContent(t *testing.T) {
	svc := newChat(&memStore{}, &recordingPublisher{})

	got, err := svc.Send(context.Background(), domain.Draft{Room: "space-1", Sender: alice(), FileURL: "/uploads/m/1.png"})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/m/1.png", got.Content)
}

func TestSend_TextAndFileKeepsBoth(t *testing.T) {
	store := &memStore{}
	svc := newChat(store, &recordingPublisher{})

	got, err := svc.Send(context.Background(), domain.Draft{Room: "space-1", Sender: alice(), Content: " see ", FileURL: "/u/1.png"})
	require.NoError(t, err)
	assert.Equal(t, "see\n/u/1.png", got.Content)

	// the limit applies to the joined text
	_, err = svc.Send(context.Background(), domain.Draft{Room: "space-1", Sender: alice(), Content: "0123456789ab", FileURL: "/u/1.png"})
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)
}

func TestSend_LengthCountsCharacters(t *testing.T) {
	svc := newChat(&memStore{}, &recordingPublisher{})

	_, err := svc.Send(context.Background(), domain.Draft{Room: "space-1", Sender: alice(), Content: strings.Repeat("語", 20)})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), domain.Draft{Room: "space-1", Sender: alice(), Content: strings.Repeat("語", 21)})
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)
}

func TestSend_ValidationRejectsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name string
		d    domain.Draft
		want error
	}{
		{"no room", domain.Draft{Sender: alice(), Content: "x"}, domain.ErrMissingRoom},
		{"bad room", domain.Draft{Room: "a1_", Sender: alice(), Content: "x"}, domain.ErrInvalidRoom},
		{"no sender", domain.Draft{Room: "a1_b2", Content: "x"}, domain.ErrMissingSender},
		{"blank", domain.Draft{Room: "a1_b2", Sender: alice(), Content: "   "}, domain.ErrEmptyContent},
		{"too long", domain.Draft{Room: "a1_b2", Sender: alice(), Content: strings.Repeat("x", 21)}, domain.ErrMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			pub := &recordingPublisher{}
			_, err := newChat(store, pub).Send(context.Background(), tt.d)

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrInvalidMessage)
			assert.Empty(t, store.msgs)
			assert.Empty(t, pub.published)
		})
	}
}

func TestSend_PersistFailureNeverBroadcasts(t *testing.T) {
	store := &memStore{failAppend: true}
	pub := &recordingPublisher{fanout: 3}
	svc := newChat(store, pub)

	_, err := svc.Send(context.Background(), domain.Draft{Room: "a1_b2", Sender: alice(), Content: "lost"})

	assert.ErrorIs(t, err, domain.ErrPersist)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, pub.published)

	store.failAppend = false
	msgs, err := svc.Recent(context.Background(), "a1_b2", 50)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRecent_OrderedAndBounded(t *testing.T) {
	store := &memStore{}
	svc := newChat(store, &recordingPublisher{})
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		ts := t0.Add(time.Duration(60-i) * time.Second) // inserted newest-first
		_, err := svc.Send(ctx, domain.Draft{Room: "a1_b2", Sender: alice(), Content: "m", Timestamp: ts})
		require.NoError(t, err)
	}

	msgs, err := svc.Recent(ctx, "a1_b2", 0)
	require.NoError(t, err)
	require.Len(t, msgs, DefaultReplayLimit)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp))
	}
	assert.Equal(t, t0.Add(60*time.Second), msgs[len(msgs)-1].Timestamp)
}

func TestRecent_StoreFailure(t *testing.T) {
	svc := newChat(&memStore{failRecent: true}, &recordingPublisher{})
	_, err := svc.Recent(context.Background(), "a1_b2", 10)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestAuthorize(t *testing.T) {
	svc := newChat(&memStore{}, &recordingPublisher{})
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "a1", "a1_b2"))
	assert.NoError(t, svc.Authorize(ctx, "b2", "a1_b2"))
	assert.ErrorIs(t, svc.Authorize(ctx, "c3", "a1_b2"), domain.ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, "a1", "space-1"))
	assert.ErrorIs(t, svc.Authorize(ctx, "b2", "space-1"), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "a1", "broken"), errStoreDown)
	assert.ErrorIs(t, svc.Authorize(ctx, "a1", "bad room"), domain.ErrInvalidRoom)
}
