package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/metrics"
	"github.com/Rambha123/voxspace/internal/pagination"
)

const (
	DefaultReplayLimit      = 50
	DefaultMaxMessageLength = 4000
	DefaultStoreTimeout     = 5 * time.Second
)

type ChatOptions struct {
	MaxMessageLength int
	StoreTimeout     time.Duration
	Now              func() time.Time
}

type ChatService struct {
	store     MessageStore
	members   Membership
	publisher Publisher

	maxLen       int
	storeTimeout time.Duration
	now          func() time.Time
}

func NewChatService(store MessageStore, members Membership, publisher Publisher, opts ChatOptions) *ChatService {
	s := &ChatService{
		store:        store,
		members:      members,
		publisher:    publisher,
		maxLen:       opts.MaxMessageLength,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
	}
	if s.maxLen <= 0 {
		s.maxLen = DefaultMaxMessageLength
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = DefaultStoreTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Send validates the draft, persists it and only then fans it out to every
// subscriber of the room, the sender's own connection included. When Append
// fails nothing is delivered.
func (s *ChatService) Send(ctx context.Context, d domain.Draft) (domain.Message, error) {
	m, err := s.prepare(d)
	if err != nil {
		metrics.MessagesRejected.WithLabelValues("invalid").Inc()
		return domain.Message{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	stored, err := s.store.Append(sctx, m)
	metrics.StoreLatency.WithLabelValues("append").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MessagesRejected.WithLabelValues("persist").Inc()
		return domain.Message{}, fmt.Errorf("%w: %w", domain.ErrPersist, err)
	}
	metrics.MessagesPersisted.Inc()

	delivered := s.publisher.Publish(stored)
	metrics.Deliveries.WithLabelValues("ok").Add(float64(delivered))

	return stored, nil
}

func (s *ChatService) prepare(d domain.Draft) (domain.Message, error) {
	if strings.TrimSpace(d.Room) == "" {
		return domain.Message{}, domain.ErrMissingRoom
	}
	if err := domain.ValidateRoom(d.Room); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", domain.ErrInvalidMessage, err)
	}
	if strings.TrimSpace(d.Sender.ID) == "" {
		return domain.Message{}, domain.ErrMissingSender
	}

	// A file reference rides on its own line after any text.
	content := strings.TrimSpace(d.Content)
	if file := strings.TrimSpace(d.FileURL); file != "" {
		if content != "" {
			content += "\n"
		}
		content += file
	}
	if content == "" {
		return domain.Message{}, domain.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.maxLen {
		return domain.Message{}, domain.ErrMessageTooLong
	}

	ts := d.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	return domain.Message{
		Room:      d.Room,
		Sender:    d.Sender,
		Content:   content,
		Timestamp: domain.NormalizeTime(ts),
	}, nil
}

// Recent returns up to limit of the newest messages in room, oldest first.
func (s *ChatService) Recent(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultReplayLimit
	}
	limit = pagination.ClampLimit(limit)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	msgs, err := s.store.Recent(sctx, room, limit)
	metrics.StoreLatency.WithLabelValues("recent").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("store.Recent: %w", err)
	}
	return msgs, nil
}

// History pages through a room newest first.
func (s *ChatService) History(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	msgs, next, err := s.store.History(sctx, room, after, pagination.ClampLimit(limit))
	metrics.StoreLatency.WithLabelValues("history").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, "", fmt.Errorf("store.History: %w", err)
	}
	return msgs, next, nil
}

// Authorize checks that userID may read and write room: a participant of a
// direct room, or an accepted member of a space.
func (s *ChatService) Authorize(ctx context.Context, userID, room string) error {
	if err := domain.ValidateRoom(room); err != nil {
		return err
	}
	if domain.IsDirectRoom(room) {
		if _, ok := domain.Counterpart(room, userID); !ok {
			return domain.ErrForbidden
		}
		return nil
	}

	ok, err := s.members.IsMember(ctx, room, userID)
	if err != nil {
		return fmt.Errorf("membership.IsMember: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
