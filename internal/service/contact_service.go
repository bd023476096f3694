package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/metrics"
	"github.com/Rambha123/voxspace/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const resolveConcurrency = 8

type ContactService struct {
	store MessageStore
	users UserDirectory
}

func NewContactService(store MessageStore, users UserDirectory) *ContactService {
	return &ContactService{store: store, users: users}
}

// ContactsFor summarises every direct conversation of userID, most recent
// first. It scans all of the user's direct messages on each call; there is
// no materialised contact table.
func (s *ContactService) ContactsFor(ctx context.Context, userID string) ([]domain.Contact, error) {
	if err := domain.ValidateID(userID); err != nil {
		return nil, err
	}

	start := time.Now()
	msgs, err := s.store.AllForUser(ctx, userID)
	metrics.StoreLatency.WithLabelValues("all_for_user").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("store.AllForUser: %w", err)
	}

	latest := make(map[string]domain.Message)
	for _, m := range msgs {
		other, ok := domain.Counterpart(m.Room, userID)
		if !ok {
			logger.Ctx(ctx).Debug("contacts: skip room", slog.String("room", m.Room), slog.String("user_id", userID))
			continue
		}
		if cur, seen := latest[other]; !seen || cur.Before(m) {
			latest[other] = m
		}
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}

	resolved := make([]*domain.User, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			u, err := s.users.Resolve(gctx, id)
			switch {
			case err == nil:
				resolved[i] = &u
			case errors.Is(err, domain.ErrUserNotFound):
				// deleted account, dropped silently
			default:
				logger.Ctx(ctx).Warn("contacts: resolve counterpart failed",
					slog.String("counterpart_id", id), slog.Any("err", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	contacts := make([]domain.Contact, 0, len(ids))
	for i, id := range ids {
		u := resolved[i]
		if u == nil {
			continue
		}
		m := latest[id]
		contacts = append(contacts, domain.Contact{
			CounterpartID: id,
			DisplayName:   u.DisplayName,
			Email:         u.Email,
			LastMessage:   m.Content,
			LastMessageAt: m.Timestamp,
		})
	}

	sort.Slice(contacts, func(i, j int) bool {
		a, b := contacts[i], contacts[j]
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		return a.CounterpartID < b.CounterpartID
	})

	return contacts, nil
}
