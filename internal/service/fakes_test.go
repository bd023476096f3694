package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/Rambha123/voxspace/internal/domain"
)

var errStoreDown = errors.New("store down")

type memStore struct {
	mu         sync.Mutex
	msgs       []domain.Message
	failAppend bool
	failRecent bool
	unfiltered bool // AllForUser returns every row, like a store with dirty data
}

func (s *memStore) Append(_ context.Context, m domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return domain.Message{}, errStoreDown
	}
	m.Seq = int64(len(s.msgs) + 1)
	m.ID = "m" + strconv.FormatInt(m.Seq, 10)
	s.msgs = append(s.msgs, m)
	return m, nil
}

func (s *memStore) Recent(_ context.Context, room string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRecent {
		return nil, errStoreDown
	}
	var out []domain.Message
	for _, m := range s.msgs {
		if m.Room == room {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) AllForUser(_ context.Context, userID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.msgs {
		if s.unfiltered {
			out = append(out, m)
			continue
		}
		if a, b, ok := domain.ParseDirectRoom(m.Room); ok && (a == userID || b == userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) History(ctx context.Context, room, _ string, limit int) ([]domain.Message, string, error) {
	msgs, err := s.Recent(ctx, room, limit)
	return msgs, "", err
}

func (s *memStore) count(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.Room == room {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []domain.Message
	fanout    int
}

func (p *recordingPublisher) Publish(m domain.Message) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, m)
	return p.fanout
}

type staticDirectory struct {
	users map[string]domain.User
	fail  map[string]bool
}

func (d staticDirectory) Resolve(_ context.Context, id string) (domain.User, error) {
	if d.fail[id] {
		return domain.User{}, errStoreDown
	}
	u, ok := d.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

type staticMembership map[string][]string

func (m staticMembership) IsMember(_ context.Context, spaceID, userID string) (bool, error) {
	if spaceID == "broken" {
		return false, errStoreDown
	}
	for _, u := range m[spaceID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}
