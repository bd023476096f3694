package service

import (
	"context"

	"github.com/Rambha123/voxspace/internal/domain"
)

// MessageStore is the append-only chat log.
type MessageStore interface {
	Append(ctx context.Context, m domain.Message) (domain.Message, error)
	Recent(ctx context.Context, room string, limit int) ([]domain.Message, error)
	AllForUser(ctx context.Context, userID string) ([]domain.Message, error)
	History(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error)
}

// UserDirectory resolves identities owned by the identity service.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (domain.User, error)
}

// Membership answers whether a user is an accepted member of a space.
type Membership interface {
	IsMember(ctx context.Context, spaceID, userID string) (bool, error)
}

// Publisher fans a stored message out to the room's subscribers and
// reports how many deliveries succeeded.
type Publisher interface {
	Publish(m domain.Message) int
}
