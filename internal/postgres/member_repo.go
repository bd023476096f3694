package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberRepository reads accepted space memberships.
type MemberRepository struct {
	db *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) IsMember(ctx context.Context, spaceID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM space_members WHERE space_id=$1 AND user_id=$2)`,
		spaceID, userID).Scan(&exists)
	return exists, err
}
