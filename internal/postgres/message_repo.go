package postgres

import (
	"context"
	"fmt"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/pagination"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

const (
	qAppend = `
		INSERT INTO chat_messages (id, room, sender_id, sender_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq`

	qRecent = `
		SELECT id, seq, room, sender_id, sender_name, content, created_at
		FROM (
			SELECT id, seq, room, sender_id, sender_name, content, created_at
			FROM chat_messages
			WHERE room = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC`

	qAllForUser = `
		SELECT id, seq, room, sender_id, sender_name, content, created_at
		FROM chat_messages
		WHERE room LIKE $1 ESCAPE '\' OR room LIKE $2 ESCAPE '\'
		ORDER BY created_at ASC, seq ASC`

	qHistory = `
		SELECT id, seq, room, sender_id, sender_name, content, created_at
		FROM chat_messages
		WHERE room = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND seq < $3)
		  )
		ORDER BY created_at DESC, seq DESC
		LIMIT $4`
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append stores m under a fresh ULID; seq comes from the table sequence.
func (r *MessageRepository) Append(ctx context.Context, m domain.Message) (domain.Message, error) {
	m.ID = ulid.Make().String()
	m.Timestamp = domain.NormalizeTime(m.Timestamp)

	err := r.db.QueryRow(ctx, qAppend,
		m.ID, m.Room, m.Sender.ID, m.Sender.DisplayName, m.Content, m.Timestamp,
	).Scan(&m.Seq)
	if err != nil {
		return domain.Message{}, fmt.Errorf("insert chat_messages: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) Recent(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, qRecent, room, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// AllForUser matches direct rooms "<user>_x" and "x_<user>". Space ids cannot
// contain the separator, so space rooms never match.
func (r *MessageRepository) AllForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	prefix, suffix := domain.DirectRoomPatterns(userID)
	rows, err := r.db.Query(ctx, qAllForUser, prefix, suffix)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *MessageRepository) History(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error) {
	limit = pagination.ClampLimit(limit)
	cur, err := pagination.Decode(after)
	if err != nil {
		return nil, "", err
	}

	var createdAt, seq any
	if cur != nil {
		createdAt = cur.CreatedAt
		seq = cur.Seq
	}

	rows, err := r.db.Query(ctx, qHistory, room, createdAt, seq, limit)
	if err != nil {
		return nil, "", err
	}
	out, err := collect(rows)
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := pagination.Encode(pagination.Cursor{CreatedAt: last.Timestamp, Seq: last.Seq}); e == nil {
			next = c
		}
	}
	return out, next, nil
}

func collect(rows pgx.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Seq, &m.Room, &m.Sender.ID, &m.Sender.DisplayName, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
