package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/pagination"

	"github.com/oklog/ulid/v2"
)

const cols = `id, seq, room, sender_id, sender_name, content, created_ms`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, m domain.Message) (domain.Message, error) {
	m.ID = ulid.Make().String()
	m.Timestamp = domain.NormalizeTime(m.Timestamp)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, room, sender_id, sender_name, content, created_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Room, m.Sender.ID, m.Sender.DisplayName, m.Content, m.Timestamp.UnixMilli())
	if err != nil {
		return domain.Message{}, fmt.Errorf("insert chat_messages: %w", err)
	}
	if m.Seq, err = res.LastInsertId(); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

func (s *Store) Recent(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cols+` FROM (
			SELECT `+cols+` FROM chat_messages
			WHERE room = ?
			ORDER BY created_ms DESC, seq DESC
			LIMIT ?
		) ORDER BY created_ms ASC, seq ASC`, room, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// AllForUser matches with GLOB: SQLite's LIKE folds ASCII case, and ids
// differing only in case are distinct users.
func (s *Store) AllForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	id := globEscaper.Replace(userID)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cols+` FROM chat_messages
		WHERE room GLOB ? OR room GLOB ?
		ORDER BY created_ms ASC, seq ASC`, id+domain.Separator+"*", "*"+domain.Separator+id)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// brackets make GLOB metacharacters literal
var globEscaper = strings.NewReplacer("[", "[[]", "*", "[*]", "?", "[?]")

func (s *Store) History(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error) {
	limit = pagination.ClampLimit(limit)
	cur, err := pagination.Decode(after)
	if err != nil {
		return nil, "", err
	}

	var rows *sql.Rows
	if cur == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+cols+` FROM chat_messages
			WHERE room = ?
			ORDER BY created_ms DESC, seq DESC
			LIMIT ?`, room, limit)
	} else {
		ms := cur.CreatedAt.UnixMilli()
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+cols+` FROM chat_messages
			WHERE room = ? AND (created_ms < ? OR (created_ms = ? AND seq < ?))
			ORDER BY created_ms DESC, seq DESC
			LIMIT ?`, room, ms, ms, cur.Seq, limit)
	}
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
		next, _ = pagination.Encode(pagination.Cursor{CreatedAt: last.Timestamp, Seq: last.Seq})
	}
	return out, next, nil
}

func collect(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m  domain.Message
			ms int64
		)
		if err := rows.Scan(&m.ID, &m.Seq, &m.Room, &m.Sender.ID, &m.Sender.DisplayName, &m.Content, &ms); err != nil {
			return nil, err
		}
		m.Timestamp = time.UnixMilli(ms).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) Resolve(ctx context.Context, userID string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, email FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.DisplayName, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (s *Store) IsMember(ctx context.Context, spaceID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM space_members WHERE space_id = ? AND user_id = ?`, spaceID, userID).Scan(&n)
	return n > 0, err
}

// UpsertUser and AddMember seed the local collaborator tables.
func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, email = excluded.email`,
		u.ID, u.DisplayName, u.Email)
	return err
}

func (s *Store) AddMember(ctx context.Context, spaceID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO space_members (space_id, user_id) VALUES (?, ?)`, spaceID, userID)
	return err
}
