package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Rambha123/voxspace/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const collaboratorSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	display_name TEXT,
	email        TEXT
);
CREATE TABLE IF NOT EXISTS space_members (
	space_id TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	PRIMARY KEY (space_id, user_id)
);
`

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("voxspace"),
		tcpostgres.WithUsername("voxspace"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, Config{DSN: dsn, MaxConns: 4, ApplicationName: "chat-service-test"})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, collaboratorSchema)
	require.NoError(t, err)
	return pool
}

func appendMsg(t *testing.T, r *MessageRepository, room, sender, content string, ts time.Time) domain.Message {
	t.Helper()
	m, err := r.Append(context.Background(), domain.Message{
		Room:      room,
		Sender:    domain.Sender{ID: sender, DisplayName: "name-" + sender},
		Content:   content,
		Timestamp: ts,
	})
	require.NoError(t, err)
	return m
}

func TestMessageRepository(t *testing.T) {
	pool := newTestPool(t)
	repo := NewMessageRepository(pool)
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("append assigns identity and order", func(t *testing.T) {
		a := appendMsg(t, repo, "a1_b2", "a1", "hi", t0)
		b := appendMsg(t, repo, "a1_b2", "b2", "yo", t0.Add(time.Second))

		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Greater(t, b.Seq, a.Seq)
		assert.Equal(t, "name-a1", a.Sender.DisplayName)
	})

	t.Run("recent returns newest window oldest first", func(t *testing.T) {
		msgs, err := repo.Recent(ctx, "a1_b2", 50)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "hi", msgs[0].Content)
		assert.Equal(t, "yo", msgs[1].Content)
		assert.True(t, msgs[0].Timestamp.Equal(t0))

		for i := 0; i < 5; i++ {
			appendMsg(t, repo, "room-x", "a1", "m", t0.Add(time.Duration(i)*time.Minute))
		}
		// same timestamp as the newest, later storage order
		tie := appendMsg(t, repo, "room-x", "a1", "tie", t0.Add(4*time.Minute))

		msgs, err = repo.Recent(ctx, "room-x", 3)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.True(t, msgs[0].Timestamp.Equal(t0.Add(3*time.Minute)))
		assert.Equal(t, tie.ID, msgs[2].ID)
	})

	t.Run("all for user covers direct rooms only", func(t *testing.T) {
		appendMsg(t, repo, "a1_c3", "c3", "hey", t0.Add(time.Hour))
		appendMsg(t, repo, "b2_c3", "b2", "not a1", t0)
		appendMsg(t, repo, "xa1_c3", "c3", "lookalike", t0)

		msgs, err := repo.AllForUser(ctx, "a1")
		require.NoError(t, err)

		rooms := map[string]int{}
		for _, m := range msgs {
			rooms[m.Room]++
		}
		assert.Equal(t, map[string]int{"a1_b2": 2, "a1_c3": 1}, rooms)
	})

	t.Run("history pages newest first", func(t *testing.T) {
		page, next, err := repo.History(ctx, "room-x", "", 4)
		require.NoError(t, err)
		require.Len(t, page, 4)
		require.NotEmpty(t, next)
		assert.Equal(t, "tie", page[0].Content)

		rest, next2, err := repo.History(ctx, "room-x", next, 4)
		require.NoError(t, err)
		assert.Len(t, rest, 2)
		assert.Empty(t, next2)
		assert.True(t, rest[1].Timestamp.Equal(t0))
	})
}

func TestUserAndMemberRepositories(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO users (id, display_name, email) VALUES ('b2', 'Bob', 'b@x.io')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO space_members (space_id, user_id) VALUES ('space-1', 'b2')`)
	require.NoError(t, err)

	users := NewUserRepository(pool)
	u, err := users.Resolve(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "b2", DisplayName: "Bob", Email: "b@x.io"}, u)

	_, err = users.Resolve(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	members := NewMemberRepository(pool)
	ok, err := members.IsMember(ctx, "space-1", "b2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = members.IsMember(ctx, "space-1", "a1")
	require.NoError(t, err)
	assert.False(t, ok)
}
