package domain

import "time"

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
}

func (u User) Snapshot() Sender {
	return Sender{ID: u.ID, DisplayName: u.DisplayName}
}

// Contact summarises one direct conversation of a user.
type Contact struct {
	CounterpartID string    `json:"counterpart_id"`
	DisplayName   string    `json:"name"`
	Email         string    `json:"email"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"timestamp"`
}
