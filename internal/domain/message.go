package domain

import "time"

// Sender is a value snapshot taken when the message is sent; later profile
// changes never rewrite history.
type Sender struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Message is immutable once persisted. Seq is the storage order and breaks
// timestamp ties.
type Message struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Room      string    `json:"room"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Before orders messages by timestamp, then storage order.
func (m Message) Before(o Message) bool {
	if !m.Timestamp.Equal(o.Timestamp) {
		return m.Timestamp.Before(o.Timestamp)
	}
	return m.Seq < o.Seq
}

// Draft is a message as submitted by a client, before validation.
type Draft struct {
	Room      string
	Sender    Sender
	Content   string
	FileURL   string
	Timestamp time.Time
}

// NormalizeTime drops sub-millisecond precision so every store and the
// wire format agree on the value.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
