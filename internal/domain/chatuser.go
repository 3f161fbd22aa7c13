package domain

import "time"

// ChatUser is one end user of one bot. Memory holds the sealed conversation
// blob and is nil until the first completed turn.
type ChatUser struct {
	ID            string
	BotIdentity   string
	UserID        int64
	Memory        []byte
	EncryptionKey string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *ChatUser) HasMemory() bool {
	return len(u.Memory) > 0
}
