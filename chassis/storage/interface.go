package storage

import (
	"context"
	"time"

	"github.com/freundallein/sqsplayground/chassis/protocol"
)

// Config - ...
type Config struct {
	DSN string
}

// Entry - a consumed message as stored in the journal
type Entry struct {
	MessageID  string
	Data       protocol.MessageData
	ReceivedDt time.Time
}

// Journal records consumed messages before they are acknowledged.
type Journal interface {
	Record(ctx context.Context, messageID string, data *protocol.MessageData) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

var _ Journal = (*PGJournal)(nil)
