package queue

import (
	"context"
	"errors"
)

var (
	// ErrNotFound - queue name cannot be resolved to an address
	ErrNotFound = errors.New("queue not found")
	// ErrInvalidHandle - receipt handle is unknown or was already acknowledged
	ErrInvalidHandle = errors.New("invalid receipt handle")
)

// Config - unified configuration for queue service
type Config struct {
	Type string

	//AWS specified
	Endpoint           string
	Region             string
	CredentialsFile    string
	CredentialsProfile string
	Retries            int

	//memory specified
	VisibilityTimeout int
	Precreate         []string
}

// RecvMessage unified presentation for queue message
type RecvMessage struct {
	ID            string
	Body          []byte
	ReceiptHandle string
}

// Client interface for queue interaction (SQS Based)
type Client interface {
	ResolveQueueAddress(ctx context.Context, name string) (string, error)
	SendMessage(ctx context.Context, address string, body []byte) (string, error)
	// ReceiveMessages returns an empty slice when nothing arrived within waitSeconds.
	ReceiveMessages(ctx context.Context, address string, waitSeconds int, maxMessages int) ([]*RecvMessage, error)
	Acknowledge(ctx context.Context, address string, receiptHandle string) error
}
