package template

import (
	"context"
	"strings"
	"sync"

	log "github.com/freundallein/sqsplayground/chassis/logging"
	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/queue"
)

const defaultWaitSeconds = 20

var addressPrefixes = []string{"http://", "https://", "memory://"}

// Template converts application objects to queue payloads and back.
type Template struct {
	client      queue.Client
	waitSeconds int

	mu        sync.RWMutex
	addresses map[string]string
}

// Option ...
type Option func(*Template)

// WithWaitSeconds sets the long-poll used by ReceiveAndConvert.
func WithWaitSeconds(seconds int) Option {
	return func(t *Template) {
		t.waitSeconds = seconds
	}
}

// New ...
func New(client queue.Client, opts ...Option) *Template {
	t := &Template{
		client:      client,
		waitSeconds: defaultWaitSeconds,
		addresses:   map[string]string{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Client exposes the underlying adapter.
func (t *Template) Client() queue.Client {
	return t.client
}

// Resolve maps a queue name to its address. Addresses pass through
// unchanged and resolved names are cached.
func (t *Template) Resolve(ctx context.Context, queueName string) (string, error) {
	for _, prefix := range addressPrefixes {
		if strings.HasPrefix(queueName, prefix) {
			return queueName, nil
		}
	}
	t.mu.RLock()
	address, ok := t.addresses[queueName]
	t.mu.RUnlock()
	if ok {
		return address, nil
	}
	address, err := t.client.ResolveQueueAddress(ctx, queueName)
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	t.addresses[queueName] = address
	t.mu.Unlock()
	return address, nil
}

// Send enqueues a raw body.
func (t *Template) Send(ctx context.Context, queueName string, body []byte) (string, error) {
	address, err := t.Resolve(ctx, queueName)
	if err != nil {
		return "", err
	}
	return t.client.SendMessage(ctx, address, body)
}

// ConvertAndSend serializes v and enqueues it.
func (t *Template) ConvertAndSend(ctx context.Context, queueName string, v interface{}) error {
	body, err := protocol.Encode(v)
	if err != nil {
		return err
	}
	ID, err := t.Send(ctx, queueName, body)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"event":     "convert_and_send",
		"queue":     queueName,
		"messageID": ID,
	}).Debug(v)
	return nil
}

// ReceiveAndConvert receives a single message, decodes it into out and
// acknowledges it. It reports false when nothing arrived. A body that
// does not decode is left in the queue and a *protocol.SerializationError
// is returned.
func (t *Template) ReceiveAndConvert(ctx context.Context, queueName string, out interface{}) (bool, error) {
	address, err := t.Resolve(ctx, queueName)
	if err != nil {
		return false, err
	}
	// one at a time, anything more would stay hidden until its visibility timeout
	messages, err := t.client.ReceiveMessages(ctx, address, t.waitSeconds, 1)
	if err != nil {
		return false, err
	}
	if len(messages) == 0 {
		return false, nil
	}
	msg := messages[0]
	if err := protocol.Decode(msg.Body, out); err != nil {
		queue.DecodeFailuresTotal.WithLabelValues(queue.Label(address)).Inc()
		log.WithFields(log.Fields{
			"event":     "receive_broken_message",
			"queue":     queueName,
			"messageID": msg.ID,
		}).Error(err)
		return false, err
	}
	if err := t.client.Acknowledge(ctx, address, msg.ReceiptHandle); err != nil {
		log.WithFields(log.Fields{
			"event":     "ack_message_failed",
			"queue":     queueName,
			"messageID": msg.ID,
		}).Error(err)
	}
	return true, nil
}
