package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	memoryScheme = "memory://"

	defaultVisibility = 30 * time.Second
	pollInterval      = 50 * time.Millisecond
)

type memMessage struct {
	id        string
	body      []byte
	handle    string
	visibleAt time.Time
}

type memQueue struct {
	messages []*memMessage
	// closed and replaced on every send to wake long-polls
	wake chan struct{}
}

// MemoryQueue is an in-process backend with SQS delivery semantics:
// a received message stays invisible for the visibility timeout and
// comes back unless it is acknowledged with its latest receipt handle.
type MemoryQueue struct {
	mu         sync.Mutex
	queues     map[string]*memQueue
	visibility time.Duration
	seq        uint64
}

// NewMemoryQueue ...
func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = defaultVisibility
	}
	return &MemoryQueue{
		queues:     map[string]*memQueue{},
		visibility: visibility,
	}
}

// CreateQueue registers name and returns its address. Existing queues are kept.
func (q *MemoryQueue) CreateQueue(name string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queues[name]; !ok {
		q.queues[name] = &memQueue{wake: make(chan struct{})}
	}
	return memoryScheme + name
}

// Pending returns the number of messages not yet acknowledged, in flight included.
func (q *MemoryQueue) Pending(address string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	mq, err := q.lookup(address)
	if err != nil {
		return 0
	}
	return len(mq.messages)
}

// ResolveQueueAddress ...
func (q *MemoryQueue) ResolveQueueAddress(_ context.Context, name string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queues[name]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return memoryScheme + name, nil
}

// SendMessage ...
func (q *MemoryQueue) SendMessage(_ context.Context, address string, body []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	mq, err := q.lookup(address)
	if err != nil {
		return "", err
	}
	q.seq++
	msg := &memMessage{
		id:   fmt.Sprintf("mem-%d", q.seq),
		body: append([]byte(nil), body...),
	}
	mq.messages = append(mq.messages, msg)
	close(mq.wake)
	mq.wake = make(chan struct{})

	MessagesSentTotal.WithLabelValues(Label(address)).Inc()
	log.WithFields(log.Fields{
		"event": "send_message",
		"queue": "memory",
	}).Debug(msg.id)
	return msg.id, nil
}

// ReceiveMessages ...
func (q *MemoryQueue) ReceiveMessages(ctx context.Context, address string, waitSeconds int, maxMessages int) ([]*RecvMessage, error) {
	maxMessages = clamp(maxMessages, 1, sqsMaxMessages)
	start := time.Now()
	deadline := start.Add(time.Duration(clamp(waitSeconds, 0, sqsMaxWait)) * time.Second)
	defer func() {
		ReceiveDuration.Observe(time.Since(start).Seconds())
	}()

	for {
		q.mu.Lock()
		mq, err := q.lookup(address)
		if err != nil {
			q.mu.Unlock()
			return nil, err
		}
		messages := q.take(mq, maxMessages)
		wake := mq.wake
		q.mu.Unlock()

		now := time.Now()
		if len(messages) > 0 || !now.Before(deadline) {
			MessagesReceivedTotal.WithLabelValues(Label(address)).Add(float64(len(messages)))
			return messages, nil
		}

		// visibility timeouts expire without a send, so re-check periodically
		wait := deadline.Sub(now)
		if wait > pollInterval {
			wait = pollInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Acknowledge ...
func (q *MemoryQueue) Acknowledge(_ context.Context, address string, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	mq, err := q.lookup(address)
	if err != nil {
		return err
	}
	for i, msg := range mq.messages {
		if receiptHandle != "" && msg.handle == receiptHandle {
			mq.messages = append(mq.messages[:i], mq.messages[i+1:]...)
			MessagesAcknowledgedTotal.WithLabelValues(Label(address)).Inc()
			log.WithFields(log.Fields{
				"event": "delete_message",
				"queue": "memory",
			}).Debug(msg.id)
			return nil
		}
	}
	AcknowledgeFailuresTotal.WithLabelValues(Label(address)).Inc()
	return fmt.Errorf("%w: %s", ErrInvalidHandle, receiptHandle)
}

// lookup expects q.mu to be held.
func (q *MemoryQueue) lookup(address string) (*memQueue, error) {
	mq, ok := q.queues[strings.TrimPrefix(address, memoryScheme)]
	if !ok || !strings.HasPrefix(address, memoryScheme) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return mq, nil
}

// take expects q.mu to be held.
func (q *MemoryQueue) take(mq *memQueue, maxMessages int) []*RecvMessage {
	now := time.Now()
	messages := []*RecvMessage{}
	for _, msg := range mq.messages {
		if len(messages) == maxMessages {
			break
		}
		if now.Before(msg.visibleAt) {
			continue
		}
		q.seq++
		msg.handle = fmt.Sprintf("%s-%d", msg.id, q.seq)
		msg.visibleAt = now.Add(q.visibility)
		messages = append(messages, &RecvMessage{
			ID:            msg.id,
			Body:          append([]byte(nil), msg.body...),
			ReceiptHandle: msg.handle,
		})
	}
	return messages
}
