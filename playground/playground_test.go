package playground

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/freundallein/sqsplayground/chassis/monkey"
	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/queue"
	"github.com/freundallein/sqsplayground/chassis/template"
	"github.com/freundallein/sqsplayground/consumer"
	"github.com/freundallein/sqsplayground/producer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplate(visibility time.Duration) (*template.Template, *queue.MemoryQueue, string) {
	mem := queue.NewMemoryQueue(visibility)
	address := mem.CreateQueue("testqueue")
	return template.New(mem, template.WithWaitSeconds(1)), mem, address
}

func TestRoundTrip(t *testing.T) {
	tpl, mem, address := newTemplate(time.Minute)

	result, err := RoundTrip(context.Background(), tpl, "testqueue", protocol.MessageData{Name: "Charles Bronson", Age: 79})
	require.NoError(t, err)
	assert.True(t, result.Equal)
	require.NotNil(t, result.Received)
	assert.Equal(t, protocol.MessageData{Name: "Charles Bronson", Age: 79}, *result.Received)
	assert.Equal(t, 0, mem.Pending(address))
}

func TestRoundTripUnknownQueue(t *testing.T) {
	tpl, _, _ := newTemplate(time.Minute)

	_, err := RoundTrip(context.Background(), tpl, "missing", protocol.MessageData{Name: "x"})
	assert.True(t, errors.Is(err, queue.ErrNotFound))
}

func TestConcurrentRoundTrip(t *testing.T) {
	tpl, mem, address := newTemplate(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	received, err := ConcurrentRoundTrip(ctx, Deps{
		Template:    tpl,
		QueueName:   "testqueue",
		WaitSeconds: 20,
		MaxMessages: 10,
	}, 4)
	require.NoError(t, err)

	expected := make([]protocol.MessageData, 0, 4)
	for i := 0; i < 4; i++ {
		expected = append(expected, producer.Payload("", i))
	}
	assert.ElementsMatch(t, expected, received)
	assert.Eventually(t, func() bool {
		return mem.Pending(address) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentRoundTripRunsExtraHandler(t *testing.T) {
	tpl, _, _ := newTemplate(time.Minute)
	var mu sync.Mutex
	journal := map[string]int{}
	handler := consumer.HandlerFunc(func(_ context.Context, msg *queue.RecvMessage, data *protocol.MessageData) error {
		mu.Lock()
		defer mu.Unlock()
		journal[msg.ID] = data.Age
		return nil
	})

	received, err := ConcurrentRoundTrip(context.Background(), Deps{
		Template:  tpl,
		QueueName: "testqueue",
		Handler:   handler,
	}, 3)
	require.NoError(t, err)
	assert.Len(t, received, 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, journal, 3)
}

func TestConcurrentRoundTripSkipsBrokenPayloads(t *testing.T) {
	tpl, mem, address := newTemplate(time.Minute)

	received, err := ConcurrentRoundTrip(context.Background(), Deps{
		Template:    tpl,
		QueueName:   "testqueue",
		WaitSeconds: 1,
		Monkey:      monkey.NewWithSeed(1, 3),
	}, 2)
	require.NoError(t, err)
	assert.Empty(t, received)
	assert.Equal(t, 2, mem.Pending(address), "broken payloads wait for redelivery")
}

func TestConcurrentRoundTripTimesOut(t *testing.T) {
	tpl, _, _ := newTemplate(time.Minute)
	failing := consumer.HandlerFunc(func(context.Context, *queue.RecvMessage, *protocol.MessageData) error {
		return errors.New("journal down")
	})
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	received, err := ConcurrentRoundTrip(ctx, Deps{
		Template:    tpl,
		QueueName:   "testqueue",
		WaitSeconds: 1,
		Handler:     failing,
	}, 2)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, received)
}

// stubbornQueue never acknowledges and delays the second send, so the
// first message is redelivered while the second is still on its way.
type stubbornQueue struct {
	*queue.MemoryQueue

	mu    sync.Mutex
	sends int
}

func (q *stubbornQueue) SendMessage(ctx context.Context, address string, body []byte) (string, error) {
	q.mu.Lock()
	q.sends++
	delayed := q.sends == 2
	q.mu.Unlock()
	if delayed {
		time.Sleep(400 * time.Millisecond)
	}
	return q.MemoryQueue.SendMessage(ctx, address, body)
}

func (q *stubbornQueue) Acknowledge(context.Context, string, string) error {
	return queue.ErrInvalidHandle
}

func TestConcurrentRoundTripCollectsRedeliveryOnce(t *testing.T) {
	mem := queue.NewMemoryQueue(100 * time.Millisecond)
	mem.CreateQueue("testqueue")
	tpl := template.New(&stubbornQueue{MemoryQueue: mem}, template.WithWaitSeconds(1))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	received, err := ConcurrentRoundTrip(ctx, Deps{
		Template:    tpl,
		QueueName:   "testqueue",
		WaitSeconds: 1,
		MaxMessages: 10,
	}, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []protocol.MessageData{producer.Payload("", 0), producer.Payload("", 1)}, received)
}

func TestConcurrentRoundTripUnknownQueue(t *testing.T) {
	tpl, _, _ := newTemplate(time.Minute)

	_, err := ConcurrentRoundTrip(context.Background(), Deps{Template: tpl, QueueName: "missing"}, 1)
	assert.True(t, errors.Is(err, queue.ErrNotFound))
}
