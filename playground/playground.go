// Package playground wires the template, consumer and producer into the
// two demo scenarios: a synchronous round trip and a background consumer
// racing a producer.
package playground

import (
	"context"
	"sync"

	log "github.com/freundallein/sqsplayground/chassis/logging"

	"github.com/freundallein/sqsplayground/chassis/monkey"
	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/queue"
	"github.com/freundallein/sqsplayground/chassis/template"
	"github.com/freundallein/sqsplayground/consumer"
	"github.com/freundallein/sqsplayground/producer"
)

// Result of a single round trip.
type Result struct {
	Sent     protocol.MessageData
	Received *protocol.MessageData
	Equal    bool
}

// RoundTrip sends payload and receives it back through the template.
func RoundTrip(ctx context.Context, tpl *template.Template, queueName string, payload protocol.MessageData) (*Result, error) {
	if err := tpl.ConvertAndSend(ctx, queueName, &payload); err != nil {
		return nil, err
	}
	result := &Result{Sent: payload}
	loaded := &protocol.MessageData{}
	ok, err := tpl.ReceiveAndConvert(ctx, queueName, loaded)
	if err != nil {
		return nil, err
	}
	if ok {
		result.Received = loaded
	}
	result.Equal = payload.Equal(result.Received)
	log.WithFields(log.Fields{
		"event": "round_trip",
		"queue": queueName,
	}).Info("message is equal: ", result.Equal)
	return result, nil
}

// Deps ...
type Deps struct {
	Template    *template.Template
	QueueName   string
	WaitSeconds int
	MaxMessages int
	NamePrefix  string
	// Handler runs before a message is collected, e.g. the storage journal.
	Handler consumer.Handler
	Monkey  *monkey.Monkey
}

// ConcurrentRoundTrip starts a background consumer, sends count records
// and returns what the consumer got once every intact record arrived or
// ctx ended. Redeliveries are collected once per message ID. Order is not
// guaranteed.
func ConcurrentRoundTrip(ctx context.Context, deps Deps, count int) ([]protocol.MessageData, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	got := make(chan protocol.MessageData, count)
	var mu sync.Mutex
	seen := map[string]bool{}
	collect := consumer.HandlerFunc(func(ctx context.Context, msg *queue.RecvMessage, data *protocol.MessageData) error {
		if deps.Handler != nil {
			if err := deps.Handler.Handle(ctx, msg, data); err != nil {
				return err
			}
		}
		mu.Lock()
		defer mu.Unlock()
		// a failed ack brings the same message back
		if seen[msg.ID] {
			return nil
		}
		seen[msg.ID] = true
		select {
		case got <- *data:
		default:
		}
		return nil
	})
	cfg := &consumer.Config{
		Queue:       deps.Template.Client(),
		QueueName:   deps.QueueName,
		Handler:     collect,
		WaitSeconds: deps.WaitSeconds,
		MaxMessages: deps.MaxMessages,
		Workers:     1,
	}
	var group sync.WaitGroup
	if err := consumer.Run(ctx, cfg, &group); err != nil {
		return nil, err
	}
	defer group.Wait()

	sent, err := producer.SendBatch(ctx, &producer.Config{
		Template:   deps.Template,
		QueueName:  deps.QueueName,
		Count:      count,
		NamePrefix: deps.NamePrefix,
		Monkey:     deps.Monkey,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	received := make([]protocol.MessageData, 0, len(sent))
	for len(received) < len(sent) {
		select {
		case data := <-got:
			received = append(received, data)
		case <-ctx.Done():
			return received, ctx.Err()
		}
	}
	cancel()
	log.WithFields(log.Fields{
		"event": "concurrent_round_trip",
		"queue": deps.QueueName,
	}).Infof("sent %d, received %d", len(sent), len(received))
	return received, nil
}
