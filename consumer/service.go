package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/freundallein/sqsplayground/chassis/logging"

	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/queue"
)

const (
	defaultWaitSeconds = 20
	defaultMaxMessages = 10

	retryPause = time.Second
)

// Config ...
type Config struct {
	Queue       queue.Client
	QueueName   string
	Handler     Handler
	WaitSeconds int
	MaxMessages int
	Workers     int
	// Rounds bounds the polling rounds per worker, 0 polls until ctx is done.
	Rounds int
}

func (cfg *Config) setDefaults() {
	if cfg.WaitSeconds == 0 {
		cfg.WaitSeconds = defaultWaitSeconds
	}
	if cfg.MaxMessages == 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.Handler == nil {
		cfg.Handler = LogHandler{}
	}
}

// Poll runs one long-poll round and returns the number of messages
// handled and acknowledged. Messages that fail to decode or to be
// handled are logged and left for redelivery.
func Poll(ctx context.Context, cfg *Config, address string, workerID int) (int, error) {
	log.WithFields(log.Fields{
		"event":  "wait_messages",
		"worker": workerID,
	}).Debug("waiting for messages...")
	messages, err := cfg.Queue.ReceiveMessages(ctx, address, cfg.WaitSeconds, cfg.MaxMessages)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"event":  "receive_messages",
		"worker": workerID,
	}).Debugf("got %d messages", len(messages))

	handler := cfg.Handler
	if handler == nil {
		handler = LogHandler{}
	}
	processed := 0
	for _, msg := range messages {
		data := &protocol.MessageData{}
		if err := data.FromJSON(msg.Body); err != nil {
			queue.DecodeFailuresTotal.WithLabelValues(queue.Label(address)).Inc()
			log.WithFields(log.Fields{
				"event":     "receive_broken_message",
				"worker":    workerID,
				"messageID": msg.ID,
			}).Error(err)
			continue
		}
		if err := handler.Handle(ctx, msg, data); err != nil {
			log.WithFields(log.Fields{
				"event":     "handle_message_failed",
				"worker":    workerID,
				"messageID": msg.ID,
			}).Error(err)
			continue
		}
		// if we don't delete the message it will be provided next time again
		if err := cfg.Queue.Acknowledge(ctx, address, msg.ReceiptHandle); err != nil {
			log.WithFields(log.Fields{
				"event":     "ack_message_failed",
				"worker":    workerID,
				"messageID": msg.ID,
			}).Error(err)
			continue
		}
		log.WithFields(log.Fields{
			"event":     "message_processed",
			"worker":    workerID,
			"messageID": msg.ID,
		}).Info(data)
		processed++
	}
	return processed, nil
}

func worker(ctx context.Context, cfg *Config, address string, workerID int, group *sync.WaitGroup) {
	defer group.Done()
	for round := 1; cfg.Rounds == 0 || round <= cfg.Rounds; round++ {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"event":  "ctx_canceled",
				"worker": workerID,
			}).Info("exit goroutine")
			return
		default:
		}
		_, err := Poll(ctx, cfg, address, workerID)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				continue
			}
			log.WithFields(log.Fields{
				"event":  "receive_failed",
				"worker": workerID,
			}).Error(err)
			select {
			case <-ctx.Done():
			case <-time.After(retryPause):
			}
		}
	}
	log.WithFields(log.Fields{
		"event":  "rounds_done",
		"worker": workerID,
	}).Info("exit goroutine")
}

// Run resolves the queue and starts cfg.Workers polling goroutines on group.
func Run(ctx context.Context, cfg *Config, group *sync.WaitGroup) error {
	cfg.setDefaults()
	address, err := cfg.Queue.ResolveQueueAddress(ctx, cfg.QueueName)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"event":   "start_service",
		"address": address,
	}).Info("starting ", cfg.Workers, " workers")
	for wrk := 1; wrk <= cfg.Workers; wrk++ {
		group.Add(1)
		go worker(ctx, cfg, address, wrk, group)
	}
	return nil
}
