package producer

import (
	"context"
	"fmt"

	log "github.com/freundallein/sqsplayground/chassis/logging"

	"github.com/freundallein/sqsplayground/chassis/monkey"
	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/template"
)

const defaultNamePrefix = "Charles Bronson"

// Config ...
type Config struct {
	Template   *template.Template
	QueueName  string
	Count      int
	NamePrefix string
	// Monkey replaces some payloads with bodies that do not decode.
	Monkey *monkey.Monkey
}

// Payload builds the i-th record of a batch.
func Payload(prefix string, i int) protocol.MessageData {
	if prefix == "" {
		prefix = defaultNamePrefix
	}
	return protocol.MessageData{Name: fmt.Sprintf("%s: %d", prefix, i), Age: i}
}

// SendBatch sends cfg.Count records and returns the ones that went out
// intact. It stops at the first send error.
func SendBatch(ctx context.Context, cfg *Config) ([]protocol.MessageData, error) {
	sent := make([]protocol.MessageData, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}
		payload := Payload(cfg.NamePrefix, i)
		body, err := payload.JSON()
		if err != nil {
			return sent, err
		}
		body, corrupted := cfg.Monkey.Corrupt(body)
		if _, err := cfg.Template.Send(ctx, cfg.QueueName, body); err != nil {
			log.WithFields(log.Fields{
				"event": "send_message_failed",
				"queue": cfg.QueueName,
			}).Error(err)
			return sent, err
		}
		if corrupted {
			log.WithFields(log.Fields{
				"event": "send_broken_message",
				"queue": cfg.QueueName,
			}).Info(string(body))
			continue
		}
		log.WithFields(log.Fields{
			"event": "send_message",
			"queue": cfg.QueueName,
		}).Debug(payload)
		sent = append(sent, payload)
	}
	return sent, nil
}
