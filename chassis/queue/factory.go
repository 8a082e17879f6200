package queue

import (
	"fmt"
	"time"
)

// New builds a Client for the configured backend.
func New(cfg Config) (Client, error) {
	switch cfg.Type {
	case "sqs", "":
		q, err := InitAWSQueue(cfg)
		if err != nil {
			return nil, err
		}
		return q, nil
	case "memory":
		q := NewMemoryQueue(time.Duration(cfg.VisibilityTimeout) * time.Second)
		for _, name := range cfg.Precreate {
			q.CreateQueue(name)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}
