package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/freundallein/sqsplayground/chassis/logging"

	"github.com/freundallein/sqsplayground/chassis/config"
	"github.com/freundallein/sqsplayground/chassis/monkey"
	"github.com/freundallein/sqsplayground/chassis/queue"
	"github.com/freundallein/sqsplayground/chassis/template"
	"github.com/freundallein/sqsplayground/producer"
)

func main() {
	appCfg, err := config.Read()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("producer", appCfg.Producer.LogLevel)
	queueCfg := queue.Config{
		Type:    appCfg.Queue.Type,
		Retries: appCfg.Queue.Retries,

		//AWS specific
		Endpoint:           appCfg.AWS.Endpoint,
		Region:             appCfg.AWS.Region,
		CredentialsFile:    appCfg.AWS.CredentialsFile,
		CredentialsProfile: appCfg.AWS.CredentialsProfile,

		VisibilityTimeout: appCfg.Queue.VisibilityTimeout,
		Precreate:         appCfg.Queue.Precreate,
	}
	queueClient, err := queue.New(queueCfg)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_queue_failed",
		}).Fatal(err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sent, err := producer.SendBatch(ctx, &producer.Config{
		Template:   template.New(queueClient),
		QueueName:  appCfg.Queue.Name,
		Count:      appCfg.Producer.Count,
		NamePrefix: appCfg.Producer.NamePrefix,
		Monkey:     monkey.New(appCfg.Producer.BadPayloadChance),
	})
	if err != nil {
		log.WithFields(log.Fields{
			"event": "send_batch_failed",
		}).Fatal(err)
	}
	log.WithFields(log.Fields{
		"event": "send_batch",
	}).Info("sent ", len(sent), " messages")
}
