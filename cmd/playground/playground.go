package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/freundallein/sqsplayground/chassis/logging"

	"github.com/freundallein/sqsplayground/chassis/config"
	"github.com/freundallein/sqsplayground/chassis/monkey"
	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/queue"
	"github.com/freundallein/sqsplayground/chassis/storage"
	"github.com/freundallein/sqsplayground/chassis/template"
	"github.com/freundallein/sqsplayground/consumer"
	"github.com/freundallein/sqsplayground/playground"
)

const scenarioTimeout = time.Minute

func main() {
	appCfg, err := config.Read()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("playground", appCfg.Consumer.LogLevel)
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

	tpl := template.New(queueClient)

	// send and receive one message
	roundCtx, roundCancel := context.WithTimeout(ctx, scenarioTimeout)
	result, err := playground.RoundTrip(roundCtx, tpl, appCfg.Queue.Name, protocol.MessageData{Name: "Charles Bronson", Age: 79})
	roundCancel()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "round_trip_failed",
		}).Fatal(err)
	}
	log.WithFields(log.Fields{
		"event": "round_trip",
	}).Info("message is equal: ", result.Equal)

	// background consumer racing a producer
	deps := playground.Deps{
		Template:    tpl,
		QueueName:   appCfg.Queue.Name,
		WaitSeconds: appCfg.Queue.WaitSeconds,
		MaxMessages: appCfg.Queue.MaxMessages,
		NamePrefix:  appCfg.Producer.NamePrefix,
		Handler:     consumer.LogHandler{},
		Monkey:      monkey.New(appCfg.Producer.BadPayloadChance),
	}
	if appCfg.Storage.DSN != "" {
		journal, err := storage.InitPGJournal(ctx, storage.Config{DSN: appCfg.Storage.DSN})
		if err != nil {
			log.WithFields(log.Fields{
				"event": "init_storage_failed",
			}).Fatal(err)
		}
		defer journal.Close()
		deps.Handler = consumer.Chain(journal, consumer.LogHandler{})
	}
	batchCtx, batchCancel := context.WithTimeout(ctx, scenarioTimeout)
	defer batchCancel()
	received, err := playground.ConcurrentRoundTrip(batchCtx, deps, appCfg.Producer.Count)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "concurrent_round_trip_failed",
		}).Error(err)
	}
	for _, data := range received {
		log.WithFields(log.Fields{
			"event": "received",
		}).Info(data)
	}
}
