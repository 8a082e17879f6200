package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/freundallein/sqsplayground/chassis/logging"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freundallein/sqsplayground/chassis/config"
	"github.com/freundallein/sqsplayground/chassis/queue"
	"github.com/freundallein/sqsplayground/chassis/storage"
	"github.com/freundallein/sqsplayground/consumer"
)

func main() {
	appCfg, err := config.Read()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("consumer", appCfg.Consumer.LogLevel)
	log.WithFields(log.Fields{
		"event": "init_service",
	}).Info("service initialized")
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
	var handler consumer.Handler = consumer.LogHandler{}
	if appCfg.Storage.DSN != "" {
		journal, err := storage.InitPGJournal(context.Background(), storage.Config{DSN: appCfg.Storage.DSN})
		if err != nil {
			log.WithFields(log.Fields{
				"event": "init_storage_failed",
			}).Fatal(err)
		}
		defer journal.Close()
		handler = consumer.Chain(journal, consumer.LogHandler{})
	}
	cfg := &consumer.Config{
		Queue:       queueClient,
		QueueName:   appCfg.Queue.Name,
		Handler:     handler,
		WaitSeconds: appCfg.Queue.WaitSeconds,
		MaxMessages: appCfg.Queue.MaxMessages,
		Workers:     appCfg.Consumer.Workers,
		Rounds:      appCfg.Consumer.Rounds,
	}
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var group sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	if err := consumer.Run(ctx, cfg, &group); err != nil {
		log.WithFields(log.Fields{
			"event": "start_service_failed",
		}).Fatal(err)
	}
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    appCfg.Metrics.Addr,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen: ", err)
		}
	}()
	// bounded rounds finish on their own
	finished := make(chan struct{})
	go func() {
		group.Wait()
		close(finished)
	}()
	select {
	case <-done:
		log.WithFields(log.Fields{
			"event": "ctx_cancel",
		}).Info("received syscall")
	case <-finished:
		log.WithFields(log.Fields{
			"event": "rounds_done",
		}).Info("all workers finished")
	}
	cancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error("Server Shutdown Failed: ", err)
	}
	group.Wait()
}
