package queue

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
)

const (
	sqsMaxMessages = 10
	sqsMaxWait     = 20
)

// sqsAPI is the part of *sqs.SQS the adapter needs.
type sqsAPI interface {
	GetQueueUrlWithContext(ctx aws.Context, input *sqs.GetQueueUrlInput, opts ...request.Option) (*sqs.GetQueueUrlOutput, error)
	SendMessageWithContext(ctx aws.Context, input *sqs.SendMessageInput, opts ...request.Option) (*sqs.SendMessageOutput, error)
	ReceiveMessageWithContext(ctx aws.Context, input *sqs.ReceiveMessageInput, opts ...request.Option) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageWithContext(ctx aws.Context, input *sqs.DeleteMessageInput, opts ...request.Option) (*sqs.DeleteMessageOutput, error)
}

// AWSQueue implementation
type AWSQueue struct {
	queue sqsAPI
}

// InitAWSQueue builds an SQS client. Endpoint redirects it to a local
// emulator; credentials come from the default provider chain unless a
// shared credentials file is configured.
func InitAWSQueue(cfg Config) (*AWSQueue, error) {
	awsCfg := aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.Retries > 0 {
		awsCfg.MaxRetries = aws.Int(cfg.Retries)
	}
	if cfg.CredentialsFile != "" {
		awsCfg.Credentials = credentials.NewSharedCredentials(cfg.CredentialsFile, cfg.CredentialsProfile)
	}
	ssn, err := session.NewSessionWithOptions(session.Options{
		Config:            awsCfg,
		Profile:           cfg.CredentialsProfile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}
	return &AWSQueue{
		queue: sqs.New(ssn),
	}, nil
}

// ResolveQueueAddress ...
func (q *AWSQueue) ResolveQueueAddress(ctx context.Context, name string) (string, error) {
	out, err := q.queue.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return "", classify(err)
	}
	URL := aws.StringValue(out.QueueUrl)
	log.WithFields(log.Fields{
		"event": "resolve_queue",
		"queue": "aws_sqs",
		"name":  name,
	}).Debug(URL)
	return URL, nil
}

// SendMessage ...
func (q *AWSQueue) SendMessage(ctx context.Context, address string, body []byte) (string, error) {
	msg := &sqs.SendMessageInput{
		MessageBody:  aws.String(string(body)), // Required
		QueueUrl:     aws.String(address),      // Required
		DelaySeconds: aws.Int64(0),             // (optional) 0s - 900s (15 minutes)
	}
	sendResponse, err := q.queue.SendMessageWithContext(ctx, msg)
	if err != nil {
		return "", classify(err)
	}
	ID := aws.StringValue(sendResponse.MessageId)
	MessagesSentTotal.WithLabelValues(Label(address)).Inc()
	log.WithFields(log.Fields{
		"event": "send_message",
		"queue": "aws_sqs",
	}).Debug(ID)
	return ID, nil
}

// ReceiveMessages ...
func (q *AWSQueue) ReceiveMessages(ctx context.Context, address string, waitSeconds int, maxMessages int) ([]*RecvMessage, error) {
	receivedMsg := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(address),
		MaxNumberOfMessages: aws.Int64(int64(clamp(maxMessages, 1, sqsMaxMessages))),
		WaitTimeSeconds:     aws.Int64(int64(clamp(waitSeconds, 0, sqsMaxWait))),
	}
	start := time.Now()
	receiveResponse, err := q.queue.ReceiveMessageWithContext(ctx, receivedMsg)
	ReceiveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, classify(err)
	}
	messages := make([]*RecvMessage, 0, len(receiveResponse.Messages))
	for _, m := range receiveResponse.Messages {
		msg := &RecvMessage{
			ID:            aws.StringValue(m.MessageId),
			Body:          []byte(aws.StringValue(m.Body)),
			ReceiptHandle: aws.StringValue(m.ReceiptHandle),
		}
		log.WithFields(log.Fields{
			"event": "receive_message",
			"queue": "aws_sqs",
		}).Debug(msg.ID)
		messages = append(messages, msg)
	}
	MessagesReceivedTotal.WithLabelValues(Label(address)).Add(float64(len(messages)))
	return messages, nil
}

// Acknowledge ...
func (q *AWSQueue) Acknowledge(ctx context.Context, address string, receiptHandle string) error {
	deleteMsg := &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(address),
		ReceiptHandle: aws.String(receiptHandle),
	}
	_, err := q.queue.DeleteMessageWithContext(ctx, deleteMsg)
	if err != nil {
		AcknowledgeFailuresTotal.WithLabelValues(Label(address)).Inc()
		return classify(err)
	}
	MessagesAcknowledgedTotal.WithLabelValues(Label(address)).Inc()
	log.WithFields(log.Fields{
		"event": "delete_message",
		"queue": "aws_sqs",
	}).Debug(receiptHandle)
	return nil
}

// classifiedError keeps the SDK error in the chain while matching one of
// the package sentinels with errors.Is.
type classifiedError struct {
	kind error
	err  error
}

func (e *classifiedError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *classifiedError) Is(target error) bool {
	return target == e.kind
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

func classify(err error) error {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return err
	}
	switch aerr.Code() {
	case sqs.ErrCodeQueueDoesNotExist, "QueueDoesNotExist":
		return &classifiedError{kind: ErrNotFound, err: err}
	case sqs.ErrCodeReceiptHandleIsInvalid:
		return &classifiedError{kind: ErrInvalidHandle, err: err}
	}
	return err
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
