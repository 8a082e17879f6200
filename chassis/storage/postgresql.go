package storage

import (
	"context"
	"errors"

	log "github.com/freundallein/sqsplayground/chassis/logging"

	"github.com/driftprogramming/pgxpoolmock"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/queue"
)

const uniqueViolation = "23505"

const schema = `
create table if not exists t_message (
	message_id  text primary key,
	name        text not null,
	age         integer not null,
	received_dt timestamp not null default localtimestamp
);`

// PGJournal - ...
type PGJournal struct {
	// compatible with *pgxpool.Pool so tests can swap in a mock
	pool pgxpoolmock.PgxPool
}

// InitPGJournal connects lazily and makes sure the journal table exists.
func InitPGJournal(ctx context.Context, cfg Config) (*PGJournal, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	poolConfig.LazyConnect = true
	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	journal := &PGJournal{pool: pool}
	if err := journal.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return journal, nil
}

// Migrate ...
func (j *PGJournal) Migrate(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, schema)
	return err
}

// Close ...
func (j *PGJournal) Close() {
	j.pool.Close()
}

// Record stores a consumed message. A redelivered message is already
// stored, so a duplicate key counts as success.
func (j *PGJournal) Record(ctx context.Context, messageID string, data *protocol.MessageData) error {
	query := `insert into t_message(message_id, name, age) values ($1, $2, $3)`
	_, err := j.pool.Exec(ctx, query, messageID, data.Name, data.Age)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			log.WithFields(log.Fields{
				"event":     "duplicated_message",
				"messageID": messageID,
			}).Warn("message already recorded")
			return nil
		}
		return err
	}
	return nil
}

// Recent returns the latest recorded messages, newest first.
func (j *PGJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `select message_id, name, age, received_dt from t_message order by received_dt desc limit $1`
	rows, err := j.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.MessageID, &entry.Data.Name, &entry.Data.Age, &entry.ReceivedDt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Handle records the message so the consumer may acknowledge it.
func (j *PGJournal) Handle(ctx context.Context, msg *queue.RecvMessage, data *protocol.MessageData) error {
	return j.Record(ctx, msg.ID, data)
}
