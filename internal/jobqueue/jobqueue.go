/*
Package jobqueue provides a River-based job queue for deferred work,
currently follow-up reminders on unanswered escalation notifications.

For configuration options and tuning parameters, see queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/leadflow/internal/notify"
)

// ReminderJobArgs carries the identity of the notification record that
// should receive a follow-up reminder if still unanswered.
type ReminderJobArgs struct {
	RecordID string `json:"record_id"`
}

// Kind returns the job kind for River
func (ReminderJobArgs) Kind() string {
	return "notification_reminder"
}

// ReminderWorker delivers due reminders through the notification dispatcher.
// The dispatcher itself skips records that were answered in the meantime,
// so re-running a job is harmless.
type ReminderWorker struct {
	river.WorkerDefaults[ReminderJobArgs]
	dispatcher *notify.Dispatcher
}

// Work sends the reminder for one notification record.
func (w *ReminderWorker) Work(ctx context.Context, job *river.Job[ReminderJobArgs]) error {
	log.Debug().Str("record_id", job.Args.RecordID).Msg("processing reminder job")

	if err := w.dispatcher.SendReminder(ctx, job.Args.RecordID); err != nil {
		return fmt.Errorf("failed to send reminder for record %s: %w", job.Args.RecordID, err)
	}
	return nil
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	config *QueueConfig
}

// NewJobQueue creates a new job queue instance on an existing connection pool.
func NewJobQueue(pool *pgxpool.Pool, dispatcher *notify.Dispatcher, config *QueueConfig) (*JobQueue, error) {
	if config == nil {
		config = DefaultQueueConfig()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &ReminderWorker{dispatcher: dispatcher})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		config: config,
	}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// ScheduleReminder queues a reminder job to run at the given time.
// Implements notify.ReminderScheduler.
func (jq *JobQueue) ScheduleReminder(ctx context.Context, recordID string, at time.Time) error {
	_, err := jq.client.Insert(ctx, ReminderJobArgs{RecordID: recordID}, &river.InsertOpts{
		ScheduledAt: at,
		MaxAttempts: jq.config.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to queue reminder job: %w", err)
	}
	return nil
}
