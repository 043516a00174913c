// Package jobqueue provides a redis-backed background job pipeline with
// per-type retry policies and delayed redelivery.
package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType identifies which handler a job is routed to.
type JobType string

const (
	JobTypeBillingCheck    JobType = "billing_check"
	JobTypeWebhookDelivery JobType = "webhook_delivery"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is the unit of work stored in redis. Payload stays opaque to the
// queue; handlers decode it themselves.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

// DecodePayload unmarshals the job payload into out.
func (j *Job) DecodePayload(out any) error {
	return json.Unmarshal(j.Payload, out)
}

func (j *Job) markProcessing(now time.Time) {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

func (j *Job) markCompleted(now time.Time) {
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.LastError = ""
}

func (j *Job) markRetrying(now time.Time, cause error) {
	j.Status = JobStatusRetrying
	j.UpdatedAt = now
	j.LastError = cause.Error()
}

func (j *Job) markFailed(now time.Time, cause error) {
	j.Status = JobStatusFailed
	j.UpdatedAt = now
	j.LastError = cause.Error()
}
