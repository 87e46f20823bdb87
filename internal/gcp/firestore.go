package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given
// project ID. It centralizes client creation for all entry points.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// JobRecord is the Firestore record for one remediation job. It tracks the
// status trail and final outcome for operators.
type JobRecord struct {
	JobID        string    `firestore:"jobId,omitempty"`
	InputKey     string    `firestore:"inputKey,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	FinalKey     string    `firestore:"finalKey,omitempty"`
	FailedChunks []int     `firestore:"failedChunks,omitempty"`
	Warnings     []string  `firestore:"warnings,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
}

// FirestoreJobLog persists the job status trail. It satisfies
// services.JobLog.
type FirestoreJobLog struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreJobLog(client *firestore.Client, collection string) *FirestoreJobLog {
	return &FirestoreJobLog{client: client, collection: collection}
}

func (l *FirestoreJobLog) JobStarted(ctx context.Context, job models.Job) error {
	rec := JobRecord{
		JobID:     job.ID,
		InputKey:  job.InputKey,
		Status:    string(models.StatePreCheck),
		CreatedAt: time.Now(),
	}
	if _, err := l.client.Collection(l.collection).Doc(job.ID).Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to create job record: %w", err)
	}
	return nil
}

func (l *FirestoreJobLog) StatusChanged(ctx context.Context, jobID string, state models.JobState) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(state)},
	}
	if _, err := l.client.Collection(l.collection).Doc(jobID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

func (l *FirestoreJobLog) JobFinished(ctx context.Context, jobID string, result *models.JobResult, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(result.State)},
	}
	if result.FinalKey != "" {
		updates = append(updates, firestore.Update{Path: "finalKey", Value: result.FinalKey})
	}
	if len(result.FailedChunks) > 0 {
		updates = append(updates, firestore.Update{Path: "failedChunks", Value: result.FailedChunks})
	}
	if len(result.Warnings) > 0 {
		updates = append(updates, firestore.Update{Path: "warnings", Value: result.Warnings})
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	if _, err := l.client.Collection(l.collection).Doc(jobID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to finalize job record: %w", err)
	}
	return nil
}
