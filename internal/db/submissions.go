package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RecordSubmission stores the submitted application document for an applicant.
func (db *DB) RecordSubmission(ctx context.Context, applicantID string, content any) (uuid.UUID, error) {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO submissions (applicant_id, content)
		 VALUES ($1, $2)
		 RETURNING id`,
		applicantID, jsonBytes,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record submission: %w", err)
	}
	return id, nil
}

// ListSubmissions returns an applicant's submissions, newest first.
func (db *DB) ListSubmissions(ctx context.Context, applicantID string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, applicant_id, content, submitted_at
		 FROM submissions WHERE applicant_id = $1
		 ORDER BY submitted_at DESC LIMIT $2`,
		applicantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.ApplicantID, &s.Content, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
