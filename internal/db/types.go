package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DraftSnapshot is one stored draft map.
type DraftSnapshot struct {
	Key       string          `json:"key"`
	Content   json.RawMessage `json:"content"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Submission is an application recorded when the wizard reaches its final state.
type Submission struct {
	ID          uuid.UUID       `json:"id"`
	ApplicantID string          `json:"applicant_id"`
	Content     json.RawMessage `json:"content"`
	SubmittedAt time.Time       `json:"submitted_at"`
}
