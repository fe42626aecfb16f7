package models

import (
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/google/uuid"
)

// Submission is a stored, frozen bracket. One per user.
type Submission struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	UserID      int               `json:"user_id" db:"user_id"`
	Snapshot    brackets.Snapshot `json:"snapshot" db:"snapshot"`
	Digest      string            `json:"digest" db:"digest"`
	ArchiveURL  *string           `json:"archive_url,omitempty" db:"archive_url"`
	SubmittedAt time.Time         `json:"submitted_at" db:"submitted_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}
