package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/worldcup-predictor/models"
	"github.com/google/uuid"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionConflict = errors.New("user has already submitted a bracket")
)

type SubmissionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, sub *models.Submission) error
	GetByUserID(ctx context.Context, userID int) (*models.Submission, error)
	List(ctx context.Context) ([]*models.Submission, error)
	SetArchiveURL(ctx context.Context, id uuid.UUID, url string) error
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

func (r *postgresSubmissionRepository) Create(ctx context.Context, exec SQLExecutor, sub *models.Submission) error {
	if exec == nil {
		exec = r.db
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	snapshot, err := json.Marshal(sub.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for user %d: %w", sub.UserID, err)
	}

	query := `
		INSERT INTO submissions (id, user_id, snapshot, digest, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err = exec.QueryRowContext(ctx, query,
		sub.ID,
		sub.UserID,
		snapshot,
		sub.Digest,
		sub.SubmittedAt,
	).Scan(&sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubmissionConflict
		}
		return fmt.Errorf("failed to insert submission for user %d: %w", sub.UserID, err)
	}
	return nil
}

const submissionColumns = `id, user_id, snapshot, digest, archive_url, submitted_at, created_at`

func scanSubmission(row interface{ Scan(dest ...any) error }) (*models.Submission, error) {
	var (
		sub      models.Submission
		snapshot []byte
		archive  sql.NullString
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &snapshot, &sub.Digest, &archive, &sub.SubmittedAt, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &sub.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of submission %s: %w", sub.ID, err)
	}
	if archive.Valid {
		sub.ArchiveURL = &archive.String
	}
	return &sub, nil
}

func (r *postgresSubmissionRepository) GetByUserID(ctx context.Context, userID int) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE user_id = $1`

	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission for user %d: %w", userID, err)
	}
	return sub, nil
}

func (r *postgresSubmissionRepository) List(ctx context.Context) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY submitted_at, user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return subs, nil
}

func (r *postgresSubmissionRepository) SetArchiveURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE submissions SET archive_url = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, url, id)
	if err != nil {
		return fmt.Errorf("failed to set archive url for submission %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}
