package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/worldcup-predictor/scoring"
)

// ResultsRepository stores the single official results document.
type ResultsRepository interface {
	Get(ctx context.Context) (scoring.OfficialResults, error)
	Save(ctx context.Context, results scoring.OfficialResults) error
}

type postgresResultsRepository struct {
	db *sql.DB
}

func NewPostgresResultsRepository(db *sql.DB) ResultsRepository {
	return &postgresResultsRepository{db: db}
}

// Get returns empty results until the first official outcome is recorded.
func (r *postgresResultsRepository) Get(ctx context.Context) (scoring.OfficialResults, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT results FROM official_results WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return scoring.NewOfficialResults(), nil
	}
	if err != nil {
		return scoring.OfficialResults{}, fmt.Errorf("failed to load official results: %w", err)
	}

	results := scoring.NewOfficialResults()
	if err := json.Unmarshal(raw, &results); err != nil {
		return scoring.OfficialResults{}, fmt.Errorf("failed to decode official results: %w", err)
	}
	return results, nil
}

func (r *postgresResultsRepository) Save(ctx context.Context, results scoring.OfficialResults) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode official results: %w", err)
	}

	query := `
		INSERT INTO official_results (id, results, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET results = EXCLUDED.results, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, raw); err != nil {
		return fmt.Errorf("failed to save official results: %w", err)
	}
	return nil
}
