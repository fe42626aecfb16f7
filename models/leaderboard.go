package models

import (
	"time"

	"github.com/Dosada05/worldcup-predictor/scoring"
)

type Leaderboard struct {
	Entries         []scoring.Entry `json:"entries"`
	ResultsComplete bool            `json:"results_complete"` // финал сыгран
	Weights         scoring.Weights `json:"weights"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
