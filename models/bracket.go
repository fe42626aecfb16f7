package models

import (
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
)

// BracketState is everything a client needs to render a user's bracket.
type BracketState struct {
	UserID         int                                    `json:"user_id"`
	Locked         bool                                   `json:"locked"`
	GroupStandings map[brackets.GroupID][]brackets.TeamID `json:"group_standings"`
	ThirdPlace     []brackets.ThirdPlaceCandidate         `json:"third_place"`
	Matches        []brackets.MatchView                   `json:"matches"`
	Deadline       *time.Time                             `json:"deadline,omitempty"`
	Events         []brackets.Event                       `json:"events,omitempty"`
}

// NewBracketState builds the rendering state of b.
func NewBracketState(userID int, b *brackets.Bracket) *BracketState {
	return &BracketState{
		UserID:         userID,
		Locked:         b.Locked(),
		GroupStandings: b.Standings(),
		ThirdPlace:     b.ThirdPlaceCandidates(),
		Matches:        b.MatchViews(),
	}
}
