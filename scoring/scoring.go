// Package scoring compares submitted brackets with the official results.
//
// A Scorer is stateless and safe for concurrent use. Only decided parts of the
// official results earn points, so a score can be computed after every round;
// it is authoritative once the final has been played.
package scoring

import (
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
)

// Breakdown holds points per stage.
type Breakdown struct {
	GroupWinners    int `json:"group_winners"`
	GroupRunnersUp  int `json:"group_runners_up"`
	ThirdPlaceTeams int `json:"third_place_teams"`
	RoundOf32       int `json:"round_of_32"`
	RoundOf16       int `json:"round_of_16"`
	QuarterFinals   int `json:"quarter_finals"`
	SemiFinals      int `json:"semi_finals"`
	ThirdPlaceMatch int `json:"third_place_match"`
	RunnerUp        int `json:"runner_up"`
	Champion        int `json:"champion"`
}

func (b Breakdown) Total() int {
	return b.GroupWinners + b.GroupRunnersUp + b.ThirdPlaceTeams +
		b.RoundOf32 + b.RoundOf16 + b.QuarterFinals + b.SemiFinals +
		b.ThirdPlaceMatch + b.RunnerUp + b.Champion
}

func (b *Breakdown) addRound(r brackets.Round, points int) {
	switch r {
	case brackets.RoundOf32:
		b.RoundOf32 += points
	case brackets.RoundOf16:
		b.RoundOf16 += points
	case brackets.QuarterFinal:
		b.QuarterFinals += points
	case brackets.SemiFinal:
		b.SemiFinals += points
	case brackets.ThirdPlace:
		b.ThirdPlaceMatch += points
	case brackets.Final:
		b.Champion += points
	}
}

type Result struct {
	UserID          int       `json:"user_id"`
	Total           int       `json:"total"`
	Breakdown       Breakdown `json:"breakdown"`
	ChampionCorrect bool      `json:"champion_correct"`
	RunnerUpCorrect bool      `json:"runner_up_correct"`
	Complete        bool      `json:"complete"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

type Scorer struct {
	reg     *brackets.Registry
	weights Weights
}

func NewScorer(reg *brackets.Registry, weights Weights) *Scorer {
	return &Scorer{reg: reg, weights: weights}
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score awards points for every decided official outcome the snapshot
// predicted correctly.
func (s *Scorer) Score(snap brackets.Snapshot, official OfficialResults) Result {
	res := Result{
		UserID:      snap.UserID,
		SubmittedAt: snap.SubmittedAt,
		Complete:    official.Complete(s.reg),
	}
	b := &res.Breakdown

	for g, actual := range official.GroupStandings {
		predicted := snap.GroupStandings[g]
		if len(predicted) < 2 || len(actual) < 2 {
			continue
		}
		if predicted[0] == actual[0] {
			b.GroupWinners += s.weights.GroupWinner
		}
		if predicted[1] == actual[1] {
			b.GroupRunnersUp += s.weights.GroupRunnerUp
		}
	}

	if len(official.ThirdPlaceQualifiers) > 0 {
		qualified := make(map[brackets.TeamID]bool, len(official.ThirdPlaceQualifiers))
		for _, t := range official.ThirdPlaceQualifiers {
			qualified[t] = true
		}
		for _, t := range snap.ThirdPlacePicks {
			if qualified[t] {
				b.ThirdPlaceTeams += s.weights.ThirdPlaceTeam
			}
		}
	}

	final := s.reg.FinalMatch()
	for m, winner := range official.Winners {
		if snap.KnockoutPicks[m] != winner {
			continue
		}
		b.addRound(s.reg.RoundOf(m), s.weights.forRound(s.reg.RoundOf(m)))
		if m == final {
			res.ChampionCorrect = true
		}
	}

	if actual, ok := official.RunnerUp(s.reg); ok {
		if predicted, ok := runnerUp(s.reg, snap.KnockoutPicks); ok && predicted == actual {
			res.RunnerUpCorrect = true
			b.RunnerUp += s.weights.RunnerUp
		}
	}

	res.Total = b.Total()
	return res
}
