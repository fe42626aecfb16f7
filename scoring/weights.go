package scoring

import (
	"fmt"
	"os"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"gopkg.in/yaml.v3"
)

// Weights are the points awarded per correct prediction.
//
// GroupWinner and Champion are the published contest values. The others are
// house defaults that grow with the round; the third-place match is worth the
// same as a round of 16 tie.
type Weights struct {
	GroupWinner     int `json:"group_winner" yaml:"group_winner"`
	GroupRunnerUp   int `json:"group_runner_up" yaml:"group_runner_up"`
	ThirdPlaceTeam  int `json:"third_place_team" yaml:"third_place_team"`
	RoundOf32       int `json:"round_of_32" yaml:"round_of_32"`
	RoundOf16       int `json:"round_of_16" yaml:"round_of_16"`
	QuarterFinal    int `json:"quarter_final" yaml:"quarter_final"`
	SemiFinal       int `json:"semi_final" yaml:"semi_final"`
	ThirdPlaceMatch int `json:"third_place_match" yaml:"third_place_match"`
	RunnerUp        int `json:"runner_up" yaml:"runner_up"`
	Champion        int `json:"champion" yaml:"champion"`
}

func DefaultWeights() Weights {
	return Weights{
		GroupWinner:     1,
		GroupRunnerUp:   1,
		ThirdPlaceTeam:  1,
		RoundOf32:       2,
		RoundOf16:       3,
		QuarterFinal:    5,
		SemiFinal:       7,
		ThirdPlaceMatch: 3,
		RunnerUp:        5,
		Champion:        10,
	}
}

// forRound returns the weight of a correct winner pick in round r. The final
// is scored through Champion and RunnerUp instead.
func (w Weights) forRound(r brackets.Round) int {
	switch r {
	case brackets.RoundOf32:
		return w.RoundOf32
	case brackets.RoundOf16:
		return w.RoundOf16
	case brackets.QuarterFinal:
		return w.QuarterFinal
	case brackets.SemiFinal:
		return w.SemiFinal
	case brackets.ThirdPlace:
		return w.ThirdPlaceMatch
	case brackets.Final:
		return w.Champion
	default:
		return 0
	}
}

// Validate rejects negative weights and a champion worth less than the
// runner-up.
func (w Weights) Validate() error {
	for name, v := range map[string]int{
		"group_winner":      w.GroupWinner,
		"group_runner_up":   w.GroupRunnerUp,
		"third_place_team":  w.ThirdPlaceTeam,
		"round_of_32":       w.RoundOf32,
		"round_of_16":       w.RoundOf16,
		"quarter_final":     w.QuarterFinal,
		"semi_final":        w.SemiFinal,
		"third_place_match": w.ThirdPlaceMatch,
		"runner_up":         w.RunnerUp,
		"champion":          w.Champion,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidWeights, name)
		}
	}
	if w.RunnerUp <= 0 {
		return fmt.Errorf("%w: runner_up must be positive", ErrInvalidWeights)
	}
	if w.Champion < w.RunnerUp {
		return fmt.Errorf("%w: champion must be worth at least runner_up", ErrInvalidWeights)
	}
	return nil
}

// LoadWeights reads weights from a YAML file. Keys that are absent keep their
// default value.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read scoring weights: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("%w: %w", ErrInvalidWeights, err)
	}
	return w, w.Validate()
}
