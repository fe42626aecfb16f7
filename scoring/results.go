package scoring

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Dosada05/worldcup-predictor/brackets"
)

var (
	ErrInvalidResults = errors.New("invalid official results")
	ErrInvalidWeights = errors.New("invalid scoring weights")
)

// OfficialResults is the real tournament outcome as far as it is known. It
// grows round by round; absent entries are undecided.
type OfficialResults struct {
	GroupStandings       map[brackets.GroupID][]brackets.TeamID `json:"group_standings"`
	ThirdPlaceQualifiers []brackets.TeamID                      `json:"third_place_qualifiers"`
	Winners              map[brackets.MatchID]brackets.TeamID   `json:"winners"`
}

func NewOfficialResults() OfficialResults {
	return OfficialResults{
		GroupStandings: make(map[brackets.GroupID][]brackets.TeamID),
		Winners:        make(map[brackets.MatchID]brackets.TeamID),
	}
}

func (r OfficialResults) Clone() OfficialResults {
	out := OfficialResults{
		GroupStandings:       make(map[brackets.GroupID][]brackets.TeamID, len(r.GroupStandings)),
		ThirdPlaceQualifiers: slices.Clone(r.ThirdPlaceQualifiers),
		Winners:              maps.Clone(r.Winners),
	}
	for g, order := range r.GroupStandings {
		out.GroupStandings[g] = slices.Clone(order)
	}
	if out.Winners == nil {
		out.Winners = make(map[brackets.MatchID]brackets.TeamID)
	}
	return out
}

// Complete reports whether the final has been decided.
func (r OfficialResults) Complete(reg *brackets.Registry) bool {
	_, ok := r.Winners[reg.FinalMatch()]
	return ok
}

// Finalists returns the two teams that reached the final, once both
// semi-finals are decided.
func (r OfficialResults) Finalists(reg *brackets.Registry) (brackets.Participants, bool) {
	return finalists(reg, r.Winners)
}

func finalists(reg *brackets.Registry, winners map[brackets.MatchID]brackets.TeamID) (brackets.Participants, bool) {
	final, ok := reg.Match(reg.FinalMatch())
	if !ok {
		return brackets.Participants{}, false
	}
	var p brackets.Participants
	for i, src := range final.Sources() {
		w, isWinner := src.(brackets.WinnerOf)
		if !isWinner {
			return brackets.Participants{}, false
		}
		t, decided := winners[w.Match]
		if !decided {
			return brackets.Participants{}, false
		}
		if i == 0 {
			p.Home = t
		} else {
			p.Away = t
		}
	}
	return p, true
}

// RunnerUp returns the beaten finalist once the final is decided.
func (r OfficialResults) RunnerUp(reg *brackets.Registry) (brackets.TeamID, bool) {
	return runnerUp(reg, r.Winners)
}

func runnerUp(reg *brackets.Registry, winners map[brackets.MatchID]brackets.TeamID) (brackets.TeamID, bool) {
	champion, ok := winners[reg.FinalMatch()]
	if !ok {
		return "", false
	}
	p, ok := finalists(reg, winners)
	if !ok || !p.Contains(champion) {
		return "", false
	}
	return p.Other(champion), true
}

// Validate checks every decided entry against the registry.
func (r OfficialResults) Validate(reg *brackets.Registry) error {
	for g, order := range r.GroupStandings {
		if err := reg.ValidatePermutation(g, order); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidResults, err)
		}
	}

	if n := len(r.ThirdPlaceQualifiers); n > 0 {
		if n != brackets.ThirdPlaceSlots {
			return fmt.Errorf("%w: %d third-place qualifiers, want %d", ErrInvalidResults, n, brackets.ThirdPlaceSlots)
		}
		seen := make(map[brackets.GroupID]bool, n)
		for _, t := range r.ThirdPlaceQualifiers {
			team, ok := reg.Team(t)
			if !ok {
				return fmt.Errorf("%w: unknown team %q", ErrInvalidResults, t)
			}
			if seen[team.Group] {
				return fmt.Errorf("%w: two qualifiers from group %s", ErrInvalidResults, team.Group)
			}
			seen[team.Group] = true
			if order, decided := r.GroupStandings[team.Group]; decided && order[2] != t {
				return fmt.Errorf("%w: %s did not finish third in group %s", ErrInvalidResults, t, team.Group)
			}
		}
	}

	for m, t := range r.Winners {
		if _, ok := reg.Match(m); !ok {
			return fmt.Errorf("%w: %w %d", ErrInvalidResults, brackets.ErrUnknownMatch, m)
		}
		if _, ok := reg.Team(t); !ok {
			return fmt.Errorf("%w: unknown team %q won match %d", ErrInvalidResults, t, m)
		}
		if p := r.Participants(reg, m); p.Resolved() && !p.Contains(t) {
			return fmt.Errorf("%w: %s did not play match %d (%s v %s)", ErrInvalidResults, t, m, p.Home, p.Away)
		}
	}
	return nil
}

// Participants resolves the official sides of match m from the decided
// results. Undecided sides are empty.
func (r OfficialResults) Participants(reg *brackets.Registry, m brackets.MatchID) brackets.Participants {
	slot, ok := reg.Match(m)
	if !ok {
		return brackets.Participants{}
	}
	return brackets.Participants{
		Home: r.resolve(reg, slot.Home),
		Away: r.resolve(reg, slot.Away),
	}
}

func (r OfficialResults) resolve(reg *brackets.Registry, src brackets.ParticipantSource) brackets.TeamID {
	switch s := src.(type) {
	case brackets.GroupRank:
		if order, ok := r.GroupStandings[s.Group]; ok && s.Rank <= len(order) {
			return order[s.Rank-1]
		}
	case brackets.ThirdPlaceSeed:
		if len(r.ThirdPlaceQualifiers) != brackets.ThirdPlaceSlots {
			return ""
		}
		byGroup := make(map[brackets.GroupID]brackets.TeamID, len(r.ThirdPlaceQualifiers))
		groups := make([]brackets.GroupID, 0, len(r.ThirdPlaceQualifiers))
		for _, t := range r.ThirdPlaceQualifiers {
			team, _ := reg.Team(t)
			byGroup[team.Group] = t
			groups = append(groups, team.Group)
		}
		assignment, ok := reg.SeedAssignment(groups)
		if ok && s.Seed <= len(assignment) {
			return byGroup[assignment[s.Seed-1]]
		}
	case brackets.WinnerOf:
		return r.Winners[s.Match]
	case brackets.LoserOf:
		winner, ok := r.Winners[s.Match]
		if !ok {
			return ""
		}
		return r.Participants(reg, s.Match).Other(winner)
	}
	return ""
}
