package brackets

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/worldcup2026.yaml
var worldCup2026 []byte

const (
	groupSize           = 4
	thirdPlaceQualifier = 3
	expectedTeams       = 48
	expectedGroups      = 12

	// ThirdPlaceSlots is the number of third-placed teams that reach the round of 32.
	ThirdPlaceSlots = 8
)

var ErrInvalidRegistry = errors.New("invalid tournament registry")

type TeamID string

type GroupID string

type MatchID int

type Round string

const (
	RoundOf32    Round = "R32"
	RoundOf16    Round = "R16"
	QuarterFinal Round = "QF"
	SemiFinal    Round = "SF"
	ThirdPlace   Round = "Third"
	Final        Round = "Final"
	unknownRound Round = ""
)

var roundSizes = map[Round]int{
	RoundOf32:    16,
	RoundOf16:    8,
	QuarterFinal: 4,
	SemiFinal:    2,
	ThirdPlace:   1,
	Final:        1,
}

type Team struct {
	ID       TeamID  `json:"id"`
	Name     string  `json:"name"`
	FIFACode string  `json:"fifa_code"`
	Group    GroupID `json:"group"`
	Region   string  `json:"region"`
	Rating   int     `json:"rating"`
}

type Group struct {
	ID    GroupID  `json:"id"`
	Teams []TeamID `json:"teams"`
}

// KnockoutSlot is a static node of the knockout graph.
type KnockoutSlot struct {
	ID    MatchID
	Round Round
	Home  ParticipantSource
	Away  ParticipantSource
	Venue string
	Date  string
}

func (k KnockoutSlot) Sources() [2]ParticipantSource {
	return [2]ParticipantSource{k.Home, k.Away}
}

func (k KnockoutSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    MatchID `json:"id"`
		Round Round   `json:"round"`
		Home  string  `json:"home"`
		Away  string  `json:"away"`
		Venue string  `json:"venue"`
		Date  string  `json:"date"`
	}{k.ID, k.Round, k.Home.String(), k.Away.String(), k.Venue, k.Date})
}

// SeedSlot restricts which groups may fill a third-place seed.
type SeedSlot struct {
	Seed     int       `json:"seed"`
	Match    MatchID   `json:"match"`
	Opponent GroupID   `json:"opponent"`
	Eligible []GroupID `json:"eligible"`
}

// Registry is the read-only team, group and fixture reference data. It is safe
// for concurrent use once loaded.
type Registry struct {
	name       string
	teams      map[TeamID]Team
	teamOrder  []TeamID
	groups     map[GroupID]Group
	groupOrder []GroupID
	matches    map[MatchID]KnockoutSlot
	matchOrder []MatchID
	dependents map[MatchID][]MatchID
	seedSlots  []SeedSlot
	seeding    map[string][]GroupID
	final      MatchID
	thirdPlace MatchID
}

type registryFile struct {
	Name  string `yaml:"name"`
	Teams []struct {
		ID     string `yaml:"id"`
		Name   string `yaml:"name"`
		Group  string `yaml:"group"`
		Region string `yaml:"region"`
		Rating int    `yaml:"rating"`
	} `yaml:"teams"`
	Groups []struct {
		ID    string   `yaml:"id"`
		Teams []string `yaml:"teams"`
	} `yaml:"groups"`
	ThirdPlaceSlots []struct {
		Seed     int      `yaml:"seed"`
		Eligible []string `yaml:"eligible"`
	} `yaml:"third_place_slots"`
	Matches []struct {
		ID    int    `yaml:"id"`
		Round string `yaml:"round"`
		Home  string `yaml:"home"`
		Away  string `yaml:"away"`
		Venue string `yaml:"venue"`
		Date  string `yaml:"date"`
	} `yaml:"matches"`
}

// LoadRegistry returns the embedded World Cup 2026 registry.
func LoadRegistry() (*Registry, error) {
	return ParseRegistry(worldCup2026)
}

// MustLoadRegistry is LoadRegistry for package-level initialisation and tests.
func MustLoadRegistry() *Registry {
	reg, err := LoadRegistry()
	if err != nil {
		panic(err)
	}
	return reg
}

// ParseRegistry decodes and validates registry YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidRegistry, err)
	}

	reg := &Registry{
		name:       file.Name,
		teams:      make(map[TeamID]Team, len(file.Teams)),
		groups:     make(map[GroupID]Group, len(file.Groups)),
		matches:    make(map[MatchID]KnockoutSlot, len(file.Matches)),
		dependents: make(map[MatchID][]MatchID),
		seeding:    make(map[string][]GroupID),
	}

	for _, t := range file.Teams {
		id := TeamID(t.ID)
		if _, dup := reg.teams[id]; dup {
			return nil, fmt.Errorf("%w: duplicate team %s", ErrInvalidRegistry, id)
		}
		reg.teams[id] = Team{
			ID:       id,
			Name:     t.Name,
			FIFACode: t.ID,
			Group:    GroupID(t.Group),
			Region:   t.Region,
			Rating:   t.Rating,
		}
		reg.teamOrder = append(reg.teamOrder, id)
	}

	for _, g := range file.Groups {
		group := Group{ID: GroupID(g.ID)}
		for _, raw := range g.Teams {
			group.Teams = append(group.Teams, TeamID(raw))
		}
		if _, dup := reg.groups[group.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate group %s", ErrInvalidRegistry, group.ID)
		}
		reg.groups[group.ID] = group
		reg.groupOrder = append(reg.groupOrder, group.ID)
	}

	for _, m := range file.Matches {
		home, err := ParseSource(m.Home)
		if err != nil {
			return nil, fmt.Errorf("%w: match %d: %w", ErrInvalidRegistry, m.ID, err)
		}
		away, err := ParseSource(m.Away)
		if err != nil {
			return nil, fmt.Errorf("%w: match %d: %w", ErrInvalidRegistry, m.ID, err)
		}
		slot := KnockoutSlot{
			ID:    MatchID(m.ID),
			Round: Round(m.Round),
			Home:  home,
			Away:  away,
			Venue: m.Venue,
			Date:  m.Date,
		}
		if _, dup := reg.matches[slot.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate match %d", ErrInvalidRegistry, slot.ID)
		}
		reg.matches[slot.ID] = slot
		reg.matchOrder = append(reg.matchOrder, slot.ID)
	}
	slices.Sort(reg.matchOrder)

	for _, s := range file.ThirdPlaceSlots {
		slot := SeedSlot{Seed: s.Seed}
		for _, g := range s.Eligible {
			slot.Eligible = append(slot.Eligible, GroupID(g))
		}
		reg.seedSlots = append(reg.seedSlots, slot)
	}
	slices.SortFunc(reg.seedSlots, func(a, b SeedSlot) int { return a.Seed - b.Seed })

	if err := reg.validateTeams(); err != nil {
		return nil, err
	}
	if err := reg.validateMatches(); err != nil {
		return nil, err
	}
	if err := reg.buildSeeding(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) validateTeams() error {
	if len(r.teams) != expectedTeams {
		return fmt.Errorf("%w: expected %d teams, got %d", ErrInvalidRegistry, expectedTeams, len(r.teams))
	}
	if len(r.groups) != expectedGroups {
		return fmt.Errorf("%w: expected %d groups, got %d", ErrInvalidRegistry, expectedGroups, len(r.groups))
	}

	seen := make(map[TeamID]bool, len(r.teams))
	for _, gid := range r.groupOrder {
		group := r.groups[gid]
		if len(group.Teams) != groupSize {
			return fmt.Errorf("%w: group %s has %d teams", ErrInvalidRegistry, gid, len(group.Teams))
		}
		for _, tid := range group.Teams {
			team, ok := r.teams[tid]
			if !ok {
				return fmt.Errorf("%w: group %s lists unknown team %s", ErrInvalidRegistry, gid, tid)
			}
			if team.Group != gid {
				return fmt.Errorf("%w: team %s is registered to group %s, listed in %s", ErrInvalidRegistry, tid, team.Group, gid)
			}
			if seen[tid] {
				return fmt.Errorf("%w: team %s listed twice", ErrInvalidRegistry, tid)
			}
			seen[tid] = true
		}
	}
	return nil
}

func (r *Registry) validateMatches() error {
	perRound := make(map[Round]int)
	groupRankFed := make(map[GroupRank]int)
	consumed := make(map[string]bool)
	seedFed := make(map[int]MatchID)

	for _, id := range r.matchOrder {
		m := r.matches[id]
		if _, ok := roundSizes[m.Round]; !ok {
			return fmt.Errorf("%w: match %d has unknown round %q", ErrInvalidRegistry, id, m.Round)
		}
		perRound[m.Round]++

		for _, src := range m.Sources() {
			switch s := src.(type) {
			case GroupRank:
				if m.Round != RoundOf32 {
					return fmt.Errorf("%w: match %d uses group source %s outside the round of 32", ErrInvalidRegistry, id, s)
				}
				if _, ok := r.groups[s.Group]; !ok || s.Rank < 1 || s.Rank > 2 {
					return fmt.Errorf("%w: match %d has invalid group source %s", ErrInvalidRegistry, id, s)
				}
				groupRankFed[s]++
			case ThirdPlaceSeed:
				if m.Round != RoundOf32 {
					return fmt.Errorf("%w: match %d uses seed source %s outside the round of 32", ErrInvalidRegistry, id, s)
				}
				if prev, dup := seedFed[s.Seed]; dup {
					return fmt.Errorf("%w: seed %d feeds matches %d and %d", ErrInvalidRegistry, s.Seed, prev, id)
				}
				seedFed[s.Seed] = id
			case WinnerOf, LoserOf:
				up, _ := upstreamMatch(s)
				if _, ok := r.matches[up]; !ok || up >= id {
					return fmt.Errorf("%w: match %d depends on %s which is not an earlier match", ErrInvalidRegistry, id, s)
				}
				if consumed[s.String()] {
					return fmt.Errorf("%w: source %s is used twice", ErrInvalidRegistry, s)
				}
				consumed[s.String()] = true
				if !slices.Contains(r.dependents[up], id) {
					r.dependents[up] = append(r.dependents[up], id)
				}
			}
		}

		switch m.Round {
		case Final:
			r.final = id
		case ThirdPlace:
			r.thirdPlace = id
		}
	}

	for round, want := range roundSizes {
		if perRound[round] != want {
			return fmt.Errorf("%w: round %s has %d matches, want %d", ErrInvalidRegistry, round, perRound[round], want)
		}
	}
	for _, gid := range r.groupOrder {
		for rank := 1; rank <= 2; rank++ {
			if n := groupRankFed[GroupRank{Group: gid, Rank: rank}]; n != 1 {
				return fmt.Errorf("%w: %d%s feeds %d matches, want 1", ErrInvalidRegistry, rank, gid, n)
			}
		}
	}

	if len(r.seedSlots) != ThirdPlaceSlots {
		return fmt.Errorf("%w: expected %d third-place slots, got %d", ErrInvalidRegistry, ThirdPlaceSlots, len(r.seedSlots))
	}
	for i := range r.seedSlots {
		slot := &r.seedSlots[i]
		matchID, ok := seedFed[slot.Seed]
		if !ok {
			return fmt.Errorf("%w: seed %d does not feed any match", ErrInvalidRegistry, slot.Seed)
		}
		m := r.matches[matchID]
		opponent := m.Home
		if _, isSeed := m.Home.(ThirdPlaceSeed); isSeed {
			opponent = m.Away
		}
		gr, ok := opponent.(GroupRank)
		if !ok {
			return fmt.Errorf("%w: seed %d must face a group team in match %d", ErrInvalidRegistry, slot.Seed, matchID)
		}
		slot.Match = matchID
		slot.Opponent = gr.Group
		for _, g := range slot.Eligible {
			if _, ok := r.groups[g]; !ok {
				return fmt.Errorf("%w: seed %d lists unknown group %s", ErrInvalidRegistry, slot.Seed, g)
			}
			if g == gr.Group {
				return fmt.Errorf("%w: seed %d allows a rematch with group %s in match %d", ErrInvalidRegistry, slot.Seed, g, matchID)
			}
		}
	}
	return nil
}

// buildSeeding precomputes the slot assignment for every combination of eight
// qualifying groups. Slots are filled in seed order, trying groups
// alphabetically, so the table is deterministic.
func (r *Registry) buildSeeding() error {
	groups := slices.Clone(r.groupOrder)
	slices.Sort(groups)

	var failed []string
	combinations(groups, ThirdPlaceSlots, func(combo []GroupID) {
		assignment, ok := r.assignSeeds(combo)
		if !ok {
			failed = append(failed, seedingKey(combo))
			return
		}
		r.seeding[seedingKey(combo)] = assignment
	})
	if len(failed) > 0 {
		return fmt.Errorf("%w: no third-place assignment for %s", ErrInvalidRegistry, strings.Join(failed, ", "))
	}
	return nil
}

func (r *Registry) assignSeeds(qualified []GroupID) ([]GroupID, bool) {
	assignment := make([]GroupID, len(r.seedSlots))
	used := make(map[GroupID]bool, len(qualified))

	var place func(i int) bool
	place = func(i int) bool {
		if i == len(r.seedSlots) {
			return true
		}
		for _, g := range qualified {
			if used[g] || !slices.Contains(r.seedSlots[i].Eligible, g) {
				continue
			}
			used[g] = true
			assignment[i] = g
			if place(i + 1) {
				return true
			}
			used[g] = false
		}
		return false
	}
	return assignment, place(0)
}

func combinations(items []GroupID, k int, visit func([]GroupID)) {
	combo := make([]GroupID, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(combo) == k {
			visit(slices.Clone(combo))
			return
		}
		for i := start; i <= len(items)-(k-len(combo)); i++ {
			combo = append(combo, items[i])
			walk(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	walk(0)
}

func seedingKey(groups []GroupID) string {
	sorted := slices.Clone(groups)
	slices.Sort(sorted)
	var b strings.Builder
	for _, g := range sorted {
		b.WriteString(string(g))
	}
	return b.String()
}

func (r *Registry) Name() string { return r.name }

func (r *Registry) Team(id TeamID) (Team, bool) {
	t, ok := r.teams[id]
	return t, ok
}

// Teams returns all teams in registry order.
func (r *Registry) Teams() []Team {
	out := make([]Team, 0, len(r.teamOrder))
	for _, id := range r.teamOrder {
		out = append(out, r.teams[id])
	}
	return out
}

func (r *Registry) Group(id GroupID) (Group, bool) {
	g, ok := r.groups[id]
	if !ok {
		return Group{}, false
	}
	g.Teams = slices.Clone(g.Teams)
	return g, true
}

// Groups returns all groups in registry order.
func (r *Registry) Groups() []Group {
	out := make([]Group, 0, len(r.groupOrder))
	for _, id := range r.groupOrder {
		g, _ := r.Group(id)
		out = append(out, g)
	}
	return out
}

func (r *Registry) GroupIDs() []GroupID {
	return slices.Clone(r.groupOrder)
}

func (r *Registry) Match(id MatchID) (KnockoutSlot, bool) {
	m, ok := r.matches[id]
	return m, ok
}

// Matches returns the knockout slots in topological (match id) order.
func (r *Registry) Matches() []KnockoutSlot {
	out := make([]KnockoutSlot, 0, len(r.matchOrder))
	for _, id := range r.matchOrder {
		out = append(out, r.matches[id])
	}
	return out
}

func (r *Registry) MatchIDs() []MatchID {
	return slices.Clone(r.matchOrder)
}

// Dependents returns the matches that take the winner or loser of id.
func (r *Registry) Dependents(id MatchID) []MatchID {
	return slices.Clone(r.dependents[id])
}

// Downstream returns every match transitively reachable from id through
// WinnerOf/LoserOf edges, excluding id itself.
func (r *Registry) Downstream(id MatchID) []MatchID {
	seen := map[MatchID]bool{id: true}
	queue := []MatchID{id}
	var out []MatchID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range r.dependents[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	slices.Sort(out)
	return out
}

func (r *Registry) SeedSlots() []SeedSlot {
	out := make([]SeedSlot, len(r.seedSlots))
	for i, s := range r.seedSlots {
		s.Eligible = slices.Clone(s.Eligible)
		out[i] = s
	}
	return out
}

// SeedAssignment returns, for the given eight qualifying groups, the group
// whose third-placed team fills each seed (index 0 is seed 1).
func (r *Registry) SeedAssignment(groups []GroupID) ([]GroupID, bool) {
	if len(groups) != ThirdPlaceSlots {
		return nil, false
	}
	assignment, ok := r.seeding[seedingKey(groups)]
	if !ok {
		return nil, false
	}
	return slices.Clone(assignment), true
}

func (r *Registry) FinalMatch() MatchID { return r.final }

func (r *Registry) ThirdPlaceMatch() MatchID { return r.thirdPlace }

// RoundOf reports the round of a match, or "" for unknown ids.
func (r *Registry) RoundOf(id MatchID) Round {
	m, ok := r.matches[id]
	if !ok {
		return unknownRound
	}
	return m.Round
}

// ValidatePermutation checks that order is exactly the teams of group g in
// some order.
func (r *Registry) ValidatePermutation(g GroupID, order []TeamID) error {
	group, ok := r.groups[g]
	if !ok {
		return fmt.Errorf("%w: unknown group %q", ErrInvalidPermutation, g)
	}
	if len(order) != len(group.Teams) {
		return fmt.Errorf("%w: group %s needs %d teams, got %d", ErrInvalidPermutation, g, len(group.Teams), len(order))
	}
	seen := make(map[TeamID]bool, len(order))
	for _, t := range order {
		if !slices.Contains(group.Teams, t) {
			return fmt.Errorf("%w: team %q is not in group %s", ErrInvalidPermutation, t, g)
		}
		if seen[t] {
			return fmt.Errorf("%w: team %s appears twice", ErrInvalidPermutation, t)
		}
		seen[t] = true
	}
	return nil
}
