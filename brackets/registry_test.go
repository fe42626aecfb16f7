package brackets

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRegistry = MustLoadRegistry()

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	assert.Equal(t, "FIFA World Cup 2026", reg.Name())
	assert.Len(t, reg.Teams(), 48)
	assert.Len(t, reg.Groups(), 12)
	assert.Len(t, reg.Matches(), 32)
	assert.Equal(t, MatchID(104), reg.FinalMatch())
	assert.Equal(t, MatchID(103), reg.ThirdPlaceMatch())

	t.Run("matches are in topological order", func(t *testing.T) {
		ids := reg.MatchIDs()
		assert.True(t, slices.IsSorted(ids))
		for _, m := range reg.Matches() {
			for _, src := range m.Sources() {
				if up, ok := upstreamMatch(src); ok {
					assert.Less(t, up, m.ID, "match %d depends on later match %d", m.ID, up)
				}
			}
		}
	})

	t.Run("every team sits in its own group", func(t *testing.T) {
		for _, g := range reg.Groups() {
			require.Len(t, g.Teams, 4)
			for _, id := range g.Teams {
				team, ok := reg.Team(id)
				require.True(t, ok)
				assert.Equal(t, g.ID, team.Group)
			}
		}
	})

	t.Run("rounds", func(t *testing.T) {
		assert.Equal(t, RoundOf32, reg.RoundOf(73))
		assert.Equal(t, RoundOf16, reg.RoundOf(89))
		assert.Equal(t, QuarterFinal, reg.RoundOf(100))
		assert.Equal(t, SemiFinal, reg.RoundOf(101))
		assert.Equal(t, ThirdPlace, reg.RoundOf(103))
		assert.Equal(t, Final, reg.RoundOf(104))
		assert.Equal(t, Round(""), reg.RoundOf(1))
	})
}

func TestRegistry_Graph(t *testing.T) {
	assert.Equal(t, []MatchID{89}, testRegistry.Dependents(74))
	assert.Equal(t, []MatchID{103, 104}, testRegistry.Dependents(101))
	assert.Empty(t, testRegistry.Dependents(104))

	assert.Equal(t, []MatchID{89, 97, 101, 103, 104}, testRegistry.Downstream(74))
	assert.Equal(t, []MatchID{103, 104}, testRegistry.Downstream(102))
	assert.Empty(t, testRegistry.Downstream(103))
}

func TestRegistry_SeedingTable(t *testing.T) {
	slots := testRegistry.SeedSlots()
	require.Len(t, slots, ThirdPlaceSlots)

	groups := testRegistry.GroupIDs()
	count := 0
	combinations(groups, ThirdPlaceSlots, func(combo []GroupID) {
		count++
		assignment, ok := testRegistry.SeedAssignment(combo)
		require.True(t, ok, "no assignment for %v", combo)
		require.Len(t, assignment, ThirdPlaceSlots)

		used := make(map[GroupID]bool)
		for i, g := range assignment {
			slot := slots[i]
			assert.Contains(t, combo, g)
			assert.Contains(t, slot.Eligible, g, "seed %d", slot.Seed)
			assert.NotEqual(t, slot.Opponent, g, "seed %d would replay group %s", slot.Seed, g)
			assert.False(t, used[g], "group %s assigned twice", g)
			used[g] = true
		}
	})
	assert.Equal(t, 495, count)

	t.Run("deterministic assignment", func(t *testing.T) {
		got, ok := testRegistry.SeedAssignment([]GroupID{"H", "G", "F", "E", "D", "C", "B", "A"})
		require.True(t, ok)
		assert.Equal(t, []GroupID{"A", "C", "F", "E", "B", "H", "G", "D"}, got)

		got, ok = testRegistry.SeedAssignment([]GroupID{"E", "F", "G", "H", "I", "J", "K", "L"})
		require.True(t, ok)
		assert.Equal(t, []GroupID{"F", "G", "E", "K", "I", "H", "J", "L"}, got)
	})

	t.Run("wrong size", func(t *testing.T) {
		_, ok := testRegistry.SeedAssignment([]GroupID{"A", "B"})
		assert.False(t, ok)
	})
}

func TestParseRegistry_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		old     string
		new     string
		wantMsg string
	}{
		{
			name:    "team in wrong group",
			old:     "{id: KOR, name: Korea Republic, group: A",
			new:     "{id: KOR, name: Korea Republic, group: B",
			wantMsg: "KOR",
		},
		{
			name:    "source used twice",
			old:     "{id: 89, round: R16, home: W74, away: W77",
			new:     "{id: 89, round: R16, home: W74, away: W74",
			wantMsg: "used twice",
		},
		{
			name:    "forward reference",
			old:     "{id: 89, round: R16, home: W74, away: W77",
			new:     "{id: 89, round: R16, home: W74, away: W90",
			wantMsg: "not an earlier match",
		},
		{
			name:    "seed slot allows rematch",
			old:     "{seed: 1, eligible: [A, B, C, D, F]}",
			new:     "{seed: 1, eligible: [A, B, C, D, E]}",
			wantMsg: "rematch",
		},
		{
			name:    "bad source notation",
			old:     "home: 2A, away: 2B",
			new:     "home: 3A, away: 2B",
			wantMsg: "unknown participant source",
		},
		{
			name:    "unknown round",
			old:     "{id: 104, round: Final",
			new:     "{id: 104, round: Grand",
			wantMsg: "unknown round",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := bytes.Replace(worldCup2026, []byte(tc.old), []byte(tc.new), 1)
			require.NotEqual(t, worldCup2026, data, "fixture text not found")

			_, err := ParseRegistry(data)
			require.ErrorIs(t, err, ErrInvalidRegistry)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseRegistry([]byte("teams: [unclosed"))
		assert.ErrorIs(t, err, ErrInvalidRegistry)
	})
}

func TestParseSource(t *testing.T) {
	cases := []struct {
		raw     string
		want    ParticipantSource
		wantErr bool
	}{
		{raw: "1A", want: GroupRank{Group: "A", Rank: 1}},
		{raw: "2L", want: GroupRank{Group: "L", Rank: 2}},
		{raw: "T8", want: ThirdPlaceSeed{Seed: 8}},
		{raw: "W74", want: WinnerOf{Match: 74}},
		{raw: "L101", want: LoserOf{Match: 101}},
		{raw: "1", wantErr: true},
		{raw: "1AB", wantErr: true},
		{raw: "T0", wantErr: true},
		{raw: "Wx", wantErr: true},
		{raw: "X9", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseSource(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.raw, got.String())
		})
	}
}

func TestRegistry_ValidatePermutation(t *testing.T) {
	cases := []struct {
		name    string
		group   GroupID
		order   []TeamID
		wantErr bool
	}{
		{name: "registry order", group: "A", order: []TeamID{"MEX", "RSA", "KOR", "POD"}},
		{name: "reordered", group: "A", order: []TeamID{"POD", "KOR", "RSA", "MEX"}},
		{name: "too short", group: "A", order: []TeamID{"MEX", "RSA", "KOR"}, wantErr: true},
		{name: "duplicate", group: "A", order: []TeamID{"MEX", "MEX", "KOR", "POD"}, wantErr: true},
		{name: "foreign team", group: "A", order: []TeamID{"MEX", "RSA", "KOR", "CAN"}, wantErr: true},
		{name: "unknown group", group: "Z", order: []TeamID{"MEX", "RSA", "KOR", "POD"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := testRegistry.ValidatePermutation(tc.group, tc.order)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPermutation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
