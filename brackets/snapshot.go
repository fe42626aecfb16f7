package brackets

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Draft is the serialisable state of a bracket that is still being edited.
type Draft struct {
	GroupStandings  map[GroupID][]TeamID `json:"group_standings"`
	ThirdPlacePicks []TeamID             `json:"third_place_picks"`
	KnockoutPicks   map[MatchID]TeamID   `json:"knockout_picks"`
}

// Snapshot is a submitted bracket. Once created it is never mutated.
type Snapshot struct {
	UserID int `json:"user_id"`
	Draft
	SubmittedAt time.Time `json:"submitted_at"`
	Digest      string    `json:"digest"`
}

type digestPayload struct {
	UserID      int    `json:"user_id"`
	Draft       Draft  `json:"draft"`
	SubmittedAt string `json:"submitted_at"`
}

// ComputeDigest returns the BLAKE2b-256 fingerprint of the snapshot content,
// hex encoded. Map keys are sorted by encoding/json, which keeps the encoding
// canonical.
func (s Snapshot) ComputeDigest() (string, error) {
	payload, err := json.Marshal(digestPayload{
		UserID:      s.UserID,
		Draft:       s.Draft,
		SubmittedAt: s.SubmittedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Draft returns a deep copy of the bracket state.
func (b *Bracket) Draft() Draft {
	return Draft{
		GroupStandings:  b.Standings(),
		ThirdPlacePicks: b.ThirdPlaceSelection(),
		KnockoutPicks:   maps.Clone(b.picks),
	}
}

// Freeze turns the bracket into a snapshot and locks it. Every later mutation
// fails with ErrSubmissionLocked.
func (b *Bracket) Freeze(userID int, at time.Time) (Snapshot, []Event, error) {
	if b.locked {
		return Snapshot{}, nil, ErrSubmissionLocked
	}
	if n := len(b.thirdPlace); n != ThirdPlaceSlots {
		return Snapshot{}, nil, fmt.Errorf("%w: %d selected", ErrIncompleteSelection, n)
	}

	s := Snapshot{
		UserID: userID,
		Draft:  b.Draft(),
		// Postgres keeps microseconds; the digest must survive a round trip.
		SubmittedAt: at.UTC().Truncate(time.Microsecond),
	}
	digest, err := s.ComputeDigest()
	if err != nil {
		return Snapshot{}, nil, err
	}
	s.Digest = digest

	b.locked = true
	return s, []Event{{Type: EvtBracketFrozen}}, nil
}

// RestoreDraft rebuilds an editable bracket by replaying d through the
// regular operations, so every invariant is re-checked.
func RestoreDraft(reg *Registry, d Draft) (*Bracket, error) {
	b := NewBracket(reg)

	for _, g := range reg.groupOrder {
		order, ok := d.GroupStandings[g]
		if !ok {
			continue
		}
		if _, err := b.SetGroupOrder(g, order); err != nil {
			return nil, fmt.Errorf("%w: group %s: %w", ErrInvalidSnapshot, g, err)
		}
	}
	for g := range d.GroupStandings {
		if _, ok := reg.groups[g]; !ok {
			return nil, fmt.Errorf("%w: unknown group %q", ErrInvalidSnapshot, g)
		}
	}

	for _, t := range d.ThirdPlacePicks {
		if b.thirdPlace[t] {
			return nil, fmt.Errorf("%w: third-place team %s listed twice", ErrInvalidSnapshot, t)
		}
		if _, err := b.ToggleThirdPlace(t); err != nil {
			return nil, fmt.Errorf("%w: third place %s: %w", ErrInvalidSnapshot, t, err)
		}
	}

	matches := slices.Sorted(maps.Keys(d.KnockoutPicks))
	for _, m := range matches {
		if _, err := b.PickWinner(m, d.KnockoutPicks[m]); err != nil {
			return nil, fmt.Errorf("%w: match %d: %w", ErrInvalidSnapshot, m, err)
		}
	}
	return b, nil
}

// RestoreSnapshot rebuilds a locked bracket from a submitted snapshot.
func RestoreSnapshot(reg *Registry, s Snapshot) (*Bracket, error) {
	if len(s.GroupStandings) != len(reg.groupOrder) {
		return nil, fmt.Errorf("%w: %d of %d group standings", ErrInvalidSnapshot, len(s.GroupStandings), len(reg.groupOrder))
	}
	if len(s.ThirdPlacePicks) != ThirdPlaceSlots {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, ErrIncompleteSelection)
	}

	digest, err := s.ComputeDigest()
	if err != nil {
		return nil, err
	}
	if digest != s.Digest {
		return nil, fmt.Errorf("%w: digest mismatch", ErrInvalidSnapshot)
	}

	b, err := RestoreDraft(reg, s.Draft)
	if err != nil {
		return nil, err
	}
	b.locked = true
	return b, nil
}

// ValidateSnapshot reports whether s could have been produced by Freeze.
func ValidateSnapshot(reg *Registry, s Snapshot) error {
	_, err := RestoreSnapshot(reg, s)
	return err
}
