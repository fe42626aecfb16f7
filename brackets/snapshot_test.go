package brackets

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var submittedAt = time.Date(2026, 6, 10, 18, 30, 0, 123456789, time.UTC)

func TestBracket_Freeze(t *testing.T) {
	t.Run("requires eight third-place picks", func(t *testing.T) {
		b := NewBracket(testRegistry)
		selectThirds(t, b, "A", "B", "C")

		_, _, err := b.Freeze(1, submittedAt)
		assert.ErrorIs(t, err, ErrIncompleteSelection)
		assert.False(t, b.Locked())
	})

	t.Run("partial knockout picks are allowed", func(t *testing.T) {
		b := NewBracket(testRegistry)
		selectThirds(t, b, "A", "B", "C", "D", "E", "F", "G", "H")

		s, events, err := b.Freeze(1, submittedAt)
		require.NoError(t, err)
		assert.Equal(t, []Event{{Type: EvtBracketFrozen}}, events)
		assert.Empty(t, s.KnockoutPicks)
	})

	t.Run("locks the bracket", func(t *testing.T) {
		b := fullBracket(t)
		before := b.Draft()

		s, _, err := b.Freeze(7, submittedAt)
		require.NoError(t, err)
		assert.True(t, b.Locked())
		assert.Equal(t, 7, s.UserID)
		assert.Equal(t, submittedAt.Truncate(time.Microsecond), s.SubmittedAt)
		assert.Len(t, s.Digest, 64)
		assert.Equal(t, before, s.Draft)

		_, err = b.SetGroupOrder("A", []TeamID{"RSA", "MEX", "KOR", "POD"})
		assert.ErrorIs(t, err, ErrSubmissionLocked)
		_, err = b.ToggleThirdPlace("KOR")
		assert.ErrorIs(t, err, ErrSubmissionLocked)
		_, err = b.PickWinner(73, "POA")
		assert.ErrorIs(t, err, ErrSubmissionLocked)
		_, err = b.ClearPick(73)
		assert.ErrorIs(t, err, ErrSubmissionLocked)
		_, _, err = b.Freeze(7, submittedAt)
		assert.ErrorIs(t, err, ErrSubmissionLocked)

		assert.Equal(t, before, b.Draft())
	})

	t.Run("snapshot does not alias the bracket", func(t *testing.T) {
		b := NewBracket(testRegistry)
		selectThirds(t, b, "A", "B", "C", "D", "E", "F", "G", "H")
		s, _, err := b.Freeze(1, submittedAt)
		require.NoError(t, err)

		s.GroupStandings["A"][0] = "XXX"
		order, _ := b.Standing("A")
		assert.Equal(t, TeamID("MEX"), order[0])
	})
}

func TestSnapshot_Digest(t *testing.T) {
	s1, _, err := fullBracket(t).Freeze(3, submittedAt)
	require.NoError(t, err)
	s2, _, err := fullBracket(t).Freeze(3, submittedAt)
	require.NoError(t, err)
	assert.Equal(t, s1.Digest, s2.Digest, "equal content must give equal digests")

	s3, _, err := fullBracket(t).Freeze(4, submittedAt)
	require.NoError(t, err)
	assert.NotEqual(t, s1.Digest, s3.Digest)

	b := fullBracket(t)
	_, err = b.PickWinner(104, mustParticipants(t, b, 104).Away)
	require.NoError(t, err)
	s4, _, err := b.Freeze(3, submittedAt)
	require.NoError(t, err)
	assert.NotEqual(t, s1.Digest, s4.Digest)
}

func mustParticipants(t *testing.T, b *Bracket, m MatchID) Participants {
	t.Helper()
	p, err := b.ResolveParticipants(m)
	require.NoError(t, err)
	return p
}

func TestRestoreSnapshot(t *testing.T) {
	original := fullBracket(t)
	s, _, err := original.Freeze(11, submittedAt)
	require.NoError(t, err)

	t.Run("json round trip", func(t *testing.T) {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var decoded Snapshot
		require.NoError(t, json.Unmarshal(data, &decoded))

		restored, err := RestoreSnapshot(testRegistry, decoded)
		require.NoError(t, err)
		assert.True(t, restored.Locked())
		assert.Equal(t, original.Draft(), restored.Draft())
		assert.NoError(t, ValidateSnapshot(testRegistry, decoded))
	})

	t.Run("tampered content fails the digest", func(t *testing.T) {
		tampered := s
		tampered.Draft = original.Draft()
		tampered.KnockoutPicks[104] = mustParticipants(t, original, 104).Away

		err := ValidateSnapshot(testRegistry, tampered)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
		assert.Contains(t, err.Error(), "digest")
	})

	t.Run("inconsistent picks are rejected", func(t *testing.T) {
		bad := s
		bad.Draft = original.Draft()
		bad.KnockoutPicks[73] = "MEX"
		bad.Digest, err = bad.ComputeDigest()
		require.NoError(t, err)

		err := ValidateSnapshot(testRegistry, bad)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
		assert.ErrorIs(t, err, ErrInvalidPick)
	})

	t.Run("third place picks must be rank three", func(t *testing.T) {
		bad := s
		bad.Draft = original.Draft()
		bad.ThirdPlacePicks[0] = "MEX"
		bad.Digest, err = bad.ComputeDigest()
		require.NoError(t, err)

		err := ValidateSnapshot(testRegistry, bad)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("missing groups", func(t *testing.T) {
		bad := s
		bad.Draft = original.Draft()
		delete(bad.GroupStandings, "L")

		err := ValidateSnapshot(testRegistry, bad)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})
}

func TestRestoreDraft(t *testing.T) {
	b := NewBracket(testRegistry)
	_, err := b.SetGroupOrder("C", []TeamID{"MAR", "BRA", "SCO", "HAI"})
	require.NoError(t, err)
	selectThirds(t, b, "C", "J")
	_, err = b.PickWinner(73, "POA")
	require.NoError(t, err)

	restored, err := RestoreDraft(testRegistry, b.Draft())
	require.NoError(t, err)
	assert.False(t, restored.Locked())
	assert.Equal(t, b.Draft(), restored.Draft())

	t.Run("duplicate third place entry", func(t *testing.T) {
		d := b.Draft()
		d.ThirdPlacePicks = append(d.ThirdPlacePicks, d.ThirdPlacePicks[0])
		_, err := RestoreDraft(testRegistry, d)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("unknown group", func(t *testing.T) {
		d := b.Draft()
		d.GroupStandings["Z"] = []TeamID{"MEX"}
		_, err := RestoreDraft(testRegistry, d)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})
}
