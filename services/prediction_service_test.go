package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/metrics"
	"github.com/Dosada05/worldcup-predictor/models"
	"github.com/Dosada05/worldcup-predictor/repositories"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type predictionFixture struct {
	svc      *predictionService
	drafts   repositories.DraftStore
	subs     *fakeSubmissionRepo
	hub      *recordingHub
	archiver *fakeArchiver
	metrics  *metrics.Metrics
}

var fixedNow = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func newPredictionFixture(t *testing.T, deadline time.Time) *predictionFixture {
	t.Helper()
	f := &predictionFixture{
		drafts:   repositories.NewMemoryDraftStore(),
		subs:     newFakeSubmissionRepo(),
		hub:      &recordingHub{},
		archiver: &fakeArchiver{location: "https://cdn.example.com/snap.json"},
		metrics:  metrics.New(),
	}
	svc := NewPredictionService(testRegistry, f.drafts, f.subs, f.archiver, f.hub, f.metrics, deadline, discardLogger())
	f.svc = svc.(*predictionService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func selectThirdsViaService(t *testing.T, svc PredictionService, userID int, groups ...brackets.GroupID) {
	t.Helper()
	ctx := context.Background()
	for _, g := range groups {
		st, err := svc.Session(ctx, userID)
		require.NoError(t, err)
		_, err = svc.ToggleThirdPlace(ctx, userID, st.GroupStandings[g][2])
		require.NoError(t, err)
	}
}

func TestPredictionService_Session(t *testing.T) {
	f := newPredictionFixture(t, time.Time{})

	st, err := f.svc.Session(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, st.UserID)
	assert.False(t, st.Locked)
	assert.Len(t, st.GroupStandings, 12)
	assert.Len(t, st.Matches, 32)
	assert.Nil(t, st.Deadline)
	assert.Empty(t, f.hub.messages(), "reading a session must not broadcast")
}

func TestPredictionService_Operations(t *testing.T) {
	ctx := context.Background()
	f := newPredictionFixture(t, time.Time{})

	t.Run("set group order saves and broadcasts", func(t *testing.T) {
		st, err := f.svc.SetGroupOrder(ctx, 1, "B", []brackets.TeamID{"SUI", "CAN", "QAT", "POA"})
		require.NoError(t, err)
		assert.Equal(t, []brackets.TeamID{"SUI", "CAN", "QAT", "POA"}, st.GroupStandings["B"])
		require.NotEmpty(t, st.Events)
		assert.Equal(t, brackets.EvtGroupReordered, st.Events[0].Type)

		d, err := f.drafts.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []brackets.TeamID{"SUI", "CAN", "QAT", "POA"}, d.GroupStandings["B"])

		msgs := f.hub.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, brackets.UserRoom(1), msgs[0].room)
		assert.Equal(t, brackets.MsgBracketUpdated, msgs[0].msgType)
	})

	t.Run("rejected operation leaves draft untouched", func(t *testing.T) {
		before := len(f.hub.messages())
		_, err := f.svc.SetGroupOrder(ctx, 1, "B", []brackets.TeamID{"SUI", "SUI", "QAT", "POA"})
		assert.ErrorIs(t, err, brackets.ErrInvalidPermutation)

		d, err := f.drafts.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []brackets.TeamID{"SUI", "CAN", "QAT", "POA"}, d.GroupStandings["B"])
		assert.Len(t, f.hub.messages(), before)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BracketOperations.WithLabelValues("set_group_order", "invalid_permutation")))
	})

	t.Run("pick and cascade", func(t *testing.T) {
		// 73 is 2A v 2B: RSA v CAN after the reorder above.
		_, err := f.svc.PickWinner(ctx, 1, 73, "CAN")
		require.NoError(t, err)

		st, err := f.svc.SetGroupOrder(ctx, 1, "B", []brackets.TeamID{"CAN", "SUI", "QAT", "POA"})
		require.NoError(t, err)
		assert.True(t, containsEventType(st.Events, brackets.EvtPickInvalidated))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InvalidatedPicks))
	})

	t.Run("unresolvable match", func(t *testing.T) {
		_, err := f.svc.PickWinner(ctx, 1, 74, "GER")
		assert.ErrorIs(t, err, brackets.ErrNotYetResolvable)
	})

	t.Run("clear pick of unknown match", func(t *testing.T) {
		_, err := f.svc.ClearPick(ctx, 1, 999)
		assert.ErrorIs(t, err, brackets.ErrUnknownMatch)
	})
}

func containsEventType(events []brackets.Event, typ brackets.EventType) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestPredictionService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete selection", func(t *testing.T) {
		f := newPredictionFixture(t, time.Time{})
		selectThirdsViaService(t, f.svc, 3, "A", "B", "C")

		_, err := f.svc.Submit(ctx, 3)
		assert.ErrorIs(t, err, brackets.ErrIncompleteSelection)
		_, err = f.svc.Submission(ctx, 3)
		assert.ErrorIs(t, err, ErrSubmissionNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("submit locks the bracket", func(t *testing.T) {
		f := newPredictionFixture(t, fixedNow.Add(time.Hour))
		selectThirdsViaService(t, f.svc, 4, "A", "B", "C", "D", "E", "F", "G", "H")

		sub, err := f.svc.Submit(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, sub.UserID)
		assert.Equal(t, fixedNow, sub.SubmittedAt)
		assert.NotEmpty(t, sub.Digest)
		require.NotNil(t, sub.ArchiveURL)
		assert.Equal(t, "https://cdn.example.com/snap.json", *sub.ArchiveURL)
		require.Len(t, f.archiver.archived, 1)
		assert.NoError(t, brackets.ValidateSnapshot(testRegistry, f.archiver.archived[0]))

		_, err = f.drafts.Load(ctx, 4)
		assert.ErrorIs(t, err, repositories.ErrDraftNotFound)

		msgs := f.hub.messages()
		assert.Equal(t, brackets.MsgBracketSubmitted, msgs[len(msgs)-1].msgType)

		stored, err := f.svc.Submission(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, sub.Digest, stored.Digest)

		st, err := f.svc.Session(ctx, 4)
		require.NoError(t, err)
		assert.True(t, st.Locked)
		require.NotNil(t, st.Deadline)

		_, err = f.svc.PickWinner(ctx, 4, 73, "RSA")
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		assert.ErrorIs(t, err, brackets.ErrSubmissionLocked)

		_, err = f.svc.Submit(ctx, 4)
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("ok")))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("locked")))
	})

	t.Run("archive failure does not fail the submission", func(t *testing.T) {
		f := newPredictionFixture(t, time.Time{})
		f.archiver.err = errBoom
		selectThirdsViaService(t, f.svc, 5, "E", "F", "G", "H", "I", "J", "K", "L")

		sub, err := f.svc.Submit(ctx, 5)
		require.NoError(t, err)
		assert.Nil(t, sub.ArchiveURL)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArchiveFailures))
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newPredictionFixture(t, time.Time{})
		f.subs.err = errBoom
		_, err := f.svc.Submit(ctx, 6)
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestPredictionService_Deadline(t *testing.T) {
	ctx := context.Background()
	f := newPredictionFixture(t, fixedNow)

	_, err := f.svc.Submit(ctx, 1)
	assert.ErrorIs(t, err, ErrDeadlinePassed)
	assert.ErrorIs(t, err, brackets.ErrSubmissionLocked)

	_, err = f.svc.ToggleThirdPlace(ctx, 1, "KOR")
	assert.ErrorIs(t, err, ErrDeadlinePassed)

	st, err := f.svc.Session(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, st.Deadline)
	assert.Equal(t, fixedNow, *st.Deadline)
}

func TestPredictionService_ConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	f := newPredictionFixture(t, time.Time{})
	thirds := []brackets.TeamID{"KOR", "QAT", "HAI", "AUS", "CIV", "POB", "IRN", "KSA"}

	var wg sync.WaitGroup
	for _, team := range thirds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ToggleThirdPlace(ctx, 9, team)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := f.svc.Session(ctx, 9)
	require.NoError(t, err)
	selected := 0
	for _, c := range st.ThirdPlace {
		if c.Selected {
			selected++
		}
	}
	assert.Equal(t, 8, selected, "every toggle must survive")
	assert.Zero(t, f.svc.locks.size())
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock(1)
	assert.Equal(t, 1, k.size())

	acquired := make(chan struct{})
	go func() {
		u := k.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while the first was held")
	case <-time.After(20 * time.Millisecond):
	}

	other := k.Lock(2)
	other()

	unlock()
	<-acquired
	require.Eventually(t, func() bool { return k.size() == 0 }, time.Second, time.Millisecond)
}

func TestNewBracketStateFromService(t *testing.T) {
	f := newPredictionFixture(t, time.Time{})
	st, err := f.svc.ToggleThirdPlace(context.Background(), 2, "KOR")
	require.NoError(t, err)

	b := brackets.NewBracket(testRegistry)
	events, err := b.ToggleThirdPlace("KOR")
	require.NoError(t, err)
	want := models.NewBracketState(2, b)
	want.Events = events
	assert.Equal(t, want, st)
}
