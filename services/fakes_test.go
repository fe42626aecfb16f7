package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/models"
	"github.com/Dosada05/worldcup-predictor/repositories"
	"github.com/Dosada05/worldcup-predictor/scoring"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testRegistry = brackets.MustLoadRegistry()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSubmissionRepo struct {
	mu     sync.Mutex
	byUser map[int]*models.Submission
	err    error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{byUser: make(map[int]*models.Submission)}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, _ repositories.SQLExecutor, sub *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.byUser[sub.UserID]; ok {
		return repositories.ErrSubmissionConflict
	}
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now()
	cp := *sub
	r.byUser[sub.UserID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) GetByUserID(_ context.Context, userID int) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	sub, ok := r.byUser[userID]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubmissionRepo) List(_ context.Context) ([]*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*models.Submission, 0, len(r.byUser))
	for _, sub := range r.byUser {
		cp := *sub
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSubmissionRepo) SetArchiveURL(_ context.Context, id uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.byUser {
		if sub.ID == id {
			sub.ArchiveURL = &url
			return nil
		}
	}
	return repositories.ErrSubmissionNotFound
}

type fakeResultsRepo struct {
	mu      sync.Mutex
	results scoring.OfficialResults
	saves   int
}

func newFakeResultsRepo() *fakeResultsRepo {
	return &fakeResultsRepo{results: scoring.NewOfficialResults()}
}

func (r *fakeResultsRepo) Get(_ context.Context) (scoring.OfficialResults, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results.Clone(), nil
}

func (r *fakeResultsRepo) Save(_ context.Context, results scoring.OfficialResults) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = results.Clone()
	r.saves++
	return nil
}

type broadcast struct {
	room    string
	msgType string
	payload any
}

type recordingHub struct {
	mu   sync.Mutex
	sent []broadcast
}

func (h *recordingHub) BroadcastToRoom(room, msgType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, broadcast{room: room, msgType: msgType, payload: payload})
}

func (h *recordingHub) messages() []broadcast {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]broadcast(nil), h.sent...)
}

type fakeArchiver struct {
	location string
	err      error
	archived []brackets.Snapshot
}

func (a *fakeArchiver) Archive(_ context.Context, s brackets.Snapshot) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.archived = append(a.archived, s)
	return a.location, nil
}

var errBoom = errors.New("boom")

// completeSnapshot freezes a bracket with the A-H thirds selected and the home
// side picked in every match.
func completeSnapshot(t *testing.T, userID int, at time.Time) brackets.Snapshot {
	t.Helper()
	b := brackets.NewBracket(testRegistry)
	for _, g := range []brackets.GroupID{"A", "B", "C", "D", "E", "F", "G", "H"} {
		order, _ := b.Standing(g)
		_, err := b.ToggleThirdPlace(order[2])
		require.NoError(t, err)
	}
	for _, id := range testRegistry.MatchIDs() {
		p, err := b.ResolveParticipants(id)
		require.NoError(t, err)
		_, err = b.PickWinner(id, p.Home)
		require.NoError(t, err)
	}
	s, _, err := b.Freeze(userID, at)
	require.NoError(t, err)
	return s
}
