package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/metrics"
	"github.com/Dosada05/worldcup-predictor/models"
	"github.com/Dosada05/worldcup-predictor/repositories"
)

// SnapshotArchiver stores a copy of a submitted bracket outside the database
// and returns where it can be fetched. *storage.SnapshotArchiver implements it.
type SnapshotArchiver interface {
	Archive(ctx context.Context, s brackets.Snapshot) (string, error)
}

type PredictionService interface {
	Session(ctx context.Context, userID int) (*models.BracketState, error)
	SetGroupOrder(ctx context.Context, userID int, g brackets.GroupID, order []brackets.TeamID) (*models.BracketState, error)
	ToggleThirdPlace(ctx context.Context, userID int, team brackets.TeamID) (*models.BracketState, error)
	PickWinner(ctx context.Context, userID int, m brackets.MatchID, team brackets.TeamID) (*models.BracketState, error)
	ClearPick(ctx context.Context, userID int, m brackets.MatchID) (*models.BracketState, error)
	Submit(ctx context.Context, userID int) (*models.Submission, error)
	Submission(ctx context.Context, userID int) (*models.Submission, error)
}

type predictionService struct {
	reg         *brackets.Registry
	drafts      repositories.DraftStore
	submissions repositories.SubmissionRepository
	archiver    SnapshotArchiver
	hub         Broadcaster
	metrics     *metrics.Metrics
	deadline    time.Time
	logger      *slog.Logger

	locks *keyedMutex
	now   func() time.Time
}

// NewPredictionService creates the service. archiver may be nil when object
// storage is not configured; a zero deadline never closes submissions.
func NewPredictionService(
	reg *brackets.Registry,
	drafts repositories.DraftStore,
	submissions repositories.SubmissionRepository,
	archiver SnapshotArchiver,
	hub Broadcaster,
	m *metrics.Metrics,
	deadline time.Time,
	logger *slog.Logger,
) PredictionService {
	return &predictionService{
		reg:         reg,
		drafts:      drafts,
		submissions: submissions,
		archiver:    archiver,
		hub:         hub,
		metrics:     m,
		deadline:    deadline,
		logger:      logger,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

func (s *predictionService) deadlinePassed() bool {
	return !s.deadline.IsZero() && !s.now().Before(s.deadline)
}

func (s *predictionService) state(userID int, b *brackets.Bracket, events []brackets.Event) *models.BracketState {
	st := models.NewBracketState(userID, b)
	st.Events = events
	if !s.deadline.IsZero() {
		d := s.deadline
		st.Deadline = &d
	}
	return st
}

// submitted returns the stored submission of userID, or nil.
func (s *predictionService) submitted(ctx context.Context, userID int) (*models.Submission, error) {
	sub, err := s.submissions.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrSubmissionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *predictionService) loadDraft(ctx context.Context, userID int) (*brackets.Bracket, error) {
	d, err := s.drafts.Load(ctx, userID)
	if errors.Is(err, repositories.ErrDraftNotFound) {
		return brackets.NewBracket(s.reg), nil
	}
	if err != nil {
		return nil, err
	}
	b, err := brackets.RestoreDraft(s.reg, d)
	if err != nil {
		return nil, fmt.Errorf("draft of user %d: %w", userID, err)
	}
	return b, nil
}

// Session returns the user's bracket: the submitted one when it exists,
// otherwise the saved draft or a fresh bracket.
func (s *predictionService) Session(ctx context.Context, userID int) (*models.BracketState, error) {
	sub, err := s.submitted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		b, err := brackets.RestoreSnapshot(s.reg, sub.Snapshot)
		if err != nil {
			s.logger.ErrorContext(ctx, "Stored snapshot failed validation", slog.Int("user_id", userID), slog.Any("error", err))
			return nil, err
		}
		return s.state(userID, b, nil), nil
	}

	b, err := s.loadDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.state(userID, b, nil), nil
}

// apply runs op against the user's draft under the user's lock and saves the
// result only when op succeeds.
func (s *predictionService) apply(ctx context.Context, userID int, op string, fn func(b *brackets.Bracket) ([]brackets.Event, error)) (st *models.BracketState, err error) {
	defer func() {
		s.metrics.ObserveOperation(op, outcomeLabel(err), countInvalidated(eventsOf(st)))
	}()

	unlock := s.locks.Lock(userID)
	defer unlock()

	sub, err := s.submitted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		return nil, ErrAlreadySubmitted
	}
	if s.deadlinePassed() {
		return nil, ErrDeadlinePassed
	}

	b, err := s.loadDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := fn(b)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		if err := s.drafts.Save(ctx, userID, b.Draft()); err != nil {
			return nil, err
		}
	}

	st = s.state(userID, b, events)
	if len(events) > 0 {
		s.hub.BroadcastToRoom(brackets.UserRoom(userID), brackets.MsgBracketUpdated, st)
	}
	return st, nil
}

func eventsOf(st *models.BracketState) []brackets.Event {
	if st == nil {
		return nil
	}
	return st.Events
}

func (s *predictionService) SetGroupOrder(ctx context.Context, userID int, g brackets.GroupID, order []brackets.TeamID) (*models.BracketState, error) {
	return s.apply(ctx, userID, "set_group_order", func(b *brackets.Bracket) ([]brackets.Event, error) {
		return b.SetGroupOrder(g, order)
	})
}

func (s *predictionService) ToggleThirdPlace(ctx context.Context, userID int, team brackets.TeamID) (*models.BracketState, error) {
	return s.apply(ctx, userID, "toggle_third_place", func(b *brackets.Bracket) ([]brackets.Event, error) {
		return b.ToggleThirdPlace(team)
	})
}

func (s *predictionService) PickWinner(ctx context.Context, userID int, m brackets.MatchID, team brackets.TeamID) (*models.BracketState, error) {
	return s.apply(ctx, userID, "pick_winner", func(b *brackets.Bracket) ([]brackets.Event, error) {
		return b.PickWinner(m, team)
	})
}

func (s *predictionService) ClearPick(ctx context.Context, userID int, m brackets.MatchID) (*models.BracketState, error) {
	return s.apply(ctx, userID, "clear_pick", func(b *brackets.Bracket) ([]brackets.Event, error) {
		return b.ClearPick(m)
	})
}

// Submit freezes the user's draft and stores it. Archiving to object storage
// is best-effort: a failure is logged and the submission still succeeds.
func (s *predictionService) Submit(ctx context.Context, userID int) (sub *models.Submission, err error) {
	defer func() { s.metrics.ObserveSubmission(outcomeLabel(err)) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	if s.deadlinePassed() {
		return nil, ErrDeadlinePassed
	}
	existing, err := s.submitted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubmitted
	}

	b, err := s.loadDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, events, err := b.Freeze(userID, s.now())
	if err != nil {
		return nil, err
	}

	sub = &models.Submission{
		UserID:      userID,
		Snapshot:    snap,
		Digest:      snap.Digest,
		SubmittedAt: snap.SubmittedAt,
	}
	if err := s.submissions.Create(ctx, nil, sub); err != nil {
		if errors.Is(err, repositories.ErrSubmissionConflict) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "Bracket submitted", slog.Int("user_id", userID), slog.String("digest", snap.Digest))

	if err := s.drafts.Delete(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete draft after submission", slog.Int("user_id", userID), slog.Any("error", err))
	}

	s.archive(ctx, sub)

	s.hub.BroadcastToRoom(brackets.UserRoom(userID), brackets.MsgBracketSubmitted, s.state(userID, b, events))
	return sub, nil
}

func (s *predictionService) archive(ctx context.Context, sub *models.Submission) {
	if s.archiver == nil {
		return
	}
	location, err := s.archiver.Archive(ctx, sub.Snapshot)
	if err != nil {
		s.metrics.IncrementArchiveFailures()
		s.logger.WarnContext(ctx, "Failed to archive snapshot", slog.Int("user_id", sub.UserID), slog.Any("error", err))
		return
	}
	if location == "" {
		return
	}
	if err := s.submissions.SetArchiveURL(ctx, sub.ID, location); err != nil {
		s.logger.WarnContext(ctx, "Failed to record archive url", slog.Int("user_id", sub.UserID), slog.String("url", location), slog.Any("error", err))
		return
	}
	sub.ArchiveURL = &location
}

func (s *predictionService) Submission(ctx context.Context, userID int) (*models.Submission, error) {
	sub, err := s.submitted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}
