package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/repositories"
	"github.com/Dosada05/worldcup-predictor/scoring"
)

// ResultsService records the official tournament outcome as it becomes known.
type ResultsService interface {
	Current(ctx context.Context) (scoring.OfficialResults, error)
	RecordGroupStanding(ctx context.Context, g brackets.GroupID, order []brackets.TeamID) (scoring.OfficialResults, error)
	RecordThirdPlaceQualifiers(ctx context.Context, teams []brackets.TeamID) (scoring.OfficialResults, error)
	RecordMatchWinner(ctx context.Context, m brackets.MatchID, team brackets.TeamID) (scoring.OfficialResults, error)
}

// LeaderboardRefresher is notified after the official results change.
type LeaderboardRefresher interface {
	Refresh(ctx context.Context) error
}

type resultsService struct {
	reg       *brackets.Registry
	repo      repositories.ResultsRepository
	refresher LeaderboardRefresher
	logger    *slog.Logger

	mu sync.Mutex
}

func NewResultsService(
	reg *brackets.Registry,
	repo repositories.ResultsRepository,
	refresher LeaderboardRefresher,
	logger *slog.Logger,
) ResultsService {
	return &resultsService{
		reg:       reg,
		repo:      repo,
		refresher: refresher,
		logger:    logger,
	}
}

func (s *resultsService) Current(ctx context.Context) (scoring.OfficialResults, error) {
	return s.repo.Get(ctx)
}

// update applies fn to a copy of the stored results and saves the copy if it
// still validates.
func (s *resultsService) update(ctx context.Context, fn func(r *scoring.OfficialResults) error) (scoring.OfficialResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Get(ctx)
	if err != nil {
		return scoring.OfficialResults{}, err
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return scoring.OfficialResults{}, err
	}
	if err := next.Validate(s.reg); err != nil {
		return scoring.OfficialResults{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return scoring.OfficialResults{}, err
	}

	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "Failed to refresh leaderboard after results update", slog.Any("error", err))
		}
	}
	return next, nil
}

func (s *resultsService) RecordGroupStanding(ctx context.Context, g brackets.GroupID, order []brackets.TeamID) (scoring.OfficialResults, error) {
	if _, ok := s.reg.Group(g); !ok {
		return scoring.OfficialResults{}, fmt.Errorf("%w: group %q", ErrNotFound, g)
	}
	return s.update(ctx, func(r *scoring.OfficialResults) error {
		r.GroupStandings[g] = slices.Clone(order)
		return nil
	})
}

func (s *resultsService) RecordThirdPlaceQualifiers(ctx context.Context, teams []brackets.TeamID) (scoring.OfficialResults, error) {
	return s.update(ctx, func(r *scoring.OfficialResults) error {
		r.ThirdPlaceQualifiers = slices.Clone(teams)
		return nil
	})
}

// RecordMatchWinner sets the winner of m. An empty team clears it.
func (s *resultsService) RecordMatchWinner(ctx context.Context, m brackets.MatchID, team brackets.TeamID) (scoring.OfficialResults, error) {
	if _, ok := s.reg.Match(m); !ok {
		return scoring.OfficialResults{}, fmt.Errorf("%w: %w %d", ErrNotFound, brackets.ErrUnknownMatch, m)
	}
	return s.update(ctx, func(r *scoring.OfficialResults) error {
		if team == "" {
			delete(r.Winners, m)
			return nil
		}
		r.Winners[m] = team
		return nil
	})
}
