package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/metrics"
	"github.com/Dosada05/worldcup-predictor/models"
	"github.com/Dosada05/worldcup-predictor/repositories"
	"github.com/Dosada05/worldcup-predictor/scoring"
	"golang.org/x/sync/errgroup"
)

type LeaderboardService interface {
	Leaderboard(ctx context.Context) (*models.Leaderboard, error)
	// Refresh recomputes the leaderboard and pushes it to the leaderboard room.
	Refresh(ctx context.Context) error
}

type leaderboardService struct {
	reg         *brackets.Registry
	scorer      *scoring.Scorer
	submissions repositories.SubmissionRepository
	results     repositories.ResultsRepository
	hub         Broadcaster
	metrics     *metrics.Metrics
	workers     int
	logger      *slog.Logger
}

func NewLeaderboardService(
	reg *brackets.Registry,
	scorer *scoring.Scorer,
	submissions repositories.SubmissionRepository,
	results repositories.ResultsRepository,
	hub Broadcaster,
	m *metrics.Metrics,
	workers int,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		reg:         reg,
		scorer:      scorer,
		submissions: submissions,
		results:     results,
		hub:         hub,
		metrics:     m,
		workers:     workers,
		logger:      logger,
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context) (*models.Leaderboard, error) {
	start := time.Now()

	var (
		subs     []*models.Submission
		official scoring.OfficialResults
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subs, err = s.submissions.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		official, err = s.results.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load leaderboard data: %w", err)
	}

	snapshots := make([]brackets.Snapshot, 0, len(subs))
	for _, sub := range subs {
		// Ошибка в одном снимке не должна ломать всю таблицу.
		if err := brackets.ValidateSnapshot(s.reg, sub.Snapshot); err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid snapshot", slog.Int("user_id", sub.UserID), slog.Any("error", err))
			continue
		}
		snapshots = append(snapshots, sub.Snapshot)
	}

	scored, err := s.scorer.ScoreAll(ctx, snapshots, official, s.workers)
	if err != nil {
		return nil, err
	}
	entries := scoring.Rank(scored)
	s.metrics.ObserveLeaderboard(start, len(entries))

	return &models.Leaderboard{
		Entries:         entries,
		ResultsComplete: official.Complete(s.reg),
		Weights:         s.scorer.Weights(),
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

func (s *leaderboardService) Refresh(ctx context.Context) error {
	lb, err := s.Leaderboard(ctx)
	if err != nil {
		return err
	}
	s.hub.BroadcastToRoom(brackets.RoomLeaderboard, brackets.MsgLeaderboardUpdated, lb)
	return nil
}
