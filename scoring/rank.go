package scoring

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"golang.org/x/sync/errgroup"
)

// Entry is a ranked leaderboard row. Positions are unique.
type Entry struct {
	Position int `json:"position"`
	Result
}

// compareResults orders results best first: higher total, then a correct
// champion, then a correct runner-up, then the earlier submission, then the
// lower user id.
func compareResults(a, b Result) int {
	if c := cmp.Compare(b.Total, a.Total); c != 0 {
		return c
	}
	if a.ChampionCorrect != b.ChampionCorrect {
		if a.ChampionCorrect {
			return -1
		}
		return 1
	}
	if a.RunnerUpCorrect != b.RunnerUpCorrect {
		if a.RunnerUpCorrect {
			return -1
		}
		return 1
	}
	if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.UserID, b.UserID)
}

// Rank sorts results into a leaderboard. The order does not depend on the
// order of the input.
func Rank(results []Result) []Entry {
	sorted := slices.Clone(results)
	slices.SortFunc(sorted, compareResults)

	entries := make([]Entry, len(sorted))
	for i, r := range sorted {
		entries[i] = Entry{Position: i + 1, Result: r}
	}
	return entries
}

// ScoreAll scores every snapshot against the same official results using up
// to workers goroutines. Results keep the order of snapshots.
func (s *Scorer) ScoreAll(ctx context.Context, snapshots []brackets.Snapshot, official OfficialResults, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(snapshots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range snapshots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scoring user %d: %w", snapshots[i].UserID, err)
			}
			results[i] = s.Score(snapshots[i], official)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
