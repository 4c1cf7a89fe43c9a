package matching

import (
	"bytes"
	"context"
	"sort"

	"study-sync/internal/domain/student"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultMinScore = 0.3

// ScoredCandidate pairs a candidate with its score against the requester.
type ScoredCandidate struct {
	Profile student.Profile
	Result  ScoreResult
}

func (c ScoredCandidate) ID() uuid.UUID {
	return c.Profile.ID
}

// ScoreBatch scores every candidate against requester using at most
// concurrency goroutines. Output order follows input order.
func (s *Scorer) ScoreBatch(ctx context.Context, requester student.Profile, candidates []student.Profile, concurrency int) ([]ScoredCandidate, error) {
	out := make([]ScoredCandidate, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = ScoredCandidate{
				Profile: candidates[i],
				Result:  s.Score(requester, candidates[i]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type RankOptions struct {
	MinScore float64
	// Exclude holds partners that already share a match with the requester.
	Exclude map[uuid.UUID]struct{}
	Limit   int
}

// Rank drops candidates under MinScore or in Exclude, orders the rest by
// score descending with candidate id ascending as the tie-break, and
// truncates to Limit (Limit <= 0 keeps everything).
func Rank(scored []ScoredCandidate, opts RankOptions) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if sc.Result.Degraded || sc.Result.Total < opts.MinScore {
			continue
		}
		if _, skip := opts.Exclude[sc.ID()]; skip {
			continue
		}
		out = append(out, sc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Result.Total != out[j].Result.Total {
			return out[i].Result.Total > out[j].Result.Total
		}
		a, b := out[i].ID(), out[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
