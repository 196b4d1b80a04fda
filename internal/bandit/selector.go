// Package bandit implements the epsilon-greedy arm selector that chooses
// which strategy's signal to act on. Its exploration draw is the only
// source of randomness in the decision path and is always explicitly
// seeded for reproducible backtests.
package bandit

import (
	"math/rand"

	"binary-options-lab/internal/domain"
)

// neutralReward is the prior mean for an arm that has never been pulled.
const neutralReward = 0.5

// ArmStats holds the reward statistics of one strategy arm.
type ArmStats struct {
	Count     int
	RewardSum float64
}

// Mean returns the average observed reward, or the neutral prior for an
// untried arm.
func (a ArmStats) Mean() float64 {
	if a.Count == 0 {
		return neutralReward
	}
	return a.RewardSum / float64(a.Count)
}

// Selector is a seeded epsilon-greedy selector over a fixed set of
// strategy arms. Not safe for concurrent use; the execution loop owns it.
type Selector struct {
	epsilon float64
	rng     *rand.Rand
	order   []string // registration order, drives deterministic iteration
	arms    map[string]*ArmStats
}

// NewSelector creates a selector for the given strategy IDs. The order of
// strategyIDs fixes iteration order for exploitation and tie-breaks.
func NewSelector(strategyIDs []string, epsilon float64, seed int64) *Selector {
	arms := make(map[string]*ArmStats, len(strategyIDs))
	order := make([]string, len(strategyIDs))
	for i, id := range strategyIDs {
		order[i] = id
		arms[id] = &ArmStats{}
	}
	return &Selector{
		epsilon: epsilon,
		rng:     rand.New(rand.NewSource(seed)),
		order:   order,
		arms:    arms,
	}
}

// Select picks one signal among the candidates produced this bar, or nil
// when no strategy signaled. With probability epsilon it explores
// uniformly; otherwise it exploits the arm with the highest estimated
// reward, breaking ties toward the arm with fewer historical selections.
func (s *Selector) Select(candidates []*domain.Signal) *domain.Signal {
	if len(candidates) == 0 {
		return nil
	}

	if s.rng.Float64() < s.epsilon {
		return candidates[s.rng.Intn(len(candidates))]
	}

	var best *domain.Signal
	var bestStats *ArmStats
	for _, c := range candidates {
		stats, ok := s.arms[c.StrategyID]
		if !ok {
			continue
		}
		if best == nil {
			best, bestStats = c, stats
			continue
		}
		switch {
		case stats.Mean() > bestStats.Mean():
			best, bestStats = c, stats
		case stats.Mean() == bestStats.Mean() && stats.Count < bestStats.Count:
			// Tie-break: prefer the less-explored arm.
			best, bestStats = c, stats
		}
	}
	return best
}

// Update records the realized reward for the chosen arm after its trade
// resolves. Only that arm's statistics change; there is no counterfactual
// credit for the arms that were not played.
func (s *Selector) Update(strategyID string, reward float64) {
	stats, ok := s.arms[strategyID]
	if !ok {
		return
	}
	stats.Count++
	stats.RewardSum += reward
}

// Stats returns a copy of the per-arm statistics keyed by strategy ID.
func (s *Selector) Stats() map[string]ArmStats {
	out := make(map[string]ArmStats, len(s.arms))
	for id, a := range s.arms {
		out[id] = *a
	}
	return out
}

// Mean exposes the current reward estimate for one arm; used as the
// recent-performance component of the model context.
func (s *Selector) Mean(strategyID string) float64 {
	stats, ok := s.arms[strategyID]
	if !ok {
		return neutralReward
	}
	return stats.Mean()
}
