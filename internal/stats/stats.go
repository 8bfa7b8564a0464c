// Package stats computes read-only dashboard aggregates over the training
// data. Every query is tenant-scoped and idempotent.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/rules"
	"github.com/addestra-labs/addestra/internal/training"
)

// DefaultWindowDays is the aggregation window when the caller does not
// pass one.
const DefaultWindowDays = 30

// Overview is the dashboard payload for one tenant and window.
type Overview struct {
	WindowDays    int              `json:"window_days"`
	Conversations map[string]int   `json:"conversations"` // by status
	Corrections   int              `json:"corrections"`
	Rules         rules.UsageStats `json:"rules"`
	LearningScore int              `json:"learning_score"` // 0..100
}

// Service aggregates across the training stores.
type Service struct {
	conversations *training.Store
	corrections   *corrections.Store
	rules         *rules.Store
}

func NewService(conversations *training.Store, corrStore *corrections.Store, ruleStore *rules.Store) *Service {
	return &Service{conversations: conversations, corrections: corrStore, rules: ruleStore}
}

// Overview computes the dashboard aggregates for the tenant over the last
// `days` days. days <= 0 falls back to DefaultWindowDays.
func (s *Service) Overview(ctx context.Context, tenantID string, days int) (*Overview, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}

	convCounts, err := s.conversations.CountByStatus(ctx, tenantID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	corrCount, err := s.corrections.CountSince(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count corrections: %w", err)
	}

	ruleUsage, err := s.rules.Usage(ctx, tenantID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rules: %w", err)
	}

	return &Overview{
		WindowDays:    days,
		Conversations: convCounts,
		Corrections:   corrCount,
		Rules:         *ruleUsage,
		LearningScore: learningScore(*ruleUsage, corrCount),
	}, nil
}

// learningScore condenses how well the tenant's training is taking hold
// into a 0..100 number: 40 points for rules being used at all (usage per
// active rule, saturating at 5 uses each), 40 points for those uses
// succeeding, and 20 points for recent correction activity (saturating at
// 10 in the window). A tenant with no rules scores 0.
func learningScore(u rules.UsageStats, recentCorrections int) int {
	if u.Total == 0 {
		return 0
	}

	adoption := 0.0
	if u.ActiveCount > 0 {
		perRule := float64(u.UsageCount) / float64(u.ActiveCount)
		adoption = min(perRule/5, 1)
	}

	activity := min(float64(recentCorrections)/10, 1)

	score := 40*adoption + 40*u.SuccessRate + 20*activity
	return int(score + 0.5)
}
