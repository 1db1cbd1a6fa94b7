package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	application "zerosum/contexts/community/profile-service/application"
	"zerosum/contexts/community/profile-service/ports"
)

const defaultLeaderboardKey = "zerosum:leaderboard"

// RankingIndex keeps the leaderboard in a sorted set scored by win rate.
type RankingIndex struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

func NewRankingIndex(client *redis.Client, key string, logger *slog.Logger) *RankingIndex {
	if key == "" {
		key = defaultLeaderboardKey
	}
	return &RankingIndex{client: client, key: key, logger: application.ResolveLogger(logger)}
}

func (r *RankingIndex) UpdateScore(ctx context.Context, userID string, winRate float64) error {
	err := r.client.ZAdd(ctx, r.key, redis.Z{Score: winRate, Member: userID}).Err()
	if err != nil {
		r.logger.Error("leaderboard score update failed",
			"event", "profile_redis_zadd_failed",
			"module", "community/profile-service",
			"layer", "adapter",
			"user_id", userID,
			"error", err.Error(),
		)
	}
	return err
}

func (r *RankingIndex) RemoveScore(ctx context.Context, userID string) error {
	return r.client.ZRem(ctx, r.key, userID).Err()
}

func (r *RankingIndex) TopScores(ctx context.Context, limit int) ([]ports.RankedEntry, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := r.client.ZRevRangeWithScores(ctx, r.key, 0, int64(limit)-1).Result()
	if err != nil {
		r.logger.Error("leaderboard range read failed",
			"event", "profile_redis_zrange_failed",
			"module", "community/profile-service",
			"layer", "adapter",
			"error", err.Error(),
		)
		return nil, err
	}
	entries := make([]ports.RankedEntry, 0, len(rows))
	for _, row := range rows {
		userID, ok := row.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, ports.RankedEntry{UserID: userID, WinRate: row.Score})
	}
	return entries, nil
}

var _ ports.RankingIndex = (*RankingIndex)(nil)
