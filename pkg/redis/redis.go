package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/catalog-review-backend/config"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and verifies the connection. The caller owns
// the client and must Close it.
func NewClient(cfg *config.RedisConfig) (*redis.Client, error) {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully")
	return client, nil
}

// HelpfulVoteGuard remembers who voted for which review for ttl.
type HelpfulVoteGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewHelpfulVoteGuard(client *redis.Client, ttl time.Duration) *HelpfulVoteGuard {
	return &HelpfulVoteGuard{client: client, ttl: ttl}
}

// TryVote marks the vote with SETNX and reports false when the key already
// exists.
func (g *HelpfulVoteGuard) TryVote(ctx context.Context, reviewID, voterKey string) (bool, error) {
	key := voteKey(reviewID, voterKey)
	ok, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		logger.Error("Failed to record helpful vote", err, map[string]interface{}{
			"review_id": reviewID,
		})
		return false, err
	}

	if !ok {
		logger.Debug("Duplicate helpful vote", map[string]interface{}{
			"review_id": reviewID,
		})
	}
	return ok, nil
}

// ReleaseVote deletes the vote marker so the voter can vote again.
func (g *HelpfulVoteGuard) ReleaseVote(ctx context.Context, reviewID, voterKey string) error {
	if err := g.client.Del(ctx, voteKey(reviewID, voterKey)).Err(); err != nil {
		logger.Error("Failed to release helpful vote", err, map[string]interface{}{
			"review_id": reviewID,
		})
		return err
	}
	return nil
}

func voteKey(reviewID, voterKey string) string {
	return fmt.Sprintf("review:helpful:%s:%s", reviewID, voterKey)
}
