package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "pending", cfg.Review.DefaultStatus)
	assert.True(t, cfg.Review.EnforceUniqueness)
	assert.Equal(t, "sparse", cfg.Review.DistributionMode)
	assert.Equal(t, 720*time.Hour, cfg.Review.HelpfulVoteTTL)
	assert.Equal(t, "", cfg.Redis.Addr())
}

func TestLoad_RelaxedReviewSchema(t *testing.T) {
	t.Setenv("REVIEW_DEFAULT_STATUS", "approved")
	t.Setenv("REVIEW_ENFORCE_UNIQUENESS", "false")
	t.Setenv("REVIEW_DISTRIBUTION_MODE", "dense")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "approved", cfg.Review.DefaultStatus)
	assert.False(t, cfg.Review.EnforceUniqueness)
	assert.Equal(t, "dense", cfg.Review.DistributionMode)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
}

func TestLoad_InvalidReviewSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Unknown default status", key: "REVIEW_DEFAULT_STATUS", value: "rejected"},
		{name: "Unknown distribution mode", key: "REVIEW_DISTRIBUTION_MODE", value: "histogram"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestParseSlice(t *testing.T) {
	assert.Equal(t, []string{}, parseSlice(""))
	assert.Equal(t, []string{"http://a", "http://b"}, parseSlice("http://a, http://b,"))
}
