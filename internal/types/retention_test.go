package types

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestNewRetentionPolicyValidation(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cfg      RetentionConfig
		wantErr  bool
		wantMode PolicyMode
	}{
		{
			name:     "count only",
			cfg:      RetentionConfig{RetainCount: intPtr(3)},
			wantMode: PolicyByCount,
		},
		{
			name:     "max age only",
			cfg:      RetentionConfig{MaxAgeDays: intPtr(10)},
			wantMode: PolicyByAge,
		},
		{
			name:     "max age of zero days is a valid setting",
			cfg:      RetentionConfig{MaxAgeDays: intPtr(0)},
			wantMode: PolicyByAge,
		},
		{
			name:     "min creation date only",
			cfg:      RetentionConfig{MinCreationDate: timePtr(date)},
			wantMode: PolicyByAge,
		},
		{
			name:     "both age fields",
			cfg:      RetentionConfig{MaxAgeDays: intPtr(10), MinCreationDate: timePtr(date)},
			wantMode: PolicyByAge,
		},
		{
			name:    "count with max age fails",
			cfg:     RetentionConfig{RetainCount: intPtr(3), MaxAgeDays: intPtr(10)},
			wantErr: true,
		},
		{
			name:    "count with min creation date fails",
			cfg:     RetentionConfig{RetainCount: intPtr(3), MinCreationDate: timePtr(date)},
			wantErr: true,
		},
		{
			name:    "nothing set fails",
			cfg:     RetentionConfig{},
			wantErr: true,
		},
		{
			name:    "zero count fails",
			cfg:     RetentionConfig{RetainCount: intPtr(0)},
			wantErr: true,
		},
		{
			name:    "negative max age fails",
			cfg:     RetentionConfig{MaxAgeDays: intPtr(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewRetentionPolicy(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, policy.Mode())
		})
	}
}

func TestEffectiveCutoffPicksTheLaterDate(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	ageCutoff := now.AddDate(0, 0, -10)

	t.Run("min creation date before age cutoff", func(t *testing.T) {
		earlier := ageCutoff.AddDate(0, 0, -5)
		policy, err := NewRetentionPolicy(RetentionConfig{MaxAgeDays: intPtr(10), MinCreationDate: timePtr(earlier)})
		require.NoError(t, err)
		assert.Equal(t, ageCutoff, policy.EffectiveCutoff(now))
	})

	t.Run("min creation date after age cutoff", func(t *testing.T) {
		later := ageCutoff.AddDate(0, 0, 5)
		policy, err := NewRetentionPolicy(RetentionConfig{MaxAgeDays: intPtr(10), MinCreationDate: timePtr(later)})
		require.NoError(t, err)
		assert.Equal(t, later, policy.EffectiveCutoff(now))
	})

	t.Run("single field is the cutoff", func(t *testing.T) {
		date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		policy, err := NewRetentionPolicy(RetentionConfig{MinCreationDate: timePtr(date)})
		require.NoError(t, err)
		assert.Equal(t, date, policy.EffectiveCutoff(now))

		agePolicy, err := NewRetentionPolicy(RetentionConfig{MaxAgeDays: intPtr(10)})
		require.NoError(t, err)
		assert.Equal(t, ageCutoff, agePolicy.EffectiveCutoff(now))
	})
}

func TestRetainCountOnlyValidInCountMode(t *testing.T) {
	policy, err := NewRetentionPolicy(RetentionConfig{RetainCount: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, policy.RetainCount())
	assert.True(t, policy.EffectiveCutoff(time.Now()).IsZero())
}
