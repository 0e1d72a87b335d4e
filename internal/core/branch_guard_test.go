package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProtectedBranches(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		existing  []string
		extend    bool
		want      []string
	}{
		{
			name:      "missing main dropped, master added via defaults",
			requested: []string{"main", "feature-x"},
			existing:  []string{"master", "feature-x"},
			extend:    true,
			want:      []string{"feature-x", "main", "master"},
		},
		{
			name:      "defaults appended once",
			requested: []string{"main", "develop"},
			existing:  []string{"main", "develop"},
			extend:    true,
			want:      []string{"main", "develop", "master"},
		},
		{
			name:      "no extension keeps only existing names",
			requested: []string{"main", "develop"},
			existing:  []string{"main", "develop"},
			extend:    false,
			want:      []string{"main", "develop"},
		},
		{
			name:      "duplicates removed, order preserved",
			requested: []string{"develop", "main", "develop"},
			existing:  []string{"develop", "main"},
			extend:    false,
			want:      []string{"develop", "main"},
		},
		{
			name:      "both defaults missing",
			requested: []string{"main", "master"},
			existing:  []string{"develop"},
			extend:    true,
			want:      []string{"main", "master"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateProtectedBranches(tt.requested, tt.existing, tt.extend)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateProtectedBranchesUnknownBranch(t *testing.T) {
	_, err := ValidateProtectedBranches([]string{"feature-y"}, []string{"main"}, false)
	require.Error(t, err)
	assert.True(t, IsUnknownBranch(err))
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "feature-y")
	assert.Contains(t, err.Error(), "main")
}

func TestValidateProtectedBranchesEmptyRequest(t *testing.T) {
	for _, requested := range [][]string{nil, {}} {
		_, err := ValidateProtectedBranches(requested, []string{"main"}, true)
		require.Error(t, err)
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	}
}
