package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

func TestWriteReport_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.yaml")
	report := types.RunReport{
		Group:  "org/platform",
		DryRun: true,
		Policy: "retain latest 3",
		Projects: []types.ProjectSummary{
			{
				ProjectID:       11,
				ProjectName:     "svc",
				Outcome:         types.OutcomePruned,
				BranchPipelines: 5,
				PolicyPipelines: 7,
				ProtectedRefs:   []string{"main", "master"},
			},
			{
				ProjectID:   12,
				ProjectName: "lib",
				Outcome:     types.OutcomeFailed,
				Error:       "unknown branch \"release-1\"",
			},
		},
	}

	require.NoError(t, NewReportFileAdapter().WriteReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got types.RunReport
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, report, got)
}

func TestWriteReport_EmptyPath(t *testing.T) {
	err := NewReportFileAdapter().WriteReport("  ", types.RunReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report path is empty")
}
