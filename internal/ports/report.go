package ports

import "github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"

// ReportWriterPort persists the run report.
type ReportWriterPort interface {
	WriteReport(path string, report types.RunReport) error
}
