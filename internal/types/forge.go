package types

// GroupInfo identifies a GitLab group.
type GroupInfo struct {
	ID       int
	Name     string
	FullPath string
}

// ProjectInfo is the per-project metadata the pruning loop needs.
type ProjectInfo struct {
	ID       int
	Name     string
	Path     string
	Archived bool
}

// ItemType distinguishes the two prunable timestamped item kinds.
type ItemType string

const (
	ItemPipeline ItemType = "pipeline"
	ItemRelease  ItemType = "release"
)

// PruneItem is a timestamped deletion candidate: a pipeline or a release.
//
// CreatedAt is the raw wire timestamp (ISO-8601 with fractional seconds and
// a Z suffix, e.g. "2024-03-01T12:00:00.000Z"). It is parsed strictly during
// candidate selection; a malformed value is a data-integrity error, never
// silently coerced.
type PruneItem struct {
	ID        string
	Ref       string
	TagName   string
	CreatedAt string
}

// BranchInfo is a project branch as reported by the API.
type BranchInfo struct {
	Name      string
	Protected bool
}

// VariableInfo is a CI/CD variable copied during migration.
type VariableInfo struct {
	Key          string
	Value        string
	VariableType string
	Protected    bool
	Masked       bool
	Environment  string
}
