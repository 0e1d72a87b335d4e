package types

// ProjectOutcome classifies how a project left the processing loop.
type ProjectOutcome string

const (
	OutcomeSkippedArchived ProjectOutcome = "skipped (archived)"
	OutcomeSkippedDeclined ProjectOutcome = "skipped (user declined)"
	OutcomePruned          ProjectOutcome = "pruned"
	OutcomePrunedMigrated  ProjectOutcome = "pruned+migrated"
	OutcomeFailed          ProjectOutcome = "failed"
)

// ProjectSummary is the per-project line of the run report.
type ProjectSummary struct {
	ProjectID       int            `yaml:"project_id"`
	ProjectName     string         `yaml:"project_name"`
	Outcome         ProjectOutcome `yaml:"outcome"`
	BranchPipelines int            `yaml:"branch_pipelines_deleted"`
	BranchesDeleted int            `yaml:"branches_deleted"`
	PolicyPipelines int            `yaml:"policy_pipelines_deleted"`
	ReleasesDeleted int            `yaml:"releases_deleted"`
	VariablesCopied int            `yaml:"variables_copied"`
	ProtectedRefs   []string       `yaml:"protected_refs,omitempty"`
	Error           string         `yaml:"error,omitempty"`
}

// RunReport aggregates the summaries of one invocation.
type RunReport struct {
	Group    string           `yaml:"group"`
	DryRun   bool             `yaml:"dry_run"`
	Policy   string           `yaml:"policy"`
	Projects []ProjectSummary `yaml:"projects"`
}
