package app

import "github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"

type PruneGroupRequest struct {
	Group            string
	Policy           types.RetentionPolicy
	PreserveBranches []string
	IncludeArchived  bool
	PromptPerProject bool
	ExcludeSubgroups bool
	DryRun           bool
	Migrate          bool
	DestinationGroup string
	ReportPath       string
}

type PruneGroupResult struct {
	Group    types.GroupInfo
	DryRun   bool
	Projects []types.ProjectSummary
}

type ExportGroupRequest struct {
	Group            string
	ExportDir        string
	IncludeArchived  bool
	PromptPerProject bool
	ExcludeSubgroups bool
}

type ExportGroupResult struct {
	Group    types.GroupInfo
	Archives []string
}
