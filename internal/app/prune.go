package app

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/core"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

// PruneGroup prunes every project of the origin group and optionally
// migrates the survivors to the destination group.
//
// Projects are processed strictly one after another; a failure in one
// project is logged and the loop proceeds to the next, so a single broken
// project never aborts the batch.
func (s Service) PruneGroup(ctx context.Context, req PruneGroupRequest) (PruneGroupResult, error) {
	assert.NotEmpty(ctx, req.Group, "group must be set")

	group, err := s.Origin.ResolveGroup(ctx, req.Group)
	if err != nil {
		return PruneGroupResult{}, err
	}
	var destGroup types.GroupInfo
	if req.Migrate {
		destGroup, err = s.Destination.ResolveGroup(ctx, req.DestinationGroup)
		if err != nil {
			return PruneGroupResult{}, err
		}
	}

	projects, err := s.Origin.ListGroupProjects(ctx, group, !req.ExcludeSubgroups)
	if err != nil {
		return PruneGroupResult{}, err
	}

	result := PruneGroupResult{Group: group, DryRun: req.DryRun}
	for _, project := range projects {
		if project.Archived && !req.IncludeArchived {
			result.Projects = append(result.Projects, types.ProjectSummary{
				ProjectID:   project.ID,
				ProjectName: project.Name,
				Outcome:     types.OutcomeSkippedArchived,
			})
			continue
		}
		log.Info().Str("project", project.Name).Int("id", project.ID).Msg("processing project")

		if req.PromptPerProject {
			prompt := fmt.Sprintf("Do you want to prune the project %s?", project.Name)
			ok, err := s.Confirm.Confirm(ctx, prompt)
			if err != nil {
				result.Projects = append(result.Projects, failedSummary(project, err))
				log.Warn().Err(err).Str("project", project.Name).Msg("confirmation failed, skipping project")
				continue
			}
			if !ok {
				result.Projects = append(result.Projects, types.ProjectSummary{
					ProjectID:   project.ID,
					ProjectName: project.Name,
					Outcome:     types.OutcomeSkippedDeclined,
				})
				continue
			}
		}

		summary, err := s.pruneProject(ctx, project, req, destGroup)
		if err != nil {
			result.Projects = append(result.Projects, failedSummary(project, err))
			log.Warn().Err(err).Str("project", project.Name).Msg("project processing failed, continuing with next project")
			continue
		}
		result.Projects = append(result.Projects, summary)
	}

	if req.ReportPath != "" {
		report := types.RunReport{
			Group:    group.FullPath,
			DryRun:   req.DryRun,
			Policy:   req.Policy.String(),
			Projects: result.Projects,
		}
		if err := s.Reporter.WriteReport(req.ReportPath, report); err != nil {
			return result, err
		}
	}
	return result, nil
}

// pruneProject runs the per-project deletion sequence: pipelines on
// unprotected branches, unprotected branches, then policy-selected pipelines
// and releases, then the optional migration. The pipeline list is fetched
// once; the policy pass operates on that original snapshot, not on a refetch
// after the branch pass.
func (s Service) pruneProject(ctx context.Context, project types.ProjectInfo, req PruneGroupRequest, destGroup types.GroupInfo) (types.ProjectSummary, error) {
	summary := types.ProjectSummary{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Outcome:     types.OutcomePruned,
	}

	branches, err := s.Origin.ListBranches(ctx, project.ID)
	if err != nil {
		return summary, err
	}
	existing := make([]string, 0, len(branches))
	for _, branch := range branches {
		existing = append(existing, branch.Name)
	}

	exempt := req.PreserveBranches
	if len(exempt) == 0 {
		exempt = core.DefaultBranches
	}
	protected, err := core.ValidateProtectedBranches(exempt, existing, true)
	if err != nil {
		return summary, err
	}
	summary.ProtectedRefs = protected
	protectedSet := toSet(protected)

	pipelines, err := s.Origin.ListItems(ctx, project.ID, types.ItemPipeline)
	if err != nil {
		return summary, err
	}

	log.Info().Strs("protected", protected).Msg("deleting pipelines on unprotected branches")
	for _, pipeline := range pipelines {
		if _, ok := protectedSet[pipeline.Ref]; ok {
			continue
		}
		if err := s.deleteItem(ctx, project.ID, types.ItemPipeline, pipeline, req.DryRun); err != nil {
			return summary, err
		}
		summary.BranchPipelines++
	}

	// Protection markers need not exist as branches; for branch deletion the
	// list is re-validated without the always-on defaults.
	branchProtected, err := core.ValidateProtectedBranches(protected, existing, false)
	if err != nil {
		return summary, err
	}
	branchProtectedSet := toSet(branchProtected)
	for _, branch := range branches {
		if _, ok := branchProtectedSet[branch.Name]; ok {
			continue
		}
		if err := s.deleteBranch(ctx, project.ID, branch.Name, req.DryRun); err != nil {
			return summary, err
		}
		summary.BranchesDeleted++
	}

	now := timeNow(s.Clock)
	pipelineCandidates, err := core.SelectDeletionCandidates(pipelines, req.Policy, now)
	if err != nil {
		return summary, err
	}
	log.Info().Int("candidates", len(pipelineCandidates)).Msg("the oldest pipelines are candidates for deletion")
	for _, pipeline := range pipelineCandidates {
		if err := s.deleteItem(ctx, project.ID, types.ItemPipeline, pipeline, req.DryRun); err != nil {
			return summary, err
		}
		summary.PolicyPipelines++
	}

	releases, err := s.Origin.ListItems(ctx, project.ID, types.ItemRelease)
	if err != nil {
		return summary, err
	}
	releaseCandidates, err := core.SelectDeletionCandidates(releases, req.Policy, now)
	if err != nil {
		return summary, err
	}
	log.Info().Int("candidates", len(releaseCandidates)).Msg("the oldest releases are candidates for deletion")
	for _, release := range releaseCandidates {
		if err := s.deleteItem(ctx, project.ID, types.ItemRelease, release, req.DryRun); err != nil {
			return summary, err
		}
		summary.ReleasesDeleted++
	}

	if req.Migrate && !req.DryRun {
		copied, err := s.migrateProject(ctx, project, destGroup)
		if err != nil {
			return summary, err
		}
		summary.VariablesCopied = copied
		summary.Outcome = types.OutcomePrunedMigrated
	}
	return summary, nil
}

// deleteItem is the single destructive call site for pipelines and
// releases. The dry-run gate sits immediately before the delete call, never
// around a whole batch.
func (s Service) deleteItem(ctx context.Context, projectID int, itemType types.ItemType, item types.PruneItem, dryRun bool) error {
	log.Info().
		Str("type", string(itemType)).
		Str("id", item.ID).
		Str("ref", item.Ref).
		Bool("dry_run", dryRun).
		Msg("deletion candidate")
	if dryRun {
		return nil
	}
	return s.Origin.DeleteItem(ctx, projectID, itemType, item)
}

func (s Service) deleteBranch(ctx context.Context, projectID int, name string, dryRun bool) error {
	log.Info().Str("branch", name).Bool("dry_run", dryRun).Msg("deletion candidate")
	if dryRun {
		return nil
	}
	return s.Origin.DeleteBranch(ctx, projectID, name)
}

func failedSummary(project types.ProjectInfo, err error) types.ProjectSummary {
	return types.ProjectSummary{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Outcome:     types.OutcomeFailed,
		Error:       err.Error(),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}
