package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

// ExportGroup writes every project of the group as a .tgz archive into the
// export directory without importing anywhere.
func (s Service) ExportGroup(ctx context.Context, req ExportGroupRequest) (ExportGroupResult, error) {
	assert.NotEmpty(ctx, req.Group, "group must be set")
	assert.NotEmpty(ctx, req.ExportDir, "export directory must be set")

	group, err := s.Origin.ResolveGroup(ctx, req.Group)
	if err != nil {
		return ExportGroupResult{}, err
	}
	projects, err := s.Origin.ListGroupProjects(ctx, group, !req.ExcludeSubgroups)
	if err != nil {
		return ExportGroupResult{}, err
	}
	if err := os.MkdirAll(req.ExportDir, 0755); err != nil {
		return ExportGroupResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create export directory").
			WithCause(err)
	}

	result := ExportGroupResult{Group: group}
	for _, project := range projects {
		if project.Archived && !req.IncludeArchived {
			continue
		}
		if req.PromptPerProject {
			prompt := fmt.Sprintf("Do you want to export the project %s?", project.Name)
			ok, err := s.Confirm.Confirm(ctx, prompt)
			if err != nil {
				log.Warn().Err(err).Str("project", project.Name).Msg("confirmation failed, skipping project")
				continue
			}
			if !ok {
				continue
			}
		}
		archivePath := exportArchivePath(req.ExportDir, project)
		if err := s.exportToFile(ctx, project, archivePath); err != nil {
			log.Warn().Err(err).Str("project", project.Name).Msg("export failed, continuing with next project")
			continue
		}
		result.Archives = append(result.Archives, archivePath)
	}
	return result, nil
}

func exportArchivePath(dir string, project types.ProjectInfo) string {
	return filepath.Join(dir, project.Path+".tgz")
}
