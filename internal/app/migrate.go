package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

// migrateProject exports the project from the origin instance and imports
// the archive into the destination group, then copies the CI/CD variables.
// Returns the number of variables copied.
func (s Service) migrateProject(ctx context.Context, project types.ProjectInfo, destGroup types.GroupInfo) (int, error) {
	if s.Destination == nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("destination instance is not configured")
	}

	tempDir, err := os.MkdirTemp("", "gitlab-export-*")
	if err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create export scratch directory").
			WithCause(err)
	}
	defer os.RemoveAll(tempDir)

	archivePath := filepath.Join(tempDir, project.Path+".tgz")
	if err := s.exportToFile(ctx, project, archivePath); err != nil {
		return 0, err
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open export archive").
			WithCause(err)
	}
	defer archive.Close()

	log.Info().
		Str("project", project.Name).
		Str("destination", destGroup.FullPath).
		Msg("importing project into destination group")
	imported, err := s.Destination.ImportProject(ctx, destGroup.FullPath, project.Path, project.Name, archive)
	if err != nil {
		return 0, err
	}
	log.Info().Int("id", imported.ID).Msg("import completed")

	return s.copyVariables(ctx, project.ID, imported.ID)
}

func (s Service) exportToFile(ctx context.Context, project types.ProjectInfo, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create export archive").
			WithCause(err)
	}
	defer file.Close()

	log.Info().Str("project", project.Path).Str("archive", path).Msg("exporting project")
	if err := s.Origin.ExportProject(ctx, project.ID, file); err != nil {
		return err
	}
	log.Info().Msg("export completed")
	return nil
}

func (s Service) copyVariables(ctx context.Context, originProjectID int, destProjectID int) (int, error) {
	variables, err := s.Origin.ListVariables(ctx, originProjectID)
	if err != nil {
		return 0, err
	}
	log.Info().Int("count", len(variables)).Msg("copying variables to destination project")
	for _, variable := range variables {
		if err := s.Destination.CreateVariable(ctx, destProjectID, variable); err != nil {
			return 0, err
		}
	}
	return len(variables), nil
}
