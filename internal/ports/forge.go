package ports

import (
	"context"
	"io"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

// ForgePort is the contract with one GitLab instance. Listing operations are
// exhaustive: they follow pagination until the last page and return fully
// materialized slices. Deletions are independently idempotent; deleting an
// item that is already gone is not an error.
type ForgePort interface {
	ResolveGroup(ctx context.Context, idOrName string) (types.GroupInfo, error)
	ListGroupProjects(ctx context.Context, group types.GroupInfo, includeSubgroups bool) ([]types.ProjectInfo, error)

	ListItems(ctx context.Context, projectID int, itemType types.ItemType) ([]types.PruneItem, error)
	ListBranches(ctx context.Context, projectID int) ([]types.BranchInfo, error)

	DeleteItem(ctx context.Context, projectID int, itemType types.ItemType, item types.PruneItem) error
	DeleteBranch(ctx context.Context, projectID int, name string) error

	ExportProject(ctx context.Context, projectID int, w io.Writer) error
	ImportProject(ctx context.Context, groupPath string, path string, name string, r io.Reader) (types.ProjectInfo, error)

	ListVariables(ctx context.Context, projectID int) ([]types.VariableInfo, error)
	CreateVariable(ctx context.Context, projectID int, variable types.VariableInfo) error
}
