package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/app"
)

type exportOptions struct {
	Origin           instanceOptions
	Group            string
	ExportDir        string
	IncludeArchived  bool
	Prompt           bool
	ExcludeSubgroups bool
}

func newExportCommand() *cobra.Command {
	opts := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a group's projects as .tgz archives to local disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), cmd, opts)
		},
	}
	addOriginFlags(cmd, &opts.Origin)
	cmd.Flags().StringVar(&opts.Group, "origin-group", "", "Group holding the projects to export (id or unique name)")
	cmd.Flags().StringVar(&opts.ExportDir, "export-dir", "exports", "Directory to write the project archives to")
	cmd.Flags().BoolVar(&opts.IncludeArchived, "include-archived", false, "Also export archived projects")
	cmd.Flags().BoolVar(&opts.Prompt, "prompt", false, "Ask per project before exporting; without this flag 'yes' is assumed")
	cmd.Flags().BoolVar(&opts.ExcludeSubgroups, "exclude-subgroups", false, "Exclude projects in subgroups")

	_ = viper.BindPFlag("origin_group", cmd.Flags().Lookup("origin-group"))
	_ = viper.BindPFlag("export_dir", cmd.Flags().Lookup("export-dir"))
	_ = viper.BindPFlag("include_archived", cmd.Flags().Lookup("include-archived"))
	_ = viper.BindPFlag("prompt", cmd.Flags().Lookup("prompt"))
	_ = viper.BindPFlag("exclude_subgroups", cmd.Flags().Lookup("exclude-subgroups"))

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, opts exportOptions) error {
	origin, err := newForgeAdapter(resolveInstance(cmd, opts.Origin, "origin"))
	if err != nil {
		return err
	}
	prompt := resolveBool(cmd, opts.Prompt, "prompt", "prompt")
	service := app.NewService(origin, nil, newConfirmAdapter(prompt))

	result, err := service.ExportGroup(ctx, app.ExportGroupRequest{
		Group:            resolveString(cmd, opts.Group, "origin_group", "origin-group"),
		ExportDir:        resolveString(cmd, opts.ExportDir, "export_dir", "export-dir"),
		IncludeArchived:  resolveBool(cmd, opts.IncludeArchived, "include_archived", "include-archived"),
		PromptPerProject: prompt,
		ExcludeSubgroups: resolveBool(cmd, opts.ExcludeSubgroups, "exclude_subgroups", "exclude-subgroups"),
	})
	if err != nil {
		return err
	}
	for _, archive := range result.Archives {
		fmt.Printf("exported: %s\n", archive)
	}
	return nil
}
