package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/app"
)

type migrateOptions struct {
	pruneOptions
	Destination      instanceOptions
	DestinationGroup string
}

func newMigrateCommand() *cobra.Command {
	opts := migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prune a group's projects and migrate them to a destination group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), cmd, opts)
		},
	}
	addOriginFlags(cmd, &opts.Origin)
	addPruneFlags(cmd, &opts.pruneOptions)
	addDestinationFlags(cmd, &opts)
	return cmd
}

func addDestinationFlags(cmd *cobra.Command, opts *migrateOptions) {
	cmd.Flags().StringVar(&opts.Destination.URL, "destination-url", "", "URL of the destination GitLab instance")
	cmd.Flags().StringVar(&opts.Destination.Token, "destination-token", "", "GitLab token for the destination instance")
	cmd.Flags().StringVar(&opts.Destination.Certificate, "destination-certificate", "", "Client TLS certificate for the destination instance")
	cmd.Flags().StringVar(&opts.Destination.Key, "destination-key", "", "Client TLS key for the destination instance")
	cmd.Flags().StringVar(&opts.DestinationGroup, "destination-group", "", "Group to migrate the projects into (id or unique name)")

	_ = viper.BindPFlag("destination_url", cmd.Flags().Lookup("destination-url"))
	_ = viper.BindPFlag("destination_token", cmd.Flags().Lookup("destination-token"))
	_ = viper.BindPFlag("destination_certificate", cmd.Flags().Lookup("destination-certificate"))
	_ = viper.BindPFlag("destination_key", cmd.Flags().Lookup("destination-key"))
	_ = viper.BindPFlag("destination_group", cmd.Flags().Lookup("destination-group"))
}

func runMigrate(ctx context.Context, cmd *cobra.Command, opts migrateOptions) error {
	policy, err := buildPolicy(
		resolveInt(cmd, opts.KeepLatest, "keep_latest_items", "keep-latest-items"),
		resolveInt(cmd, opts.MaxAgeDays, "maximum_age_in_days", "maximum-age-in-days"),
		resolveString(cmd, opts.MinCreationDate, "minimum_creation_date", "minimum-creation-date"),
	)
	if err != nil {
		return err
	}
	origin, err := newForgeAdapter(resolveInstance(cmd, opts.Origin, "origin"))
	if err != nil {
		return err
	}
	destination, err := newForgeAdapter(resolveInstance(cmd, opts.Destination, "destination"))
	if err != nil {
		return err
	}
	prompt := resolveBool(cmd, opts.Prompt, "prompt", "prompt")
	service := app.NewService(origin, destination, newConfirmAdapter(prompt))

	result, err := service.PruneGroup(ctx, app.PruneGroupRequest{
		Group:            resolveString(cmd, opts.Group, "origin_group", "origin-group"),
		Policy:           policy,
		PreserveBranches: resolveStrings(cmd, opts.PreserveBranches, "preserve_branches", "preserve-branch"),
		IncludeArchived:  resolveBool(cmd, opts.IncludeArchived, "include_archived", "include-archived"),
		PromptPerProject: prompt,
		ExcludeSubgroups: resolveBool(cmd, opts.ExcludeSubgroups, "exclude_subgroups", "exclude-subgroups"),
		DryRun:           resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
		Migrate:          true,
		DestinationGroup: resolveString(cmd, opts.DestinationGroup, "destination_group", "destination-group"),
		ReportPath:       resolveString(cmd, opts.Report, "report", "report"),
	})
	if err != nil {
		return err
	}
	printSummaries(result)
	return nil
}
