package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/app"
)

type pruneOptions struct {
	Origin           instanceOptions
	Group            string
	KeepLatest       int
	MaxAgeDays       int
	MinCreationDate  string
	PreserveBranches []string
	IncludeArchived  bool
	Prompt           bool
	ExcludeSubgroups bool
	DryRun           bool
	Report           string
}

func newPruneCommand() *cobra.Command {
	opts := pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune pipelines, releases and branches of a group based on the retention policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd.Context(), cmd, opts)
		},
	}
	addOriginFlags(cmd, &opts.Origin)
	addPruneFlags(cmd, &opts)
	return cmd
}

func addOriginFlags(cmd *cobra.Command, opts *instanceOptions) {
	cmd.Flags().StringVar(&opts.URL, "origin-url", "", "URL of the origin GitLab instance")
	cmd.Flags().StringVar(&opts.Token, "origin-token", "", "GitLab token for the origin instance")
	cmd.Flags().StringVar(&opts.Certificate, "origin-certificate", "", "Client TLS certificate for the origin instance")
	cmd.Flags().StringVar(&opts.Key, "origin-key", "", "Client TLS key for the origin instance")
	cmd.Flags().IntVar(&opts.TimeoutSec, "http-timeout", 60, "HTTP timeout in seconds (0 = default)")
	cmd.Flags().IntVar(&opts.Retries, "http-retries", 3, "HTTP retries for list requests (0 = default)")
	cmd.Flags().IntVar(&opts.RetryDelayMs, "http-retry-delay-ms", 200, "HTTP retry base delay in ms (0 = default)")

	_ = viper.BindPFlag("origin_url", cmd.Flags().Lookup("origin-url"))
	_ = viper.BindPFlag("origin_token", cmd.Flags().Lookup("origin-token"))
	_ = viper.BindPFlag("origin_certificate", cmd.Flags().Lookup("origin-certificate"))
	_ = viper.BindPFlag("origin_key", cmd.Flags().Lookup("origin-key"))
	_ = viper.BindPFlag("http_timeout_sec", cmd.Flags().Lookup("http-timeout"))
	_ = viper.BindPFlag("http_retries", cmd.Flags().Lookup("http-retries"))
	_ = viper.BindPFlag("http_retry_delay_ms", cmd.Flags().Lookup("http-retry-delay-ms"))
}

func addPruneFlags(cmd *cobra.Command, opts *pruneOptions) {
	cmd.Flags().StringVar(&opts.Group, "origin-group", "", "Group holding the projects to prune (id or unique name)")
	cmd.Flags().IntVar(&opts.KeepLatest, "keep-latest-items", 0, "Keep the latest N pipelines and releases per project")
	cmd.Flags().IntVar(&opts.MaxAgeDays, "maximum-age-in-days", -1, "Keep pipelines and releases that are at most this old")
	cmd.Flags().StringVar(&opts.MinCreationDate, "minimum-creation-date", "", "Keep pipelines and releases created on/after this date")
	cmd.Flags().StringSliceVar(&opts.PreserveBranches, "preserve-branch", nil, "Branches to keep other than 'main' and 'master'")
	cmd.Flags().BoolVar(&opts.IncludeArchived, "include-archived", false, "Also prune archived projects")
	cmd.Flags().BoolVar(&opts.Prompt, "prompt", false, "Ask per project before pruning; without this flag 'yes' is assumed")
	cmd.Flags().BoolVar(&opts.ExcludeSubgroups, "exclude-subgroups", false, "Exclude projects in subgroups")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report deletion candidates without deleting")
	cmd.Flags().StringVar(&opts.Report, "report", "", "Write a YAML run report to this path")

	_ = viper.BindPFlag("origin_group", cmd.Flags().Lookup("origin-group"))
	_ = viper.BindPFlag("keep_latest_items", cmd.Flags().Lookup("keep-latest-items"))
	_ = viper.BindPFlag("maximum_age_in_days", cmd.Flags().Lookup("maximum-age-in-days"))
	_ = viper.BindPFlag("minimum_creation_date", cmd.Flags().Lookup("minimum-creation-date"))
	_ = viper.BindPFlag("preserve_branches", cmd.Flags().Lookup("preserve-branch"))
	_ = viper.BindPFlag("include_archived", cmd.Flags().Lookup("include-archived"))
	_ = viper.BindPFlag("prompt", cmd.Flags().Lookup("prompt"))
	_ = viper.BindPFlag("exclude_subgroups", cmd.Flags().Lookup("exclude-subgroups"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("report", cmd.Flags().Lookup("report"))
}

func runPrune(ctx context.Context, cmd *cobra.Command, opts pruneOptions) error {
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
	prompt := resolveBool(cmd, opts.Prompt, "prompt", "prompt")
	service := app.NewService(origin, nil, newConfirmAdapter(prompt))

	result, err := service.PruneGroup(ctx, app.PruneGroupRequest{
		Group:            resolveString(cmd, opts.Group, "origin_group", "origin-group"),
		Policy:           policy,
		PreserveBranches: resolveStrings(cmd, opts.PreserveBranches, "preserve_branches", "preserve-branch"),
		IncludeArchived:  resolveBool(cmd, opts.IncludeArchived, "include_archived", "include-archived"),
		PromptPerProject: prompt,
		ExcludeSubgroups: resolveBool(cmd, opts.ExcludeSubgroups, "exclude_subgroups", "exclude-subgroups"),
		DryRun:           resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
		ReportPath:       resolveString(cmd, opts.Report, "report", "report"),
	})
	if err != nil {
		return err
	}
	printSummaries(result)
	return nil
}

func resolveInstance(cmd *cobra.Command, opts instanceOptions, prefix string) instanceOptions {
	return instanceOptions{
		URL:          resolveString(cmd, opts.URL, prefix+"_url", prefix+"-url"),
		Token:        resolveString(cmd, opts.Token, prefix+"_token", prefix+"-token"),
		Certificate:  resolveString(cmd, opts.Certificate, prefix+"_certificate", prefix+"-certificate"),
		Key:          resolveString(cmd, opts.Key, prefix+"_key", prefix+"-key"),
		TimeoutSec:   resolveInt(cmd, opts.TimeoutSec, "http_timeout_sec", "http-timeout"),
		Retries:      resolveInt(cmd, opts.Retries, "http_retries", "http-retries"),
		RetryDelayMs: resolveInt(cmd, opts.RetryDelayMs, "http_retry_delay_ms", "http-retry-delay-ms"),
	}
}

func printSummaries(result app.PruneGroupResult) {
	for _, summary := range result.Projects {
		fmt.Printf("%s: %s\n", summary.ProjectName, summary.Outcome)
	}
	if result.DryRun {
		fmt.Println("dry-run: no destructive calls were made")
	}
}
