package cli

import (
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/adapters"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/ports"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

// instanceOptions are the connection knobs of one GitLab instance.
type instanceOptions struct {
	URL          string
	Token        string
	Certificate  string
	Key          string
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

func newForgeAdapter(opts instanceOptions) (ports.ForgePort, error) {
	return adapters.NewForgeGitLabAdapter(
		opts.URL,
		opts.Token,
		opts.Certificate,
		opts.Key,
		opts.TimeoutSec,
		opts.Retries,
		opts.RetryDelayMs,
	)
}

func newConfirmAdapter(prompt bool) ports.ConfirmPort {
	if prompt {
		return adapters.NewConfirmReaderAdapter(os.Stdin, os.Stdout)
	}
	return adapters.ConfirmAlwaysAdapter{}
}

// buildPolicy turns the three mutually exclusive CLI knobs into a validated
// policy. keepLatest 0 and maxAgeDays -1 mean "not set"; the date accepts
// YYYY-MM-DD or full RFC 3339.
func buildPolicy(keepLatest int, maxAgeDays int, minCreationDate string) (types.RetentionPolicy, error) {
	cfg := types.RetentionConfig{}
	if keepLatest > 0 {
		cfg.RetainCount = &keepLatest
	}
	if maxAgeDays >= 0 {
		cfg.MaxAgeDays = &maxAgeDays
	}
	if trimmed := strings.TrimSpace(minCreationDate); trimmed != "" {
		parsed, err := parseDate(trimmed)
		if err != nil {
			return types.RetentionPolicy{}, err
		}
		cfg.MinCreationDate = &parsed
	}
	return types.NewRetentionPolicy(cfg)
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("invalid minimum creation date, expected YYYY-MM-DD or RFC 3339")
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
