package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
)

// DefaultBranches are conventionally protected and may legitimately not
// exist in a project.
var DefaultBranches = []string{"main", "master"}

// ValidateProtectedBranches filters a requested protection list against the
// branches a project actually has.
//
// Requested names that do not exist are dropped silently when they are the
// conventional defaults ("main"/"master") and rejected otherwise, naming the
// offending branch. With extendWithDefaults the result always contains both
// defaults whether or not they exist: protection markers for pipeline
// pruning do not need to be real branches, while names validated for branch
// deletion do. The result is duplicate-free and keeps the requested order.
func ValidateProtectedBranches(requested []string, existing []string, extendWithDefaults bool) ([]string, error) {
	if len(requested) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(emptyBranchListMsg)
	}

	existingSet := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		existingSet[name] = struct{}{}
	}

	seen := map[string]struct{}{}
	result := make([]string, 0, len(requested)+len(DefaultBranches))
	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		if _, ok := existingSet[name]; !ok {
			if isDefaultBranch(name) {
				log.Debug().Str("branch", name).Msg("dropping missing default branch from protection list")
				continue
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("%s %q, existing branches: [%s]", unknownBranchPrefix, name, strings.Join(existing, ", ")))
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	if extendWithDefaults {
		for _, name := range DefaultBranches {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			result = append(result, name)
		}
	}
	return result, nil
}

func isDefaultBranch(name string) bool {
	for _, candidate := range DefaultBranches {
		if name == candidate {
			return true
		}
	}
	return false
}
