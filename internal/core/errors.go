package core

import (
	"errors"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

const (
	emptyBranchListMsg    = "at least one protected branch is required"
	unknownBranchPrefix   = "unknown branch"
	malformedTimestampMsg = "malformed created_at timestamp"
)

// IsUnknownBranch reports whether err is a branch-validation failure for a
// non-convention branch name.
func IsUnknownBranch(err error) bool {
	return errbuilder.CodeOf(err) == errbuilder.CodeNotFound &&
		strings.HasPrefix(messageOf(err), unknownBranchPrefix)
}

// IsMalformedTimestamp reports whether err is a data-integrity failure from
// timestamp parsing during candidate selection.
func IsMalformedTimestamp(err error) bool {
	return errbuilder.CodeOf(err) == errbuilder.CodeInternal &&
		strings.HasPrefix(messageOf(err), malformedTimestampMsg)
}

func messageOf(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
