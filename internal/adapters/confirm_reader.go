package adapters

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/ports"
)

// ConfirmReaderAdapter answers yes/no prompts from a line-oriented reader,
// usually stdin.
type ConfirmReaderAdapter struct {
	In  *bufio.Reader
	Out io.Writer
}

func NewConfirmReaderAdapter(in io.Reader, out io.Writer) *ConfirmReaderAdapter {
	return &ConfirmReaderAdapter{In: bufio.NewReader(in), Out: out}
}

func (a *ConfirmReaderAdapter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(a.Out, "%s (y/n) ", prompt)
	line, err := a.In.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read confirmation").
			WithCause(err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid answer %q, must be one of [y, n]", strings.TrimSpace(line)))
	}
}

// ConfirmAlwaysAdapter answers every prompt with yes. Used when prompting is
// disabled.
type ConfirmAlwaysAdapter struct{}

func (ConfirmAlwaysAdapter) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

var _ ports.ConfirmPort = (*ConfirmReaderAdapter)(nil)
var _ ports.ConfirmPort = ConfirmAlwaysAdapter{}
