package ports

import "context"

// ConfirmPort asks the operator a yes/no question before a project is
// processed. Injected so the orchestrator never blocks on a console read
// directly.
type ConfirmPort interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}
