package app

import (
	"time"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/adapters"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/ports"
)

// Service wires the pruning and migration operations to their collaborators.
// Origin is the instance being pruned; Destination receives migrated
// projects and may be nil when no migration is requested.
type Service struct {
	Origin      ports.ForgePort
	Destination ports.ForgePort
	Confirm     ports.ConfirmPort
	Reporter    ports.ReportWriterPort
	Clock       func() time.Time
}

func NewService(origin ports.ForgePort, destination ports.ForgePort, confirm ports.ConfirmPort) Service {
	if confirm == nil {
		confirm = adapters.ConfirmAlwaysAdapter{}
	}
	return Service{
		Origin:      origin,
		Destination: destination,
		Confirm:     confirm,
		Reporter:    adapters.NewReportFileAdapter(),
		Clock:       time.Now,
	}
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
