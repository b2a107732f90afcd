package procedure

import (
	"context"
	"fmt"

	"github.com/opsforge/opsforge/pkg/history"
	"github.com/opsforge/opsforge/pkg/telemetry"
)

// CreateServiceProcedure registers one missing cluster agent service in the
// service directory.
type CreateServiceProcedure struct {
	// Directory is the cluster service directory.
	Directory ServiceDirectory

	// Service is the entry to create.
	Service Service

	// Log reports step progress. Optional; a context logger is used when
	// unset.
	Log *telemetry.Logger
}

// Summary returns a one-line description of the change.
func (p *CreateServiceProcedure) Summary() string {
	return fmt.Sprintf("create service %q", p.Service.Name)
}

// Change returns the change descriptor for the run history.
func (p *CreateServiceProcedure) Change() history.Change {
	return history.Change{
		Type:   "service",
		Name:   p.Service.Name,
		Action: "create",
	}
}

// Execute registers the service. A concurrent external creator wins the
// race; the directory's create call is expected to tolerate that.
func (p *CreateServiceProcedure) Execute(ctx context.Context) error {
	log := p.Log
	if log == nil {
		log = telemetry.FromContext(ctx)
	}

	steps := []Step{
		{
			Name: "create service",
			Run: func(ctx context.Context) error {
				_, err := p.Directory.CreateService(ctx, p.Service)
				return err
			},
		},
	}

	return RunSteps(ctx, log, p.Service.Name, steps)
}
