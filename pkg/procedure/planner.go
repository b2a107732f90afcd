package procedure

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BootstrapPlanner computes the minimal work list for a desired resource
// set: desired minus existing, keyed by resource name. It never schedules
// creation for a resource that already exists at planning time; races with
// concurrent external creators are tolerated by the remote create call.
type BootstrapPlanner struct {
	directory ServiceDirectory
	images    ImageSource
}

// NewBootstrapPlanner creates a planner over the given service capabilities.
func NewBootstrapPlanner(directory ServiceDirectory, images ImageSource) *BootstrapPlanner {
	return &BootstrapPlanner{
		directory: directory,
		images:    images,
	}
}

// missingNames filters desired down to the names whose existence probe
// reports absent. Probes run in parallel and are order-independent; the
// result preserves desired order.
func missingNames(ctx context.Context, desired []string, exists func(ctx context.Context, name string) (bool, error)) ([]string, error) {
	found := make([]bool, len(desired))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range desired {
		g.Go(func() error {
			ok, err := exists(ctx, name)
			if err != nil {
				return fmt.Errorf("existence check for %q failed: %w", name, err)
			}
			found[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	missing := make([]string, 0, len(desired))
	for i, name := range desired {
		if !found[i] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// MissingAgentServices returns the agent service names from desired that are
// absent from the service directory.
func (p *BootstrapPlanner) MissingAgentServices(ctx context.Context, applicationUUID string, desired []string) ([]string, error) {
	return missingNames(ctx, desired, func(ctx context.Context, name string) (bool, error) {
		svcs, err := p.directory.ListServices(ctx, ServiceFilter{
			Name:            name,
			ApplicationUUID: applicationUUID,
		})
		if err != nil {
			return false, err
		}
		return len(svcs) > 0, nil
	})
}

// PlanAgentServices builds create procedures for the desired agent services
// missing from the directory, in desired order.
func (p *BootstrapPlanner) PlanAgentServices(ctx context.Context, applicationUUID string, desired []string) ([]Procedure, error) {
	missing, err := p.MissingAgentServices(ctx, applicationUUID, desired)
	if err != nil {
		return nil, err
	}

	procs := make([]Procedure, 0, len(missing))
	for _, name := range missing {
		procs = append(procs, &CreateServiceProcedure{
			Directory: p.directory,
			Service: Service{
				Name:            name,
				ApplicationUUID: applicationUUID,
				Type:            "agent",
			},
		})
	}
	return procs, nil
}

// PlanImageImports builds import procedures for the manifests not already
// active in the image source, in desired order. An image present but
// unactivated still gets a procedure: its pipeline removes the stale
// artifact before importing. Duplicate UUIDs in desired collapse to one
// procedure per image.
func (p *BootstrapPlanner) PlanImageImports(ctx context.Context, source string, desired []ImageManifest) ([]Procedure, error) {
	byUUID := make(map[string]ImageManifest, len(desired))
	names := make([]string, 0, len(desired))
	for _, img := range desired {
		if _, ok := byUUID[img.UUID]; ok {
			continue
		}
		byUUID[img.UUID] = img
		names = append(names, img.UUID)
	}

	var mu sync.Mutex
	missing, err := missingNames(ctx, names, func(ctx context.Context, uuid string) (bool, error) {
		img, err := p.images.GetImage(ctx, uuid)
		if err != nil {
			if IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		if img.State == ImageStateActive {
			return true, nil
		}

		// A stale local artifact still knows its manifest; carry the
		// fields the caller left blank so progress output can report a
		// real download size.
		mu.Lock()
		known := byUUID[uuid]
		if known.Name == "" {
			known.Name = img.Name
		}
		if known.Version == "" {
			known.Version = img.Version
		}
		if known.Size == 0 {
			known.Size = img.Size
		}
		byUUID[uuid] = known
		mu.Unlock()
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	procs := make([]Procedure, 0, len(missing))
	for _, uuid := range missing {
		procs = append(procs, &ImportImageProcedure{
			Source:     p.images,
			Image:      byUUID[uuid],
			ImportFrom: source,
		})
	}
	return procs, nil
}
