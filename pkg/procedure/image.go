package procedure

import (
	"context"
	"fmt"

	"github.com/opsforge/opsforge/pkg/history"
	"github.com/opsforge/opsforge/pkg/telemetry"
)

// importRetries is the image client's bounded attempt budget for transient
// network failures during a remote import.
const importRetries = 5

// ImportImageProcedure downloads one software image from a remote source
// into the local image service.
type ImportImageProcedure struct {
	// Source is the local image service.
	Source ImageSource

	// Image is the manifest of the image to import.
	Image ImageManifest

	// ImportFrom is the remote source URL.
	ImportFrom string

	// Log reports step progress. Optional; a context logger is used when
	// unset.
	Log *telemetry.Logger

	// imported is the manifest returned by the image service, set once the
	// import step succeeds. Written only by the worker that owns the
	// procedure.
	imported *ImageManifest
}

// Summary returns a one-line description of the import.
func (p *ImportImageProcedure) Summary() string {
	return fmt.Sprintf("download image %s (%s@%s)", p.Image.UUID, p.Image.Name, p.Image.Version)
}

// Change returns the change descriptor for the run history.
func (p *ImportImageProcedure) Change() history.Change {
	return history.Change{
		Type:   "image",
		Name:   p.Image.UUID,
		Action: "import",
	}
}

// Execute runs the import pipeline: remove a previously half-imported
// artifact if one is present, then import with the client's retry budget.
func (p *ImportImageProcedure) Execute(ctx context.Context) error {
	log := p.Log
	if log == nil {
		log = telemetry.FromContext(ctx)
	}

	steps := []Step{
		{
			Name: "remove stale unactivated image",
			Run: func(ctx context.Context) error {
				img, err := p.Source.GetImage(ctx, p.Image.UUID)
				if err != nil {
					if IsNotFound(err) {
						return ErrSkipped
					}
					return err
				}
				if img.State != ImageStateUnactivated {
					return ErrSkipped
				}
				return p.Source.DeleteImage(ctx, p.Image.UUID)
			},
		},
		{
			Name: "import image",
			Run: func(ctx context.Context) error {
				img, err := p.Source.ImportRemote(ctx, p.Image.UUID, p.ImportFrom, ImportOptions{
					SkipOwnerCheck: true,
					Retries:        importRetries,
				})
				if err != nil {
					return err
				}
				p.imported = img
				return nil
			},
		},
	}

	return RunSteps(ctx, log, p.Image.UUID, steps)
}

// ImportSize returns the best-known download size for metrics accounting:
// the imported manifest's size once the import succeeded, otherwise the
// size known at planning time. Zero when neither is known.
func (p *ImportImageProcedure) ImportSize() int64 {
	if p.imported != nil && p.imported.Size > 0 {
		return p.imported.Size
	}
	return p.Image.Size
}

// TotalSize sums the download size of the given manifests. An empty list is
// a no-op yielding zero.
func TotalSize(images []ImageManifest) int64 {
	var total int64
	for _, img := range images {
		total += img.Size
	}
	return total
}
