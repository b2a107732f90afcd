package procedure

import (
	"context"

	"github.com/opsforge/opsforge/pkg/history"
)

// Procedure is one unit of work submitted to the concurrency queue. A
// procedure is owned exclusively by the worker executing it and is never
// mutated concurrently.
type Procedure interface {
	// Summary returns a one-line human-readable description of the change.
	Summary() string

	// Change returns the change descriptor recorded in the run history.
	Change() history.Change

	// Execute performs the change. Execute is called exactly once per
	// admitted procedure.
	Execute(ctx context.Context) error
}

// Image states as reported by the image source.
const (
	// ImageStateActive marks an image promoted to usable state.
	ImageStateActive = "active"

	// ImageStateUnactivated marks a partially-imported artifact that is
	// safe to delete and retry.
	ImageStateUnactivated = "unactivated"
)

// ImageManifest describes one software image in the image source.
type ImageManifest struct {
	// UUID is the image identifier.
	UUID string `json:"uuid"`

	// Name is the image name.
	Name string `json:"name"`

	// Version is the image version.
	Version string `json:"version"`

	// Size is the image file size in bytes.
	Size int64 `json:"size"`

	// State is the lifecycle state (active, unactivated, ...).
	State string `json:"state"`
}

// ImportOptions control a remote image import. The retry budget belongs to
// the remote client; the step pipeline treats the call as atomic pass/fail.
type ImportOptions struct {
	// SkipOwnerCheck allows importing images owned by another account.
	SkipOwnerCheck bool

	// Retries is the bounded attempt budget for transient failures.
	Retries int
}

// ImageSource is the image/artifact service consumed by image procedures.
type ImageSource interface {
	// GetImage retrieves a local image manifest by UUID.
	GetImage(ctx context.Context, uuid string) (*ImageManifest, error)

	// ImportRemote imports an image from the named remote source.
	ImportRemote(ctx context.Context, uuid, source string, opts ImportOptions) (*ImageManifest, error)

	// DeleteImage removes an image, typically a stale unactivated artifact.
	DeleteImage(ctx context.Context, uuid string) error
}

// Service is one entry in the cluster service directory.
type Service struct {
	// UUID is the directory-assigned identifier.
	UUID string `json:"uuid"`

	// Name is the service name, unique within an application.
	Name string `json:"name"`

	// ApplicationUUID is the owning application.
	ApplicationUUID string `json:"application_uuid"`

	// Type distinguishes agent services from zone-hosted services.
	Type string `json:"type"`

	// Params are service-specific creation parameters.
	Params map[string]interface{} `json:"params,omitempty"`
}

// ServiceFilter selects directory entries by exact-match fields. Zero-value
// fields are not applied.
type ServiceFilter struct {
	Name            string
	ApplicationUUID string
	Type            string
}

// ServiceDirectory is the cluster service directory consumed by service
// procedures and the bootstrap planner.
type ServiceDirectory interface {
	// ListServices returns directory entries matching the filter.
	ListServices(ctx context.Context, filter ServiceFilter) ([]Service, error)

	// CreateService registers a new service under the application. The
	// create is expected to tolerate a concurrent external creator.
	CreateService(ctx context.Context, svc Service) (*Service, error)
}

// Reachability is the network-topology view of the executing zone.
type Reachability struct {
	// NeedsExternalNIC is true when the zone lacks an external network
	// interface and cannot reach remote sources.
	NeedsExternalNIC bool `json:"needs_external_nic"`
}

// Topology is the read-only network-topology capability used by the
// diagnoser to confirm the reachability signature.
type Topology interface {
	// CheckExternalReachability inspects the executing zone's networks.
	CheckExternalReachability(ctx context.Context) (*Reachability, error)
}
