package procedure

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeDirectory is an in-memory service directory.
type fakeDirectory struct {
	mu        sync.Mutex
	existing  map[string]bool
	created   []string
	listErr   error
	createErr map[string]error
}

func newFakeDirectory(existing ...string) *fakeDirectory {
	m := make(map[string]bool, len(existing))
	for _, name := range existing {
		m[name] = true
	}
	return &fakeDirectory{
		existing:  m,
		createErr: make(map[string]error),
	}
}

func (d *fakeDirectory) ListServices(ctx context.Context, filter ServiceFilter) ([]Service, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	if d.existing[filter.Name] {
		return []Service{{Name: filter.Name, ApplicationUUID: filter.ApplicationUUID}}, nil
	}
	return nil, nil
}

func (d *fakeDirectory) CreateService(ctx context.Context, svc Service) (*Service, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.createErr[svc.Name]; err != nil {
		return nil, err
	}
	d.created = append(d.created, svc.Name)
	d.existing[svc.Name] = true
	return &svc, nil
}

func (d *fakeDirectory) createdNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.created...)
}

// fakeImageSource is an in-memory image service.
type fakeImageSource struct {
	mu          sync.Mutex
	images      map[string]*ImageManifest
	imports     []string
	deletes     []string
	importErr   map[string]error
	importSizes map[string]int64
}

func newFakeImageSource() *fakeImageSource {
	return &fakeImageSource{
		images:      make(map[string]*ImageManifest),
		importErr:   make(map[string]error),
		importSizes: make(map[string]int64),
	}
}

func (s *fakeImageSource) GetImage(ctx context.Context, uuid string) (*ImageManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[uuid]
	if !ok {
		return nil, NewClientError("images", "no such image", nil).
			WithResource(uuid).WithCause(CauseNotFound)
	}
	copied := *img
	return &copied, nil
}

func (s *fakeImageSource) ImportRemote(ctx context.Context, uuid, source string, opts ImportOptions) (*ImageManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports = append(s.imports, uuid)
	if err := s.importErr[uuid]; err != nil {
		return nil, err
	}
	img := &ImageManifest{UUID: uuid, State: ImageStateActive, Size: s.importSizes[uuid]}
	s.images[uuid] = img
	return img, nil
}

func (s *fakeImageSource) DeleteImage(ctx context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, uuid)
	delete(s.images, uuid)
	return nil
}

func (s *fakeImageSource) importCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.imports...)
}

func (s *fakeImageSource) deleteCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func TestPlannerReturnsOnlyMissingServices(t *testing.T) {
	dir := newFakeDirectory("b")
	planner := NewBootstrapPlanner(dir, newFakeImageSource())

	missing, err := planner.MissingAgentServices(context.Background(), "app-1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a", "c"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("missing = %v, want %v (desired order preserved)", missing, want)
		}
	}
}

func TestPlannerFullyProvisionedYieldsEmptyPlan(t *testing.T) {
	dir := newFakeDirectory("a", "b", "c")
	planner := NewBootstrapPlanner(dir, newFakeImageSource())

	procs, err := planner.PlanAgentServices(context.Background(), "app-1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(procs) != 0 {
		t.Errorf("expected empty plan, got %d procedures", len(procs))
	}
	if created := dir.createdNames(); len(created) != 0 {
		t.Errorf("planner must not create services, saw %v", created)
	}
}

func TestPlannerPropagatesProbeErrors(t *testing.T) {
	dir := newFakeDirectory()
	dir.listErr = errors.New("directory down")
	planner := NewBootstrapPlanner(dir, newFakeImageSource())

	if _, err := planner.MissingAgentServices(context.Background(), "app-1", []string{"a"}); err == nil {
		t.Fatal("expected probe error to propagate")
	}
}

func TestPlannerImagePlanSkipsActiveImages(t *testing.T) {
	src := newFakeImageSource()
	src.images["active-img"] = &ImageManifest{UUID: "active-img", State: ImageStateActive}
	src.images["stale-img"] = &ImageManifest{UUID: "stale-img", State: ImageStateUnactivated}
	planner := NewBootstrapPlanner(newFakeDirectory(), src)

	desired := []ImageManifest{
		{UUID: "active-img"},
		{UUID: "stale-img"},
		{UUID: "new-img"},
	}
	procs, err := planner.PlanImageImports(context.Background(), "https://images.example.com", desired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, 0, len(procs))
	for _, p := range procs {
		got = append(got, p.(*ImportImageProcedure).Image.UUID)
	}
	want := []string{"stale-img", "new-img"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("planned imports = %v, want %v", got, want)
	}
}

func TestPlannerImagePlanCollapsesDuplicateUUIDs(t *testing.T) {
	planner := NewBootstrapPlanner(newFakeDirectory(), newFakeImageSource())

	desired := []ImageManifest{
		{UUID: "img-1"},
		{UUID: "img-1"},
		{UUID: "img-2"},
		{UUID: "img-1"},
	}
	procs, err := planner.PlanImageImports(context.Background(), "https://images.example.com", desired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(procs) != 2 {
		t.Fatalf("planned %d procedures, want one per distinct image", len(procs))
	}
	if procs[0].(*ImportImageProcedure).Image.UUID != "img-1" ||
		procs[1].(*ImportImageProcedure).Image.UUID != "img-2" {
		t.Errorf("plan lost first-seen order: %v, %v",
			procs[0].(*ImportImageProcedure).Image.UUID,
			procs[1].(*ImportImageProcedure).Image.UUID)
	}
}

func TestPlannerImagePlanCarriesLocalManifestFields(t *testing.T) {
	src := newFakeImageSource()
	src.images["stale-img"] = &ImageManifest{
		UUID:    "stale-img",
		Name:    "base-os",
		Version: "2.1.0",
		Size:    300 << 20,
		State:   ImageStateUnactivated,
	}
	planner := NewBootstrapPlanner(newFakeDirectory(), src)

	procs, err := planner.PlanImageImports(context.Background(), "https://images.example.com",
		[]ImageManifest{{UUID: "stale-img"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(procs) != 1 {
		t.Fatalf("planned %d procedures, want 1", len(procs))
	}

	img := procs[0].(*ImportImageProcedure).Image
	if img.Size != 300<<20 {
		t.Errorf("Size = %d, want the stale artifact's size", img.Size)
	}
	if img.Name != "base-os" || img.Version != "2.1.0" {
		t.Errorf("manifest = %+v, want name and version from the stale artifact", img)
	}
}

func TestTotalSizeEmptyListIsZero(t *testing.T) {
	if got := TotalSize(nil); got != 0 {
		t.Errorf("TotalSize(nil) = %d, want 0", got)
	}
	imgs := []ImageManifest{{Size: 500 << 20}, {Size: 300 << 20}}
	if got := TotalSize(imgs); got != 800<<20 {
		t.Errorf("TotalSize = %d, want %d", got, int64(800<<20))
	}
}
