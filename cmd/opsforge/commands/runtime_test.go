package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeRuntimeConfig(t *testing.T, metricsAddr string) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`
directory_url: https://directory.example.com
images_url: https://images.local.example.com
topology_url: https://topology.example.com
application_uuid: 2d35b836-6d8c-4cbf-8a06-3e7f922c9b4a
history_path: %s
logging:
  output: stderr
metrics:
  enabled: true
  listen_address: %q
`, filepath.Join(dir, "history.db"), metricsAddr)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
}

func TestNewRuntimeWiresCollaborators(t *testing.T) {
	withConfigPath(t, writeRuntimeConfig(t, ""))

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	defer rt.close(ctx)

	if rt.engine == nil || rt.planner == nil {
		t.Error("engine or planner not wired")
	}
	if rt.directory == nil || rt.images == nil || rt.topology == nil {
		t.Error("service clients not wired")
	}
	if rt.store == nil || rt.metrics == nil || rt.tracer == nil {
		t.Error("store or telemetry not wired")
	}
}

func TestNewRuntimeServesMetricsEndpoint(t *testing.T) {
	// An ephemeral port keeps the background listener harmless; the
	// assertion is that wiring it does not break runtime construction.
	withConfigPath(t, writeRuntimeConfig(t, "127.0.0.1:0"))

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	defer rt.close(ctx)

	if rt.metrics.Handler() == nil {
		t.Error("enabled metrics must expose a handler")
	}
}
