package host_test

import (
	"context"
	"testing"

	"docmill/internal/handles"
	"docmill/internal/host"
	"docmill/internal/logging"
	"docmill/internal/testsupport"
)

func TestManagerLaunchesOnce(t *testing.T) {
	factory := testsupport.NewFakeFactory()
	registry := handles.NewRegistry(logging.NewNop())
	manager := host.NewManager(factory, nil, registry, host.ManagerConfig{}, logging.NewNop())
	t.Cleanup(func() { manager.Close(context.Background()) })

	ctx := context.Background()
	first, err := manager.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := manager.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first.ProcessID() != second.ProcessID() {
		t.Fatal("expected the same instance across acquisitions")
	}
	if got := factory.Launches(); got != 1 {
		t.Fatalf("Launches() = %d, want 1", got)
	}
	if got := manager.Uses(); got != 2 {
		t.Fatalf("Uses() = %d, want 2", got)
	}
}

func TestManagerRecyclesAfterThreshold(t *testing.T) {
	factory := testsupport.NewFakeFactory()
	registry := handles.NewRegistry(logging.NewNop())
	manager := host.NewManager(factory, nil, registry, host.ManagerConfig{RecycleAfterUses: 2}, logging.NewNop())
	t.Cleanup(func() { manager.Close(context.Background()) })

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := manager.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if got := factory.Launches(); got != 3 {
		t.Fatalf("Launches() = %d, want 3", got)
	}
}

func TestManagerForcedRecycle(t *testing.T) {
	factory := testsupport.NewFakeFactory()
	registry := handles.NewRegistry(logging.NewNop())
	manager := host.NewManager(factory, nil, registry, host.ManagerConfig{}, logging.NewNop())
	t.Cleanup(func() { manager.Close(context.Background()) })

	ctx := context.Background()
	first, err := manager.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	manager.Recycle(ctx)
	second, err := manager.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after recycle: %v", err)
	}
	if first.ProcessID() == second.ProcessID() {
		t.Fatal("expected a fresh instance after forced recycle")
	}
	if got := manager.Uses(); got != 1 {
		t.Fatalf("Uses() = %d after relaunch, want 1", got)
	}
}

func TestManagerShutdownClosesOpenDocuments(t *testing.T) {
	factory := testsupport.NewFakeFactory()
	registry := handles.NewRegistry(logging.NewNop())
	manager := host.NewManager(factory, nil, registry, host.ManagerConfig{}, logging.NewNop())

	ctx := context.Background()
	app, err := manager.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	fake := app.(*testsupport.FakeApp)

	dir := t.TempDir()
	if _, err := app.OpenDocument(ctx, testsupport.WriteDocument(t, dir, "a.docx")); err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if _, err := app.OpenDocument(ctx, testsupport.WriteDocument(t, dir, "b.docx")); err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}

	manager.Close(ctx)
	if got := fake.OpenCount(); got != 0 {
		t.Fatalf("OpenCount() = %d after shutdown, want 0", got)
	}
	if registry.Active() != 0 {
		t.Fatalf("Active() = %d after shutdown, want 0", registry.Active())
	}
}
