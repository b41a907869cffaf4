package convert_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"docmill/internal/convert"
	"docmill/internal/handles"
	"docmill/internal/host"
	"docmill/internal/logging"
	"docmill/internal/resilience"
	"docmill/internal/testsupport"
)

func TestRegistryLookup(t *testing.T) {
	registry := convert.NewRegistry()
	converter := testsupport.NewScriptedConverter()
	registry.Register(converter, "docx", "ODT", " txt ")

	if _, err := registry.Lookup("/in/report.docx"); err != nil {
		t.Fatalf("Lookup(docx): %v", err)
	}
	if _, err := registry.Lookup("/in/notes.odt"); err != nil {
		t.Fatalf("Lookup(odt): %v", err)
	}

	if _, err := registry.Lookup("/in/image.png"); !errors.Is(err, resilience.ErrValidation) {
		t.Fatalf("Lookup(png) = %v, want validation error", err)
	}
	if _, err := registry.Lookup("/in/README"); !errors.Is(err, resilience.ErrValidation) {
		t.Fatalf("Lookup(no extension) = %v, want validation error", err)
	}

	got := registry.Supported()
	want := []string{"docx", "odt", "txt"}
	if len(got) != len(want) {
		t.Fatalf("Supported() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Supported() = %v, want %v", got, want)
		}
	}
}

func TestHostConverterSuccess(t *testing.T) {
	factory := testsupport.NewFakeFactory()
	registry := handles.NewRegistry(logging.NewNop())
	manager := host.NewManager(factory, nil, registry, host.ManagerConfig{}, logging.NewNop())
	t.Cleanup(func() { manager.Close(context.Background()) })

	converter := convert.NewHostConverter(manager, logging.NewNop())
	dir := t.TempDir()
	input := testsupport.WriteDocument(t, dir, "memo.docx")
	output := filepath.Join(dir, "out", "memo.pdf")

	scope := handles.NewScope(registry, logging.NewNop(), "test")
	result, err := converter.Convert(context.Background(), scope, convert.Request{
		InputPath:  input,
		OutputPath: output,
		Format:     "pdf",
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !result.Success || result.OutputPath != output {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output not written: %v", err)
	}

	if registry.Active() == 0 {
		t.Fatal("expected the document handle to remain tracked until scope close")
	}
	scope.Close()
	if registry.Active() != 0 {
		t.Fatalf("Active() = %d after scope close, want 0", registry.Active())
	}
}

func TestHostConverterOpenFailure(t *testing.T) {
	factory := testsupport.NewFakeFactory()
	input := "/in/broken.docx"
	factory.OpenErrs = map[string]error{input: fmt.Errorf("document is locked")}

	registry := handles.NewRegistry(logging.NewNop())
	manager := host.NewManager(factory, nil, registry, host.ManagerConfig{}, logging.NewNop())
	t.Cleanup(func() { manager.Close(context.Background()) })

	converter := convert.NewHostConverter(manager, logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "test")
	defer scope.Close()

	result, err := converter.Convert(context.Background(), scope, convert.Request{
		InputPath:  input,
		OutputPath: "/out/broken.pdf",
		Format:     "pdf",
	})
	if !errors.Is(err, resilience.ErrNativeInterop) {
		t.Fatalf("Convert = %v, want native interop error", err)
	}
	if result.Success {
		t.Fatal("result reported success on failure")
	}
	if scope.Count() != 0 {
		t.Fatalf("scope tracked %d handles after open failure, want 0", scope.Count())
	}
}

func TestHostConverterExportFailureReleasesHandle(t *testing.T) {
	factory := testsupport.NewFakeFactory()
	dir := t.TempDir()
	input := testsupport.WriteDocument(t, dir, "sheet.odt")
	factory.ExportErrs = map[string]error{input: fmt.Errorf("filter crashed")}

	registry := handles.NewRegistry(logging.NewNop())
	manager := host.NewManager(factory, nil, registry, host.ManagerConfig{}, logging.NewNop())
	t.Cleanup(func() { manager.Close(context.Background()) })

	converter := convert.NewHostConverter(manager, logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "test")

	_, err := converter.Convert(context.Background(), scope, convert.Request{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "sheet.pdf"),
		Format:     "pdf",
	})
	if !errors.Is(err, resilience.ErrNativeInterop) {
		t.Fatalf("Convert = %v, want native interop error", err)
	}
	if scope.Count() != 1 {
		t.Fatalf("scope tracked %d handles, want the open document", scope.Count())
	}
	scope.Close()
	if registry.Active() != 0 {
		t.Fatalf("Active() = %d after scope close, want 0", registry.Active())
	}
}
