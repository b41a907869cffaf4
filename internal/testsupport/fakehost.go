package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"docmill/internal/host"
)

// FakeFactory launches in-memory host applications for tests.
type FakeFactory struct {
	mu       sync.Mutex
	launches int
	nextPID  int
	// LaunchErr, when set, fails every Launch call.
	LaunchErr error
	// OpenErrs scripts per-path OpenDocument failures on launched apps.
	OpenErrs map[string]error
	// ExportErrs scripts per-path ExportTo failures on opened documents.
	ExportErrs map[string]error
}

// NewFakeFactory constructs a factory whose applications succeed by default.
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{nextPID: 40000}
}

// Launch satisfies host.Factory.
func (f *FakeFactory) Launch(ctx context.Context) (host.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LaunchErr != nil {
		return nil, f.LaunchErr
	}
	f.launches++
	f.nextPID++
	return &FakeApp{factory: f, pid: f.nextPID}, nil
}

// Launches reports how many applications the factory has started.
func (f *FakeFactory) Launches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launches
}

// FakeApp is an in-memory host.Application.
type FakeApp struct {
	factory *FakeFactory
	pid     int

	mu       sync.Mutex
	open     []*FakeDoc
	quit     bool
	released bool
}

func (a *FakeApp) OpenDocument(ctx context.Context, path string) (host.Document, error) {
	a.factory.mu.Lock()
	openErr := a.factory.OpenErrs[path]
	a.factory.mu.Unlock()
	if openErr != nil {
		return nil, openErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quit {
		return nil, fmt.Errorf("application has quit")
	}
	doc := &FakeDoc{app: a, path: path}
	a.open = append(a.open, doc)
	return doc, nil
}

func (a *FakeApp) Documents(ctx context.Context) (host.Collection, error) {
	return &FakeCollection{app: a}, nil
}

func (a *FakeApp) ProcessID() int { return a.pid }

func (a *FakeApp) Quit(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quit = true
	return nil
}

func (a *FakeApp) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return fmt.Errorf("application released twice")
	}
	a.released = true
	return nil
}

// OpenCount reports how many documents remain open inside the app.
func (a *FakeApp) OpenCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, doc := range a.open {
		if !doc.isClosed() {
			n++
		}
	}
	return n
}

// FakeDoc is an in-memory host.Document. ExportTo writes a real file so
// callers can assert output placement.
type FakeDoc struct {
	app  *FakeApp
	path string

	mu       sync.Mutex
	closed   bool
	released bool
	exports  int
}

func (d *FakeDoc) ExportTo(ctx context.Context, path, format string) error {
	d.app.factory.mu.Lock()
	exportErr := d.app.factory.ExportErrs[d.path]
	d.app.factory.mu.Unlock()
	if exportErr != nil {
		return exportErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("export on closed document")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte("converted:"+format), 0o644); err != nil {
		return err
	}
	d.exports++
	return nil
}

func (d *FakeDoc) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *FakeDoc) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return fmt.Errorf("document released twice")
	}
	d.released = true
	d.closed = true
	return nil
}

// Released reports whether the document handle has been released.
func (d *FakeDoc) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

func (d *FakeDoc) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// FakeCollection exposes the app's open documents as a 1-based collection.
type FakeCollection struct {
	app      *FakeApp
	mu       sync.Mutex
	released bool
}

func (c *FakeCollection) Count(ctx context.Context) (int, error) {
	return c.app.OpenCount(), nil
}

func (c *FakeCollection) Item(ctx context.Context, i int) (host.Document, error) {
	c.app.mu.Lock()
	defer c.app.mu.Unlock()
	live := make([]*FakeDoc, 0, len(c.app.open))
	for _, doc := range c.app.open {
		if !doc.isClosed() {
			live = append(live, doc)
		}
	}
	if i < 1 || i > len(live) {
		return nil, fmt.Errorf("collection index %d out of range", i)
	}
	return live[i-1], nil
}

func (c *FakeCollection) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return fmt.Errorf("collection released twice")
	}
	c.released = true
	return nil
}
