package pagetypes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	stdpath "path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/pubsub"
)

// Summary reports how many builtins each type has after a reload.
type Summary map[string]int

// Catalog holds the builtin records of all types. Records come from the
// embedded definitions, optionally overlaid per name by YAML files in a
// directory. It implements element.BuiltinSource.
type Catalog struct {
	base       fs.FS
	overlayDir string

	mu   sync.RWMutex
	defs map[string]map[string]element.Record

	broker *pubsub.Broker[Summary]
}

var _ element.BuiltinSource = (*Catalog)(nil)

// NewCatalog loads the builtins from base (files builtins/<type>.yaml) and
// overlayDir (files <type>.yaml). An empty overlayDir disables the overlay.
func NewCatalog(base fs.FS, overlayDir string) (*Catalog, error) {
	c := &Catalog{
		base:       base,
		overlayDir: overlayDir,
		broker:     pubsub.NewBroker[Summary](),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// OverlayDir returns the directory whose files override embedded builtins.
func (c *Catalog) OverlayDir() string { return c.overlayDir }

// Reload re-reads all definitions. Broken embedded definitions fail the
// reload; broken overlay files are logged and skipped. Stores loaded
// after a reload see the new builtins.
func (c *Catalog) Reload() error {
	defs, err := loadDefs(c.base, "builtins")
	if err != nil {
		return fmt.Errorf("loading embedded builtins: %w", err)
	}
	if c.overlayDir != "" {
		overlay, err := loadOverlay(c.overlayDir)
		if err != nil {
			log.Warn(log.CatWatcher, "Skipping builtin overlay", "dir", c.overlayDir, "error", err.Error())
		}
		for typeName, recs := range overlay {
			if defs[typeName] == nil {
				defs[typeName] = make(map[string]element.Record)
			}
			for name, rec := range recs {
				defs[typeName][name] = rec
			}
		}
	}

	c.mu.Lock()
	c.defs = defs
	c.mu.Unlock()

	summary := c.Summary()
	log.Info(log.CatWatcher, "Loaded builtin definitions", "types", len(summary), "overlay", c.overlayDir)
	c.broker.Publish(pubsub.ReloadedEvent, summary)
	return nil
}

// Builtins implements element.BuiltinSource.
func (c *Catalog) Builtins(typeName string) map[string]element.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.defs[typeName]
	out := make(map[string]element.Record, len(src))
	for name, rec := range src {
		out[name] = rec.Clone()
	}
	return out
}

// Summary counts the builtins per type.
func (c *Catalog) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := make(Summary, len(c.defs))
	for typeName, recs := range c.defs {
		s[typeName] = len(recs)
	}
	return s
}

// Types returns the type names with definitions, sorted.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for typeName := range c.defs {
		out = append(out, typeName)
	}
	sort.Strings(out)
	return out
}

// Broker publishes a Summary after every reload.
func (c *Catalog) Broker() *pubsub.Broker[Summary] { return c.broker }

// Close releases the subscribers of the reload broker.
func (c *Catalog) Close() { c.broker.Close() }

// loadDefs parses every <dir>/<type>.yaml of fsys.
func loadDefs(fsys fs.FS, dir string) (map[string]map[string]element.Record, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	defs := make(map[string]map[string]element.Record)
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		// Use path.Join (not filepath.Join) since fs.FS always uses forward slashes
		path := stdpath.Join(dir, e.Name())
		recs, err := parseDefs(fsys, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs[strings.TrimSuffix(e.Name(), ".yaml")] = recs
	}
	return defs, errors.Join(errs...)
}

func loadOverlay(dir string) (map[string]map[string]element.Record, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		// A missing overlay directory just means no overrides.
		return nil, nil
	}
	return loadDefs(os.DirFS(dir), ".")
}

func parseDefs(fsys fs.FS, path string) (map[string]element.Record, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var recs map[string]element.Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for name, rec := range recs {
		if rec == nil {
			recs[name] = element.Record{}
		}
	}
	return recs, nil
}
