package pagetypes

import (
	"fmt"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/permission"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// Registries are the process-wide registries, filled once at startup.
type Registries struct {
	Permissions *permission.Registry
	Infos       *selector.InfoRegistry
	Selectors   *selector.Registry
	Elements    *element.Registry
	Catalog     *Catalog
}

// Bootstrap fills fresh registries: infos first, then selectors (which
// reference infos), then element types (which reference both).
func Bootstrap(perms *permission.Registry, catalog *Catalog) (*Registries, error) {
	infos := selector.NewInfoRegistry()
	sels := selector.NewRegistry(infos)
	if err := selector.RegisterDefaults(infos, sels); err != nil {
		return nil, fmt.Errorf("registering selectors: %w", err)
	}

	infoNames := make([]string, 0, len(infos.All()))
	for _, info := range infos.All() {
		infoNames = append(infoNames, info.Name)
	}

	elements := element.NewRegistry(perms)
	builders := []func() (*element.Type, error){
		func() (*element.Type, error) { return NewViewType(infoNames, catalog) },
		func() (*element.Type, error) { return NewDashboardType(catalog) },
		func() (*element.Type, error) { return NewGraphCollectionType(catalog) },
	}
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, fmt.Errorf("building element type: %w", err)
		}
		elements.Register(t)
	}
	log.Info(log.CatRegistry, "Registries ready",
		"infos", len(infoNames), "selectors", len(sels.All()), "types", len(elements.All()))

	return &Registries{
		Permissions: perms,
		Infos:       infos,
		Selectors:   sels,
		Elements:    elements,
		Catalog:     catalog,
	}, nil
}

// Deps binds the registries to a persistence backend.
func (r *Registries) Deps(persist element.Persistence) element.Deps {
	return element.Deps{
		Registry:    r.Elements,
		Infos:       r.Infos,
		Selectors:   r.Selectors,
		Persistence: persist,
		Permissions: r.Permissions,
	}
}
