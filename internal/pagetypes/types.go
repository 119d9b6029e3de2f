package pagetypes

import (
	"strings"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// Type names shipped with the product.
const (
	TypeView            = "view"
	TypeDashboard       = "dashboard"
	TypeGraphCollection = "graph_collection"
)

// Datasources a view may display.
var datasources = []string{"hosts", "services", "hostgroups", "servicegroups", "aggr", "log"}

// NewViewType returns the view type: a renderable, context-aware table
// over one datasource.
func NewViewType(infos []string, builtins element.BuiltinSource) (*element.Type, error) {
	return element.NewBuilder(TypeView).
		Phrases(map[string]string{
			"title":        "View",
			"title_plural": "Views",
			"add_to":       "Add to view",
			"clone":        "Clone view",
			"create":       "Create view",
			"edit":         "Edit view",
		}).
		Overridable().
		Renderable().
		ContextAware(infos, nil).
		DefaultTopic(selector.DefaultTopic).
		Builtins(builtins).
		Sanitize(func(r element.Record) {
			setDefault(r, "datasource", "hosts")
			setDefault(r, "layout", "table")
			if _, ok := r["painters"].([]any); !ok {
				r["painters"] = []any{}
			}
		}).
		Parameters(func(element.ParameterEnv) []element.Parameter {
			return []element.Parameter{
				{Topic: "View", Order: 4.1, Key: "datasource", Field: element.Field{
					Kind: element.FieldText, Title: "Datasource",
					Help: "One of " + strings.Join(datasources, ", "),
				}},
				{Topic: "View", Order: 4.2, Key: "layout", Field: element.Field{
					Kind: element.FieldText, Title: "Layout",
				}},
			}
		}).
		Build()
}

// NewDashboardType returns the dashboard type: a container of dashlets
// that may be pinned to a host.
func NewDashboardType(builtins element.BuiltinSource) (*element.Type, error) {
	return element.NewBuilder(TypeDashboard).
		Phrases(map[string]string{
			"title":        "Dashboard",
			"title_plural": "Dashboards",
			"add_to":       "Add to dashboard",
			"clone":        "Clone dashboard",
			"create":       "Create dashboard",
			"edit":         "Edit dashboard",
		}).
		Overridable().
		Renderable().
		Container().
		ContextAware([]string{"host", "service"}, nil).
		DefaultTopic("Overview").
		Builtins(builtins).
		Sanitize(func(r element.Record) {
			setDefault(r, "show_title", true)
		}).
		Parameters(func(element.ParameterEnv) []element.Parameter {
			return []element.Parameter{
				{Topic: "Dashboard", Order: 4.1, Key: "show_title", Field: element.Field{
					Kind: element.FieldCheckbox, Title: "Dashboard title", Label: "Show the header of the dashboard",
				}},
			}
		}).
		Build()
}

// NewGraphCollectionType returns the graph collection type. Collections
// are containers but have no page of their own.
func NewGraphCollectionType(builtins element.BuiltinSource) (*element.Type, error) {
	return element.NewBuilder(TypeGraphCollection).
		Phrases(map[string]string{
			"title":        "Graph collection",
			"title_plural": "Graph collections",
			"add_to":       "Add to graph collection",
		}).
		Overridable().
		Container().
		DefaultTopic("Metrics").
		Builtins(builtins).
		Build()
}

func setDefault(r element.Record, key string, value any) {
	if _, ok := r[key]; !ok {
		r[key] = value
	}
}
