package webapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// PageInfo is the API view of one instance.
type PageInfo struct {
	Type    string         `json:"type"`
	Name    string         `json:"name"`
	Owner   string         `json:"owner"`
	Title   string         `json:"title"`
	Topic   string         `json:"topic,omitempty"`
	Builtin bool           `json:"builtin"`
	Public  bool           `json:"public"`
	Hidden  bool           `json:"hidden"`
	Record  element.Record `json:"record,omitempty"`
}

func pageInfo(inst *element.Instance, withRecord bool) PageInfo {
	info := PageInfo{
		Type:    inst.Type().Name(),
		Name:    inst.Name(),
		Owner:   inst.Owner(),
		Title:   inst.Title(),
		Builtin: inst.IsBuiltin(),
		Public:  inst.PublicFlag(),
		Hidden:  inst.IsHidden(),
	}
	if inst.Type().Has(element.Renderable) {
		info.Topic = inst.Topic()
	}
	if withRecord {
		info.Record = inst.Record()
	}
	return info
}

// RegisterDefaults registers the builtin actions.
func RegisterDefaults(a *API) {
	a.Register(Action{
		Name:        "get_page",
		Title:       "Get page",
		Description: "Resolve a page by type and name the way the page URL would.",
	}, getPage)
	a.Register(Action{
		Name:        "list_pages",
		Title:       "List pages",
		Description: "List the pages of one type visible to the calling user.",
	}, listPages)
	a.Register(Action{
		Name:        "clone_page",
		Title:       "Clone page",
		Description: "Copy a builtin, own or public page into the calling user's pages.",
		Locking:     true,
	}, clonePage)
	a.Register(Action{
		Name:        "delete_page",
		Title:       "Delete page",
		Description: "Delete an own page, or a foreign one with the delete_foreign permission.",
		Locking:     true,
	}, deletePage)
	a.Register(Action{
		Name:        "add_element_to_container",
		Title:       "Add element to container",
		Description: "Append an element to a container, copying the container first when it is not the caller's.",
		Locking:     true,
	}, addElementToContainer)
	a.Register(Action{
		Name:        "move_element",
		Title:       "Move element",
		Description: "Move a container element from one position to another, copying the container first when it is not the caller's.",
		Locking:     true,
	}, moveElement)
	a.Register(Action{
		Name:        "remove_element",
		Title:       "Remove element",
		Description: "Remove the container element at an index, copying the container first when it is not the caller's.",
		Locking:     true,
	}, removeElement)
	a.Register(Action{
		Name:        "list_selectors",
		Title:       "List selectors",
		Description: "List the selectors grouped by topic, optionally restricted to some infos.",
	}, listSelectors)
}

type pageArgs struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func getPage(ctx context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args pageArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	inst, err := s.GetElementByTypeAndName(ctx, args.Type, args.Name)
	if err != nil {
		return nil, err
	}
	return pageInfo(inst, true), nil
}

type listArgs struct {
	Type string `json:"type"`
}

func listPages(ctx context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args listArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	e, err := s.Engine(ctx, args.Type)
	if err != nil {
		return nil, err
	}
	pages := e.Pages()
	out := make([]PageInfo, 0, len(pages))
	for _, inst := range pages {
		out = append(out, pageInfo(inst, false))
	}
	return out, nil
}

type cloneArgs struct {
	Type    string `json:"type"`
	Owner   string `json:"owner"`
	Name    string `json:"name"`
	NewName string `json:"new_name"`
	Title   string `json:"title"`
}

// clonePage runs the clone mode of the edit flow: render to get the source
// values, then submit them with the requested name and title.
func clonePage(ctx context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args cloneArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	e, err := s.Engine(ctx, args.Type)
	if err != nil {
		return nil, err
	}
	req := element.EditRequest{Mode: element.ModeClone, LoadUser: args.Owner, LoadName: args.Name}
	form, err := e.Edit(ctx, req)
	if err != nil {
		return nil, err
	}

	values := form.Record
	if args.NewName != "" {
		values[element.KeyName] = args.NewName
	}
	if args.Title != "" {
		values[element.KeyTitle] = args.Title
	}
	req.Values = values
	page, err := e.Edit(ctx, req)
	if err != nil {
		return nil, err
	}
	if !page.Saved {
		return nil, page.Err()
	}
	return pageInfo(page.Instance, true), nil
}

type deleteArgs struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func deletePage(ctx context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args deleteArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	e, err := s.Engine(ctx, args.Type)
	if err != nil {
		return nil, err
	}
	owner := args.Owner
	if owner == "" {
		owner = s.User()
	}
	if err := e.Delete(ctx, owner, args.Name); err != nil {
		return nil, err
	}
	return fmt.Sprintf("deleted %s %s/%s", args.Type, owner, args.Name), nil
}

type addArgs struct {
	ContainerType string         `json:"container_type"`
	ContainerName string         `json:"container_name"`
	ElementType   string         `json:"element_type"`
	CreateInfo    element.Record `json:"create_info"`
}

// ContainerResult reports the container after one of its elements changed.
type ContainerResult struct {
	Container     PageInfo `json:"container"`
	Cloned        bool     `json:"cloned"`
	SidebarReload bool     `json:"sidebar_reload"`
}

func addElementToContainer(ctx context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args addArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	change, err := s.AddElementToContainer(ctx, args.ContainerType, args.ContainerName, args.ElementType, args.CreateInfo)
	if err != nil {
		return nil, err
	}
	return containerResult(change), nil
}

func containerResult(change element.ContainerChange) ContainerResult {
	return ContainerResult{
		Container:     pageInfo(change.Container, true),
		Cloned:        change.Cloned,
		SidebarReload: change.SidebarReload,
	}
}

type moveArgs struct {
	Type string `json:"type"`
	Name string `json:"name"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

func moveElement(ctx context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args moveArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	e, err := s.Engine(ctx, args.Type)
	if err != nil {
		return nil, err
	}
	change, err := e.MoveElement(ctx, args.Name, args.From, args.To)
	if err != nil {
		return nil, err
	}
	return containerResult(change), nil
}

type removeArgs struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

func removeElement(ctx context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args removeArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	e, err := s.Engine(ctx, args.Type)
	if err != nil {
		return nil, err
	}
	change, err := e.RemoveElement(ctx, args.Name, args.Index)
	if err != nil {
		return nil, err
	}
	return containerResult(change), nil
}

type selectorArgs struct {
	Infos []string `json:"infos"`
}

// SelectorInfo is the API view of one selector.
type SelectorInfo struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Info      string   `json:"info"`
	Variables []string `json:"variables"`
}

// SelectorGroup lists the selectors of one topic.
type SelectorGroup struct {
	Topic     string         `json:"topic"`
	Selectors []SelectorInfo `json:"selectors"`
}

func listSelectors(_ context.Context, s *element.Session, raw json.RawMessage) (any, error) {
	var args selectorArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	infos := args.Infos
	if len(infos) == 0 {
		for _, info := range s.Deps().Infos.All() {
			infos = append(infos, info.Name)
		}
	}
	c, err := selector.FromValues(infos, nil, nil)
	if err != nil {
		return nil, err
	}
	groups := s.Deps().Selectors.SelectorsByTopic(c)
	out := make([]SelectorGroup, 0, len(groups))
	for _, g := range groups {
		sg := SelectorGroup{Topic: g.Topic}
		for _, sel := range g.Items {
			sg.Selectors = append(sg.Selectors, SelectorInfo{
				Name: sel.Name(), Title: sel.Title(), Info: sel.Info(), Variables: sel.Variables(),
			})
		}
		out = append(out, sg)
	}
	return out, nil
}
