package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/rowsource"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// lookupPage finds the page handler bound to path.
func (h *Handler) lookupPage(path string) (element.PageHandler, bool) {
	for _, ph := range h.deps.Registry.PageHandlers() {
		if ph.Path == path && ph.Type != nil {
			return ph, true
		}
	}
	return element.PageHandler{}, false
}

// Page serves the listing, edit and show pages.
// GET /{page}
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ph, ok := h.lookupPage(r.PathValue("page"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "Page not found", r.URL.Path)
		return
	}
	switch ph.Kind {
	case element.HandlerList:
		h.list(w, r, ph.Type)
	case element.HandlerEdit:
		h.edit(w, r, ph.Type, nil)
	case element.HandlerShow:
		h.show(w, r, ph.Type)
	}
}

// Submit posts the edit form of a type. The body is a JSON object of form
// values; mode, load_name and load_user come from the query string.
// POST /edit_{type}
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ph, ok := h.lookupPage(r.PathValue("page"))
	if !ok || ph.Kind != element.HandlerEdit {
		h.writeError(w, http.StatusNotFound, "not_found", "Page not found", r.URL.Path)
		return
	}
	var values element.Record
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err == nil {
		err = json.Unmarshal(body, &values)
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}
	if values == nil {
		values = element.Record{}
	}
	h.edit(w, r, ph.Type, values)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, t *element.Type) {
	q := r.URL.Query()
	name := q.Get("_delete")
	if name != "" {
		// The store must be loaded under the lock, or the saved snapshot
		// may miss a concurrent writer's change.
		h.writeMu.Lock()
		defer h.writeMu.Unlock()
	}
	e, err := h.session(r).Engine(r.Context(), t.Name())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if name != "" {
		if err := e.DeleteFromList(r.Context(), q.Get("_owner"), name); err != nil {
			h.writeErr(w, r, err)
			return
		}
		log.Info(log.CatWeb, "Deleted instance", "type", t.Name(), "name", name, "user", e.User())
	}
	list, err := e.PageList()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// FieldError is one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// EditResponse is the view model of the edit page.
type EditResponse struct {
	Mode          element.EditMode    `json:"mode"`
	Title         string              `json:"title"`
	Parameters    []element.Parameter `json:"parameters"`
	Record        element.Record      `json:"record"`
	Errors        []FieldError        `json:"errors,omitempty"`
	Saved         bool                `json:"saved"`
	SidebarReload bool                `json:"sidebar_reload,omitempty"`
	// Next is the listing page to go to after a successful save.
	Next string `json:"next,omitempty"`
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request, t *element.Type, values element.Record) {
	q := r.URL.Query()
	mode, err := element.ParseEditMode(q.Get("mode"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if values != nil {
		h.writeMu.Lock()
		defer h.writeMu.Unlock()
	}
	e, err := h.session(r).Engine(r.Context(), t.Name())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	req := element.EditRequest{
		Mode:     mode,
		LoadName: q.Get("load_name"),
		LoadUser: q.Get("load_user"),
		Values:   values,
	}
	page, err := e.Edit(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	resp := EditResponse{
		Mode:          page.Mode,
		Title:         page.Title,
		Parameters:    page.Parameters,
		Record:        page.Record,
		Saved:         page.Saved,
		SidebarReload: page.SidebarReload,
	}
	for _, ve := range page.Errors {
		resp.Errors = append(resp.Errors, FieldError{Field: ve.Field, Message: ve.Message})
	}
	status := http.StatusOK
	if page.Saved {
		resp.Next = t.ListURL()
		log.Info(log.CatWeb, "Saved instance", "type", t.Name(), "name", page.Instance.Name(), "mode", string(mode), "user", e.User())
	} else if len(page.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, resp)
}

// ShowResponse is the view model of an instance page.
type ShowResponse struct {
	Type          string            `json:"type"`
	Name          string            `json:"name"`
	Header        string            `json:"header"`
	Record        element.Record    `json:"record"`
	Context       map[string]any    `json:"context,omitempty"`
	Filters       string            `json:"filters,omitempty"`
	HeadingPrefix string            `json:"heading_prefix,omitempty"`
	Selectors     []SelectorGroup   `json:"selectors,omitempty"`
	Related       []LinkGroup       `json:"related,omitempty"`
	Rows          []selector.Row    `json:"rows,omitempty"`
	Elements      []any             `json:"elements,omitempty"`
	Variables     []selector.URLVar `json:"variables,omitempty"`
	Links         map[string]string `json:"links"`
}

// SelectorGroup lists the names of the selectors of one topic.
type SelectorGroup struct {
	Topic     string   `json:"topic"`
	Selectors []string `json:"selectors"`
}

// LinkGroup is one topic of page links.
type LinkGroup struct {
	Topic string             `json:"topic"`
	Links []element.PageLink `json:"links"`
}

func linkGroups(groups []selector.TopicGroup[element.PageLink]) []LinkGroup {
	out := make([]LinkGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, LinkGroup{Topic: g.Topic, Links: g.Items})
	}
	return out
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request, t *element.Type) {
	s := h.session(r)
	ctx := r.Context()
	q := r.URL.Query()

	rc, err := h.prepare(r, s, t, q)
	if h.metrics != nil {
		h.metrics.ObserveResolution(t.Name(), err)
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	e, err := s.Engine(ctx, t.Name())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	inst := rc.Instance
	resp := ShowResponse{
		Type:   t.Name(),
		Name:   inst.Name(),
		Header: e.PageHeader(inst),
		Record: inst.Record(),
		Links: map[string]string{
			"list":  t.ListURL(),
			"clone": inst.CloneURL(),
		},
	}
	if e.Policy().IsMine(inst) {
		resp.Links["edit"] = inst.EditURL()
	}
	if t.Has(element.Container) {
		resp.Elements = inst.Elements()
	}
	if t.Has(element.ContextAware) {
		resp.Context = rc.Context.Raw()
		resp.Filters = rc.Filters
		resp.HeadingPrefix = rc.HeadingPrefix
		resp.Variables = rc.Context.URLVariables()
		for _, g := range rc.Selectors {
			sg := SelectorGroup{Topic: g.Topic}
			for _, sel := range g.Items {
				sg.Selectors = append(sg.Selectors, sel.Name())
			}
			resp.Selectors = append(resp.Selectors, sg)
		}
		related, err := s.ContextPageLinksByTopic(ctx, rc.Context, inst.URLForContext(rc.Context))
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		resp.Related = linkGroups(related)

		if ds, _ := inst.Get("datasource"); h.rows != nil && ds != nil {
			rows, err := rowsource.Query(ctx, h.rows, h.deps.Selectors, fmt.Sprint(ds), rc.Context)
			if err != nil {
				h.writeErr(w, r, err)
				return
			}
			resp.Rows = rows
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) prepare(r *http.Request, s *element.Session, t *element.Type, q url.Values) (*element.RenderContext, error) {
	e, err := s.Engine(r.Context(), t.Name())
	if err != nil {
		return nil, err
	}
	if _, err := e.Show(q.Get("name")); err != nil {
		return nil, err
	}
	return s.PrepareRender(r.Context(), t.Name(), q.Get("name"), q)
}

// Sidebar lists the pages of all renderable types grouped by topic.
// GET /sidebar
func (h *Handler) Sidebar(w http.ResponseWriter, r *http.Request) {
	groups, err := h.session(r).GlobalPageLinksByTopic(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, linkGroups(groups))
}

// ContextLinks lists the pages about the object the query pins, as seen
// from an instance of type whose single infos are given as "single_infos".
// GET /context_links/{type}
func (h *Handler) ContextLinks(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	q := r.URL.Query()
	t, err := h.deps.Registry.Lookup(r.PathValue("type"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	inst, err := s.GetElementByTypeAndName(r.Context(), t.Name(), q.Get("name"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	rc, err := s.PrepareRender(r.Context(), t.Name(), inst.Name(), q)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	groups, err := s.ContextPageLinksByTopic(r.Context(), rc.Context, inst.URLForContext(rc.Context))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, linkGroups(groups))
}

// PopupAdd lists the containers new elements can be added to.
// GET /popup_add
func (h *Handler) PopupAdd(w http.ResponseWriter, r *http.Request) {
	entries, err := h.session(r).AddToPopup(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []element.AddToEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// AddElementRequest is the body of the add-to-container endpoint.
type AddElementRequest struct {
	ContainerType string         `json:"container_type"`
	ContainerName string         `json:"container_name"`
	ElementType   string         `json:"element_type"`
	CreateInfo    element.Record `json:"create_info"`
}

// AddElementResponse reports where the element went.
type AddElementResponse struct {
	URL           string `json:"url"`
	Cloned        bool   `json:"cloned"`
	SidebarReload bool   `json:"sidebar_reload"`
}

// AddElement appends an element to a container, cloning foreign
// containers first, and answers with the page to go to.
// POST /ajax_add_element_to_container
func (h *Handler) AddElement(w http.ResponseWriter, r *http.Request) {
	var req AddElementRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}
	if req.ContainerType == "" || req.ContainerName == "" {
		h.writeError(w, http.StatusBadRequest, "missing_field", "container_type and container_name are required", "")
		return
	}

	h.writeMu.Lock()
	change, err := h.session(r).AddElementToContainer(r.Context(), req.ContainerType, req.ContainerName, req.ElementType, req.CreateInfo)
	h.writeMu.Unlock()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, AddElementResponse{
		URL:           change.Container.PageURL(),
		Cloned:        change.Cloned,
		SidebarReload: change.SidebarReload,
	})
}
