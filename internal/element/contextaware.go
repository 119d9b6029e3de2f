package element

import (
	"net/url"
	"slices"

	"github.com/zjrosen/pagetypes/internal/selector"
)

// SingleInfos returns the single infos of a context-aware instance.
func (i *Instance) SingleInfos() []string {
	if _, ok := i.rec[KeySingleInfos]; ok {
		return i.rec.Strings(KeySingleInfos)
	}
	return i.typ.SingleInfos()
}

// HideButton reports whether the instance opted out of related-page links.
func (i *Instance) HideButton() bool { return i.rec.Bool(KeyHideButton) }

// IntrinsicContext is the context stored in the instance itself.
func (i *Instance) IntrinsicContext() (selector.Context, error) {
	raw, _ := i.rec[KeyContext].(map[string]any)
	return selector.NewContext(i.typ.infos, i.SingleInfos(), raw)
}

// UnsatisfiedSingleInfos lists the single infos the intrinsic context
// does not pin.
func (i *Instance) UnsatisfiedSingleInfos() []string {
	c, err := i.IntrinsicContext()
	if err != nil {
		return i.SingleInfos()
	}
	return c.Unsatisfied()
}

// ContextFromQuery captures the active selectors of the instance's infos.
func (i *Instance) ContextFromQuery(sels *selector.Registry, q url.Values) (selector.Context, error) {
	return sels.ContextFromQuery(i.typ.infos, i.SingleInfos(), q)
}

// ContextFromRow pins every single info of the instance to the object
// described by row.
func (i *Instance) ContextFromRow(infos *selector.InfoRegistry, row selector.Row) (selector.Context, error) {
	values := make(selector.ContextMap)
	for _, name := range i.SingleInfos() {
		part, err := infos.ContextFromRow(name, row)
		if err != nil {
			return selector.Context{}, err
		}
		for k, v := range part {
			values[k] = v
		}
	}
	return selector.FromValues(i.typ.infos, i.SingleInfos(), values)
}

// ValidateSingleInfos fails with MissingContext naming the first single
// info c does not pin.
func (i *Instance) ValidateSingleInfos(c selector.Context, infos *selector.InfoRegistry) error {
	missing := c.Unsatisfied()
	if len(missing) == 0 {
		return nil
	}
	title := missing[0]
	if info, err := infos.Lookup(missing[0]); err == nil {
		title = info.Title
	}
	return &MissingContextError{Type: i.typ.Phrase("title"), Info: missing[0], InfoTitle: title}
}

// BuildInnerContext merges external over the intrinsic context and checks
// that every single info is pinned.
func (i *Instance) BuildInnerContext(external selector.Context, infos *selector.InfoRegistry) (selector.Context, error) {
	intrinsic, err := i.IntrinsicContext()
	if err != nil {
		return selector.Context{}, err
	}
	c := intrinsic.Update(external)
	if err := i.ValidateSingleInfos(c, infos); err != nil {
		return selector.Context{}, err
	}
	return c, nil
}

// RelevantForContext reports whether the instance is a page about the
// object c is pinned to: all of its unsatisfied single infos are single
// infos of c and have values there.
func (i *Instance) RelevantForContext(c selector.Context) bool {
	if i.HideButton() {
		return false
	}
	unsatisfied := i.UnsatisfiedSingleInfos()
	if len(unsatisfied) == 0 {
		return false
	}
	singles := c.SingleInfos()
	for _, info := range unsatisfied {
		if !slices.Contains(singles, info) || !c.Has(info) {
			return false
		}
	}
	return true
}

// URLForContext links to the instance page with c's variables.
func (i *Instance) URLForContext(c selector.Context) string {
	return i.PageURL(c.URLVariables()...)
}

// ContextPageLinks links to the visible pages of a context-aware type that
// are about the object c is pinned to.
func (e *Engine) ContextPageLinks(c selector.Context) []PageLink {
	if !e.typ.Has(ContextAware | Renderable) {
		return nil
	}
	single := c.SingleInfoContext()
	var links []PageLink
	for _, inst := range e.Pages() {
		if inst.RelevantForContext(single) {
			links = append(links, PageLink{Topic: inst.Topic(), Title: inst.Title(), URL: inst.URLForContext(single)})
		}
	}
	return links
}
