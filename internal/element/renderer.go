package element

import (
	"github.com/zjrosen/pagetypes/internal/selector"
)

// PageURL links to the page of inst with optional extra variables.
func (i *Instance) PageURL(vars ...selector.URLVar) string {
	pairs := [][2]string{{KeyName, i.Name()}}
	for _, v := range vars {
		pairs = append(pairs, [2]string{v.Name, v.Value})
	}
	return makeURI(i.typ.ShowPath(), pairs...)
}

// EditURL links to the edit page of the acting user's own instance.
func (i *Instance) EditURL() string {
	return makeURI(i.typ.EditPath(), [2]string{"load_name", i.Name()})
}

// CloneURL links to the edit page in clone mode.
func (i *Instance) CloneURL() string {
	return makeURI(i.typ.EditPath(),
		[2]string{"load_user", i.Owner()},
		[2]string{"load_name", i.Name()},
		[2]string{"mode", string(ModeClone)},
	)
}

// DeleteURL triggers deletion from the listing page.
func (i *Instance) DeleteURL(mine bool) string {
	vars := [][2]string{{"_delete", i.Name()}}
	if !mine {
		vars = append(vars, [2]string{"_owner", i.Owner()})
	}
	return makeURI(i.typ.ListURL(), vars...)
}

// PageHeader is the heading of an instance page.
func (e *Engine) PageHeader(inst *Instance) string {
	header := e.typ.Phrase("title") + " - " + inst.Title()
	if e.typ.Has(Overridable) && !e.policy.IsMine(inst) && !inst.IsBuiltin() {
		header += " (" + inst.Owner() + ")"
	}
	return header
}

// PageLink is a sidebar or related-page link.
type PageLink struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// GlobalPageLinks returns links to the visible, non-hidden pages of a
// renderable type.
func (e *Engine) GlobalPageLinks() []PageLink {
	var links []PageLink
	for _, inst := range e.Pages() {
		if inst.IsHidden() {
			continue
		}
		links = append(links, PageLink{Topic: inst.Topic(), Title: inst.Title(), URL: inst.PageURL()})
	}
	return links
}

// Show resolves the instance to display for a page request.
func (e *Engine) Show(name string) (*Instance, error) {
	if name == "" {
		return nil, &ValidationError{Field: KeyName, Message: "you need to specify the name of the " + e.typ.Phrase("title")}
	}
	return e.GetByName(name)
}
