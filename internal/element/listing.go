package element

import (
	"context"
)

// ListItem is one row of the listing page.
type ListItem struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner"`
	Builtin     bool   `json:"builtin"`
	Public      bool   `json:"public"`
	Hidden      bool   `json:"hidden"`
	// URL is empty for hidden instances.
	URL       string `json:"url,omitempty"`
	CloneURL  string `json:"clone_url"`
	EditURL   string `json:"edit_url,omitempty"`
	DeleteURL string `json:"delete_url,omitempty"`
}

// ListGroup is one section of the listing page.
type ListGroup struct {
	Title string     `json:"title"`
	Items []ListItem `json:"items"`
}

// PageList is the view model of the listing page.
type PageList struct {
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	CreateURL string      `json:"create_url"`
	Groups    []ListGroup `json:"groups"`
}

// Listing group titles.
const (
	GroupCustomized = "Customized"
	GroupForeign    = "Owned by other users"
	GroupBuiltin    = "Builtin"
)

// PageList builds the listing page. It needs the edit permission. Foreign
// instances are listed when public or when the user may delete them.
func (e *Engine) PageList() (*PageList, error) {
	if err := e.policy.NeedOverriding(e.typ, "edit"); err != nil {
		return nil, err
	}
	var mine, foreign, builtin []ListItem
	instances := e.store.All()
	SortByTitle(instances)
	for _, inst := range instances {
		if !e.policy.MaySee(inst) {
			continue
		}
		switch {
		case inst.IsBuiltin():
			builtin = append(builtin, e.listItem(inst))
		case e.policy.IsMine(inst):
			mine = append(mine, e.listItem(inst))
		case e.policy.IsPublic(inst) || e.policy.MayDelete(inst):
			foreign = append(foreign, e.listItem(inst))
		}
	}

	list := &PageList{
		Type:      e.typ.name,
		Title:     e.typ.Phrase("title_plural"),
		CreateURL: e.typ.CreateURL(),
	}
	for _, g := range []ListGroup{
		{Title: GroupCustomized, Items: mine},
		{Title: GroupForeign, Items: foreign},
		{Title: GroupBuiltin, Items: builtin},
	} {
		if len(g.Items) > 0 {
			list.Groups = append(list.Groups, g)
		}
	}
	return list, nil
}

func (e *Engine) listItem(inst *Instance) ListItem {
	item := ListItem{
		Name:        inst.Name(),
		Title:       inst.Title(),
		Description: inst.Description(),
		Owner:       inst.Owner(),
		Builtin:     inst.IsBuiltin(),
		Public:      e.policy.IsPublic(inst),
		Hidden:      inst.IsHidden(),
		CloneURL:    inst.CloneURL(),
	}
	if !inst.IsHidden() {
		item.URL = inst.PageURL()
	}
	if e.policy.IsMine(inst) {
		item.EditURL = inst.EditURL()
	}
	if e.policy.MayDelete(inst) {
		item.DeleteURL = inst.DeleteURL(e.policy.IsMine(inst))
	}
	return item
}

// DeleteFromList performs the listing page's delete action. An empty owner
// means the acting user.
func (e *Engine) DeleteFromList(ctx context.Context, owner, name string) error {
	if owner == "" {
		owner = e.User()
	}
	if owner != e.User() {
		if err := e.policy.NeedOverriding(e.typ, "delete_foreign"); err != nil {
			return err
		}
	}
	return e.Delete(ctx, owner, name)
}
