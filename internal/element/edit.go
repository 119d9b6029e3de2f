package element

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/pagetypes/internal/pubsub"
)

// EditMode selects what the edit page does.
type EditMode string

const (
	ModeCreate EditMode = "create"
	ModeEdit   EditMode = "edit"
	ModeClone  EditMode = "clone"
)

// ParseEditMode maps a request value to an EditMode, defaulting to edit.
func ParseEditMode(s string) (EditMode, error) {
	switch EditMode(s) {
	case "":
		return ModeEdit, nil
	case ModeCreate, ModeEdit, ModeClone:
		return EditMode(s), nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrInvalid, s)
}

// EditRequest describes one call of the edit page.
type EditRequest struct {
	Mode EditMode
	// LoadName names the instance to edit or clone.
	LoadName string
	// LoadUser owns the instance to clone.
	LoadUser string
	// Values are the submitted form values. A nil map only renders the form.
	Values Record
}

// EditPage is the view model of the edit page.
type EditPage struct {
	Mode       EditMode
	Title      string
	Parameters []Parameter
	// Record holds the current form values.
	Record Record
	Errors []*ValidationError
	// Saved is set once the submitted values were persisted.
	Saved         bool
	Instance      *Instance
	SidebarReload bool
}

// Err joins the validation errors of the page.
func (p *EditPage) Err() error {
	errs := make([]error, 0, len(p.Errors))
	for _, e := range p.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Edit renders or submits the edit page. Validation problems, including a
// duplicate name, are reported on the page and nothing is changed.
// Permission and lookup failures are returned as errors.
func (e *Engine) Edit(ctx context.Context, req EditRequest) (*EditPage, error) {
	if err := e.policy.NeedOverriding(e.typ, "edit"); err != nil {
		return nil, err
	}

	page := &EditPage{
		Mode:       req.Mode,
		Parameters: CollectParameters(e.ParameterEnv()),
	}

	var base Record
	switch req.Mode {
	case ModeCreate:
		page.Title = e.typ.Phrase("create")
		base = Record{KeyName: e.DefaultName(), KeyTopic: e.typ.DefaultTopic()}
	case ModeEdit:
		page.Title = e.typ.Phrase("edit")
		mine, ok := e.FindMine(req.LoadName)
		if !ok {
			return nil, &NotFoundError{Type: e.typ.name, Owner: e.User(), Name: req.LoadName}
		}
		base = mine.Record()
	case ModeClone:
		page.Title = e.typ.Phrase("clone")
		src, err := e.store.Get(Key{Owner: req.LoadUser, Name: req.LoadName})
		if err != nil {
			return nil, err
		}
		if !e.policy.IsMine(src) && !(e.policy.IsPublic(src) && e.policy.MaySee(src)) {
			return nil, &UnauthorizedError{Op: "clone", Type: e.typ.Phrase("title_plural")}
		}
		base = src.Record()
	default:
		return nil, fmt.Errorf("%w: mode %q", ErrInvalid, req.Mode)
	}

	if req.Values == nil {
		page.Record = base
		return page, nil
	}

	values, errs := Validate(page.Parameters, req.Values)
	page.Record = values
	if len(errs) == 0 {
		name := values.String(KeyName)
		renaming := req.Mode != ModeEdit || name != req.LoadName
		if _, exists := e.FindMine(name); exists && renaming {
			conflict := &ConflictError{Type: e.typ.Phrase("title"), Owner: e.User(), Name: name}
			errs = append(errs, &ValidationError{Field: KeyName, Message: conflict.Error(), Err: conflict})
		}
	}
	if len(errs) > 0 {
		page.Errors = errs
		return page, nil
	}

	if req.Mode != ModeCreate {
		for k, v := range base {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	values[KeyOwner] = e.User()
	inst := NewInstance(e.typ, values)

	var previous *Instance
	if req.Mode == ModeEdit {
		previous, _ = e.store.Get(Key{Owner: e.User(), Name: req.LoadName})
		_ = e.store.Remove(Key{Owner: e.User(), Name: req.LoadName})
	}
	e.store.Add(inst)
	if err := e.store.Save(ctx, e.User()); err != nil {
		_ = e.store.Remove(inst.Key())
		if previous != nil {
			e.store.Add(previous)
		}
		return nil, err
	}

	switch {
	case previous == nil:
		e.notify(pubsub.CreatedEvent, e.User(), inst.Name())
	case previous.Name() != inst.Name():
		e.notify(pubsub.DeletedEvent, e.User(), previous.Name())
		e.notify(pubsub.CreatedEvent, e.User(), inst.Name())
	default:
		e.notify(pubsub.UpdatedEvent, e.User(), inst.Name())
	}

	page.Saved = true
	page.Instance = inst
	page.Record = inst.Record()
	page.SidebarReload = e.typ.Has(Renderable) && (!inst.IsHidden() || inst.IsHidden() != base.Bool(KeyHidden))
	return page, nil
}
