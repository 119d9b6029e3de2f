package element

import (
	"context"
	"fmt"
	"slices"

	"github.com/zjrosen/pagetypes/internal/pubsub"
)

// Elements returns a copy of the child elements of a container instance.
func (i *Instance) Elements() []any {
	els, _ := i.rec[KeyElements].([]any)
	return cloneValue(els).([]any)
}

// IsEmpty reports whether a container instance has no children.
func (i *Instance) IsEmpty() bool {
	els, _ := i.rec[KeyElements].([]any)
	return len(els) == 0
}

func (i *Instance) addElement(el any) {
	els, _ := i.rec[KeyElements].([]any)
	i.rec[KeyElements] = append(els, cloneValue(el))
}

// moveElement removes the element at from and reinserts it at to.
func (i *Instance) moveElement(from, to int) error {
	els, _ := i.rec[KeyElements].([]any)
	if from < 0 || from >= len(els) {
		return fmt.Errorf("%w: from %d, %d elements", ErrIndex, from, len(els))
	}
	el := els[from]
	els = slices.Delete(els, from, from+1)
	if to < 0 || to > len(els) {
		return fmt.Errorf("%w: to %d, %d elements", ErrIndex, to, len(els)+1)
	}
	i.rec[KeyElements] = slices.Insert(els, to, el)
	return nil
}

// ContainerChange is the outcome of mutating a container.
type ContainerChange struct {
	Container *Instance
	// Cloned is set when the container belonged to someone else and the
	// acting user now owns a modified copy.
	Cloned bool
	// SidebarReload is set when the new copy appears in the sidebar.
	SidebarReload bool
}

// mutateContainer applies fn to the container named name. A container not
// owned by the acting user is cloned first so the shared original is never
// touched; only the acting user's collection is saved.
func (e *Engine) mutateContainer(ctx context.Context, name string, fn func(*Instance) error) (ContainerChange, error) {
	if !e.typ.Has(Container) {
		return ContainerChange{}, fmt.Errorf("%w: %s is not a container", ErrInvalid, e.typ.name)
	}
	if err := e.policy.NeedOverriding(e.typ, "edit"); err != nil {
		return ContainerChange{}, err
	}
	target, err := e.GetByName(name)
	if err != nil {
		return ContainerChange{}, err
	}

	var change ContainerChange
	if e.policy.IsMine(target) {
		// Work on a copy so a failed mutation leaves the store untouched.
		target = NewInstance(e.typ, target.rec)
	} else {
		// Added to the store only once the mutation and save succeed.
		target = e.copyForUser(target)
		change.Cloned = true
		change.SidebarReload = e.typ.Has(Renderable) && !target.IsHidden()
	}
	if err := fn(target); err != nil {
		return ContainerChange{}, err
	}

	previous, _ := e.store.Get(target.Key())
	e.store.Add(target)
	if err := e.store.Save(ctx, e.User()); err != nil {
		if previous != nil {
			e.store.Add(previous)
		} else {
			_ = e.store.Remove(target.Key())
		}
		return ContainerChange{}, err
	}
	if change.Cloned {
		e.notify(pubsub.CreatedEvent, e.User(), target.Name())
	} else {
		e.notify(pubsub.UpdatedEvent, e.User(), target.Name())
	}
	change.Container = target
	return change, nil
}

// AddElement appends element to the container named name.
func (e *Engine) AddElement(ctx context.Context, name string, element Record) (ContainerChange, error) {
	return e.mutateContainer(ctx, name, func(c *Instance) error {
		c.addElement(map[string]any(element))
		return nil
	})
}

// MoveElement moves the child at from to position to.
func (e *Engine) MoveElement(ctx context.Context, name string, from, to int) (ContainerChange, error) {
	return e.mutateContainer(ctx, name, func(c *Instance) error {
		return c.moveElement(from, to)
	})
}

// RemoveElement deletes the child at index.
func (e *Engine) RemoveElement(ctx context.Context, name string, index int) (ContainerChange, error) {
	return e.mutateContainer(ctx, name, func(c *Instance) error {
		els, _ := c.rec[KeyElements].([]any)
		if index < 0 || index >= len(els) {
			return fmt.Errorf("%w: %d, %d elements", ErrIndex, index, len(els))
		}
		c.rec[KeyElements] = slices.Delete(els, index, index+1)
		return nil
	})
}
