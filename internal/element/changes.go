package element

import (
	"github.com/zjrosen/pagetypes/internal/pubsub"
)

// Change identifies one persisted instance change. The event type tells
// whether the instance was created, updated or deleted.
type Change struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
	// By is the acting user, which differs from Owner when an admin
	// deletes a foreign instance.
	By string `json:"by"`
}

// PublishTo makes the engine announce its saved changes on p.
func (e *Engine) PublishTo(p pubsub.Publisher[Change]) { e.changes = p }

func (e *Engine) notify(ev pubsub.EventType, owner, name string) {
	if e.changes == nil {
		return
	}
	e.changes.Publish(ev, Change{Type: e.typ.name, Owner: owner, Name: name, By: e.User()})
}
