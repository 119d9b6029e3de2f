// Package webapi implements the automation API: named actions called with
// JSON arguments and answered with a result code envelope.
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/permission"
)

// Result codes of the response envelope.
const (
	ResultOK    = 0
	ResultError = 1
)

// ErrUnknownAction is returned for actions that were never registered.
var ErrUnknownAction = errors.New("unknown API action")

// Action describes one API action.
type Action struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Locking serializes the action against all other locking actions.
	Locking bool `json:"locking"`
}

// Handler executes an action for the user of s.
type Handler func(ctx context.Context, s *element.Session, args json.RawMessage) (any, error)

// Response is the envelope every call is answered with.
type Response struct {
	ResultCode int `json:"result_code"`
	// Result is the handler's response or, on failure, the error message.
	Result any `json:"result"`
}

// Observer is told the result code of every call.
type Observer func(action string, resultCode int)

type registered struct {
	action  Action
	handler Handler
}

// API holds the registered actions.
type API struct {
	deps element.Deps

	mu      sync.RWMutex
	actions map[string]registered

	// writeMu serializes locking actions.
	writeMu  sync.Mutex
	observer Observer
}

// New creates an API without actions.
func New(deps element.Deps) *API {
	deps.Permissions.DeclareSection("webapi", "Web API", true)
	return &API{deps: deps, actions: make(map[string]registered)}
}

// Observe sets the observer of call results.
func (a *API) Observe(o Observer) { a.observer = o }

// Register adds action and declares its permission webapi.<name> for all
// builtin roles.
func (a *API) Register(action Action, handler Handler) {
	a.mu.Lock()
	a.actions[action.Name] = registered{action: action, handler: handler}
	a.mu.Unlock()
	a.deps.Permissions.Declare(PermissionID(action.Name), action.Title, action.Description, permission.BuiltinRoles)
}

// WriteLock returns the lock held by locking actions, for other writers
// of the same instances.
func (a *API) WriteLock() sync.Locker { return &a.writeMu }

// PermissionID returns the permission guarding the named action.
func PermissionID(action string) string { return "webapi." + action }

// Actions returns the registered actions sorted by name.
func (a *API) Actions() []Action {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Action, 0, len(a.actions))
	for _, r := range a.actions {
		out = append(out, r.action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs action as user. Every failure, including unknown actions and
// missing permissions, yields ResultError with the message as result.
func (a *API) Call(ctx context.Context, user, action string, args json.RawMessage) Response {
	result, err := a.call(ctx, user, action, args)
	resp := Response{ResultCode: ResultOK, Result: result}
	if err != nil {
		log.Warn(log.CatAPI, "API call failed", "action", action, "user", user, "error", err.Error())
		resp = Response{ResultCode: ResultError, Result: err.Error()}
	}
	if a.observer != nil {
		a.observer(action, resp.ResultCode)
	}
	return resp
}

func (a *API) call(ctx context.Context, user, action string, args json.RawMessage) (any, error) {
	a.mu.RLock()
	r, ok := a.actions[action]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !a.deps.Permissions.May(user, PermissionID(action)) {
		return nil, &element.UnauthorizedError{Op: "call " + action, Type: "web API"}
	}
	if r.action.Locking {
		a.writeMu.Lock()
		defer a.writeMu.Unlock()
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	log.Debug(log.CatAPI, "API call", "action", action, "user", user)
	return r.handler(ctx, element.NewSession(a.deps, user), args)
}

// decode unmarshals args into v, rejecting unknown fields.
func decode(args json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid arguments: %v", element.ErrInvalid, err)
	}
	return nil
}
