// Package hooking lets observers attach to a simulated component without
// changing its behavior.
package hooking

import "reflect"

// HookPos names a site inside a component where hooks are invoked.
type HookPos struct {
	Name string
}

// HookCtx is what a hook receives when it is invoked.
type HookCtx struct {
	// Domain is the component that invoked the hook.
	Domain Hookable

	// Pos identifies the site. Hooks usually switch on it.
	Pos *HookPos

	// Item is the primary object of the event, for example a page number.
	Item any

	// Detail carries the position-specific payload.
	Detail any
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook registers a hook. Registering the same hook twice panics.
// Hooks of uncomparable types, such as HookFunc, are never treated as
// duplicates.
func (h *HookableBase) AcceptHook(hook Hook) {
	if hook == nil {
		panic("nil hook")
	}

	if reflect.TypeOf(hook).Comparable() {
		h.mustNotHaveDuplicatedHook(hook)
	}

	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
