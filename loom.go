// Package loom is a retained-mode UI runtime. Components render virtual node
// trees from immutable templates; the diff engine compares successive renders
// and emits an ordered log of primitive mutations that backends replay
// against a real surface: an in-memory document (dom/memdom), a websocket
// client (remote), or anything else implementing driver.Backend.
//
// The root package re-exports the handful of names an application touches;
// everything else lives in the subpackages.
package loom

import (
	"github.com/gowade/loom/vdom"
)

type (
	// Dom is the runtime: it owns component instances and produces batches.
	Dom = vdom.Dom
	// Ctx is the per-render handle components receive.
	Ctx = vdom.Ctx
	// VNode is one render's output.
	VNode = vdom.VNode
	// Template is the immutable skeleton shared by a call site's renders.
	Template = vdom.Template
	// Event is one input occurrence delivered by a backend.
	Event = vdom.Event
)

var (
	// New builds a runtime around a root component.
	New = vdom.New
	// NewTemplate builds a template from static skeleton nodes.
	NewTemplate = vdom.NewTemplate
	// Component places a child component in a dynamic slot.
	Component = vdom.Component
	// Suspense renders a fallback while descendants wait on futures.
	Suspense = vdom.Suspense
)
