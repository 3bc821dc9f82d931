// Package transport declares the adapter contract spec §1 names as an
// external collaborator: a JSON-RPC-over-HTTP front end and a low-bandwidth
// radio front end, both reduced to the same internal command tuple. Only
// the contract is in scope; concrete adapters are out of scope (spec §1
// Out of scope: "Transport adapters").
package transport

import "github.com/piccolo2go/piccolo/internal/dispatcher"

// Adapter turns external requests into dispatcher tasks and relays replies
// back to its transport. Each adapter owns two bounded channels of its own
// as described in spec §4.1; this interface only fixes the submit contract.
type Adapter interface {
	Name() string
	Submit(task dispatcher.Task) dispatcher.Response
}

// Dispatching is satisfied by *dispatcher.Dispatcher; adapters depend on
// this narrow interface rather than the concrete type so a test adapter can
// be substituted without constructing a full Dispatcher.
type Dispatching interface {
	Submit(task dispatcher.Task) dispatcher.Response
}

// direct wires an Adapter straight to a Dispatching without any network
// hop, useful for in-process transports (CLI, tests) and as the minimal
// concrete example satisfying Adapter.
type direct struct {
	name string
	d    Dispatching
}

// NewDirect returns an in-process Adapter that submits directly to d.
func NewDirect(name string, d Dispatching) Adapter {
	return &direct{name: name, d: d}
}

func (a *direct) Name() string { return a.name }

func (a *direct) Submit(task dispatcher.Task) dispatcher.Response {
	return a.d.Submit(task)
}
