package coalesce

import "github.com/dspacex/msview/internal/dspacex"

// Slots is the coalescing state: at most one request in flight and at most
// one waiting behind it
type Slots struct {
	InFlight *dspacex.EvalRequest
	Pending  *dspacex.EvalRequest
}

// Idle reports whether nothing is in flight or pending
func (s Slots) Idle() bool {
	return s.InFlight == nil && s.Pending == nil
}

// Submit adds req. When nothing is in flight req is returned as dispatch.
// Otherwise it replaces the pending request, which is returned as
// superseded.
func (s Slots) Submit(req dspacex.EvalRequest) (next Slots, dispatch, superseded *dspacex.EvalRequest) {
	if s.InFlight == nil {
		s.InFlight = &req
		return s, &req, nil
	}
	superseded = s.Pending
	s.Pending = &req
	return s, nil, superseded
}

// Complete finishes the in-flight request and promotes the pending one,
// which is returned as dispatch
func (s Slots) Complete() (next Slots, dispatch *dspacex.EvalRequest) {
	s.InFlight = s.Pending
	s.Pending = nil
	return s, s.InFlight
}
