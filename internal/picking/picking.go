// Package picking implements the crystal selection and scrub state machine.
// Transitions are pure: they take the current State and return the next
// State plus the side effects the caller has to carry out.
package picking

import (
	"fmt"

	"github.com/dspacex/msview/internal/scene"
	"github.com/dspacex/msview/pkg/geometry"
)

// DefaultPercent is where a fresh selection is first evaluated
const DefaultPercent = 0.5

// Phase is the interaction phase
type Phase int

const (
	Idle Phase = iota
	Selected
	Scrubbing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Scrubbing:
		return "scrubbing"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is the pick state. Crystal, Endpoints and Percent are only
// meaningful outside Idle.
type State struct {
	Phase   Phase
	Crystal scene.CrystalID
	// Endpoints are the projected curve ends in NDC, cached at selection,
	// scrub start and scrub end
	Endpoints [2]geometry.Vector2
	Percent   float64
}

// HasSelection reports whether a crystal is selected
func (s State) HasSelection() bool {
	return s.Phase != Idle
}

// EffectKind names a side effect of a transition
type EffectKind int

const (
	// EffectSelect highlights Crystal
	EffectSelect EffectKind = iota
	// EffectDeselect reverts the highlight of Crystal
	EffectDeselect
	// EffectControls enables or disables the camera controls
	EffectControls
	// EffectMoveMarker places the position marker at Percent on Crystal
	EffectMoveMarker
	// EffectHideMarker removes the position marker
	EffectHideMarker
	// EffectEvaluate asks the model of Crystal for a sample at Percent
	EffectEvaluate
	// EffectQueryPartition fetches the samples belonging to Crystal
	EffectQueryPartition
)

func (k EffectKind) String() string {
	switch k {
	case EffectSelect:
		return "select"
	case EffectDeselect:
		return "deselect"
	case EffectControls:
		return "controls"
	case EffectMoveMarker:
		return "move-marker"
	case EffectHideMarker:
		return "hide-marker"
	case EffectEvaluate:
		return "evaluate"
	case EffectQueryPartition:
		return "query-partition"
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// Effect is one side effect requested by a transition
type Effect struct {
	Kind    EffectKind
	Crystal scene.CrystalID
	Percent float64
	Enabled bool
}

func (e Effect) String() string {
	switch e.Kind {
	case EffectControls:
		return fmt.Sprintf("%s(%t)", e.Kind, e.Enabled)
	case EffectMoveMarker, EffectEvaluate:
		return fmt.Sprintf("%s(%d, %.3f)", e.Kind, e.Crystal, e.Percent)
	case EffectHideMarker:
		return e.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", e.Kind, e.Crystal)
}

// Projector projects the ends of a crystal curve with the current camera
type Projector interface {
	Endpoints(id scene.CrystalID) (e0, e1 geometry.Vector2, ok bool)
}

// PointerDown handles a press. hit is the result of picking at the pointer.
func (s State) PointerDown(hit scene.Hit, proj Projector) (State, []Effect) {
	switch {
	case hit.Kind == scene.HitNone:
		// the camera controls own the pointer
		return s, nil

	case s.Phase != Idle && hit.Crystal == s.Crystal:
		if s.Phase == Scrubbing {
			return s, nil
		}
		next := s
		next.Phase = Scrubbing
		next.reproject(proj)
		return next, []Effect{{Kind: EffectControls, Enabled: false}}

	case hit.Kind == scene.HitMarker:
		// a marker left behind by another crystal is not a selection target
		return s, nil
	}

	return s.selectCrystal(hit.Crystal, proj)
}

func (s State) selectCrystal(id scene.CrystalID, proj Projector) (State, []Effect) {
	var effects []Effect
	if s.Phase == Scrubbing {
		effects = append(effects, Effect{Kind: EffectControls, Enabled: true})
	}
	if s.Phase != Idle {
		effects = append(effects, Effect{Kind: EffectDeselect, Crystal: s.Crystal})
	}

	next := State{Phase: Selected, Crystal: id, Percent: DefaultPercent}
	next.reproject(proj)

	effects = append(effects,
		Effect{Kind: EffectSelect, Crystal: id},
		Effect{Kind: EffectMoveMarker, Crystal: id, Percent: DefaultPercent},
		Effect{Kind: EffectEvaluate, Crystal: id, Percent: DefaultPercent},
		Effect{Kind: EffectQueryPartition, Crystal: id},
	)
	return next, effects
}

// PointerMove handles pointer motion in normalized device coordinates.
// Only a scrub reacts; everything else belongs to the camera controls.
func (s State) PointerMove(ndc geometry.Vector2) (State, []Effect) {
	if s.Phase != Scrubbing {
		return s, nil
	}
	next := s
	next.Percent = geometry.EstimateParameter(ndc, s.Endpoints[0], s.Endpoints[1])
	return next, []Effect{
		{Kind: EffectMoveMarker, Crystal: s.Crystal, Percent: next.Percent},
		{Kind: EffectEvaluate, Crystal: s.Crystal, Percent: next.Percent},
	}
}

// PointerUp ends a scrub
func (s State) PointerUp(proj Projector) (State, []Effect) {
	if s.Phase != Scrubbing {
		return s, nil
	}
	next := s
	next.Phase = Selected
	next.reproject(proj)
	return next, []Effect{{Kind: EffectControls, Enabled: true}}
}

// Reset drops the selection, e.g. when the scene is rebuilt
func (s State) Reset() (State, []Effect) {
	var effects []Effect
	if s.Phase == Scrubbing {
		effects = append(effects, Effect{Kind: EffectControls, Enabled: true})
	}
	if s.Phase != Idle {
		effects = append(effects,
			Effect{Kind: EffectDeselect, Crystal: s.Crystal},
			Effect{Kind: EffectHideMarker},
		)
	}
	return State{}, effects
}

func (s *State) reproject(proj Projector) {
	if proj == nil {
		return
	}
	if e0, e1, ok := proj.Endpoints(s.Crystal); ok {
		s.Endpoints = [2]geometry.Vector2{e0, e1}
	}
}
