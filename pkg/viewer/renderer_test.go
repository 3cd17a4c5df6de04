package viewer

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
)

type recordingHandler struct {
	downs   []Modifiers
	moves   int
	ups     int
	rotates int
	pans    int
}

func (h *recordingHandler) PointerDown(x, y float64, mods Modifiers) { h.downs = append(h.downs, mods) }
func (h *recordingHandler) PointerMove(x, y float64)                 { h.moves++ }
func (h *recordingHandler) PointerUp()                               { h.ups++ }
func (h *recordingHandler) Rotate(dx, dy float64)                    { h.rotates++ }
func (h *recordingHandler) Pan(dx, dy float64)                       { h.pans++ }
func (h *recordingHandler) Zoom(delta float64)                       {}
func (h *recordingHandler) Resize(width, height float64)             {}

func press(button desktop.MouseButton, mod fyne.KeyModifier) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 20)},
		Button:     button,
		Modifier:   mod,
	}
}

func TestDragEndFinishesScrub(t *testing.T) {
	test.NewTempApp(t)
	h := &recordingHandler{}
	v := NewMorseSmaleView(h)

	v.MouseDown(press(desktop.MouseButtonPrimary, 0))
	v.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 20)}, Dragged: fyne.NewDelta(20, 0)})
	// release outside the window: no MouseUp arrives
	v.DragEnd()

	if h.ups != 1 {
		t.Errorf("DragEnd failed: expected 1 PointerUp, got %d", h.ups)
	}
	if h.moves != 1 || h.rotates != 1 {
		t.Errorf("Dragged failed: expected 1 move and 1 rotate, got %d and %d", h.moves, h.rotates)
	}
}

func TestMouseDownModifiers(t *testing.T) {
	test.NewTempApp(t)
	h := &recordingHandler{}
	v := NewMorseSmaleView(h)

	v.MouseDown(press(desktop.MouseButtonPrimary, fyne.KeyModifierControl))
	v.MouseDown(press(desktop.MouseButtonSecondary, 0))
	v.Dragged(&fyne.DragEvent{Dragged: fyne.NewDelta(5, 5)})
	v.DragEnd()

	if len(h.downs) != 1 || !h.downs[0].Ctrl {
		t.Errorf("MouseDown failed: expected one ctrl press, got %v", h.downs)
	}
	if h.pans != 1 || h.rotates != 0 {
		t.Errorf("secondary drag failed: expected 1 pan and no rotate, got %d and %d", h.pans, h.rotates)
	}
}
