package viewer

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Modifiers are the keys held during a pointer press
type Modifiers struct {
	Ctrl  bool
	Shift bool
}

// PointerHandler receives the input of a MorseSmaleView. Positions are in
// pixels relative to the view.
type PointerHandler interface {
	PointerDown(x, y float64, mods Modifiers)
	PointerMove(x, y float64)
	PointerUp()
	Rotate(dx, dy float64)
	Pan(dx, dy float64)
	Zoom(delta float64)
	Resize(width, height float64)
}

// MorseSmaleView draws crystals, extrema and the scrub marker with a
// software rasterizer
type MorseSmaleView struct {
	widget.BaseWidget

	handler PointerHandler
	raster  *canvas.Raster

	mu        sync.Mutex
	frame     Frame
	dragStart *fyne.Position
	secondary bool
	size      fyne.Size
}

// NewMorseSmaleView creates the view; handler may be nil
func NewMorseSmaleView(handler PointerHandler) *MorseSmaleView {
	v := &MorseSmaleView{handler: handler}
	v.raster = canvas.NewRaster(v.draw)
	v.ExtendBaseWidget(v)
	return v
}

// SetFrame replaces the drawn frame. It may be called from any goroutine.
func (v *MorseSmaleView) SetFrame(f Frame) {
	v.mu.Lock()
	v.frame = f
	v.mu.Unlock()
	fyne.Do(func() {
		v.raster.Refresh()
	})
}

func (v *MorseSmaleView) draw(width, height int) image.Image {
	v.mu.Lock()
	f := v.frame
	v.mu.Unlock()
	return Render(f, width, height)
}

// CreateRenderer creates the renderer for the widget
func (v *MorseSmaleView) CreateRenderer() fyne.WidgetRenderer {
	return &morseSmaleRenderer{view: v}
}

// MouseDown starts a pick
func (v *MorseSmaleView) MouseDown(event *desktop.MouseEvent) {
	v.mu.Lock()
	v.secondary = event.Button == desktop.MouseButtonSecondary
	v.mu.Unlock()
	if v.handler == nil || event.Button != desktop.MouseButtonPrimary {
		return
	}
	mods := Modifiers{
		Ctrl:  event.Modifier&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0,
		Shift: event.Modifier&fyne.KeyModifierShift != 0,
	}
	v.handler.PointerDown(float64(event.Position.X), float64(event.Position.Y), mods)
}

// MouseUp ends a scrub
func (v *MorseSmaleView) MouseUp(event *desktop.MouseEvent) {
	if v.handler != nil && event.Button == desktop.MouseButtonPrimary {
		v.handler.PointerUp()
	}
}

// Dragged rotates or pans the camera and drives a scrub
func (v *MorseSmaleView) Dragged(event *fyne.DragEvent) {
	if v.handler == nil {
		return
	}
	v.mu.Lock()
	secondary := v.secondary
	v.mu.Unlock()

	dx, dy := float64(event.Dragged.DX), float64(event.Dragged.DY)
	if secondary {
		v.handler.Pan(dx, dy)
		return
	}
	v.handler.PointerMove(float64(event.Position.X), float64(event.Position.Y))
	v.handler.Rotate(dx, dy)
}

// DragEnd ends a scrub even when the release is not delivered as MouseUp
func (v *MorseSmaleView) DragEnd() {
	v.mu.Lock()
	v.secondary = false
	v.mu.Unlock()
	if v.handler != nil {
		v.handler.PointerUp()
	}
}

// Scrolled zooms the camera
func (v *MorseSmaleView) Scrolled(event *fyne.ScrollEvent) {
	if v.handler != nil {
		v.handler.Zoom(-float64(event.Scrolled.DY))
	}
}

// morseSmaleRenderer implements fyne.WidgetRenderer
type morseSmaleRenderer struct {
	view *MorseSmaleView
}

func (m *morseSmaleRenderer) Layout(size fyne.Size) {
	m.view.raster.Resize(size)
	m.view.mu.Lock()
	changed := m.view.size != size
	m.view.size = size
	m.view.mu.Unlock()
	if changed && m.view.handler != nil {
		m.view.handler.Resize(float64(size.Width), float64(size.Height))
	}
}

func (m *morseSmaleRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 400)
}

func (m *morseSmaleRenderer) Refresh() {
	m.view.raster.Refresh()
}

func (m *morseSmaleRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{m.view.raster}
}

func (m *morseSmaleRenderer) Destroy() {}

// Background of the view
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
