package viewer

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const thumbnailSize = 96

// SamplePanel shows the latest evaluated sample
type SamplePanel struct {
	image   *canvas.Image
	caption *widget.Label
	Content fyne.CanvasObject
}

// NewSamplePanel creates an empty panel
func NewSamplePanel() *SamplePanel {
	p := &SamplePanel{
		image:   canvas.NewImageFromImage(nil),
		caption: widget.NewLabel("no sample"),
	}
	p.image.FillMode = canvas.ImageFillContain
	p.image.ScaleMode = canvas.ImageScalePixels
	p.image.SetMinSize(fyne.NewSize(256, 256))
	p.Content = container.NewBorder(nil, p.caption, nil, nil, p.image)
	return p
}

// SetSample shows img. It may be called from any goroutine.
func (p *SamplePanel) SetSample(img image.Image, caption string) {
	fyne.Do(func() {
		p.image.Image = img
		p.image.Refresh()
		p.caption.SetText(caption)
	})
}

// Drawer is a horizontal strip of sample thumbnails
type Drawer struct {
	box     *fyne.Container
	Content fyne.CanvasObject
}

// NewDrawer creates an empty drawer
func NewDrawer() *Drawer {
	d := &Drawer{box: container.NewHBox()}
	scroll := container.NewHScroll(d.box)
	scroll.SetMinSize(fyne.NewSize(thumbnailSize, thumbnailSize))
	d.Content = scroll
	return d
}

// SetImages replaces the drawer contents. It may be called from any
// goroutine.
func (d *Drawer) SetImages(images []image.Image) {
	fyne.Do(func() {
		objects := make([]fyne.CanvasObject, 0, len(images))
		for _, img := range images {
			c := canvas.NewImageFromImage(img)
			c.FillMode = canvas.ImageFillContain
			c.SetMinSize(fyne.NewSize(thumbnailSize, thumbnailSize))
			objects = append(objects, c)
		}
		d.box.Objects = objects
		d.box.Refresh()
	})
}
