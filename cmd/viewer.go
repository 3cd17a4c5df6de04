package cmd

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dspacex/msview/internal/app"
	"github.com/dspacex/msview/internal/config"
	"github.com/dspacex/msview/internal/dspacex"
	"github.com/dspacex/msview/internal/metrics"
	"github.com/dspacex/msview/internal/scene"
	"github.com/dspacex/msview/pkg/viewer"
	"github.com/dspacex/msview/pkg/watcher"
)

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reg := prometheus.NewRegistry()
	collectors, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	client, svc, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	a := fyneapp.New()
	win := a.NewWindow("msview - Morse-Smale viewer")

	samplePanel := viewer.NewSamplePanel()
	drawer := viewer.NewDrawer()
	status := widget.NewLabel("")
	var view *viewer.MorseSmaleView

	mode, _ := viewer.ParseCameraMode(cfg.View.Camera)
	window := app.New(app.Options{
		Service:          svc,
		Logger:           logger,
		Metrics:          collectors,
		Camera:           mode,
		Width:            float64(cfg.View.Width),
		Height:           float64(cfg.View.Height),
		SampleCount:      cfg.Model.SampleCount,
		ScrubSampleCount: cfg.Model.ScrubSampleCount,
		Validate:         cfg.Model.Validate,
		Handlers: app.Handlers{
			OnChange: func(s *app.Snapshot) {
				if view != nil {
					view.SetFrame(s.Frame())
				}
			},
			OnSample: func(id scene.CrystalID, percent float64, img image.Image) {
				samplePanel.SetSample(img, fmt.Sprintf("crystal %d at %.2f", id, percent))
			},
			OnDrawerUpdate: func(id scene.CrystalID, thumbs []dspacex.Thumbnail) {
				drawer.SetImages(decodeThumbnails(thumbs, logger))
			},
			OnCrystalSelection: func(id scene.CrystalID, samples []int) {
				logger.Info("crystal selected", "crystal", id, "samples", len(samples))
				fyne.Do(func() {
					status.SetText(fmt.Sprintf("crystal %d: %d samples", id, len(samples)))
				})
			},
		},
	})
	view = viewer.NewMorseSmaleView(window)

	go func() {
		if err := window.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("window loop stopped", "error", err)
		}
	}()
	go func() {
		select {
		case <-client.Done():
			logger.Warn("connection to dSpaceX server lost")
		case <-ctx.Done():
		}
	}()

	if !cfg.Decomposition.IsZero() {
		window.SetDescriptor(cfg.Decomposition)
	}
	if opts.decompositionFile != "" {
		fw, err := watchDecomposition(opts.decompositionFile, window, logger)
		if err != nil {
			logger.Warn("decomposition file will not be reloaded", "error", err)
		} else {
			defer fw.Close()
		}
	}

	win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyC:
			window.ToggleCamera()
		case fyne.KeyHome, fyne.KeyH:
			window.ResetCamera()
		case fyne.KeyR:
			window.Reload()
		}
	})

	side := container.NewBorder(nil, status, nil, nil, samplePanel.Content)
	split := container.NewHSplit(view, side)
	split.Offset = 0.7
	win.SetContent(container.NewBorder(nil, drawer.Content, nil, nil, split))
	win.Resize(fyne.NewSize(float32(cfg.View.Width), float32(cfg.View.Height)))
	win.SetOnClosed(cancel)
	win.ShowAndRun()
	return nil
}

func watchDecomposition(path string, window *app.Window, logger *slog.Logger) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(500*time.Millisecond, logger)
	if err != nil {
		return nil, err
	}
	reload := func(changed string) {
		d, err := config.LoadDescriptor(changed)
		if err != nil {
			logger.Warn("ignoring decomposition change", "path", changed, "error", err)
			return
		}
		window.SetDescriptor(d)
	}
	if err := fw.Watch([]string{path}, reload); err != nil {
		fw.Close()
		return nil, err
	}
	fw.Start()
	return fw, nil
}

func decodeThumbnails(thumbs []dspacex.Thumbnail, logger *slog.Logger) []image.Image {
	images := make([]image.Image, 0, len(thumbs))
	for i, t := range thumbs {
		img, err := t.Decode()
		if err != nil {
			logger.Warn("cannot decode thumbnail", "index", i, "error", err)
			continue
		}
		images = append(images, img)
	}
	return images
}
