package cmd

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dspacex/msview/internal/coalesce"
	"github.com/dspacex/msview/internal/dspacex"
)

var evalFlags struct {
	crystal      int
	percents     []float64
	samples      int
	showOriginal bool
	outDir       string
	timeout      time.Duration
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the model of a crystal and write the samples as PNG",
	Long: `Evaluate the generative model of a crystal at one or more positions along it.
Positions are submitted back to back like a scrub, so only the first and the
last one reach the server.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	f := evalCmd.Flags()
	f.IntVar(&evalFlags.crystal, "crystal", 0, "crystal id")
	f.Float64SliceVar(&evalFlags.percents, "percent", []float64{0.5}, "positions along the crystal in [0,1]")
	f.IntVar(&evalFlags.samples, "samples", 0, "samples per evaluation (default from config)")
	f.BoolVar(&evalFlags.showOriginal, "original", false, "include the original samples of the crystal")
	f.StringVarP(&evalFlags.outDir, "out", "o", ".", "directory for the PNG files")
	f.DurationVar(&evalFlags.timeout, "timeout", 2*time.Minute, "give up after this long")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, logger, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	samples := evalFlags.samples
	if samples < 1 {
		samples = cfg.Model.ScrubSampleCount
	}
	if err := os.MkdirAll(evalFlags.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), evalFlags.timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	var writeErr error
	apply := func(req dspacex.EvalRequest, res *dspacex.EvalResult) {
		fmt.Fprintf(out, "crystal %d at %.3f: %d samples %s\n", req.Crystal, req.Percent, len(res.Thumbnails), res.Msg)
		for i, fv := range res.FieldValues {
			fmt.Fprintf(out, "  field value %d: %.6f\n", i, fv)
		}
		for i, t := range res.Thumbnails {
			name := filepath.Join(evalFlags.outDir, fmt.Sprintf("crystal%d_%03.0f_%02d.png", req.Crystal, req.Percent*100, i))
			if err := writeThumbnail(name, t); err != nil {
				writeErr = err
				return
			}
			fmt.Fprintf(out, "  wrote %s\n", name)
		}
	}

	session := coalesce.New(ctx, client, apply, coalesce.WithLogger(logger))
	d := cfg.Decomposition
	for _, p := range evalFlags.percents {
		session.Submit(dspacex.EvalRequest{
			DatasetID:        d.DatasetID,
			Category:         d.Category,
			Field:            d.Field,
			PersistenceLevel: d.PersistenceLevel,
			Crystal:          evalFlags.crystal,
			SampleCount:      samples,
			ShowOriginal:     evalFlags.showOriginal,
			Validate:         cfg.Model.Validate,
			Percent:          p,
		})
	}
	if err := session.Wait(ctx); err != nil {
		return err
	}

	stats := session.Stats()
	logger.Info("evaluation finished",
		"submitted", stats.Submitted,
		"dispatched", stats.Dispatched,
		"superseded", stats.Superseded,
		"failed", stats.Failed)
	if stats.Failed > 0 && stats.Applied == 0 {
		return fmt.Errorf("all %d evaluations failed", stats.Failed)
	}
	return writeErr
}

func writeThumbnail(name string, t dspacex.Thumbnail) error {
	img, err := t.Decode()
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}
