package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dspacex/msview/internal/scene"
	"github.com/dspacex/msview/pkg/geometry"
	"github.com/dspacex/msview/pkg/viewer"
)

var crystalsCmd = &cobra.Command{
	Use:   "crystals",
	Short: "List the crystals of a decomposition",
	Long:  "Fetch the regression curves and extrema of a decomposition and print every crystal with its length and projected endpoints.",
	Args:  cobra.NoArgs,
	RunE:  runCrystals,
}

func init() {
	rootCmd.AddCommand(crystalsCmd)
}

func formatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

func runCrystals(cmd *cobra.Command, args []string) error {
	cfg, _, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	q := cfg.Decomposition.Query()
	regression, err := client.FetchRegressionCurves(cmd.Context(), q)
	if err != nil {
		return err
	}
	extrema, err := client.FetchExtrema(cmd.Context(), q)
	if err != nil {
		return err
	}

	s := scene.New()
	if err := s.Build(regression, extrema); err != nil {
		return err
	}

	mode, _ := viewer.ParseCameraMode(cfg.View.Camera)
	rig := viewer.NewRig(mode, float64(cfg.View.Width), float64(cfg.View.Height))
	if rig.Rehome(s.Bounds()) {
		rig.Reset()
	}
	vp := rig.Active().ViewProjection()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Decomposition: %s\n", cfg.Decomposition)
	fmt.Fprintf(out, "Crystals: %d  Extrema: %d\n", s.Len(), len(s.Extrema()))
	bounds := s.Bounds()
	if !bounds.IsEmpty() {
		fmt.Fprintf(out, "Bounds: %s - %s\n", formatVector(bounds.Min), formatVector(bounds.Max))
	}
	fmt.Fprintln(out)

	for _, c := range s.Crystals() {
		e0, e1 := c.Endpoints(vp)
		fmt.Fprintf(out, "Crystal %s\n", c.Name)
		fmt.Fprintf(out, "  Points: %d\n", len(c.Control))
		fmt.Fprintf(out, "  Length: %.4f\n", c.Curve.Length())
		fmt.Fprintf(out, "  Start:  %s  screen (%.3f, %.3f)\n", formatVector(c.Curve.Start()), e0.X, e0.Y)
		fmt.Fprintf(out, "  End:    %s  screen (%.3f, %.3f)\n", formatVector(c.Curve.End()), e1.X, e1.Y)
	}
	return nil
}
