package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var partitionCrystal int

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Print the samples belonging to a crystal",
	Args:  cobra.NoArgs,
	RunE:  runPartition,
}

func init() {
	partitionCmd.Flags().IntVar(&partitionCrystal, "crystal", 0, "crystal id")
	rootCmd.AddCommand(partitionCmd)
}

func runPartition(cmd *cobra.Command, args []string) error {
	cfg, _, client, svc, err := setup(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	d := cfg.Decomposition
	p, err := svc.FetchCrystalPartition(cmd.Context(), d.DatasetID, d.PersistenceLevel, partitionCrystal)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Crystal %d (dataset %d, level %d): %d samples\n",
		partitionCrystal, d.DatasetID, d.PersistenceLevel, len(p.CrystalSamples))
	for _, id := range p.CrystalSamples {
		fmt.Fprintln(out, id)
	}
	return nil
}
