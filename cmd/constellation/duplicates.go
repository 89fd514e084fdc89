package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	dupThreshold float64
	dupLimit     int
	dupCluster   int
	dupJSON      bool
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List near-duplicate job titles",
	Long: `Builds the constellation and prints job pairs whose descriptions are
nearly identical but whose titles differ, most similar first.`,
	Args: cobra.NoArgs,
	RunE: runDuplicates,
}

func init() {
	duplicatesCmd.Flags().Float64VarP(&dupThreshold, "threshold", "t", 0, "similarity threshold (default: settings)")
	duplicatesCmd.Flags().IntVarP(&dupLimit, "limit", "n", 20, "maximum pairs to print, 0 for all")
	duplicatesCmd.Flags().IntVar(&dupCluster, "cluster", -1, "only pairs inside this cluster")
	duplicatesCmd.Flags().BoolVar(&dupJSON, "json", false, "output pairs as JSON")
	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicates(cmd *cobra.Command, _ []string) error {
	if dupThreshold < 0 || dupThreshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %g", dupThreshold)
	}

	ds, err := buildDataset(cmd.Context())
	if err != nil {
		return err
	}

	pairs := ds.Duplicates
	switch {
	case dupCluster >= 0:
		if pairs, err = ds.ClusterPairs(dupCluster); err != nil {
			return fmt.Errorf("cluster %d: %w", dupCluster, err)
		}
	case cmd.Flags().Changed("threshold"):
		if pairs, err = ds.DuplicatesAbove(dupThreshold); err != nil {
			return err
		}
	}
	total := len(pairs)
	if dupLimit > 0 && len(pairs) > dupLimit {
		pairs = pairs[:dupLimit]
	}

	if dupJSON {
		data, err := json.MarshalIndent(pairs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal pairs: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if total == 0 {
		cmd.Println("No near-duplicate pairs found.")
		return nil
	}
	cmd.Printf("%d near-duplicate pairs (showing %d):\n\n", total, len(pairs))
	for i, p := range pairs {
		cmd.Printf("  [%d] %.3f  #%d %s  <->  #%d %s", i+1, p.Similarity, p.JobA, p.TitleA, p.JobB, p.TitleB)
		if p.ClusterID != nil {
			cmd.Printf("  (cluster %d)", *p.ClusterID)
		}
		cmd.Println()
	}
	return nil
}
