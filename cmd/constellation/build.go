package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// Export compression formats.
const (
	compressNone = "none"
	compressGzip = "gzip"
	compressZstd = "zstd"
)

var (
	buildOut      string
	buildCompress string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the constellation and export it as JSON",
	Long: `Runs the full pipeline (normalize, embed, cluster, affinity, duplicates,
labels, layout) over the job table and writes the result as one JSON document.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "constellation.json", "output file, - for stdout")
	buildCmd.Flags().StringVar(&buildCompress, "compress", compressNone, "output compression: none, gzip or zstd")
	rootCmd.AddCommand(buildCmd)
}

// export is the on-disk form of one generation.
type export struct {
	BuiltAt           time.Time              `json:"built_at"`
	ClusterSimilarity map[string]float64     `json:"cluster_similarity"`
	Generation        string                 `json:"generation"`
	Source            string                 `json:"source"`
	Strategy          string                 `json:"embedding_strategy"`
	Jobs              []models.Job           `json:"jobs"`
	Clusters          []models.Cluster       `json:"clusters"`
	Duplicates        []models.DuplicatePair `json:"duplicates"`
	Stats             constellation.Stats    `json:"stats"`
}

func newExport(ds *constellation.Dataset) export {
	return export{
		BuiltAt:           ds.BuiltAt,
		ClusterSimilarity: ds.ClusterSimilarity,
		Generation:        ds.ID,
		Source:            ds.Source,
		Strategy:          string(ds.Strategy),
		Jobs:              ds.Jobs,
		Clusters:          ds.Clusters,
		Duplicates:        ds.Duplicates,
		Stats:             ds.Stats,
	}
}

func runBuild(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(buildCompress)
	if format != compressNone && format != compressGzip && format != compressZstd {
		return fmt.Errorf("unknown compression %q", buildCompress)
	}

	ds, err := buildDataset(cmd.Context())
	if err != nil {
		return err
	}

	if buildOut == "-" {
		err = writeExport(cmd.OutOrStdout(), format, newExport(ds))
	} else {
		err = writeExportFile(buildOut, format, newExport(ds))
	}
	if err != nil {
		return err
	}
	if buildOut != "-" {
		cmd.Printf("Wrote %s: %d jobs, %d clusters, %d duplicate pairs (%s)\n",
			buildOut, len(ds.Jobs), len(ds.Clusters), len(ds.Duplicates), ds.Strategy)
	}
	return nil
}

// writeExportFile writes e to path. A failed close is reported since it can
// lose buffered data.
func writeExportFile(path, format string, e export) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return writeExport(f, format, e)
}

// writeExport encodes e to w through the chosen compressor. The compressor
// is closed on every path.
func writeExport(w io.Writer, format string, e export) error {
	var (
		dst    = w
		closer io.Closer
	)
	switch format {
	case compressGzip:
		gz := gzip.NewWriter(w)
		dst, closer = gz, gz
	case compressZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		dst, closer = enc, enc
	}

	enc := json.NewEncoder(dst)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return fmt.Errorf("encode export: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("flush %s: %w", format, err)
		}
	}
	return nil
}
