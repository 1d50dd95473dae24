package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sanonone/kektorgraph/pkg/persistence"
	"github.com/spf13/cobra"
)

var (
	exportSnapshot string
	exportSave     string
	exportAppend   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a binary snapshot to the text embedding format",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		n, err := exportText(exportSnapshot, exportSave, exportAppend)
		if err != nil {
			return err
		}
		slog.Info("[Main] Exported", "snapshot", exportSnapshot, "output", exportSave, "vectors", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSnapshot, "snapshot", "", "Snapshot to read")
	exportCmd.Flags().StringVar(&exportSave, "save", "", "Text output path")
	exportCmd.Flags().BoolVar(&exportAppend, "append", false, "Append to the output instead of truncating it")
	_ = exportCmd.MarkFlagRequired("snapshot")
	_ = exportCmd.MarkFlagRequired("save")
	rootCmd.AddCommand(exportCmd)
}

// exportText copies every record of the snapshot at src into a text file at dst.
func exportText(src, dst string, appendMode bool) (int, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("cannot open snapshot: %w", err)
	}
	defer f.Close()

	sr, err := persistence.NewSnapshotReader(bufio.NewReader(f))
	if err != nil {
		return 0, fmt.Errorf("invalid snapshot %s: %w", src, err)
	}
	h := sr.Header()
	slog.Debug("[Main] Snapshot header", "run_id", h.RunID, "count", h.Count, "dimension", h.Dim, "precision", h.Precision.String())

	w, err := persistence.NewEmbeddingWriter(dst, appendMode)
	if err != nil {
		return 0, err
	}

	var buf []float64
	for {
		label, vec, err := sr.Next(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Close()
			return w.Lines(), fmt.Errorf("failed to read snapshot record: %w", err)
		}
		buf = vec
		if err := w.WriteVector(label, vec); err != nil {
			w.Close()
			return w.Lines(), err
		}
	}
	if err := w.Close(); err != nil {
		return w.Lines(), err
	}
	if uint64(w.Lines()) != h.Count {
		return w.Lines(), fmt.Errorf("snapshot declares %d vectors, found %d", h.Count, w.Lines())
	}
	return w.Lines(), nil
}
