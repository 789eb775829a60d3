package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/mask-sentry/internal/config"
	"github.com/kozaktomas/mask-sentry/internal/geometry"
	"github.com/kozaktomas/mask-sentry/internal/record"
	"github.com/kozaktomas/mask-sentry/internal/registry"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect the registered faces",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered faces",
	Args:  cobra.NoArgs,
	RunE:  runRecordsList,
}

var recordsInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode a single record file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsInspect,
}

var recordsExportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Write every registered face to another directory",
	Long: `Write every registered face to <dir>, one record file per label, and
with --crops also the face crops as PNG files.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecordsExport,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd, recordsInspectCmd, recordsExportCmd)

	recordsListCmd.Flags().Bool("json", false, "Output as JSON")
	recordsInspectCmd.Flags().Bool("json", false, "Output as JSON")
	recordsExportCmd.Flags().Bool("crops", false, "Also write <label>.png crops")
}

// recordSummary is the printable form of a record.
type recordSummary struct {
	Label         string        `json:"label"`
	ID            string        `json:"id"`
	Distance      *float32      `json:"distance"`
	EmbeddingSize int           `json:"embedding_size"`
	Location      geometry.Rect `json:"location"`
	Crop          string        `json:"crop,omitempty"`
}

func summarize(label string, rec record.Record) recordSummary {
	s := recordSummary{
		Label:         label,
		ID:            rec.ID,
		Distance:      rec.Distance,
		EmbeddingSize: len(rec.Embedding),
		Location:      rec.Location,
	}
	if rec.Crop != nil {
		b := rec.Crop.Bounds()
		s.Crop = fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
	}
	return s
}

func formatDistance(d *float32) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *d)
}

func openStore() (*registry.Store, registry.LoadReport, error) {
	cfg := config.Load()
	store, err := registry.Open(registry.Options{Dir: cfg.Store.Dir})
	if err != nil {
		return nil, registry.LoadReport{}, err
	}
	report, err := store.Load()
	if err != nil {
		return nil, report, err
	}
	return store, report, nil
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	store, report, err := openStore()
	if err != nil {
		return err
	}

	summaries := make([]recordSummary, 0, store.Len())
	for _, label := range store.Labels() {
		rec, _ := store.Get(label)
		summaries = append(summaries, summarize(label, rec))
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Printf("No records in %s\n", store.Dir())
	}
	for _, s := range summaries {
		fmt.Printf("%-24s id=%-14s distance=%-8s embedding=%-5d crop=%s\n",
			s.Label, s.ID, formatDistance(s.Distance), s.EmbeddingSize, s.Crop)
	}
	for _, skipped := range report.Skipped {
		fmt.Printf("skipped %s: %v\n", skipped.Name, skipped.Err)
	}
	return nil
}

func runRecordsInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	rec, err := record.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	s := summarize(rec.Title, rec)
	if mustGetBool(cmd, "json") {
		return outputJSON(s)
	}

	fmt.Printf("Title:     %s\n", s.Label)
	fmt.Printf("ID:        %s\n", s.ID)
	fmt.Printf("Distance:  %s\n", formatDistance(s.Distance))
	fmt.Printf("Embedding: %d values\n", s.EmbeddingSize)
	fmt.Printf("Location:  left=%.1f top=%.1f right=%.1f bottom=%.1f\n",
		s.Location.Left, s.Location.Top, s.Location.Right, s.Location.Bottom)
	if s.Crop != "" {
		fmt.Printf("Crop:      %s\n", s.Crop)
	} else {
		fmt.Printf("Crop:      none\n")
	}
	return nil
}

func runRecordsExport(cmd *cobra.Command, args []string) error {
	dir := args[0]
	withCrops := mustGetBool(cmd, "crops")

	store, _, err := openStore()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	var errs []error
	exported := 0
	for _, label := range store.Labels() {
		rec, _ := store.Get(label)
		data, err := record.Encode(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			continue
		}
		if err := renameio.WriteFile(filepath.Join(dir, label), data, 0o600); err != nil {
			errs = append(errs, err)
			continue
		}
		exported++
		if withCrops && rec.Crop != nil {
			if err := imaging.Save(rec.Crop, filepath.Join(dir, label+".png")); err != nil {
				errs = append(errs, fmt.Errorf("%s crop: %w", label, err))
			}
		}
	}

	fmt.Printf("Exported %d records to %s\n", exported, dir)
	return errors.Join(errs...)
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
