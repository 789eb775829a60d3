package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/mask-sentry/internal/config"
	"github.com/kozaktomas/mask-sentry/internal/constants"
	"github.com/kozaktomas/mask-sentry/internal/pipeline"
	"github.com/kozaktomas/mask-sentry/internal/record"
	"github.com/kozaktomas/mask-sentry/internal/registry"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <dir>",
	Short: "Register faces from a directory of photos",
	Long: `Register one face per person from a directory laid out as

  <dir>/<label>/<photo>.jpg

For every label the photos are tried in name order and the first one that
contains exactly one face is embedded and registered under the label.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Bool("overwrite", false, "Replace labels that are already registered")
}

var errNoSingleFace = errors.New("no photo with exactly one face")

var enrollExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tif": true, ".tiff": true, ".gif": true,
}

// enrollResult summarises an enroll run.
type enrollResult struct {
	Registered int
	Skipped    int
	Failed     map[string]error
}

func runEnroll(cmd *cobra.Command, args []string) error {
	root := args[0]
	overwrite := mustGetBool(cmd, "overwrite")

	cfg := config.Load()
	if cfg.Models.DetectorModel == "" || cfg.Models.EmbedderModel == "" {
		return errors.New("DETECTOR_MODEL and EMBEDDER_MODEL are required")
	}

	people, err := enrollPeople(root)
	if err != nil {
		return err
	}
	if len(people) == 0 {
		fmt.Println("No person directories found.")
		return nil
	}

	m, err := openModels(cfg.Models, false)
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	defer m.Close()

	store, err := registry.Open(registry.Options{Dir: cfg.Store.Dir, ExportDir: cfg.Store.ExportDir})
	if err != nil {
		return err
	}
	if _, err := store.Load(); err != nil {
		return fmt.Errorf("loading registered faces: %w", err)
	}

	fmt.Printf("Enrolling %d people into %s\n\n", len(people), store.Dir())

	bar := progressbar.NewOptions(len(people),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("people"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res := enrollResult{Failed: make(map[string]error)}
	for _, label := range people {
		if _, exists := store.Get(label); exists && !overwrite {
			res.Skipped++
		} else if err := enrollPerson(ctx, m, store, label, filepath.Join(root, label)); err != nil {
			res.Failed[label] = err
		} else {
			res.Registered++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Printf("\n\nRegistered: %d, already present: %d, failed: %d\n", res.Registered, res.Skipped, len(res.Failed))
	for _, label := range sortedKeys(res.Failed) {
		fmt.Printf("  %s: %v\n", label, res.Failed[label])
	}
	return nil
}

// enrollPeople returns the sub-directories of root that are valid labels.
func enrollPeople(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	var people []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := registry.ValidateLabel(e.Name()); err != nil {
			log.WithFields(log.Fields{"dir": e.Name(), "error": err}).Warn("Skipping directory")
			continue
		}
		people = append(people, e.Name())
	}
	sort.Strings(people)
	return people, nil
}

// enrollPhotos lists the image files of dir in name order.
func enrollPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var photos []string
	for _, e := range entries {
		if e.Type().IsRegular() && enrollExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			photos = append(photos, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(photos)
	return photos, nil
}

func enrollPerson(ctx context.Context, m *models, store *registry.Store, label, dir string) error {
	photos, err := enrollPhotos(dir)
	if err != nil {
		return err
	}

	for _, path := range photos {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			log.WithFields(log.Fields{"file": path, "error": err}).Debug("Cannot decode photo")
			continue
		}

		faces, err := m.detector.Detect(ctx, img)
		if err != nil {
			return fmt.Errorf("detecting %s: %w", filepath.Base(path), err)
		}
		if len(faces) != 1 {
			log.WithFields(log.Fields{"file": path, "faces": len(faces)}).Debug("Photo does not hold a single face")
			continue
		}
		box := faces[0]

		input, err := pipeline.ModelInput(img, box, constants.EmbeddingInputSize)
		if err != nil {
			continue
		}
		embedding, err := m.embedder.Embed(ctx, input)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", filepath.Base(path), err)
		}

		err = store.Register(label, record.Record{
			ID:        constants.EnrolledRecordID,
			Embedding: embedding,
			Location:  box,
			Crop:      pipeline.FaceCrop(img, box, constants.RegistrationCropPadding),
		})
		return err
	}
	return errNoSingleFace
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
