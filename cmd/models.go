package cmd

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/mask-sentry/internal/config"
	"github.com/kozaktomas/mask-sentry/internal/vision"
)

// models holds the loaded networks. Close releases all of them.
type models struct {
	detector   *vision.FaceDetector
	embedder   *vision.Embedder
	classifier *vision.MaskClassifier
}

// openModels loads the detector and embedder, plus the mask classifier when
// withMask is set. Any failure releases what was already loaded.
func openModels(cfg config.ModelsConfig, withMask bool) (*models, error) {
	m := &models{}
	var err error

	if m.detector, err = vision.NewFaceDetector(cfg.DetectorModel, cfg.DetectorConfig); err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}
	if m.embedder, err = vision.NewEmbedder(cfg.EmbedderModel, cfg.EmbedderConfig); err != nil {
		m.Close()
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if withMask {
		if m.classifier, err = vision.NewMaskClassifier(cfg.MaskModel, cfg.MaskConfig, cfg.MaskLabels); err != nil {
			m.Close()
			return nil, fmt.Errorf("mask classifier: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"detector": cfg.DetectorModel,
		"embedder": cfg.EmbedderModel,
		"mask":     cfg.MaskModel,
	}).Info("Models loaded")
	return m, nil
}

func (m *models) Close() {
	var errs []error
	if m.detector != nil {
		errs = append(errs, m.detector.Close())
	}
	if m.embedder != nil {
		errs = append(errs, m.embedder.Close())
	}
	if m.classifier != nil {
		errs = append(errs, m.classifier.Close())
	}
	if err := errors.Join(errs...); err != nil {
		log.WithError(err).Warn("Failed to release models")
	}
}
