package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/pii-redactor/internal/analyzer"
	"github.com/ironsheep/pii-redactor/internal/config"
	"github.com/ironsheep/pii-redactor/internal/ocr"
	"github.com/ironsheep/pii-redactor/internal/recognizer"
	"github.com/ironsheep/pii-redactor/internal/recognizer/ner"
)

// buildEngine assembles the recognizers, OCR and engine settings described by
// cfg. The returned cleanup releases the NER model, if one was loaded.
func buildEngine(cfg *config.Config) (*analyzer.Engine, func(), error) {
	recs, err := recognizer.LoadPatterns(cfg.PatternsFile)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	if cfg.NERModelDir != "" {
		model, err := ner.Load(ner.Options{
			ModelDir:    cfg.NERModelDir,
			LibraryPath: cfg.NERLibraryPath,
			SeqLen:      cfg.NERSeqLen,
			Sessions:    cfg.NERSessions,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("loading NER model: %w", err)
		}
		recs = append(recs, model)
		cleanup = model.Close
	}
	if cfg.NERURL != "" {
		recs = append(recs, recognizer.NewRemote(cfg.NERURL, cfg.NERTimeout))
	}

	mask, err := cfg.Mask()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	registry := recognizer.NewRegistry(recs...)
	engine := analyzer.New(registry, ocr.NewTesseract(cfg.OCRLanguage), analyzer.Settings{
		MaxFindings: cfg.MaxFindings,
		Workers:     cfg.Workers,
		Padding:     cfg.MaskPadding,
		Mask:        mask,
	})
	log.Debug().Strs("recognizers", registry.Names()).Int("entity_types", len(registry.EntityTypes())).Msg("engine ready")
	return engine, cleanup, nil
}

func detectionOptions(cfg *config.Config) analyzer.Options {
	return analyzer.Options{Threshold: cfg.Threshold, Entities: cfg.Entities}
}
