//Package app wires the configured classifiers, store and labelling options
//shared by the server and the command line tool.
package app

import (
	"context"
	"math/rand"

	"github.com/chenBenjamin97/shot-labeler/pkg/classifier"
	"github.com/chenBenjamin97/shot-labeler/pkg/config"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/store"
	"github.com/chenBenjamin97/shot-labeler/pkg/video"
	"go.uber.org/zap"
)

//NewRegistry registers the rule classifier and every other classifier that can
//be loaded. Unavailable classifiers are logged and left out.
func NewRegistry(ctx context.Context, cfg *config.Config) (*classifier.Registry, func()) {
	registry := classifier.NewRegistry(classifier.NewRule(rand.New(rand.NewSource(cfg.Labeler.Seed))))
	closers := make([]func() error, 0)

	if cnn, err := classifier.NewCNN(classifier.CNNConfig{
		Dir:           cfg.Directory.Models,
		SharedLibrary: cfg.Classifier.OnnxLibrary,
		CropSize:      cfg.Labeler.OutputSize,
	}); err != nil {
		logger.Logger.Warn("NewRegistry: CNN classifier unavailable", zap.Error(err))
	} else {
		registry.Register(classifier.Entry{
			ID:          classifier.CNNID,
			Name:        "Shot CNN",
			Description: "ResNet50 models per shot component, run on player crops",
			Classifier:  cnn,
		})
		closers = append(closers, cnn.Close)
	}

	if gemini, err := classifier.NewGemini(ctx, classifier.GeminiConfig{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
		Delay:  cfg.Gemini.Delay,
	}); err != nil {
		logger.Logger.Warn("NewRegistry: Gemini classifier unavailable", zap.Error(err))
	} else {
		registry.Register(classifier.Entry{
			ID:          classifier.GeminiID,
			Name:        "Gemini",
			Description: "Multimodal LLM labelling shots from player crops",
			Classifier:  gemini,
		})
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Logger.Warn("NewRegistry: Error closing classifier", zap.Error(err))
			}
		}
	}
	return registry, closeAll
}

//TagTemplate returns the labelling options of cfg, without video id and classifiers.
func TagTemplate(cfg *config.Config) video.TagOptions {
	d := cfg.Directory
	return video.TagOptions{
		Dirs: video.Directories{
			Rallies:     d.Rallies,
			Annotations: d.Annotations,
			Boxes:       d.Boxes,
			RawFrames:   d.RawFrames,
			Crops:       d.Crops,
			Review:      d.Review,
		},
		Seed:           cfg.Labeler.Seed,
		Expansion:      cfg.Labeler.Expansion,
		CropSize:       cfg.Labeler.OutputSize,
		FramesAhead:    cfg.Labeler.FramesAhead,
		DetectorScript: cfg.Detector.Script,
	}
}

//OpenStore opens the configured label store.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.New(ctx, store.Config{
		Driver:       cfg.Store.Driver,
		GeneratedDir: cfg.Directory.Generated,
		ConfirmedDir: cfg.Directory.Confirmed,
		RedisURL:     cfg.Store.RedisURL,
		PostgresDSN:  cfg.Store.PostgresDSN,
	})
}
