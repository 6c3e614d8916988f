package main

import (
	"context"
	"log"

	"github.com/chenBenjamin97/shot-labeler/pkg/api"
	"github.com/chenBenjamin97/shot-labeler/pkg/app"
	"github.com/chenBenjamin97/shot-labeler/pkg/config"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Error: Could not read config file, got '%v'", err)
	}

	//create missing directories from config file
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}

	if err := logger.InitLogger(cfg.Log.Level, cfg.Directory.Logs); err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	registry, closeClassifiers := app.NewRegistry(ctx, cfg)
	defer closeClassifiers()

	labelStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Logger.Fatal("Error: Could not open label store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer labelStore.Close()

	server := api.NewServer(registry, labelStore, app.TagTemplate(cfg))
	server.VideosDir = cfg.Detector.Videos
	server.DefaultModel = cfg.Classifier.Default
	defer server.Close()

	r := api.SetRouter(server)
	logger.Logger.Info("Listening", zap.String("port", cfg.HTTP.Port))
	if err := r.Run(":" + cfg.HTTP.Port); err != nil {
		logger.Logger.Error("Error: Got", zap.Error(err))
	}
}
