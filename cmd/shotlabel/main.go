package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/chenBenjamin97/shot-labeler/pkg/app"
	"github.com/chenBenjamin97/shot-labeler/pkg/classifier"
	"github.com/chenBenjamin97/shot-labeler/pkg/config"
	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"github.com/chenBenjamin97/shot-labeler/pkg/store"
	"github.com/chenBenjamin97/shot-labeler/pkg/video"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configDir string
	model     string
	output    string
	video     string
	save      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "shotlabel",
		Short:         "Label the shots of tennis rallies",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config", ".", "directory holding config.yaml")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "write the result to this file instead of stdout")

	label := &cobra.Command{
		Use:   "label <video id>",
		Short: "Label every rally of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabel(cmd.Context(), opts, args[0], cmd.Flags().Changed("model"))
		},
	}
	label.Flags().StringVarP(&opts.model, "model", "m", classifier.RuleID, "classifier id (random, cnn, gemini), classifier.default of the config when not given")
	label.Flags().StringVar(&opts.video, "video", "", "video file given to the detector script")
	label.Flags().BoolVar(&opts.save, "save", false, "also save the labels as generated labels in the configured store")

	poses := &cobra.Command{
		Use:   "poses <video id>",
		Short: "Estimate the hitting player's pose at every hitting moment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoses(opts, args[0])
		},
	}

	root.AddCommand(label, poses)
	return root
}

func setup(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Directory.Logs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runLabel(ctx context.Context, opts *options, videoID string, modelGiven bool) error {
	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	model := opts.model
	if !modelGiven && cfg.Classifier.Default != "" {
		model = cfg.Classifier.Default
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	registry, closeClassifiers := app.NewRegistry(ctx, cfg)
	defer closeClassifiers()

	entry := registry.Resolve(model)
	tagOpts := app.TagTemplate(cfg)
	tagOpts.VideoID = videoID
	tagOpts.Classifier = entry.Classifier
	tagOpts.VideoPath = opts.video
	if tagOpts.VideoPath == "" && cfg.Detector.Videos != "" {
		tagOpts.VideoPath = filepath.Join(cfg.Detector.Videos, videoID+".mp4")
	}
	if entry.ID != classifier.RuleID {
		if rule, ok := registry.Get(classifier.RuleID); ok {
			tagOpts.Fallback = rule.Classifier
		}
	}

	labels, err := video.Tag(ctx, tagOpts)
	if err != nil && labels == nil {
		return err
	}
	if err != nil {
		logger.Logger.Warn("label: Interrupted, writing the rallies labelled so far", zap.Error(err))
	}

	if opts.save {
		if err := saveGenerated(ctx, cfg, labels); err != nil {
			return err
		}
	}
	return writeJSON(opts.output, labels)
}

func saveGenerated(ctx context.Context, cfg *config.Config, labels *shot.VideoLabels) error {
	s, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Save(ctx, store.Generated, labels)
}

func runPoses(opts *options, videoID string) error {
	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	dirs := app.TagTemplate(cfg).Dirs
	rallies, err := shot.LoadRallies(video.RalliesPath(dirs, videoID))
	if err != nil {
		return err
	}
	boxes, err := detection.LoadFrames(video.BoxesPath(dirs, videoID))
	if err != nil {
		return err
	}

	estimator := &video.PoseEstimator{ModelPath: cfg.Classifier.PoseModelPath}
	defer estimator.Close()

	poses, err := estimator.HittingPoses(&video.FrameStore{Dir: dirs.RawFrames}, videoID, boxes, rallies)
	if err != nil {
		return err
	}
	return writeJSON(opts.output, poses)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	return os.WriteFile(path, data, 0644)
}
