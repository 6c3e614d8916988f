package video

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"go.uber.org/zap"
)

//Directories of the per video inputs of Tag
type Directories struct {
	Rallies     string //<id>_rallies.json
	Annotations string //<id>_coco_annotations.json
	Boxes       string //<id>_bbox.json
	RawFrames   string //<id>/<frame>.jpg
	Crops       string //optional, crops are saved here when set
	Review      string //optional, plotted frames are saved here when set
}

//TagOptions configures one labelling run
type TagOptions struct {
	VideoID     string
	Dirs        Directories
	Classifier  shot.Classifier
	Fallback    shot.Classifier
	Seed        int64
	Expansion   float64
	CropSize    int
	FramesAhead int

	//DetectorScript, when set, is run on VideoPath instead of reading <id>_bbox.json
	DetectorScript string
	VideoPath      string
}

//RalliesPath, AnnotationsPath and BoxesPath name the input files of a video
func RalliesPath(dirs Directories, videoID string) string {
	return filepath.Join(dirs.Rallies, videoID+"_rallies.json")
}

func AnnotationsPath(dirs Directories, videoID string) string {
	return filepath.Join(dirs.Annotations, videoID+"_coco_annotations.json")
}

func BoxesPath(dirs Directories, videoID string) string {
	return filepath.Join(dirs.Boxes, videoID+"_bbox.json")
}

//Tag labels every rally of a video. Only a missing rallies document fails the run,
//a missing roster or missing boxes degrade to the random and position based fallbacks.
func Tag(ctx context.Context, opts TagOptions) (*shot.VideoLabels, error) {
	if opts.VideoID == "" {
		return nil, errors.New("Tag: missing video id")
	}

	rallies, err := shot.LoadRallies(RalliesPath(opts.Dirs, opts.VideoID))
	if err != nil {
		return nil, fmt.Errorf("Tag: %w", err)
	}

	r, err := roster.LoadCOCO(AnnotationsPath(opts.Dirs, opts.VideoID))
	if err != nil {
		logger.Logger.Info("Tag: No annotations, player descriptions will be generated", zap.String("video", opts.VideoID), zap.Error(err))
		r = nil
	}

	boxes := loadBoxes(ctx, opts)

	frames := &FrameStore{Dir: opts.Dirs.RawFrames}
	labelerOpts := []shot.Option{
		shot.WithRoster(r),
		shot.WithFrames(boxes),
		shot.WithRand(rand.New(rand.NewSource(opts.Seed))),
		shot.WithCropSource(&CropBuilder{
			Frames:    frames,
			VideoID:   opts.VideoID,
			Boxes:     boxes,
			Roster:    r,
			Expansion: opts.Expansion,
			Size:      opts.CropSize,
			CropDir:   opts.Dirs.Crops,
		}),
	}
	if opts.Fallback != nil {
		labelerOpts = append(labelerOpts, shot.WithFallback(opts.Fallback))
	}
	if opts.FramesAhead > 0 {
		labelerOpts = append(labelerOpts, shot.WithNFramesAhead(opts.FramesAhead))
	}

	labeler := shot.NewLabeler(opts.Classifier, labelerOpts...)
	labels, err := labeler.LabelVideo(ctx, opts.VideoID, rallies)
	if err != nil {
		return labels, err
	}

	if opts.Dirs.Review != "" {
		writeReview(frames, boxes, r, labels, opts.Dirs.Review)
	}

	logger.Logger.Info("Tag: Finished", zap.String("video", opts.VideoID), zap.Int("rallies", len(labels.Rallies)))
	return labels, nil
}

//loadBoxes runs the detector when configured, else reads the box file. Failures leave the labeler without boxes.
func loadBoxes(ctx context.Context, opts TagOptions) detection.Frames {
	if opts.DetectorScript != "" && opts.VideoPath != "" {
		boxes, err := detection.RunDetector(ctx, opts.DetectorScript, opts.VideoPath)
		if err == nil {
			return boxes
		}
		logger.Logger.Warn("Tag: Detector failed, trying box file", zap.String("script", opts.DetectorScript), zap.Error(err))
	}

	boxes, err := detection.LoadFrames(BoxesPath(opts.Dirs, opts.VideoID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Logger.Info("Tag: No bounding boxes, players are matched by position only", zap.String("video", opts.VideoID))
		} else {
			logger.Logger.Warn("Tag: Could not read bounding boxes", zap.String("video", opts.VideoID), zap.Error(err))
		}
		return nil
	}
	return boxes
}

//writeReview plots every event on its frame
func writeReview(frames *FrameStore, boxes detection.Frames, r roster.Roster, labels *shot.VideoLabels, outDir string) {
	for _, rally := range labels.Rallies {
		for _, event := range rally.Events {
			box, ok := eventBox(boxes, r, event)
			if !ok {
				continue
			}
			if err := WriteReviewFrame(frames, labels.VideoID, box, event, outDir); err != nil {
				logger.Logger.Warn("writeReview: Could not plot event, skipping", zap.Int("frame", event.Frame), zap.Error(err))
			}
		}
	}
}

//eventBox finds the box of the event's player: by identity first, then nearest to the event position
func eventBox(boxes detection.Frames, r roster.Roster, event shot.Event) (detection.BoundingBox, bool) {
	located, err := detection.LocateBoxes(boxes, event.Frame)
	if err != nil || len(located) == 0 {
		return detection.BoundingBox{}, false
	}

	idx := utils.NotFound
	if id, err := utils.ParsePlayerID(event.Player); err == nil {
		idx, _ = detection.FindHittingPlayersByIdentity(located, r, id, event.PlayerPosition)
	} else if event.PlayerPosition != nil {
		idx = detection.FindHittingPlayer(located, *event.PlayerPosition)
	}

	if idx == utils.NotFound {
		return detection.BoundingBox{}, false
	}
	return located[idx], true
}
