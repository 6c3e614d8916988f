package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"gocv.io/x/gocv"
)

var (
	winColor = color.RGBA{0, 255, 0, 0}
	errColor = color.RGBA{0, 0, 255, 0}
	inColor  = color.RGBA{255, 128, 0, 0}
)

//outcomeColor picks the box color of an event by its outcome
func outcomeColor(o label.Outcome) color.RGBA {
	switch o {
	case label.Win:
		return winColor
	case label.Err:
		return errColor
	default:
		return inColor
	}
}

//PlotEvent plots the hitting player's bounding box and writes above it the player id and the shot label
func PlotEvent(frame *gocv.Mat, box detection.BoundingBox, event shot.Event) error {
	//a zero box means the detector had nothing for this player, should not be plotted on frame
	if box.X1 == 0 && box.Y1 == 0 && box.X2 == 0 && box.Y2 == 0 {
		return nil
	}

	if event.Label == "" {
		return errors.New("PlotEvent: Event has no label")
	}

	plotColor := outcomeColor(event.Outcome)
	boundingBoxRect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2))
	gocv.Rectangle(frame, boundingBoxRect, plotColor, 3)

	textToPutFirstLine := fmt.Sprintf("ID: %s", event.Player)
	textToPutSecondLine := event.Label
	startPointFirstLine := image.Pt(boundingBoxRect.Min.X, boundingBoxRect.Min.Y-20)
	startPointSecondLine := image.Pt(boundingBoxRect.Min.X, boundingBoxRect.Min.Y-5)

	textSize := gocv.GetTextSize(textToPutSecondLine, gocv.FontHersheyPlain, 1, 2)
	textBackgroundRect := image.Rect(startPointFirstLine.X, startPointFirstLine.Y-15, startPointFirstLine.X+textSize.X+10, startPointFirstLine.Y+20) //thickness -1 == filled rectangle

	whiteRGB := color.RGBA{255, 255, 255, 0}
	gocv.Rectangle(frame, textBackgroundRect, plotColor, -1)
	gocv.PutText(frame, textToPutFirstLine, startPointFirstLine, gocv.FontHersheyPlain, 1, whiteRGB, 2)
	gocv.PutText(frame, textToPutSecondLine, startPointSecondLine, gocv.FontHersheyPlain, 1, whiteRGB, 2)

	return nil
}

//WriteReviewFrame plots event on its raw frame and saves it as outDir/<video id>/<frame>.jpg
func WriteReviewFrame(frames *FrameStore, videoID string, box detection.BoundingBox, event shot.Event, outDir string) error {
	frame, err := frames.Read(videoID, event.Frame)
	if err != nil {
		return err
	}
	defer frame.Close()

	if err := PlotEvent(&frame, box, event); err != nil {
		return err
	}

	dir := filepath.Join(outDir, videoID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("WriteReviewFrame: Could not create '%s', got '%v'", dir, err)
	}

	p := filepath.Join(dir, fmt.Sprintf("%06d.jpg", event.Frame))
	if !gocv.IMWrite(p, frame) {
		return fmt.Errorf("WriteReviewFrame: Could not write '%s'", p)
	}
	return nil
}
