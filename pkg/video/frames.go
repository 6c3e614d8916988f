package video

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"gocv.io/x/gocv"
)

//FrameStore finds the raw frame images of a video under Dir/<video id>/
type FrameStore struct {
	Dir string
}

//Path returns the first existing file of frame in any of utils.FrameFileFormats
func (s *FrameStore) Path(videoID string, frame int) (string, error) {
	for _, format := range utils.FrameFileFormats {
		p := filepath.Join(s.Dir, videoID, fmt.Sprintf(format, frame))
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("FrameStore: no image for frame %d of '%s': %w", frame, videoID, os.ErrNotExist)
}

//Read loads a frame as a BGR Mat. On success the caller closes it, on error nothing is left to close
func (s *FrameStore) Read(videoID string, frame int) (gocv.Mat, error) {
	p, err := s.Path(videoID, frame)
	if err != nil {
		return gocv.Mat{}, err
	}

	img := gocv.IMRead(p, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("FrameStore: Could not decode '%s'", p)
	}
	return img, nil
}
