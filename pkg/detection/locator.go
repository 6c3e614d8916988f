package detection

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"facette.io/natsort"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"go.uber.org/zap"
)

//frameKeyCandidates returns the key formats tried before scanning, in priority order
func frameKeyCandidates(frame int) []string {
	plain := []string{strconv.Itoa(frame), fmt.Sprintf("%04d", frame), fmt.Sprintf("%06d", frame)}
	candidates := make([]string, 0, len(plain)*2)
	candidates = append(candidates, plain...)
	for _, k := range plain {
		candidates = append(candidates, utils.FrameKeyPrefix+k)
	}
	return candidates
}

//FindFrameKey returns the key of frames holding the boxes of given frame number
func FindFrameKey(frames Frames, frame int) (string, error) {
	for _, k := range frameKeyCandidates(frame) {
		if _, ok := frames[k]; ok {
			return k, nil
		}
	}

	//scan in natural order so the first match is the same on every run
	keys := make([]string, 0, len(frames))
	for k := range frames {
		keys = append(keys, k)
	}
	natsort.Sort(keys)

	for _, k := range keys {
		if n, ok := frameNumberOfKey(k); ok && n == frame {
			return k, nil
		}
	}

	return "", fmt.Errorf("%w: %d", ErrFrameNotFound, frame)
}

//frameNumberOfKey strips everything up to the last "_" and any extension, then parses the rest
func frameNumberOfKey(key string) (int, bool) {
	if i := strings.LastIndex(key, "_"); i >= 0 {
		key = key[i+1:]
	}
	key = strings.TrimSuffix(key, path.Ext(key))

	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return n, true
}

//NormalizeBox converts a raw box to [x1,y1,x2,y2]. (a,b,c,d) is read as corners when c>=a and d>=b, otherwise as [x,y,width,height].
//Boxes hugging the origin are ambiguous: a small [x,y,w,h] box with w>=x and h>=y is read as corners.
func NormalizeBox(raw RawBox) (BoundingBox, error) {
	if len(raw.Coords) < 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected 4 values, got %d", ErrMalformedBox, len(raw.Coords))
	}

	a, b, c, d := raw.Coords[0], raw.Coords[1], raw.Coords[2], raw.Coords[3]
	for _, v := range []float64{a, b, c, d} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, fmt.Errorf("%w: non finite value in %v", ErrMalformedBox, raw.Coords)
		}
	}

	box := BoundingBox{X1: a, Y1: b, X2: c, Y2: d, Confidence: raw.Confidence, Label: raw.Label, CategoryID: raw.CategoryID}
	if !(c >= a && d >= b) {
		box.X2 = a + c
		box.Y2 = b + d
	}

	if !(box.X1 < box.X2 && box.Y1 < box.Y2) {
		return BoundingBox{}, fmt.Errorf("%w: degenerate box %v", ErrMalformedBox, raw.Coords)
	}

	return box, nil
}

//NormalizeBoxes normalizes every raw box, skipping malformed ones, and keeps their order
func NormalizeBoxes(raws []RawBox) []BoundingBox {
	boxes := make([]BoundingBox, 0, len(raws))
	for i, raw := range raws {
		box, err := NormalizeBox(raw)
		if err != nil {
			logger.Logger.Warn("NormalizeBoxes: Skipping box", zap.Int("index", i), zap.Error(err))
			continue
		}
		boxes = append(boxes, box)
	}
	return boxes
}

//LocateBoxes returns the normalized boxes of given frame number
func LocateBoxes(frames Frames, frame int) ([]BoundingBox, error) {
	key, err := FindFrameKey(frames, frame)
	if err != nil {
		return nil, err
	}
	return NormalizeBoxes(frames[key]), nil
}
