//Package detection resolves per-frame detector output into normalized
//player bounding boxes and matches hitting players against them.
package detection

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
)

var (
	//ErrFrameNotFound means no frame key of the box map matches the frame number.
	ErrFrameNotFound = errors.New("detection: frame not found")

	//ErrMalformedBox means a raw box could not be turned into a valid rectangle.
	ErrMalformedBox = errors.New("detection: malformed box")
)

//RawBox is one detector record: either a bare [a,b,c,d] array or an object with a "bbox" field
type RawBox struct {
	Coords     []float64
	Label      string
	Confidence *float64
	CategoryID *int
}

type rawBoxObject struct {
	BBox       []float64 `json:"bbox"`
	Box        []float64 `json:"box,omitempty"`
	Label      string    `json:"label,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Score      *float64  `json:"score,omitempty"`
	CategoryID *int      `json:"category_id,omitempty"`
}

func (r *RawBox) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		*r = RawBox{}
		return json.Unmarshal(data, &r.Coords)
	}

	var obj rawBoxObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	coords := obj.BBox
	if len(coords) == 0 {
		coords = obj.Box
	}
	confidence := obj.Confidence
	if confidence == nil {
		confidence = obj.Score
	}

	*r = RawBox{Coords: coords, Label: obj.Label, Confidence: confidence, CategoryID: obj.CategoryID}
	return nil
}

func (r RawBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawBoxObject{BBox: r.Coords, Label: r.Label, Confidence: r.Confidence, CategoryID: r.CategoryID})
}

//Frames maps a frame identifier in any of the detectors' key formats to the boxes found in that frame
type Frames map[string][]RawBox

//BoundingBox is a normalized axis aligned box, X1 < X2 and Y1 < Y2
type BoundingBox struct {
	X1         float64  `json:"x1"`
	Y1         float64  `json:"y1"`
	X2         float64  `json:"x2"`
	Y2         float64  `json:"y2"`
	Confidence *float64 `json:"confidence,omitempty"`
	Label      string   `json:"label,omitempty"`
	CategoryID *int     `json:"category_id,omitempty"`
}

func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

func (b BoundingBox) Center() utils.Point {
	return utils.Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}
