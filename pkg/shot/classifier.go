package shot

import (
	"context"
	"image"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/label"
)

//RoleContext describes the shot being classified.
type RoleContext struct {
	Index         int
	Total         int
	IsServe       bool
	IsReturn      bool
	IsLast        bool
	Frame         int
	PlayerID      string
	Handedness    label.Handedness
	CourtPosition label.CourtPosition
}

//Crops are the player images a visual classifier looks at. Any of them may be nil.
type Crops struct {
	Player      image.Image
	Partner     image.Image
	PlayerAhead image.Image
}

//Prediction holds the components a classifier could resolve. Empty values are absent.
type Prediction struct {
	Side      label.Side      `json:"side,omitempty"`
	ShotType  label.ShotType  `json:"shot_type,omitempty"`
	Formation label.Formation `json:"formation,omitempty"`
	Direction label.Direction `json:"direction,omitempty"`
	Outcome   label.Outcome   `json:"outcome,omitempty"`
}

//Classifier resolves shot components for one hitting moment.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, role RoleContext, crops Crops) (Prediction, error)
}

//CropRequest locates the player of a hitting moment for a CropSource.
//AheadFrame is the frame the "player after the shot" crop is taken from.
type CropRequest struct {
	Frame      int
	AheadFrame int
	PlayerID   int
	Player     *detection.BoundingBox
	Partner    *detection.BoundingBox
	Next       *HittingMoment
}

//CropSource turns a hitting moment into classifier crops.
type CropSource interface {
	Crops(ctx context.Context, req CropRequest) (Crops, error)
}
