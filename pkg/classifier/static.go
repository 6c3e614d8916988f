package classifier

import (
	"context"

	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
)

//Static always answers the same prediction.
type Static struct {
	ID         string
	Prediction shot.Prediction
}

func (s Static) Name() string {
	if s.ID == "" {
		return "static"
	}
	return s.ID
}

func (s Static) Classify(context.Context, shot.RoleContext, shot.Crops) (shot.Prediction, error) {
	return s.Prediction, nil
}
