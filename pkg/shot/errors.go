package shot

import "errors"

var (
	//ErrEmptyRally means no event could be produced for a rally. Callers skip the rally.
	ErrEmptyRally = errors.New("shot: empty rally")

	//ErrClassifierUnavailable means a classifier could not produce a prediction.
	//The Labeler falls back to another classifier or to defaults.
	ErrClassifierUnavailable = errors.New("shot: classifier unavailable")
)
