//Package court turns frame positions into court quadrants and resolves
//shot directions from the fixed strategy tables.
package court

import (
	"errors"
	"math/rand"

	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"go.uber.org/zap"
)

//ErrGeometryIncomplete is logged when the net or player position is missing.
var ErrGeometryIncomplete = errors.New("court: net or player position missing")

//GetCourtPosition returns the quadrant of player relative to net. A player
//below the net line (larger y) is near; left of the net center (smaller x)
//is deuce. With a nil input the quadrant is drawn uniformly from rng.
func GetCourtPosition(net, player *utils.Point, rng *rand.Rand) label.CourtPosition {
	if net == nil || player == nil {
		pos := label.CourtPositions[rng.Intn(len(label.CourtPositions))]
		logger.Logger.Warn("GetCourtPosition: using random court position",
			zap.Error(ErrGeometryIncomplete), zap.String("position", string(pos)))
		return pos
	}

	isNear := player.Y > net.Y
	isDeuce := player.X < net.X

	switch {
	case isNear && isDeuce:
		return label.NearDeuce
	case isNear:
		return label.NearAd
	case isDeuce:
		return label.FarDeuce
	default:
		return label.FarAd
	}
}
