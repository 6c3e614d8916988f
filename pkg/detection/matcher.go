package detection

import (
	"math"

	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
)

//FindHittingPlayer returns the index of the box whose center is nearest to position, utils.NotFound when boxes is empty.
//Ties keep the first index.
func FindHittingPlayer(boxes []BoundingBox, position utils.Point) int {
	best, bestDistance := utils.NotFound, math.Inf(1)
	for i, box := range boxes {
		if d := box.Center().Distance(position); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best
}

//FindHittingPlayers returns the hitting player (nearest to position) and its partner: the other box with the closest center x,
//which approximates "same side of the net" for doubles
func FindHittingPlayers(boxes []BoundingBox, position utils.Point) (int, int) {
	player := FindHittingPlayer(boxes, position)
	if player == utils.NotFound {
		return utils.NotFound, utils.NotFound
	}
	return player, closestOnXAxis(boxes, player, nil)
}

//closestOnXAxis returns the box, other than player, whose center x is closest to the player's. When accept is given only boxes it accepts count.
func closestOnXAxis(boxes []BoundingBox, player int, accept func(BoundingBox) bool) int {
	playerX := boxes[player].Center().X
	best, bestDistance := utils.NotFound, math.Inf(1)
	for i, box := range boxes {
		if i == player || (accept != nil && !accept(box)) {
			continue
		}
		if d := math.Abs(box.Center().X - playerX); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best
}

//FindHittingPlayersByIdentity prefers exact identity over geometry: the player box is the one labelled with the roster name of playerID
//(or carrying playerID as category), the partner the x-closest other box labelled with a roster name.
//Whichever is not resolved by identity falls back to FindHittingPlayers around position (position may be nil).
func FindHittingPlayersByIdentity(boxes []BoundingBox, r roster.Roster, playerID int, position *utils.Point) (int, int) {
	if len(boxes) == 0 {
		return utils.NotFound, utils.NotFound
	}

	player := utils.NotFound
	if p, ok := r.Lookup(playerID); ok {
		for i, box := range boxes {
			if box.Label != "" && box.Label == p.Name {
				player = i
				break
			}
		}
	}
	if player == utils.NotFound {
		for i, box := range boxes {
			if box.CategoryID != nil && *box.CategoryID == playerID {
				player = i
				break
			}
		}
	}

	if player == utils.NotFound {
		if position == nil {
			return utils.NotFound, utils.NotFound
		}
		return FindHittingPlayers(boxes, *position)
	}

	isRosterPlayer := func(box BoundingBox) bool {
		_, ok := r.ByName(box.Label)
		return ok
	}
	partner := utils.NotFound
	if len(r) > 0 {
		partner = closestOnXAxis(boxes, player, isRosterPlayer)
	}
	if partner == utils.NotFound {
		partner = closestOnXAxis(boxes, player, nil)
	}

	return player, partner
}

//IdentifyBox returns the roster id a box belongs to: its label matched against roster names, else its category id
func IdentifyBox(box BoundingBox, r roster.Roster) (int, bool) {
	if p, ok := r.ByName(box.Label); ok {
		return p.ID, true
	}
	if box.CategoryID != nil {
		return *box.CategoryID, true
	}
	return 0, false
}
