package court

import (
	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"go.uber.org/zap"
)

const (
	deuce = "deuce"
	ad    = "ad"
)

type directionKey struct {
	handedness label.Handedness
	side       label.Side
	start      string
	end        string
}

//directionTable is keyed by the deuce/ad component of the start and end
//quadrants. Camera-relative sides: the same component means the ball
//travels along the line, a different one means it crosses the court.
var directionTable = map[directionKey]label.Direction{
	{label.Right, label.Forehand, deuce, deuce}: label.DownTheLine,
	{label.Right, label.Forehand, deuce, ad}:    label.CrossCourt,
	{label.Right, label.Forehand, ad, ad}:       label.InsideIn,
	{label.Right, label.Forehand, ad, deuce}:    label.InsideOut,
	{label.Right, label.Backhand, deuce, deuce}: label.InsideIn,
	{label.Right, label.Backhand, deuce, ad}:    label.InsideOut,
	{label.Right, label.Backhand, ad, ad}:       label.DownTheLine,
	{label.Right, label.Backhand, ad, deuce}:    label.CrossCourt,

	{label.Left, label.Forehand, deuce, deuce}: label.InsideIn,
	{label.Left, label.Forehand, deuce, ad}:    label.InsideOut,
	{label.Left, label.Forehand, ad, ad}:       label.DownTheLine,
	{label.Left, label.Forehand, ad, deuce}:    label.CrossCourt,
	{label.Left, label.Backhand, deuce, deuce}: label.DownTheLine,
	{label.Left, label.Backhand, deuce, ad}:    label.CrossCourt,
	{label.Left, label.Backhand, ad, ad}:       label.InsideIn,
	{label.Left, label.Backhand, ad, deuce}:    label.InsideOut,
}

//GetShotDirection looks up the direction of a groundstroke hit from start
//and landing around end. Start and end are expected on opposite halves of
//the court; when they are not, a warning is logged and the lookup still
//uses their deuce/ad components. Unknown handedness resolves to CC or DL.
func GetShotDirection(handedness label.Handedness, side label.Side, start, end label.CourtPosition) label.Direction {
	if start.Half() == end.Half() {
		logger.Logger.Warn("GetShotDirection: start and end are on the same half of the court",
			zap.String("start", string(start)), zap.String("end", string(end)))
	}

	if d, ok := directionTable[directionKey{handedness, side, start.CourtSide(), end.CourtSide()}]; ok {
		return d
	}

	if start.CourtSide() == end.CourtSide() {
		return label.DownTheLine
	}
	return label.CrossCourt
}

type strategyKey struct {
	handedness label.Handedness
	courtSide  string
	side       label.Side
}

//insideStrokes marks the stroke/court-side combinations hit around the
//body. A coarse prediction for those is remapped: DL to II, anything else
//to IO. Every other combination keeps the prediction.
var insideStrokes = map[strategyKey]bool{
	{label.Right, deuce, label.Forehand}: false,
	{label.Right, deuce, label.Backhand}: true,
	{label.Right, ad, label.Forehand}:    true,
	{label.Right, ad, label.Backhand}:    false,
	{label.Left, deuce, label.Forehand}:  true,
	{label.Left, deuce, label.Backhand}:  false,
	{label.Left, ad, label.Forehand}:     false,
	{label.Left, ad, label.Backhand}:     true,
}

//CorrectDirectionByStrategy remaps a cross-court/down-the-line prediction
//into the finer vocabulary using the player's court side, stroke side and
//handedness.
func CorrectDirectionByStrategy(predicted label.Direction, position label.CourtPosition, side label.Side, handedness label.Handedness) label.Direction {
	if !insideStrokes[strategyKey{handedness, position.CourtSide(), side}] {
		return predicted
	}

	if predicted == label.DownTheLine {
		return label.InsideIn
	}
	return label.InsideOut
}
