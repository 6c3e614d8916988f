//Package label holds the shot vocabulary and the event label grammar:
//courtPosition_side_shotType_direction_formation_outcome, all lowercase.
package label

import (
	"errors"
	"fmt"
	"strings"
)

//ErrInvalidLabel is returned by Parse for strings outside the grammar.
var ErrInvalidLabel = errors.New("label: invalid label")

type CourtPosition string

const (
	NearDeuce CourtPosition = "near_deuce"
	NearAd    CourtPosition = "near_ad"
	FarDeuce  CourtPosition = "far_deuce"
	FarAd     CourtPosition = "far_ad"
)

//CourtPositions lists the four quadrants in a fixed order.
var CourtPositions = []CourtPosition{NearDeuce, NearAd, FarDeuce, FarAd}

//Half is "near" or "far".
func (p CourtPosition) Half() string {
	half, _, _ := strings.Cut(string(p), "_")
	return half
}

//CourtSide is "deuce" or "ad". Unknown values read as deuce.
func (p CourtPosition) CourtSide() string {
	if _, side, ok := strings.Cut(string(p), "_"); ok && side == "ad" {
		return "ad"
	}
	return "deuce"
}

type Side string

const (
	Forehand Side = "forehand"
	Backhand Side = "backhand"
)

type ShotType string

const (
	Serve       ShotType = "serve"
	SecondServe ShotType = "second-serve"
	Return      ShotType = "return"
	Volley      ShotType = "volley"
	Lob         ShotType = "lob"
	Smash       ShotType = "smash"
	Swing       ShotType = "swing"
)

//IsServe reports whether the shot starts the point.
func (s ShotType) IsServe() bool {
	return s == Serve || s == SecondServe
}

type Direction string

const (
	InsideIn    Direction = "ii"
	InsideOut   Direction = "io"
	CrossCourt  Direction = "cc"
	DownTheLine Direction = "dl"

	ServeT    Direction = "t"
	ServeBody Direction = "b"
	ServeWide Direction = "w"
)

//IsServeDirection reports whether d belongs to the serve vocabulary.
func (d Direction) IsServeDirection() bool {
	return d == ServeT || d == ServeBody || d == ServeWide
}

type Formation string

const (
	Conventional Formation = "conventional"
	IFormation   Formation = "i-formation"
	Australian   Formation = "australian"
	NonServe     Formation = "non-serve"
)

type Outcome string

const (
	In  Outcome = "in"
	Win Outcome = "win"
	Err Outcome = "err"
)

//IsTerminal reports whether the outcome ends a rally.
func (o Outcome) IsTerminal() bool {
	return o == Win || o == Err
}

type Handedness string

const (
	Left    Handedness = "left"
	Right   Handedness = "right"
	Unknown Handedness = "unknown"
)

//ParseHandedness maps anything other than left/right to Unknown.
func ParseHandedness(s string) Handedness {
	switch Handedness(strings.ToLower(strings.TrimSpace(s))) {
	case Left:
		return Left
	case Right:
		return Right
	default:
		return Unknown
	}
}

//Label is one parsed event label.
type Label struct {
	CourtPosition CourtPosition
	Side          Side
	ShotType      ShotType
	Direction     Direction
	Formation     Formation
	Outcome       Outcome
}

//Tokens returns the six grammar tokens in order.
func (l Label) Tokens() []string {
	return []string{
		string(l.CourtPosition),
		string(l.Side),
		string(l.ShotType),
		string(l.Direction),
		string(l.Formation),
		string(l.Outcome),
	}
}

func (l Label) String() string {
	return strings.ToLower(strings.Join(l.Tokens(), "_"))
}

var (
	sides      = []Side{Forehand, Backhand}
	shotTypes  = []ShotType{Serve, SecondServe, Return, Volley, Lob, Smash, Swing}
	directions = []Direction{InsideIn, InsideOut, CrossCourt, DownTheLine, ServeT, ServeBody, ServeWide}
	formations = []Formation{Conventional, IFormation, Australian, NonServe}
	outcomes   = []Outcome{In, Win, Err}
)

//Parse splits a label string back into its tokens. The court position
//token itself contains an underscore, so a valid label has seven
//underscore-separated pieces.
func Parse(s string) (Label, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 7 {
		return Label{}, fmt.Errorf("%w: '%s' has %d parts", ErrInvalidLabel, s, len(parts))
	}

	l := Label{
		CourtPosition: CourtPosition(parts[0] + "_" + parts[1]),
		Side:          Side(parts[2]),
		ShotType:      ShotType(parts[3]),
		Direction:     Direction(parts[4]),
		Formation:     Formation(parts[5]),
		Outcome:       Outcome(parts[6]),
	}

	if !contains(CourtPositions, l.CourtPosition) || !contains(sides, l.Side) || !contains(shotTypes, l.ShotType) ||
		!contains(directions, l.Direction) || !contains(formations, l.Formation) || !contains(outcomes, l.Outcome) {
		return Label{}, fmt.Errorf("%w: '%s' has a token outside the vocabulary", ErrInvalidLabel, s)
	}

	return l, nil
}

func contains[T comparable](vocab []T, v T) bool {
	for _, x := range vocab {
		if x == v {
			return true
		}
	}
	return false
}
