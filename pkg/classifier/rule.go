//Package classifier holds the shot classifiers: a rule based random
//generator, ONNX exports of the trained CNNs, and a Gemini multimodal call.
package classifier

import (
	"context"
	"math/rand"
	"sync"

	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
)

//RuleID is the registry id of the rule based classifier, also the registry fallback.
const RuleID = "random"

var (
	ruleShotTypes  = []label.ShotType{label.Volley, label.Lob, label.Smash, label.Swing}
	ruleServes     = []label.Direction{label.ServeT, label.ServeBody, label.ServeWide}
	ruleFormations = []label.Formation{label.Conventional, label.IFormation, label.Australian}
	regularStrokes = []label.Direction{label.CrossCourt, label.DownTheLine}
	insideStrokes  = []label.Direction{label.InsideIn, label.InsideOut}
	anyStroke      = []label.Direction{label.CrossCourt, label.DownTheLine, label.InsideOut, label.InsideIn}
)

//Rule draws plausible shot components: side weighted by handedness and court
//side, direction restricted to what the stroke allows. Deterministic for a seeded source.
type Rule struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRule(rng *rand.Rand) *Rule {
	return &Rule{rng: rng}
}

func (r *Rule) Name() string {
	return RuleID
}

func (r *Rule) Classify(_ context.Context, role shot.RoleContext, _ shot.Crops) (shot.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var p shot.Prediction
	p.Side = r.side(role.Handedness, role.CourtPosition.CourtSide())

	switch {
	case role.IsServe:
		p.ShotType = label.Serve
		p.Direction = ruleServes[r.rng.Intn(len(ruleServes))]
		p.Formation = ruleFormations[r.rng.Intn(len(ruleFormations))]
	default:
		p.ShotType = ruleShotTypes[r.rng.Intn(len(ruleShotTypes))]
		if role.IsReturn {
			p.ShotType = label.Return
		}
		p.Formation = label.NonServe
		directions := strokeDirections(role.Handedness, role.CourtPosition.CourtSide(), p.Side)
		p.Direction = directions[r.rng.Intn(len(directions))]
	}

	p.Outcome = label.In
	if role.IsLast {
		p.Outcome = label.Err
		if r.rng.Intn(2) == 0 {
			p.Outcome = label.Win
		}
	}
	return p, nil
}

//side returns forehand with 70% for the forehand court of a known handedness (ad for right handed, deuce for left handed),
//30% for the other one and 50% when handedness is unknown
func (r *Rule) side(h label.Handedness, courtSide string) label.Side {
	forehandWeight := 0.5
	switch {
	case h == label.Right && courtSide == "ad", h == label.Left && courtSide == "deuce":
		forehandWeight = 0.7
	case h == label.Right, h == label.Left:
		forehandWeight = 0.3
	}

	if r.rng.Float64() < forehandWeight {
		return label.Forehand
	}
	return label.Backhand
}

//strokeDirections returns the directions a groundstroke can take: inside strokes (around the body) go ii/io, regular ones cc/dl
func strokeDirections(h label.Handedness, courtSide string, side label.Side) []label.Direction {
	switch h {
	case label.Right:
		if (courtSide == "deuce") == (side == label.Forehand) {
			return regularStrokes
		}
		return insideStrokes
	case label.Left:
		if (courtSide == "ad") == (side == label.Forehand) {
			return regularStrokes
		}
		return insideStrokes
	default:
		return anyStroke
	}
}
