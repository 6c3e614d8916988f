package shot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"facette.io/natsort"
	"github.com/chenBenjamin97/shot-labeler/pkg/court"
	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"go.uber.org/zap"
)

var (
	regularShotTypes = []label.ShotType{label.Volley, label.Lob, label.Smash, label.Swing}
	serveFormations  = []label.Formation{label.Conventional, label.IFormation, label.Australian}
)

//Labeler turns rallies into labelled events. It is not safe for concurrent use
//because every fallback draws from one random source.
type Labeler struct {
	classifier   Classifier
	cfg          config
	descriptions roster.Descriptions
}

//NewLabeler returns a Labeler asking c for shot components. c may be nil, in
//which case the fallback classifier (if any) and the defaults are used.
func NewLabeler(c Classifier, opts ...Option) *Labeler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &Labeler{classifier: c, cfg: cfg}
	switch {
	case cfg.descriptions != nil:
		l.descriptions = *cfg.descriptions
	case len(cfg.roster) > 0:
		l.descriptions = cfg.roster.Descriptions()
	default:
		logger.Logger.Info("NewLabeler: No roster, using randomly generated player descriptions")
		l.descriptions = roster.RandomDescriptions(cfg.rng)
	}
	return l
}

//Descriptions returns the player descriptions attached to every rally.
func (l *Labeler) Descriptions() roster.Descriptions {
	return l.descriptions
}

//LabelVideo labels every rally of a video in natural order of the rally ids.
//Rallies without hitting moments or without any labelled event are skipped.
//A cancelled ctx stops labelling between rallies; the rallies done so far are returned with the error.
func (l *Labeler) LabelVideo(ctx context.Context, videoID string, rallies *RalliesFile) (*VideoLabels, error) {
	if rallies == nil {
		return nil, errors.New("LabelVideo: missing rallies document")
	}

	ids := make([]string, 0, len(rallies.Rallies))
	for id := range rallies.Rallies {
		ids = append(ids, id)
	}
	natsort.Sort(ids)

	out := &VideoLabels{VideoID: videoID, Rallies: make([]RallyLabel, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("LabelVideo: stopped before rally '%s': %w", id, err)
		}

		rally := rallies.Rallies[id]
		if len(rally.HittingMoments) == 0 {
			logger.Logger.Info("LabelVideo: No hitting moments, skipping rally", zap.String("rally", id))
			continue
		}

		logger.Logger.Debug("LabelVideo: Processing rally", zap.String("video", videoID), zap.String("rally", id))
		rallyLabel, err := l.LabelRally(ctx, rally, rallies.NetPosition)
		if err != nil {
			logger.Logger.Warn("LabelVideo: Skipping rally", zap.String("rally", id), zap.Error(err))
			continue
		}

		logger.Logger.Info("LabelVideo: Labelled rally", zap.String("rally", id), zap.Int("events", len(rallyLabel.Events)))
		out.Rallies = append(out.Rallies, *rallyLabel)
	}

	return out, nil
}

//LabelRally labels every hitting moment of a rally, ascending by frame. The
//rally's own net position, when set, takes precedence over net.
//A moment that cannot be labelled is skipped; ErrEmptyRally is returned when none could.
func (l *Labeler) LabelRally(ctx context.Context, rally Rally, net *utils.Point) (*RallyLabel, error) {
	if rally.NetPosition != nil {
		net = rally.NetPosition
	}

	moments := make([]HittingMoment, len(rally.HittingMoments))
	copy(moments, rally.HittingMoments)
	sort.SliceStable(moments, func(i, j int) bool {
		return moments[i].FrameNumber < moments[j].FrameNumber
	})

	events := make([]Event, 0, len(moments))
	for i := range moments {
		event, err := l.labelMoment(ctx, rally, moments, i, net)
		if err != nil {
			logger.Logger.Warn("LabelRally: Skipping hitting moment", zap.Int("frame", moments[i].FrameNumber), zap.Error(err))
			continue
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return nil, ErrEmptyRally
	}

	return &RallyLabel{PlayerDescriptions: l.descriptions, Events: events, NetPosition: net}, nil
}

func (l *Labeler) labelMoment(ctx context.Context, rally Rally, moments []HittingMoment, i int, net *utils.Point) (event Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("labelMoment: recovered from '%v'", r)
		}
	}()

	moment := moments[i]
	n := len(moments)
	role := RoleContext{
		Index:    i,
		Total:    n,
		IsServe:  i == 0,
		IsReturn: i == 1,
		IsLast:   i == n-1,
		Frame:    moment.FrameNumber,
	}

	var next *HittingMoment
	end := rally.EndBallPosition
	if !role.IsLast {
		next = &moments[i+1]
		end = next.PlayerPosition
	}

	boxes := l.frameBoxes(moment.FrameNumber)
	id, playerIdx, partnerIdx := l.resolvePlayer(moment, boxes)

	role.PlayerID = utils.PlayerID(id)
	role.Handedness = l.cfg.roster.Handedness(role.PlayerID)
	role.CourtPosition = court.GetCourtPosition(net, moment.PlayerPosition, l.cfg.rng)

	crops := l.crops(ctx, CropRequest{
		Frame:      moment.FrameNumber,
		AheadFrame: moment.FrameNumber + l.cfg.framesAhead,
		PlayerID:   id,
		Player:     boxAt(boxes, playerIdx),
		Partner:    boxAt(boxes, partnerIdx),
		Next:       next,
	})
	pred := l.classify(ctx, role, crops)

	shotLabel := label.Label{
		CourtPosition: role.CourtPosition,
		Side:          resolveSide(role, pred),
		ShotType:      resolveShotType(role, pred),
		Formation:     resolveFormation(role, pred),
	}
	shotLabel.Direction = l.resolveDirection(role, pred, shotLabel.Side, net, moment.PlayerPosition, end)
	shotLabel.Outcome = l.resolveOutcome(role, pred)

	return Event{
		Player:         role.PlayerID,
		Frame:          moment.FrameNumber,
		Label:          shotLabel.String(),
		Outcome:        shotLabel.Outcome,
		Handedness:     role.Handedness,
		PlayerPosition: moment.PlayerPosition,
	}, nil
}

//frameBoxes returns the normalized detector boxes of frame, nil when there are none
func (l *Labeler) frameBoxes(frame int) []detection.BoundingBox {
	if len(l.cfg.frames) == 0 {
		return nil
	}

	boxes, err := detection.LocateBoxes(l.cfg.frames, frame)
	if err != nil {
		logger.Logger.Debug("frameBoxes: No boxes", zap.Int("frame", frame), zap.Error(err))
		return nil
	}
	return boxes
}

//resolvePlayer returns the player id of a hitting moment and, when frame boxes exist, the indexes of the player and partner boxes.
//Order: explicit playerId, largest box of the moment, Player Matcher, random id.
func (l *Labeler) resolvePlayer(moment HittingMoment, boxes []detection.BoundingBox) (int, int, int) {
	if id, ok := l.playerFromMoment(moment); ok {
		player, partner := detection.FindHittingPlayersByIdentity(boxes, l.cfg.roster, id, moment.PlayerPosition)
		return id, player, partner
	}

	player, partner := utils.NotFound, utils.NotFound
	if len(boxes) > 0 && moment.PlayerPosition != nil {
		player, partner = detection.FindHittingPlayers(boxes, *moment.PlayerPosition)
		if id, ok := detection.IdentifyBox(boxes[player], l.cfg.roster); ok {
			return id, player, partner
		}
	}

	id := 1 + l.cfg.rng.Intn(utils.RosterSize)
	logger.Logger.Warn("resolvePlayer: Unable to extract player from hitting moment, using random player",
		zap.Int("frame", moment.FrameNumber), zap.String("player", utils.PlayerID(id)))
	return id, player, partner
}

//playerFromMoment reads the player id from the moment itself: playerId, else the identity of its largest box
func (l *Labeler) playerFromMoment(moment HittingMoment) (int, bool) {
	if moment.PlayerID != nil {
		return *moment.PlayerID, true
	}

	boxes := detection.NormalizeBoxes(moment.BoundingBoxes)
	if len(boxes) == 0 {
		return 0, false
	}

	largest := boxes[0]
	for _, box := range boxes[1:] {
		if box.Area() > largest.Area() {
			largest = box
		}
	}
	return detection.IdentifyBox(largest, l.cfg.roster)
}

func boxAt(boxes []detection.BoundingBox, i int) *detection.BoundingBox {
	if i < 0 || i >= len(boxes) {
		return nil
	}
	box := boxes[i]
	return &box
}

func (l *Labeler) crops(ctx context.Context, req CropRequest) Crops {
	if l.cfg.crops == nil {
		return Crops{}
	}

	crops, err := l.cfg.crops.Crops(ctx, req)
	if err != nil {
		logger.Logger.Warn("crops: Could not extract player images", zap.Int("frame", req.Frame), zap.Error(err))
		return Crops{}
	}
	return crops
}

//classify asks the classifier, then the fallback. With neither answering every component is left to its default.
func (l *Labeler) classify(ctx context.Context, role RoleContext, crops Crops) Prediction {
	for _, c := range []Classifier{l.classifier, l.cfg.fallback} {
		if c == nil {
			continue
		}

		pred, err := c.Classify(ctx, role, crops)
		if err == nil {
			return pred
		}
		logger.Logger.Warn("classify: Classifier failed", zap.String("classifier", c.Name()), zap.Int("frame", role.Frame), zap.Error(err))
	}
	return Prediction{}
}

func resolveSide(role RoleContext, pred Prediction) label.Side {
	if role.IsServe {
		return label.Forehand
	}
	if pred.Side == label.Forehand || pred.Side == label.Backhand {
		return pred.Side
	}
	return label.Forehand
}

func resolveShotType(role RoleContext, pred Prediction) label.ShotType {
	switch {
	case role.IsServe:
		return label.Serve
	case role.IsReturn:
		return label.Return
	}
	for _, t := range regularShotTypes {
		if pred.ShotType == t {
			return t
		}
	}
	return label.Swing
}

func resolveFormation(role RoleContext, pred Prediction) label.Formation {
	if !role.IsServe {
		return label.NonServe
	}
	for _, f := range serveFormations {
		if pred.Formation == f {
			return f
		}
	}
	return label.Conventional
}

//resolveDirection reads the direction tables when the shot's start and end positions are known,
//otherwise it remaps the classifier's coarse cross-court/down-the-line guess
func (l *Labeler) resolveDirection(role RoleContext, pred Prediction, side label.Side, net, start, end *utils.Point) label.Direction {
	if role.IsServe {
		if pred.Direction.IsServeDirection() {
			return pred.Direction
		}
		return label.ServeT
	}

	if net != nil && start != nil && end != nil {
		endPosition := court.GetCourtPosition(net, end, l.cfg.rng)
		return court.GetShotDirection(role.Handedness, side, role.CourtPosition, endPosition)
	}

	switch pred.Direction {
	case label.InsideIn, label.InsideOut:
		return pred.Direction
	case label.DownTheLine:
		return court.CorrectDirectionByStrategy(label.DownTheLine, role.CourtPosition, side, role.Handedness)
	default:
		return court.CorrectDirectionByStrategy(label.CrossCourt, role.CourtPosition, side, role.Handedness)
	}
}

func (l *Labeler) resolveOutcome(role RoleContext, pred Prediction) label.Outcome {
	if !role.IsLast {
		return label.In
	}
	if pred.Outcome.IsTerminal() {
		return pred.Outcome
	}
	if l.cfg.rng.Intn(2) == 0 {
		return label.Win
	}
	return label.Err
}
