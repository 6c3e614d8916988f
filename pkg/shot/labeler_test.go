package shot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	pred    Prediction
	err     error
	panicAt int
	roles   []RoleContext
	crops   []Crops
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) Classify(_ context.Context, role RoleContext, crops Crops) (Prediction, error) {
	if s.panicAt != 0 && role.Frame == s.panicAt {
		panic("broken moment")
	}
	s.roles = append(s.roles, role)
	s.crops = append(s.crops, crops)
	return s.pred, s.err
}

type recordingCropSource struct {
	requests []CropRequest
	err      error
}

func (r *recordingCropSource) Crops(_ context.Context, req CropRequest) (Crops, error) {
	r.requests = append(r.requests, req)
	return Crops{}, r.err
}

func point(x, y float64) *utils.Point {
	return &utils.Point{X: x, Y: y}
}

func intPtr(v int) *int {
	return &v
}

func seeded(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

func scenarioRally() Rally {
	return Rally{
		HittingMoments: []HittingMoment{
			{FrameNumber: 10, PlayerPosition: point(300, 500)},
			{FrameNumber: 40, PlayerPosition: point(900, 200)},
			{FrameNumber: 70, PlayerPosition: point(300, 520)},
		},
		EndFrame:        intPtr(90),
		EndBallPosition: point(950, 150),
	}
}

func TestLabelRallyScenario(t *testing.T) {
	t.Parallel()

	l := NewLabeler(nil, seeded(7))
	out, err := l.LabelRally(context.Background(), scenarioRally(), point(640, 360))
	require.NoError(t, err)
	require.Len(t, out.Events, 3)

	assert.Equal(t, "near_deuce_forehand_serve_t_conventional_in", out.Events[0].Label)
	assert.Equal(t, "far_ad_forehand_return_cc_non-serve_in", out.Events[1].Label)
	assert.True(t, strings.HasPrefix(out.Events[2].Label, "near_deuce_forehand_swing_cc_non-serve_"))
	assert.True(t, out.Events[2].Outcome.IsTerminal())

	for i, e := range out.Events {
		assert.Equal(t, label.Unknown, e.Handedness)
		assert.Equal(t, scenarioRally().HittingMoments[i].FrameNumber, e.Frame)
		id, err := utils.ParsePlayerID(e.Player)
		require.NoError(t, err)
		assert.True(t, id >= 1 && id <= utils.RosterSize)
	}
	assert.Equal(t, point(640, 360), out.NetPosition)
	assert.Len(t, out.PlayerDescriptions.Descriptions, utils.RosterSize)
}

func TestLabelRallyInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(8)
		rally := Rally{}
		for i := 0; i < n; i++ {
			m := HittingMoment{FrameNumber: rng.Intn(1000)}
			if rng.Intn(4) > 0 {
				m.PlayerPosition = point(rng.Float64()*1280, rng.Float64()*720)
			}
			rally.HittingMoments = append(rally.HittingMoments, m)
		}
		if rng.Intn(2) == 0 {
			rally.EndBallPosition = point(rng.Float64()*1280, rng.Float64()*720)
		}

		var net *utils.Point
		if rng.Intn(5) > 0 {
			net = point(640, 360)
		}

		l := NewLabeler(&stubClassifier{}, seeded(int64(trial)))
		out, err := l.LabelRally(context.Background(), rally, net)
		require.NoError(t, err)
		require.LessOrEqual(t, len(out.Events), n)
		require.Len(t, out.Events, n)

		for i, e := range out.Events {
			parsed, err := label.Parse(e.Label)
			require.NoError(t, err, e.Label)
			assert.Equal(t, e.Label, parsed.String())
			assert.Equal(t, parsed.Outcome, e.Outcome)

			switch {
			case i == 0:
				assert.Equal(t, label.Serve, parsed.ShotType)
				assert.True(t, parsed.Direction.IsServeDirection())
			case i == 1:
				assert.Equal(t, label.Return, parsed.ShotType)
			}
			if i > 0 {
				assert.Equal(t, label.NonServe, parsed.Formation)
				assert.False(t, parsed.Direction.IsServeDirection())
			}

			if i < n-1 {
				assert.Equal(t, label.In, e.Outcome)
			} else {
				assert.True(t, e.Outcome.IsTerminal())
			}
		}

		for i := 1; i < n; i++ {
			assert.LessOrEqual(t, out.Events[i-1].Frame, out.Events[i].Frame)
		}
	}
}

func TestLabelRallyIdempotent(t *testing.T) {
	t.Parallel()

	r := roster.Roster{
		{ID: 1, Name: "red shirt", Handedness: label.Right},
		{ID: 2, Name: "blue hat", Handedness: label.Left},
	}
	rally := scenarioRally()
	for i := range rally.HittingMoments {
		rally.HittingMoments[i].PlayerID = intPtr(1 + i%2)
	}

	stub := &stubClassifier{pred: Prediction{Side: label.Backhand, ShotType: label.Volley, Direction: label.ServeWide, Outcome: label.Win}}
	l := NewLabeler(stub, WithRoster(r), seeded(1))

	first, err := l.LabelRally(context.Background(), rally, point(640, 360))
	require.NoError(t, err)
	second, err := l.LabelRally(context.Background(), rally, point(640, 360))
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	if diff := cmp.Diff(string(firstJSON), string(secondJSON)); diff != "" {
		t.Errorf("labelling twice differs (-first +second):\n%s", diff)
	}

	assert.Equal(t, "near_deuce_forehand_serve_w_conventional_in", first.Events[0].Label)
	assert.Equal(t, label.Right, first.Events[0].Handedness)
	assert.Equal(t, "p2", first.Events[1].Player)
	assert.Equal(t, label.Left, first.Events[1].Handedness)
	assert.Equal(t, map[string]string{"p1": "red shirt", "p2": "blue hat"}, first.PlayerDescriptions.Descriptions)
}

func TestLabelRallyDirectionTable(t *testing.T) {
	t.Parallel()

	r := roster.Roster{{ID: 1, Handedness: label.Right}, {ID: 2, Handedness: label.Right}}
	rally := Rally{HittingMoments: []HittingMoment{
		{FrameNumber: 1, PlayerID: intPtr(2), PlayerPosition: point(900, 200)},
		{FrameNumber: 2, PlayerID: intPtr(1), PlayerPosition: point(300, 500)},
		{FrameNumber: 3, PlayerID: intPtr(2), PlayerPosition: point(300, 200)},
	}}

	//right handed backhand from deuce to deuce is inside-in; last shot has no end, so dl is corrected for a
	//right handed backhand from deuce into inside-in as well
	stub := &stubClassifier{pred: Prediction{Side: label.Backhand, Direction: label.DownTheLine, Outcome: label.Err}}
	out, err := NewLabeler(stub, WithRoster(r), seeded(3)).LabelRally(context.Background(), rally, point(640, 360))
	require.NoError(t, err)
	require.Len(t, out.Events, 3)

	assert.Equal(t, "near_deuce_backhand_return_ii_non-serve_in", out.Events[1].Label)
	assert.Equal(t, "far_deuce_backhand_swing_ii_non-serve_err", out.Events[2].Label)
}

func TestLabelRallyStrategyCorrectionWithoutEnd(t *testing.T) {
	t.Parallel()

	r := roster.Roster{{ID: 1, Handedness: label.Right}}
	rally := Rally{HittingMoments: []HittingMoment{
		{FrameNumber: 1, PlayerID: intPtr(1), PlayerPosition: point(300, 500)},
		{FrameNumber: 2, PlayerID: intPtr(1), PlayerPosition: point(900, 200)},
	}}

	cases := []struct {
		pred Prediction
		want label.Direction
	}{
		{Prediction{Side: label.Forehand, Direction: label.DownTheLine}, label.InsideIn},
		{Prediction{Side: label.Forehand, Direction: label.CrossCourt}, label.InsideOut},
		{Prediction{Side: label.Forehand}, label.InsideOut},
		{Prediction{Side: label.Backhand, Direction: label.DownTheLine}, label.DownTheLine},
		{Prediction{Side: label.Backhand}, label.CrossCourt},
	}

	for _, c := range cases {
		out, err := NewLabeler(&stubClassifier{pred: c.pred}, WithRoster(r), seeded(5)).LabelRally(context.Background(), rally, point(640, 360))
		require.NoError(t, err)
		parsed, err := label.Parse(out.Events[1].Label)
		require.NoError(t, err)
		assert.Equal(t, c.want, parsed.Direction, "%+v", c.pred)
	}
}

func TestLabelRallyFailureIsolation(t *testing.T) {
	t.Parallel()

	stub := &stubClassifier{panicAt: 40}
	out, err := NewLabeler(stub, seeded(2)).LabelRally(context.Background(), scenarioRally(), point(640, 360))
	require.NoError(t, err)
	require.Len(t, out.Events, 2)
	assert.Equal(t, 10, out.Events[0].Frame)
	assert.Equal(t, 70, out.Events[1].Frame)

	_, err = NewLabeler(&stubClassifier{panicAt: 10}, seeded(2)).LabelRally(context.Background(),
		Rally{HittingMoments: []HittingMoment{{FrameNumber: 10}}}, nil)
	assert.True(t, errors.Is(err, ErrEmptyRally))

	_, err = NewLabeler(nil, seeded(2)).LabelRally(context.Background(), Rally{}, nil)
	assert.True(t, errors.Is(err, ErrEmptyRally))
}

func TestLabelRallyFallbackClassifier(t *testing.T) {
	t.Parallel()

	failing := &stubClassifier{err: fmt.Errorf("%w: no model", ErrClassifierUnavailable)}
	fallback := &stubClassifier{pred: Prediction{Side: label.Backhand, ShotType: label.Lob, Outcome: label.Win}}

	rally := scenarioRally()
	out, err := NewLabeler(failing, WithFallback(fallback), seeded(9)).LabelRally(context.Background(), rally, point(640, 360))
	require.NoError(t, err)
	assert.Len(t, failing.roles, 3)
	assert.Len(t, fallback.roles, 3)
	assert.Equal(t, label.Win, out.Events[2].Outcome)
	assert.Contains(t, out.Events[2].Label, "_backhand_lob_")

	//no fallback: defaults
	out, err = NewLabeler(failing, seeded(9)).LabelRally(context.Background(), rally, point(640, 360))
	require.NoError(t, err)
	assert.Contains(t, out.Events[2].Label, "_forehand_swing_")
}

func TestLabelRallyRoleContext(t *testing.T) {
	t.Parallel()

	stub := &stubClassifier{}
	rally := scenarioRally()
	rally.HittingMoments[0], rally.HittingMoments[2] = rally.HittingMoments[2], rally.HittingMoments[0]

	_, err := NewLabeler(stub, seeded(4)).LabelRally(context.Background(), rally, point(640, 360))
	require.NoError(t, err)
	require.Len(t, stub.roles, 3)

	assert.True(t, stub.roles[0].IsServe)
	assert.Equal(t, 10, stub.roles[0].Frame)
	assert.True(t, stub.roles[1].IsReturn)
	assert.True(t, stub.roles[2].IsLast)
	assert.Equal(t, label.NearDeuce, stub.roles[0].CourtPosition)
	assert.Equal(t, label.FarAd, stub.roles[1].CourtPosition)
	for _, r := range stub.roles {
		assert.Equal(t, 3, r.Total)
	}
}

func TestResolvePlayerChain(t *testing.T) {
	t.Parallel()

	r := roster.Roster{{ID: 1, Name: "white shirt"}, {ID: 2, Name: "red hat"}, {ID: 3, Name: "green shoes"}}
	frames := detection.Frames{
		"frame_0010": {
			{Coords: []float64{100, 400, 140, 500}, Label: "white shirt"},
			{Coords: []float64{600, 400, 640, 500}, Label: "red hat"},
			{Coords: []float64{120, 100, 150, 160}, Label: "green shoes"},
		},
	}
	l := NewLabeler(nil, WithRoster(r), WithFrames(frames), seeded(11))
	boxes := l.frameBoxes(10)
	require.Len(t, boxes, 3)

	//explicit id wins, boxes found by label
	id, player, partner := l.resolvePlayer(HittingMoment{FrameNumber: 10, PlayerID: intPtr(2), PlayerPosition: point(110, 450)}, boxes)
	assert.Equal(t, 2, id)
	assert.Equal(t, 1, player)
	assert.Equal(t, 2, partner)

	//largest box of the moment with a category id
	cat := 3
	moment := HittingMoment{FrameNumber: 10, BoundingBoxes: []detection.RawBox{
		{Coords: []float64{0, 0, 10, 10}, CategoryID: intPtr(4)},
		{Coords: []float64{0, 0, 50, 50}, CategoryID: &cat},
	}}
	id, _, _ = l.resolvePlayer(moment, boxes)
	assert.Equal(t, 3, id)

	//player matcher on frame boxes, identified by roster name
	id, player, partner = l.resolvePlayer(HittingMoment{FrameNumber: 10, PlayerPosition: point(620, 460)}, boxes)
	assert.Equal(t, 2, id)
	assert.Equal(t, 1, player)
	assert.Equal(t, 2, partner)

	//nothing known: random id in [1,4]
	for i := 0; i < 50; i++ {
		id, player, partner = l.resolvePlayer(HittingMoment{FrameNumber: 99}, nil)
		assert.True(t, id >= 1 && id <= utils.RosterSize)
		assert.Equal(t, utils.NotFound, player)
		assert.Equal(t, utils.NotFound, partner)
	}
}

func TestLabelRallyCropRequests(t *testing.T) {
	t.Parallel()

	frames := detection.Frames{
		"10": {{Coords: []float64{250, 450, 350, 550}}, {Coords: []float64{280, 100, 320, 160}}},
	}
	source := &recordingCropSource{}
	_, err := NewLabeler(&stubClassifier{}, WithFrames(frames), WithCropSource(source), WithNFramesAhead(5), seeded(6)).
		LabelRally(context.Background(), scenarioRally(), point(640, 360))
	require.NoError(t, err)
	require.Len(t, source.requests, 3)

	first := source.requests[0]
	assert.Equal(t, 10, first.Frame)
	assert.Equal(t, 15, first.AheadFrame)
	require.NotNil(t, first.Player)
	assert.Equal(t, 250.0, first.Player.X1)
	require.NotNil(t, first.Partner)
	assert.Equal(t, 280.0, first.Partner.X1)
	require.NotNil(t, first.Next)
	assert.Equal(t, 40, first.Next.FrameNumber)

	//frame 40 has no boxes
	assert.Nil(t, source.requests[1].Player)
	assert.Nil(t, source.requests[2].Next)

	//a failing crop source does not fail the rally
	out, err := NewLabeler(&stubClassifier{}, WithCropSource(&recordingCropSource{err: errors.New("no frame")}), seeded(6)).
		LabelRally(context.Background(), scenarioRally(), point(640, 360))
	require.NoError(t, err)
	assert.Len(t, out.Events, 3)
}

func TestLabelVideo(t *testing.T) {
	t.Parallel()

	ralliesFile := &RalliesFile{
		NetPosition: point(640, 360),
		Rallies: map[string]Rally{
			"rally_10": scenarioRally(),
			"rally_2":  {NetPosition: point(0, 0), HittingMoments: scenarioRally().HittingMoments[:1]},
			"rally_3":  {},
		},
	}

	out, err := NewLabeler(nil, seeded(8)).LabelVideo(context.Background(), "match_01", ralliesFile)
	require.NoError(t, err)
	assert.Equal(t, "match_01", out.VideoID)
	require.Len(t, out.Rallies, 2)

	//rally_2 first, with its own net position: (300,500) is right of and below (0,0)
	assert.Equal(t, point(0, 0), out.Rallies[0].NetPosition)
	assert.True(t, strings.HasPrefix(out.Rallies[0].Events[0].Label, "near_ad_"))
	assert.Len(t, out.Rallies[1].Events, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err = NewLabeler(nil, seeded(8)).LabelVideo(ctx, "match_01", ralliesFile)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, out.Rallies)

	_, err = NewLabeler(nil).LabelVideo(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestLoadRallies(t *testing.T) {
	t.Parallel()

	body := `{"netPosition":{"x":640,"y":360},"rallies":{"1":{"hittingMoments":[` +
		`{"frameNumber":40,"playerPosition":{"x":900,"y":200}},` +
		`{"frameNumber":10,"playerId":3,"boundingBoxes":[{"bbox":[1,2,30,40],"category_id":3}]}],` +
		`"endFrame":90,"endBallPosition":{"x":950,"y":150}}}}`
	path := filepath.Join(t.TempDir(), "match_rallies.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	f, err := LoadRallies(path)
	require.NoError(t, err)
	assert.Equal(t, point(640, 360), f.NetPosition)
	rally := f.Rallies["1"]
	require.Len(t, rally.HittingMoments, 2)
	assert.Equal(t, 3, *rally.HittingMoments[1].PlayerID)
	assert.Equal(t, []float64{1, 2, 30, 40}, rally.HittingMoments[1].BoundingBoxes[0].Coords)
	assert.Equal(t, 90, *rally.EndFrame)

	_, err = LoadRallies(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEventJSON(t *testing.T) {
	t.Parallel()

	e := Event{Player: "p1", Frame: 10, Label: "near_deuce_forehand_serve_t_conventional_in", Outcome: label.In, Handedness: label.Right}
	data, err := json.Marshal(RallyLabel{Events: []Event{e}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"player_descriptions":{"descriptions":null,"handedness":null},"events":[`+
		`{"player":"p1","frame":10,"label":"near_deuce_forehand_serve_t_conventional_in","outcome":"in","handedness":"right"}]}`, string(data))
}
