package detection

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(coords ...float64) RawBox {
	return RawBox{Coords: coords}
}

func TestFindFrameKeyFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key   string
		frame int
	}{
		{"42", 42},
		{"0042", 42},
		{"000042", 42},
		{"frame_42", 42},
		{"frame_0042", 42},
		{"frame_000042", 42},
		{"video_a_00042", 42},
		{"img_0042.jpg", 42},
	}

	for _, c := range cases {
		frames := Frames{c.key: {raw(1, 2, 3, 4)}, "7": {}}
		key, err := FindFrameKey(frames, c.frame)
		require.NoError(t, err, c.key)
		assert.Equal(t, c.key, key)
	}
}

func TestFindFrameKeyPriority(t *testing.T) {
	t.Parallel()

	frames := Frames{"frame_0010": {}, "0010": {}, "10": {}}
	key, err := FindFrameKey(frames, 10)
	require.NoError(t, err)
	assert.Equal(t, "10", key)

	delete(frames, "10")
	key, err = FindFrameKey(frames, 10)
	require.NoError(t, err)
	assert.Equal(t, "0010", key)
}

func TestFindFrameKeyNotFound(t *testing.T) {
	t.Parallel()

	_, err := FindFrameKey(Frames{"frame_11": {}, "abc": {}}, 10)
	assert.True(t, errors.Is(err, ErrFrameNotFound))
}

func TestNormalizeBox(t *testing.T) {
	t.Parallel()

	box, err := NormalizeBox(raw(100, 100, 50, 80))
	require.NoError(t, err)
	assert.Equal(t, [4]float64{100, 100, 150, 180}, [4]float64{box.X1, box.Y1, box.X2, box.Y2})

	box, err = NormalizeBox(raw(10, 20, 110, 220))
	require.NoError(t, err)
	assert.Equal(t, [4]float64{10, 20, 110, 220}, [4]float64{box.X1, box.Y1, box.X2, box.Y2})

	//near the origin [x,y,w,h] is read as corners
	box, err = NormalizeBox(raw(5, 5, 40, 60))
	require.NoError(t, err)
	assert.Equal(t, 40.0, box.X2)

	for _, bad := range []RawBox{raw(1, 2, 3), raw(100, 100, 0, 0), raw(0, 0, 0, 0), raw(100, 100, -5, 10)} {
		_, err := NormalizeBox(bad)
		assert.True(t, errors.Is(err, ErrMalformedBox), "%v", bad.Coords)
	}
}

func TestNormalizeBoxXYWHAlwaysOrdered(t *testing.T) {
	t.Parallel()

	for x := 50.0; x < 1000; x += 97 {
		for w := 1.0; w < x; w += 13 {
			box, err := NormalizeBox(raw(x, x, w, w/2+0.5))
			require.NoError(t, err)
			assert.Less(t, box.X1, box.X2)
			assert.Less(t, box.Y1, box.Y2)
		}
	}
}

func TestNormalizeBoxesKeepsMetadata(t *testing.T) {
	t.Parallel()

	conf := 0.9
	cat := 2
	boxes := NormalizeBoxes([]RawBox{
		{Coords: []float64{1, 1, 1}},
		{Coords: []float64{10, 10, 20, 20}, Label: "red hat", Confidence: &conf, CategoryID: &cat},
	})
	require.Len(t, boxes, 1)
	assert.Equal(t, "red hat", boxes[0].Label)
	assert.Equal(t, 0.9, *boxes[0].Confidence)
	assert.Equal(t, 2, *boxes[0].CategoryID)
}

func TestRawBoxJSON(t *testing.T) {
	t.Parallel()

	var frames Frames
	body := `{"frame_0001":[[1,2,3,4],{"bbox":[5,6,7,8],"label":"p","score":0.5,"category_id":3}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &frames))

	boxes := frames["frame_0001"]
	require.Len(t, boxes, 2)
	assert.Equal(t, []float64{1, 2, 3, 4}, boxes[0].Coords)
	assert.Equal(t, "p", boxes[1].Label)
	assert.Equal(t, 0.5, *boxes[1].Confidence)
	assert.Equal(t, 3, *boxes[1].CategoryID)

	out, err := json.Marshal(boxes[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"bbox":[5,6,7,8],"label":"p","confidence":0.5,"category_id":3}`, string(out))
}

func TestLocateBoxes(t *testing.T) {
	t.Parallel()

	boxes, err := LocateBoxes(Frames{"frame_0005": {raw(0, 0, 10, 10), raw(5, 5, 0, 0)}}, 5)
	require.NoError(t, err)
	assert.Len(t, boxes, 1)

	_, err = LocateBoxes(Frames{}, 5)
	assert.True(t, errors.Is(err, ErrFrameNotFound))
}

func box(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestFindHittingPlayer(t *testing.T) {
	t.Parallel()

	boxes := []BoundingBox{box(0, 0, 10, 10), box(100, 100, 110, 110), box(100, 100, 110, 110)}
	assert.Equal(t, 1, FindHittingPlayer(boxes, utils.Point{X: 90, Y: 90}))
	assert.Equal(t, 0, FindHittingPlayer(boxes, utils.Point{X: 0, Y: 0}))
	assert.Equal(t, utils.NotFound, FindHittingPlayer(nil, utils.Point{}))
}

func TestFindHittingPlayers(t *testing.T) {
	t.Parallel()

	boxes := []BoundingBox{
		box(100, 400, 140, 500), //near, left
		box(600, 400, 640, 500), //near, right
		box(120, 100, 150, 160), //far, left
		box(610, 100, 640, 160), //far, right
	}

	player, partner := FindHittingPlayers(boxes, utils.Point{X: 110, Y: 450})
	assert.Equal(t, 0, player)
	assert.Equal(t, 2, partner)

	player, partner = FindHittingPlayers(boxes[:1], utils.Point{})
	assert.Equal(t, 0, player)
	assert.Equal(t, utils.NotFound, partner)

	player, partner = FindHittingPlayers(nil, utils.Point{})
	assert.Equal(t, utils.NotFound, player)
	assert.Equal(t, utils.NotFound, partner)
}

func TestFindHittingPlayersByIdentity(t *testing.T) {
	t.Parallel()

	r := roster.Roster{
		{ID: 1, Name: "white shirt", Handedness: label.Right},
		{ID: 2, Name: "red hat", Handedness: label.Left},
	}
	boxes := []BoundingBox{
		box(100, 400, 140, 500),
		{X1: 600, Y1: 400, X2: 640, Y2: 500, Label: "red hat"},
		box(590, 100, 620, 160),
		{X1: 100, Y1: 100, X2: 130, Y2: 160, Label: "white shirt"},
	}

	//player by label, partner is the x-closest roster-labelled box even if an unlabelled one is closer
	player, partner := FindHittingPlayersByIdentity(boxes, r, 2, nil)
	assert.Equal(t, 1, player)
	assert.Equal(t, 3, partner)

	//category id identifies the player when labels do not
	cat := 9
	withCategory := append([]BoundingBox{}, boxes...)
	withCategory[2].CategoryID = &cat
	player, _ = FindHittingPlayersByIdentity(withCategory, r, 9, nil)
	assert.Equal(t, 2, player)

	//unknown identity falls back to geometry
	pos := utils.Point{X: 120, Y: 450}
	player, partner = FindHittingPlayersByIdentity(boxes, r, 5, &pos)
	assert.Equal(t, 0, player)
	assert.Equal(t, 3, partner)

	player, partner = FindHittingPlayersByIdentity(boxes, r, 5, nil)
	assert.Equal(t, utils.NotFound, player)
	assert.Equal(t, utils.NotFound, partner)
}

func TestIdentifyBox(t *testing.T) {
	t.Parallel()

	r := roster.Roster{{ID: 4, Name: "green shoes"}}
	id, ok := IdentifyBox(BoundingBox{Label: "green shoes"}, r)
	assert.True(t, ok)
	assert.Equal(t, 4, id)

	cat := 3
	id, ok = IdentifyBox(BoundingBox{CategoryID: &cat}, r)
	assert.True(t, ok)
	assert.Equal(t, 3, id)

	_, ok = IdentifyBox(BoundingBox{Label: "someone"}, r)
	assert.False(t, ok)
}

func TestParseDetectorOutput(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		"FPS: 12.3",
		`{"frame":1,"boxes":[[1,1,5,5]]}`,
		`{"frame":1,"boxes":[{"bbox":[2,2,3,3],"label":"red hat"}]}`,
		`{"frame":2,"boxes":`,
		`{"frame":3,"boxes":[]}`,
		"EOF",
		`{"frame":4,"boxes":[[1,1,5,5]]}`,
	}, "\n")

	frames, err := ParseDetectorOutput(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, frames["1"], 2)
	assert.Contains(t, frames, "3")
	assert.NotContains(t, frames, "2")
	assert.NotContains(t, frames, "4")
}

func writeDetectorScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	path := filepath.Join(t.TempDir(), "detector.py")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunDetectorOutputAfterEOF(t *testing.T) {
	t.Parallel()

	script := writeDetectorScript(t, `import sys
print('{"frame":7,"boxes":[[1,1,5,5]]}')
print("EOF")
for i in range(5000):
    print("teardown log line %d with some padding to fill the pipe buffer" % i)
sys.stdout.flush()
`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	frames, err := RunDetector(ctx, script, "video.mp4")
	require.NoError(t, err)
	assert.Len(t, frames["7"], 1)
	assert.Less(t, time.Since(start), 20*time.Second)
}

func TestRunDetectorExitCode(t *testing.T) {
	t.Parallel()

	//a failure after "EOF" keeps the parsed frames
	after := writeDetectorScript(t, `import sys
print('{"frame":3,"boxes":[]}')
print("EOF")
sys.stdout.flush()
sys.exit(2)
`)
	frames, err := RunDetector(context.Background(), after, "video.mp4")
	require.NoError(t, err)
	assert.Contains(t, frames, "3")

	before := writeDetectorScript(t, `import sys
print('{"frame":3,"boxes":[]}')
sys.stdout.flush()
sys.exit(2)
`)
	_, err = RunDetector(context.Background(), before, "video.mp4")
	assert.Error(t, err)
}

func TestLoadFrames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "v_boxes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0010":[[1,2,3,4]]}`), 0644))

	frames, err := LoadFrames(path)
	require.NoError(t, err)
	assert.Len(t, frames["0010"], 1)

	_, err = LoadFrames(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
