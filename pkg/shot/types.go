//Package shot sequences the hitting moments of a rally into labelled events.
package shot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
)

//HittingMoment is the frame at which a player strikes the ball.
type HittingMoment struct {
	FrameNumber    int                `json:"frameNumber"`
	PlayerID       *int               `json:"playerId,omitempty"`
	BoundingBoxes  []detection.RawBox `json:"boundingBoxes,omitempty"`
	PlayerPosition *utils.Point       `json:"playerPosition,omitempty"`
}

//Rally is one point: its hitting moments and where the ball ended.
type Rally struct {
	NetPosition     *utils.Point    `json:"netPosition,omitempty"`
	HittingMoments  []HittingMoment `json:"hittingMoments"`
	EndFrame        *int            `json:"endFrame,omitempty"`
	EndBallPosition *utils.Point    `json:"endBallPosition,omitempty"`
}

//RalliesFile is the "<video>_rallies.json" document.
type RalliesFile struct {
	NetPosition *utils.Point     `json:"netPosition,omitempty"`
	Rallies     map[string]Rally `json:"rallies"`
}

//LoadRallies reads a rallies document.
func LoadRallies(path string) (*RalliesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRallies: %w", err)
	}

	var f RalliesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadRallies: Could not parse '%s', got '%v'", path, err)
	}
	return &f, nil
}

//Event is one labelled shot.
type Event struct {
	Player         string           `json:"player"`
	Frame          int              `json:"frame"`
	Label          string           `json:"label"`
	Outcome        label.Outcome    `json:"outcome"`
	Handedness     label.Handedness `json:"handedness"`
	PlayerPosition *utils.Point     `json:"player_position,omitempty"`
}

//RallyLabel is the labelled output of one rally.
type RallyLabel struct {
	PlayerDescriptions roster.Descriptions `json:"player_descriptions"`
	Events             []Event             `json:"events"`
	NetPosition        *utils.Point        `json:"net_position,omitempty"`
}

//VideoLabels is the labelled output of every rally of a video.
type VideoLabels struct {
	VideoID string       `json:"video_id"`
	Rallies []RallyLabel `json:"rallies"`
}
