package shot

import (
	"math/rand"
	"time"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
)

//Option configures a Labeler.
type Option func(*config)

type config struct {
	roster       roster.Roster
	frames       detection.Frames
	crops        CropSource
	rng          *rand.Rand
	fallback     Classifier
	descriptions *roster.Descriptions
	framesAhead  int
}

func defaultConfig() config {
	return config{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		framesAhead: utils.FramesAhead,
	}
}

//WithRoster sets the players of the video, used for handedness and identity matching.
func WithRoster(r roster.Roster) Option {
	return func(c *config) {
		c.roster = r
	}
}

//WithFrames sets the detector box map of the video.
func WithFrames(f detection.Frames) Option {
	return func(c *config) {
		c.frames = f
	}
}

//WithCropSource sets where classifier crops come from. Without one classifiers get no images.
func WithCropSource(s CropSource) Option {
	return func(c *config) {
		c.crops = s
	}
}

//WithRand sets the random source of every fallback (default: seeded from the clock).
func WithRand(rng *rand.Rand) Option {
	return func(c *config) {
		if rng != nil {
			c.rng = rng
		}
	}
}

//WithFallback sets the classifier consulted when the primary one fails.
func WithFallback(f Classifier) Option {
	return func(c *config) {
		c.fallback = f
	}
}

//WithDescriptions sets the player descriptions written to every rally
//(default: from the roster, random when the roster is empty).
func WithDescriptions(d roster.Descriptions) Option {
	return func(c *config) {
		c.descriptions = &d
	}
}

//WithNFramesAhead sets how many frames after the hit the "player after the shot" crop is taken (default: 10).
func WithNFramesAhead(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.framesAhead = n
		}
	}
}
