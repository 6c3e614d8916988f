package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/roster"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

//ErrNoPlayerBox means the hitting moment has no player box to crop
var ErrNoPlayerBox = errors.New("video: no player box")

//CropBuilder cuts the player, partner and "player after the shot" images of a hitting moment out of the raw frames.
//When CropDir is set every crop is also written to CropDir/<video id>/<kind>/<frame>.jpg
type CropBuilder struct {
	Frames    *FrameStore
	VideoID   string
	Boxes     detection.Frames
	Roster    roster.Roster
	Expansion float64
	Size      int
	CropDir   string
}

func (c *CropBuilder) expansion() float64 {
	if c.Expansion <= 0 {
		return utils.DefaultExpansion
	}
	return c.Expansion
}

func (c *CropBuilder) size() int {
	if c.Size <= 0 {
		return utils.CropSize
	}
	return c.Size
}

//Crops implements shot.CropSource. Only the player crop is required, missing partner or ahead crops are left nil.
func (c *CropBuilder) Crops(ctx context.Context, req shot.CropRequest) (shot.Crops, error) {
	if req.Player == nil {
		return shot.Crops{}, fmt.Errorf("%w: frame %d", ErrNoPlayerBox, req.Frame)
	}

	frame, err := c.Frames.Read(c.VideoID, req.Frame)
	if err != nil {
		return shot.Crops{}, err
	}
	defer frame.Close()

	var crops shot.Crops
	if crops.Player, err = c.crop(frame, *req.Player, "hitting_player", req.Frame); err != nil {
		return shot.Crops{}, err
	}

	if req.Partner != nil {
		if crops.Partner, err = c.crop(frame, *req.Partner, "hitting_partner", req.Frame); err != nil {
			logger.Logger.Debug("Crops: No partner image", zap.Int("frame", req.Frame), zap.Error(err))
		}
	}

	if err := ctx.Err(); err != nil {
		return crops, nil
	}

	crops.PlayerAhead = c.aheadCrop(req)
	return crops, nil
}

//aheadCrop finds the hitting player AheadFrame frames later: by the player box label, by roster identity, then near the next moment's position
func (c *CropBuilder) aheadCrop(req shot.CropRequest) image.Image {
	boxes, err := detection.LocateBoxes(c.Boxes, req.AheadFrame)
	if err != nil || len(boxes) == 0 {
		return nil
	}

	idx := utils.NotFound
	if req.Player.Label != "" {
		for i, box := range boxes {
			if box.Label == req.Player.Label {
				idx = i
				break
			}
		}
	}
	if idx == utils.NotFound && req.PlayerID > 0 {
		idx, _ = detection.FindHittingPlayersByIdentity(boxes, c.Roster, req.PlayerID, nil)
	}
	if idx == utils.NotFound && req.Next != nil && req.Next.PlayerPosition != nil {
		idx = detection.FindHittingPlayer(boxes, *req.Next.PlayerPosition)
	}
	if idx == utils.NotFound {
		logger.Logger.Debug("aheadCrop: Player not found", zap.Int("frame", req.AheadFrame))
		return nil
	}

	frame, err := c.Frames.Read(c.VideoID, req.AheadFrame)
	if err != nil {
		logger.Logger.Debug("aheadCrop: Error, got", zap.Error(err))
		return nil
	}
	defer frame.Close()

	img, err := c.crop(frame, boxes[idx], "hitting_player_n", req.AheadFrame)
	if err != nil {
		logger.Logger.Debug("aheadCrop: Error, got", zap.Error(err))
		return nil
	}
	return img
}

func (c *CropBuilder) crop(frame gocv.Mat, box detection.BoundingBox, kind string, frameNumber int) (image.Image, error) {
	region, ok := ExtractRegion(frame, box, c.expansion(), c.size())
	defer region.Close()
	if !ok {
		return nil, fmt.Errorf("crop: empty region for frame %d", frameNumber)
	}

	if c.CropDir != "" {
		c.save(region, kind, frameNumber)
	}

	img, err := region.ToImage()
	if err != nil {
		return nil, fmt.Errorf("crop: Could not convert frame %d, got '%v'", frameNumber, err)
	}
	return img, nil
}

func (c *CropBuilder) save(region gocv.Mat, kind string, frameNumber int) {
	dir := filepath.Join(c.CropDir, c.VideoID, kind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Logger.Warn("save: Error creating crop directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	p := filepath.Join(dir, strconv.Itoa(frameNumber)+".jpg")
	if !gocv.IMWrite(p, region) {
		logger.Logger.Warn("save: Could not write crop", zap.String("path", p))
	}
}
