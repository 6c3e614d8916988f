package video

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"facette.io/natsort"
	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

//Joints is the number of body keypoints returned per player (OpenPose parts 1..13, neck to ankles)
const Joints = 13

//minJointConfidence is the heatmap peak under which a joint counts as not found
const minJointConfidence = 0.1

//ErrPoseModel means the OpenPose graph could not be loaded
var ErrPoseModel = errors.New("video: could not load pose model")

//PoseEstimator runs an OpenPose tensorflow graph on player regions. The net is loaded on first use.
type PoseEstimator struct {
	ModelPath string

	once   sync.Once
	mu     sync.Mutex
	net    gocv.Net
	loaded bool
	err    error
}

func (p *PoseEstimator) load() error {
	p.once.Do(func() {
		p.net = gocv.ReadNetFromTensorflow(p.ModelPath)
		if p.net.Empty() {
			p.err = ErrPoseModel
			return
		}
		p.loaded = true
	})
	return p.err
}

//FindJoints gets an roi of a frame and returns exactly Joints points, relative to the roi.
//Joints that are not found are set to the average of the found ones ((0,0) when none is found)
func (p *PoseEstimator) FindJoints(roi gocv.Mat) ([]image.Point, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	if roi.Empty() {
		return nil, errors.New("FindJoints: empty region")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	blob := gocv.BlobFromImage(roi, 1, image.Point{X: roi.Cols(), Y: roi.Rows()}, gocv.NewScalar(127.5, 127.5, 127.5, 127.5), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	prob := p.net.Forward("")
	defer prob.Close()

	s := prob.Size()
	if len(s) < 4 || s[1] <= Joints {
		return nil, errors.New("FindJoints: unexpected model output")
	}
	h, w := s[2], s[3]

	xSum, ySum, found := 0, 0, 0
	pts := make([]image.Point, Joints)
	for i := 0; i < Joints; i++ {
		pts[i] = image.Pt(-1, -1)
		heatmap := gocv.GetBlobChannel(prob, 0, i+1) //part 0 is the nose, we want 1..13
		_, conf, _, pt := gocv.MinMaxLoc(heatmap)
		heatmap.Close()

		if conf > minJointConfidence {
			//heatmap coordinates back to roi coordinates
			pts[i] = image.Pt(pt.X*roi.Cols()/w, pt.Y*roi.Rows()/h)
			xSum += pts[i].X
			ySum += pts[i].Y
			found++
		}
	}

	avg := image.Pt(0, 0)
	if found != 0 {
		avg = image.Pt(xSum/found, ySum/found)
	}

	for i, pt := range pts {
		if pt == image.Pt(-1, -1) {
			pts[i] = avg
		}
	}

	return pts, nil
}

//Close releases the loaded net
func (p *PoseEstimator) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		return nil
	}
	p.loaded = false
	return p.net.Close()
}

//MomentPose is the pose of the hitting player at one hitting moment, in frame coordinates
type MomentPose struct {
	Rally     string        `json:"rally"`
	Frame     int           `json:"frame"`
	Keypoints []image.Point `json:"keypoints"`
}

//HittingPoses estimates the hitting player's pose at every moment of every rally that has a nearby box.
//Moments without a box or frame image are skipped, a pose model that cannot be loaded stops the run.
func (p *PoseEstimator) HittingPoses(frames *FrameStore, videoID string, boxes detection.Frames, rallies *shot.RalliesFile) ([]MomentPose, error) {
	poses := make([]MomentPose, 0)
	if rallies == nil {
		return poses, nil
	}

	ids := make([]string, 0, len(rallies.Rallies))
	for id := range rallies.Rallies {
		ids = append(ids, id)
	}
	natsort.Sort(ids)

	for _, id := range ids {
		for _, moment := range rallies.Rallies[id].HittingMoments {
			if moment.PlayerPosition == nil {
				continue
			}

			located, err := detection.LocateBoxes(boxes, moment.FrameNumber)
			if err != nil {
				continue
			}
			idx := detection.FindHittingPlayer(located, *moment.PlayerPosition)
			if idx == utils.NotFound {
				continue
			}

			pts, err := p.momentJoints(frames, videoID, moment.FrameNumber, located[idx])
			if errors.Is(err, ErrPoseModel) {
				return nil, err
			}
			if err != nil {
				logger.Logger.Debug("HittingPoses: Skipping moment", zap.String("rally", id), zap.Int("frame", moment.FrameNumber), zap.Error(err))
				continue
			}
			poses = append(poses, MomentPose{Rally: id, Frame: moment.FrameNumber, Keypoints: pts})
		}
	}
	return poses, nil
}

func (p *PoseEstimator) momentJoints(frames *FrameStore, videoID string, frameNumber int, box detection.BoundingBox) ([]image.Point, error) {
	frame, err := frames.Read(videoID, frameNumber)
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	rect, ok := ExpandRect(box, 1, frame.Cols(), frame.Rows())
	if !ok {
		return nil, fmt.Errorf("momentJoints: box outside of frame %d", frameNumber)
	}

	roi := frame.Region(rect)
	defer roi.Close()

	pts, err := p.FindJoints(roi)
	if err != nil {
		return nil, err
	}
	for i := range pts {
		pts[i] = pts[i].Add(rect.Min)
	}
	return pts, nil
}
