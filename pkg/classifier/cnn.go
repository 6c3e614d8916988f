package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"go.uber.org/zap"
)

//CNNID is the registry id of the CNN classifier.
const CNNID = "cnn"

const (
	taskShotType       = "shot_type"
	taskSide           = "side"
	taskFormation      = "formation"
	taskShotDirection  = "shot_direction"
	taskServeDirection = "serve_direction"
	taskOutcome        = "outcome"

	//dualImageModel marks a model taking two crops (player and partner, or player and player after the shot)
	dualImageModel = "DualImageResNet50"
)

var cnnTasks = []string{taskShotType, taskSide, taskFormation, taskShotDirection, taskServeDirection, taskOutcome}

//ImageNet normalization the models were trained with
var (
	imageMean = [3]float32{0.485, 0.456, 0.406}
	imageStd  = [3]float32{0.229, 0.224, 0.225}
)

type hyperparameters struct {
	ClassMappings map[string]int `json:"class_mappings"`
	Model         string         `json:"model"`
}

type cnnTask struct {
	runner  runner
	classes map[int]string
}

//CNNConfig locates the exported models: <Dir>/<task>/model.onnx and <Dir>/<task>/hyperparameters.json.
type CNNConfig struct {
	Dir           string
	SharedLibrary string
	CropSize      int
}

//CNN runs the per task ResNet50 exports. Tasks whose files are missing keep their defaults.
type CNN struct {
	tasks    map[string]*cnnTask
	cropSize int
}

//NewCNN loads every task found under cfg.Dir. It fails with shot.ErrClassifierUnavailable when none loads.
func NewCNN(cfg CNNConfig) (*CNN, error) {
	if cfg.CropSize <= 0 {
		cfg.CropSize = utils.CropSize
	}

	c := &CNN{tasks: make(map[string]*cnnTask), cropSize: cfg.CropSize}
	for _, task := range cnnTasks {
		t, err := loadTask(cfg, task)
		if err != nil {
			logger.Logger.Warn("NewCNN: Skipping model", zap.String("task", task), zap.Error(err))
			continue
		}
		logger.Logger.Info("NewCNN: Loaded model", zap.String("task", task), zap.Int("classes", len(t.classes)))
		c.tasks[task] = t
	}

	if len(c.tasks) == 0 {
		return nil, fmt.Errorf("%w: no CNN model could be loaded from '%s'", shot.ErrClassifierUnavailable, cfg.Dir)
	}
	return c, nil
}

func loadTask(cfg CNNConfig, task string) (*cnnTask, error) {
	hp, err := loadHyperparameters(filepath.Join(cfg.Dir, task, "hyperparameters.json"))
	if err != nil {
		return nil, err
	}

	inputs := []string{"input"}
	if hp.Model == dualImageModel {
		inputs = []string{"player", "partner"}
	}

	session, err := newOnnxSession(filepath.Join(cfg.Dir, task, "model.onnx"), cfg.SharedLibrary, inputs, cfg.CropSize)
	if err != nil {
		return nil, err
	}
	return &cnnTask{runner: session, classes: reverseMapping(hp.ClassMappings)}, nil
}

func loadHyperparameters(path string) (hyperparameters, error) {
	var hp hyperparameters
	data, err := os.ReadFile(path)
	if err != nil {
		return hp, fmt.Errorf("hyperparameters: %w", err)
	}
	if err := json.Unmarshal(data, &hp); err != nil {
		return hp, fmt.Errorf("hyperparameters: Could not parse '%s', got '%v'", path, err)
	}
	if len(hp.ClassMappings) == 0 {
		return hp, fmt.Errorf("hyperparameters: no class mappings in '%s'", path)
	}
	return hp, nil
}

func reverseMapping(m map[string]int) map[int]string {
	r := make(map[int]string, len(m))
	for name, idx := range m {
		r[idx] = name
	}
	return r
}

func (c *CNN) Name() string {
	return CNNID
}

//Classify predicts every component the role leaves open. Components whose
//model or crops are missing keep the defaults of the trained pipeline.
func (c *CNN) Classify(ctx context.Context, role shot.RoleContext, crops shot.Crops) (shot.Prediction, error) {
	if crops.Player == nil {
		return shot.Prediction{}, fmt.Errorf("%w: no player image for frame %d", shot.ErrClassifierUnavailable, role.Frame)
	}

	player := imageTensor(crops.Player, c.cropSize)
	ahead := player
	if crops.PlayerAhead != nil {
		ahead = imageTensor(crops.PlayerAhead, c.cropSize)
	}

	var p shot.Prediction
	if !role.IsServe {
		p.Side = label.Side(c.predict(ctx, taskSide, string(label.Forehand), player))
	}
	if !role.IsServe && !role.IsReturn {
		p.ShotType = label.ShotType(c.predict(ctx, taskShotType, string(label.Swing), player))
	}

	if role.IsServe {
		p.Formation = label.Conventional
		if crops.Partner != nil {
			p.Formation = label.Formation(c.predict(ctx, taskFormation, string(label.Conventional), player, imageTensor(crops.Partner, c.cropSize)))
		}
		p.Direction = label.Direction(c.predict(ctx, taskServeDirection, string(label.ServeT), player, ahead))
	} else if crops.PlayerAhead != nil {
		p.Direction = label.DownTheLine
		if c.predict(ctx, taskShotDirection, "cross", player, ahead) == "cross" {
			p.Direction = label.CrossCourt
		}
	}

	if role.IsLast {
		p.Outcome = label.Err
		if crops.PlayerAhead != nil {
			p.Outcome = label.Outcome(c.predict(ctx, taskOutcome, string(label.Err), player, ahead))
		}
	}

	return p, nil
}

//predict returns the class name of the highest logit, fallback when the task is not loaded or fails
func (c *CNN) predict(ctx context.Context, task, fallback string, inputs ...[]float32) string {
	t, ok := c.tasks[task]
	if !ok {
		return fallback
	}

	logits, err := t.runner.Run(ctx, inputs...)
	if err != nil {
		logger.Logger.Warn("predict: Error, using default", zap.String("task", task), zap.String("default", fallback), zap.Error(err))
		return fallback
	}

	if name, ok := t.classes[argmax(logits)]; ok {
		return name
	}
	return fallback
}

//Close releases every loaded model.
func (c *CNN) Close() error {
	var firstErr error
	for _, t := range c.tasks {
		if err := t.runner.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func argmax(values []float32) int {
	best := utils.NotFound
	for i, v := range values {
		if best == utils.NotFound || v > values[best] {
			best = i
		}
	}
	return best
}

//imageTensor resizes img (nearest neighbour) to size x size and returns it as a normalized CHW float tensor
func imageTensor(img image.Image, size int) []float32 {
	bounds := img.Bounds()
	plane := size * size
	tensor := make([]float32, 3*plane)
	if bounds.Empty() {
		return tensor
	}

	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/size
			r, g, b, _ := img.At(srcX, srcY).RGBA()

			i := y*size + x
			tensor[i] = (float32(r>>8)/255 - imageMean[0]) / imageStd[0]
			tensor[plane+i] = (float32(g>>8)/255 - imageMean[1]) / imageStd[1]
			tensor[2*plane+i] = (float32(b>>8)/255 - imageMean[2]) / imageStd[2]
		}
	}
	return tensor
}
