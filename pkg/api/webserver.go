package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"facette.io/natsort"
	"github.com/chenBenjamin97/shot-labeler/pkg/classifier"
	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"github.com/chenBenjamin97/shot-labeler/pkg/store"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
	"github.com/chenBenjamin97/shot-labeler/pkg/video"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ralliesSuffix = "_rallies.json"

//TagFunc labels one video, video.Tag in production
type TagFunc func(ctx context.Context, opts video.TagOptions) (*shot.VideoLabels, error)

//Server holds what the label routes need. Template carries everything of a labelling run except video id and classifiers.
type Server struct {
	Registry *classifier.Registry
	Store    store.Store
	Template video.TagOptions
	Tag      TagFunc

	//VideosDir, when set with Template.DetectorScript, is where the detector finds "<video id>.mp4"
	VideosDir string

	//DefaultModel is used by /predict requests without a model, the rule classifier when empty
	DefaultModel string

	ctx    context.Context
	cancel context.CancelFunc
	jobs   *jobRegistry
}

func NewServer(registry *classifier.Registry, s store.Store, template video.TagOptions) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Registry: registry,
		Store:    s,
		Template: template,
		Tag:      video.Tag,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     newJobRegistry(),
	}
}

//Close cancels the running labelling jobs
func (s *Server) Close() {
	s.cancel()
}

type predictRequest struct {
	VideoID string `json:"video_id"`
	Model   string `json:"model"`
}

type updateRequest struct {
	RallyIndex   *int        `json:"rallyIndex"`
	EventIndex   *int        `json:"eventIndex"`
	UpdatedEvent *shot.Event `json:"updatedEvent"`
}

func SetRouter(s *Server) *gin.Engine {
	r := gin.Default()

	labelRoutes := r.Group("/api/label")

	labelRoutes.GET("/videos", func(ctx *gin.Context) {
		names, err := utils.ListDir(s.Template.Dirs.Rallies)
		if err != nil {
			logger.Logger.Error("api/videos: Could not list rallies", zap.Error(err))
			ctx.Status(http.StatusInternalServerError)
			return
		}

		ids := make([]string, 0, len(names))
		for _, name := range names {
			if strings.HasSuffix(name, ralliesSuffix) {
				ids = append(ids, strings.TrimSuffix(name, ralliesSuffix))
			}
		}
		natsort.Sort(ids)
		ctx.JSON(http.StatusOK, gin.H{"videos": ids})
	})

	labelRoutes.GET("/models", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"models": s.Registry.List()})
	})

	labelRoutes.POST("/predict", func(ctx *gin.Context) {
		var req predictRequest
		if err := ctx.ShouldBindJSON(&req); err != nil || req.VideoID == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "video_id is required"})
			return
		}

		if existNames, err := utils.ListDir(s.Template.Dirs.Rallies); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		} else if !utils.InSlice(req.VideoID+ralliesSuffix, existNames) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Rallies file not found"})
			return
		}

		if req.Model == "" {
			req.Model = s.DefaultModel
		}
		if req.Model == "" {
			req.Model = classifier.RuleID
		}
		entry := s.Registry.Resolve(req.Model)
		j := s.jobs.start(req.VideoID, entry.ID)
		logger.Logger.Info("api/predict: Starting shot label generation", zap.String("video", req.VideoID), zap.String("model", entry.ID), zap.String("job", j.ID))

		go s.runJob(j, entry)

		ctx.JSON(http.StatusAccepted, j)
	})

	labelRoutes.GET("/jobs/:id", func(ctx *gin.Context) {
		j, ok := s.jobs.get(ctx.Param("id"))
		if !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		ctx.JSON(http.StatusOK, j)
	})

	labelRoutes.GET("/check/:video_id", func(ctx *gin.Context) {
		_, source, err := s.Store.Get(ctx.Request.Context(), ctx.Param("video_id"))
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"exists": false, "message": "No label file found"})
			return
		}
		if err != nil {
			logger.Logger.Error("api/check: Error, got", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		message := "Generated label file exists"
		if source == store.Confirmed {
			message = "Confirmed label file exists"
		}
		ctx.JSON(http.StatusOK, gin.H{"exists": true, "message": message, "confirmed": source == store.Confirmed})
	})

	labelRoutes.GET("/get/:video_id", func(ctx *gin.Context) {
		labels, source, err := s.Store.Get(ctx.Request.Context(), ctx.Param("video_id"))
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Label file not found"})
			return
		}
		if err != nil {
			logger.Logger.Error("api/get: Error, got", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": labels, "source": source})
	})

	labelRoutes.POST("/update/:video_id", func(ctx *gin.Context) {
		var req updateRequest
		if err := ctx.ShouldBindJSON(&req); err != nil || req.RallyIndex == nil || req.EventIndex == nil || req.UpdatedEvent == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}

		err := store.UpdateEvent(ctx.Request.Context(), s.Store, ctx.Param("video_id"), *req.RallyIndex, *req.EventIndex, *req.UpdatedEvent)
		switch {
		case errors.Is(err, store.ErrNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Label file not found"})
		case errors.Is(err, store.ErrInvalidIndex):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err != nil:
			logger.Logger.Error("api/update: Error, got", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusOK, gin.H{"message": "Label updated successfully", "saved_to": store.Confirmed})
		}
	})

	labelRoutes.POST("/confirm/:video_id", func(ctx *gin.Context) {
		err := s.Store.Confirm(ctx.Request.Context(), ctx.Param("video_id"))
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Generated label file not found"})
			return
		}
		if err != nil {
			logger.Logger.Error("api/confirm: Error, got", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"message": "Labels confirmed successfully"})
	})

	return r
}

//runJob labels the video with entry's classifier, the rule classifier backing it up, and saves the result as generated labels
func (s *Server) runJob(j job, entry classifier.Entry) {
	opts := s.Template
	opts.VideoID = j.VideoID
	opts.Classifier = entry.Classifier
	if entry.ID != classifier.RuleID {
		if rule, ok := s.Registry.Get(classifier.RuleID); ok {
			opts.Fallback = rule.Classifier
		}
	}
	if opts.DetectorScript != "" && s.VideosDir != "" {
		opts.VideoPath = filepath.Join(s.VideosDir, j.VideoID+".mp4")
	}

	labels, err := s.Tag(s.ctx, opts)
	if err == nil {
		err = s.Store.Save(s.ctx, store.Generated, labels)
	}

	rallies := 0
	if labels != nil {
		rallies = len(labels.Rallies)
	}
	if err != nil {
		logger.Logger.Error("api/predict: Error generating labels", zap.String("video", j.VideoID), zap.Error(err))
	} else {
		logger.Logger.Info("api/predict: Labels generated", zap.String("video", j.VideoID), zap.Int("rallies", rallies))
	}
	s.jobs.finish(j.ID, rallies, err)
}
