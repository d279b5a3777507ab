package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"signalist/internal/logger"
	"signalist/internal/mlerr"
	"signalist/internal/registry"
	"signalist/internal/store"
	"signalist/internal/trainer"
	"signalist/internal/types"
)

// RecommendationReader is the slice of the store the API reads from.
type RecommendationReader interface {
	ListRecommendations(ctx context.Context, filter store.RecommendationFilter) ([]types.Recommendation, error)
	GetRecommendation(ctx context.Context, id string) (*types.Recommendation, error)
}

// Recommender runs generation and single-symbol scoring.
type Recommender interface {
	Generate(ctx context.Context) ([]types.Recommendation, error)
	Score(ctx context.Context, symbol string) (*types.Candidate, error)
}

// TrainingRunner starts training runs and reports past ones.
type TrainingRunner interface {
	Train(ctx context.Context, from, to time.Time) (*trainer.Result, error)
	RunHistory(ctx context.Context, limit int) ([]trainer.RunRecord, error)
}

// ModelStatusSource reports which model artifacts are live.
type ModelStatusSource interface {
	Status() []registry.LoadStatus
}

// UniverseLister lists the eligible scoring universe.
type UniverseLister interface {
	Eligible(ctx context.Context) ([]types.SymbolInfo, error)
}

type Router struct {
	store      RecommendationReader
	recommends Recommender
	trainer    TrainingRunner
	models     ModelStatusSource
	universe   UniverseLister
}

func NewRouter(st RecommendationReader, rec Recommender, tr TrainingRunner,
	models ModelStatusSource, universe UniverseLister) *Router {
	return &Router{store: st, recommends: rec, trainer: tr, models: models, universe: universe}
}

// Register mounts the API routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/recommendations", r.handleListRecommendations)
	group.GET("/recommendations/:id", r.handleRecommendationByID)
	group.POST("/recommendations/generate", r.handleGenerate)
	group.GET("/predict/:symbol", r.handlePredict)
	if r.models != nil {
		group.GET("/models/status", r.handleModelStatus)
	}
	if r.trainer != nil {
		group.POST("/train", r.handleTrain)
		group.GET("/train/runs", r.handleTrainRuns)
	}
	if r.universe != nil {
		group.GET("/symbols", r.handleSymbols)
	}
}

func (r *Router) handleListRecommendations(c *gin.Context) {
	filter := store.RecommendationFilter{
		Symbol:  c.Query("symbol"),
		Signal:  c.Query("signal"),
		BatchID: c.Query("batch_id"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}
	recs, err := r.store.ListRecommendations(c.Request.Context(), filter)
	if err != nil {
		logger.Errorf("list recommendations failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if recs == nil {
		recs = []types.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

func (r *Router) handleRecommendationByID(c *gin.Context) {
	rec, err := r.store.GetRecommendation(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.Errorf("get recommendation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (r *Router) handleGenerate(c *gin.Context) {
	recs, err := r.recommends.Generate(c.Request.Context())
	if err != nil {
		logger.Errorf("recommendation generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

func (r *Router) handlePredict(c *gin.Context) {
	symbol := c.Param("symbol")
	cand, err := r.recommends.Score(c.Request.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, mlerr.ErrModelNotLoaded):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no models loaded"})
		case errors.Is(err, mlerr.ErrInvalidInput), errors.Is(err, mlerr.ErrFeatureEngineering):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			logger.Errorf("predict %s failed: %v", symbol, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":           cand.Symbol,
		"signal":           cand.Signal,
		"confidence_score": cand.Confidence,
		"sentiment_score":  cand.Sentiment,
		"risk_level":       cand.RiskLevel,
		"explanation":      cand.Explanation,
		"model_used":       cand.ModelUsed,
	})
}

func (r *Router) handleModelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": r.models.Status()})
}

type trainRequest struct {
	Days int `json:"days"`
}

func (r *Router) handleTrain(c *gin.Context) {
	req := trainRequest{Days: 365}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.Days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be positive"})
		return
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -req.Days)
	result, err := r.trainer.Train(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, mlerr.ErrInvalidInput) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("training failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "training failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleTrainRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := r.trainer.RunHistory(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("list training runs failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if runs == nil {
		runs = []trainer.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (r *Router) handleSymbols(c *gin.Context) {
	symbols, err := r.universe.Eligible(c.Request.Context())
	if err != nil {
		logger.Errorf("list symbols failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if symbols == nil {
		symbols = []types.SymbolInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols, "count": len(symbols)})
}
