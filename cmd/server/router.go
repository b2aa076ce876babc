package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/record"
	"github.com/Skufu/clinicrisk/internal/tier"
)

const requestIDHeader = "X-Request-ID"

type riskRequest struct {
	Record    record.ClinicalRecord `json:"record"`
	Overrides features.Overrides    `json:"overrides"`
	Locale    string                `json:"locale"`
}

type allRiskRequest struct {
	Record    record.ClinicalRecord                     `json:"record"`
	Overrides map[features.ModelName]features.Overrides `json:"overrides"`
	Locale    string                                    `json:"locale"`
}

type classifyRequest struct {
	Probability *float64 `json:"probability" binding:"required"`
	Locale      string   `json:"locale"`
}

type schemaView struct {
	ID       features.SchemaID  `json:"id"`
	Model    features.ModelName `json:"model"`
	Variant  features.Variant   `json:"variant"`
	Features []features.Feature `json:"features"`
	Defaults []float64          `json:"defaults"`
}

func setupRouter(app App) *gin.Engine {
	if app.Log == nil {
		app.Log = logrus.StandardLogger()
	}
	origins := app.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(app.Log),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		modelStatus := "ok"
		if !app.Registry.Loaded() {
			// Predictions still answer with static fallbacks.
			modelStatus = "degraded"
		}

		if app.DB == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled", "models": modelStatus})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := app.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
				"models": modelStatus,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"db":     "ok",
			"models": modelStatus,
		})
	})

	if app.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.GET("/models", func(c *gin.Context) {
		c.JSON(http.StatusOK, app.Registry.Status())
	})

	api.GET("/schemas", func(c *gin.Context) {
		out := []schemaView{}
		for _, id := range features.AllSchemas() {
			s, err := features.Lookup(id)
			if err != nil {
				continue
			}
			out = append(out, schemaView{
				ID:       id,
				Model:    id.Model(),
				Variant:  id.Variant(),
				Features: s.Features(),
				Defaults: s.Defaults(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"schemas": out})
	})

	api.POST("/risk", func(c *gin.Context) {
		var req allRiskRequest
		if !bindJSON(c, &req) {
			return
		}
		for m, ov := range req.Overrides {
			if !checkOverrides(c, m, ov) {
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"assessments": app.Predictor.AssessAll(req.Record, req.Overrides, app.locale(req.Locale)),
		})
	})

	api.POST("/risk/classify", func(c *gin.Context) {
		var req classifyRequest
		if !bindJSON(c, &req) {
			return
		}
		c.JSON(http.StatusOK, tier.ClassifyIn(app.locale(req.Locale), *req.Probability))
	})

	api.POST("/risk/:model", func(c *gin.Context) {
		m, err := features.ParseModel(c.Param("model"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown model", "models": features.Models})
			return
		}
		var req riskRequest
		if !bindJSON(c, &req) {
			return
		}
		if !checkOverrides(c, m, req.Overrides) {
			return
		}
		c.JSON(http.StatusOK, app.Predictor.Assess(m, req.Record, req.Overrides, app.locale(req.Locale)))
	})

	return router
}

func (a App) locale(requested string) tier.Locale {
	if requested == "" {
		return a.Locale
	}
	return tier.ParseLocale(requested)
}

// bindJSON writes the error response itself and reports whether binding succeeded.
func bindJSON(c *gin.Context, out interface{}) bool {
	err := c.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
	case errors.As(err, &invalid):
		details := make([]string, 0, len(invalid))
		for _, fe := range invalid {
			details = append(details, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": details})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	}
	return false
}

// checkOverrides answers 422 when ov names features model m cannot use.
func checkOverrides(c *gin.Context, m features.ModelName, ov features.Overrides) bool {
	err := features.CheckOverrides(m, ov)
	if err == nil {
		return true
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": []string{err.Error()}})
	return false
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"request_id":  c.GetString("request_id"),
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}).Info("request")
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
