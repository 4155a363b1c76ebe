// Package transport exposes analysis and conversion over HTTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/pixuli"
	"github.com/menta2k/pixuli/internal/logger"
	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/types"
)

// Service is the subset of *pixuli.Pixuli the handlers need.
type Service interface {
	Analyze(ctx context.Context, data []byte) (*types.AnalysisResult, error)
	BatchAnalyze(ctx context.Context, inputs [][]byte) []types.AnalysisResult
	Convert(data []byte, req types.ConversionRequest) (*types.ConversionResult, error)
	BatchConvert(inputs [][]byte, req types.ConversionRequest) ([]*types.ConversionResult, error)
	Info(data []byte) (*types.ImageInfo, error)
	Describe(ctx context.Context, data []byte) (string, error)
	ModelUsed() string
}

// Options configures NewHandler.
type Options struct {
	MaxBodyBytes int64
	// ConversionDefaults fill fields a conversion request leaves out.
	ConversionDefaults types.ConversionRequest
}

// AnalyzeRequest carries one base64 encoded image.
type AnalyzeRequest struct {
	Image []byte `json:"image" binding:"required"`
}

// BatchAnalyzeRequest carries several base64 encoded images.
type BatchAnalyzeRequest struct {
	Images [][]byte `json:"images" binding:"required,min=1"`
}

// ConversionParams are the conversion fields of a request. Absent fields
// take the server's configured defaults.
type ConversionParams struct {
	TargetFormat         string               `json:"target_format,omitempty"`
	Quality              *int                 `json:"quality,omitempty"`
	PreserveTransparency *bool                `json:"preserve_transparency,omitempty"`
	Lossless             *bool                `json:"lossless,omitempty"`
	Resize               *types.ResizeRequest `json:"resize,omitempty"`
	MaxDimension         *int                 `json:"max_dimension,omitempty"`
}

// ConvertRequest is an image plus conversion parameters.
type ConvertRequest struct {
	Image []byte `json:"image" binding:"required"`
	ConversionParams
}

// BatchConvertRequest applies one set of parameters to several images.
type BatchConvertRequest struct {
	Images [][]byte `json:"images" binding:"required,min=1"`
	ConversionParams
}

// DescribeResponse is the free-form answer of a generative backend.
type DescribeResponse struct {
	Model       string `json:"model"`
	Description string `json:"description"`
}

// BatchAnalyzeResponse preserves input order.
type BatchAnalyzeResponse struct {
	Results []types.AnalysisResult `json:"results"`
}

// BatchConvertResponse preserves input order.
type BatchConvertResponse struct {
	Results []*types.ConversionResult `json:"results"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the gin engine with all routes.
func NewHandler(svc Service, opts Options) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(opts.MaxBodyBytes),
	)
	defaults := opts.ConversionDefaults

	r.GET("/health", healthCheck(svc))

	v1 := r.Group("/v1")
	v1.POST("/analyze", analyzeImage(svc))
	v1.POST("/analyze/batch", batchAnalyze(svc))
	v1.POST("/convert", convertImage(svc, defaults))
	v1.POST("/convert/batch", batchConvert(svc, defaults))
	v1.POST("/info", imageInfo(svc))
	v1.POST("/describe", describeImage(svc))
	v1.GET("/models", listModels)
	v1.GET("/models/check", checkModel)
	v1.GET("/formats", listFormats)

	return r
}

func analyzeImage(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		result, err := svc.Analyze(c.Request.Context(), req.Image)
		if err != nil {
			respondError(c, statusCode(err), "analysis failed", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func batchAnalyze(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchAnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		c.JSON(http.StatusOK, BatchAnalyzeResponse{Results: svc.BatchAnalyze(c.Request.Context(), req.Images)})
	}
}

func imageInfo(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		info, err := svc.Info(req.Image)
		if err != nil {
			respondError(c, statusCode(err), "reading image info failed", err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func describeImage(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		text, err := svc.Describe(c.Request.Context(), req.Image)
		if err != nil {
			respondError(c, statusCode(err), "describe failed", err)
			return
		}
		c.JSON(http.StatusOK, DescribeResponse{Model: svc.ModelUsed(), Description: text})
	}
}

func convertImage(svc Service, defaults types.ConversionRequest) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConvertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		result, err := svc.Convert(req.Image, req.ConversionParams.Request(defaults))
		if err != nil {
			respondError(c, statusCode(err), "conversion failed", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func batchConvert(svc Service, defaults types.ConversionRequest) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchConvertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		results, err := svc.BatchConvert(req.Images, req.ConversionParams.Request(defaults))
		if err != nil {
			respondError(c, statusCode(err), "batch conversion failed", err)
			return
		}
		c.JSON(http.StatusOK, BatchConvertResponse{Results: results})
	}
}

// Request overlays p on defaults. Format aliases such as "jpg" or "tif"
// are accepted; unknown formats pass through for the converter to reject.
func (p ConversionParams) Request(defaults types.ConversionRequest) types.ConversionRequest {
	req := defaults
	if p.TargetFormat != "" {
		req.TargetFormat = types.Format(p.TargetFormat)
		if f, ok := types.ParseFormat(p.TargetFormat); ok {
			req.TargetFormat = f
		}
	}
	if p.Quality != nil {
		req.Quality = *p.Quality
	}
	if p.PreserveTransparency != nil {
		req.PreserveTransparency = *p.PreserveTransparency
	}
	if p.Lossless != nil {
		req.Lossless = *p.Lossless
	}
	if p.Resize != nil {
		req.Resize = p.Resize
	}
	if p.MaxDimension != nil {
		req.MaxDimension = *p.MaxDimension
	}
	return req
}

func checkModel(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		respondError(c, http.StatusBadRequest, "missing query parameter", errors.New("path is required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"path":      path,
		"available": pixuli.CheckModelAvailable(path),
	})
}

func listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": pixuli.SupportedModels()})
}

func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formats": pixuli.SupportedFormats()})
}

func healthCheck(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "available",
			"version": pixuli.GetVersion(),
			"model":   svc.ModelUsed(),
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"ip":          c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// statusCode maps the error taxonomy to HTTP statuses.
func statusCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidInput:
		return http.StatusBadRequest
	case apperrors.KindEncodingFailure:
		return http.StatusUnprocessableEntity
	case apperrors.KindModelUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.KindBackendFailure:
		return http.StatusBadGateway
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
	}).Error("request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Kind:    string(apperrors.KindOf(err)),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
