package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/cnpj"
	"github.com/nexconsult/simples-batch/internal/models"
)

// CacheAdmin are the management operations both cache backends support.
type CacheAdmin interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// CacheHandler handles cache management requests
type CacheHandler struct {
	cache  CacheAdmin
	logger *logrus.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache CacheAdmin, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{
		cache:  cache,
		logger: logger,
	}
}

// GetStats returns cache statistics
func (h *CacheHandler) GetStats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cache stats")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Failed to get cache statistics",
			Message:   err.Error(),
			Code:      "CACHE_STATS_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"timestamp": time.Now(),
	})
}

// Delete removes a single CNPJ from the cache
func (h *CacheHandler) Delete(c *gin.Context) {
	clean, ok := cnpj.Normalize(c.Param("cnpj"))
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid CNPJ format",
			Message:   "CNPJ must contain exactly 14 digits",
			Code:      "INVALID_CNPJ",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if err := h.cache.Delete(c.Request.Context(), clean); err != nil {
		h.logger.WithError(err).WithField("cnpj", clean).Error("Failed to delete cache entry")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Failed to delete cache entry",
			Message:   err.Error(),
			Code:      "CACHE_DELETE_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	h.logger.WithField("cnpj", clean).Info("Cache entry deleted")

	c.JSON(http.StatusOK, gin.H{
		"message":   "Cache entry deleted",
		"cnpj":      clean,
		"timestamp": time.Now(),
	})
}

// Clear removes all cache entries
func (h *CacheHandler) Clear(c *gin.Context) {
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to clear cache")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Failed to clear cache",
			Message:   err.Error(),
			Code:      "CACHE_CLEAR_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	h.logger.Info("Cache cleared")

	c.JSON(http.StatusOK, gin.H{
		"message":   "Cache cleared",
		"timestamp": time.Now(),
	})
}
