package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/vectorgate/pkg/registry"
	"github.com/soundprediction/vectorgate/pkg/server/dto"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// Static properties of the BGE-M3 family served by the multi-functional
// backend.
const (
	multiModelLanguages = "100+ languages including Russian, Chinese, English"
	multiModelMaxLength = 8192
)

// ModelsHandler answers capability-description queries
type ModelsHandler struct {
	reg *registry.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(reg *registry.Registry) *ModelsHandler {
	return &ModelsHandler{reg: reg}
}

// ModelsInfo handles GET /models/info - enumerates active backends and the
// model metadata recorded for each kind at startup.
func (h *ModelsHandler) ModelsInfo(c *gin.Context) {
	models := make(map[string]dto.ModelInfo)
	for _, kind := range []types.Kind{types.KindSparse, types.KindDense, types.KindMultiVector} {
		if !h.reg.Available(kind) {
			continue
		}
		if info, ok := h.reg.Metadata(kind); ok {
			mi := dto.ModelInfo{Name: info.Name, Dimensions: info.Dimensions}
			if kind == types.KindMultiVector {
				mi.Languages = multiModelLanguages
				mi.MaxLength = multiModelMaxLength
			}
			models[string(kind)] = mi
		}
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}
