package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/vectorgate/pkg/backend"
	"github.com/soundprediction/vectorgate/pkg/orchestrator"
	"github.com/soundprediction/vectorgate/pkg/server/dto"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// EmbedHandler handles embedding requests
type EmbedHandler struct {
	orch *orchestrator.Orchestrator
}

// NewEmbedHandler creates a new embed handler
func NewEmbedHandler(orch *orchestrator.Orchestrator) *EmbedHandler {
	return &EmbedHandler{orch: orch}
}

// writeError maps an orchestration error to the wire error taxonomy.
func writeError(c *gin.Context, err error) {
	var invErr *backend.InvocationError

	switch {
	case errors.Is(err, orchestrator.ErrBackendUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   dto.CodeBackendUnavailable,
			Message: err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
	case errors.As(err, &invErr):
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   dto.CodeInvocationFailed,
			Message: invErr.Error(),
			Code:    http.StatusInternalServerError,
		})
	case errors.Is(err, orchestrator.ErrNoKindsRequested):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   dto.CodeInvalidRequest,
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	default:
		// Covers invariant violations and anything unclassified. The
		// detailed reason goes to logs and telemetry, not the caller.
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   dto.CodeInternalError,
			Message: "embedding request failed",
			Code:    http.StatusInternalServerError,
		})
	}
}

func writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   dto.CodeInvalidRequest,
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}

// Embed handles POST /embed - the unified endpoint covering every output kind
func (h *EmbedHandler) Embed(c *gin.Context) {
	var req dto.EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(c, err)
		return
	}

	res, err := h.orch.Embed(c.Request.Context(), orchestrator.Request{
		Texts:     req.Texts,
		BatchSize: req.BatchSize,
		Threads:   req.Threads,
		AvgLen:    req.AvgLen,
		Kinds:     req.Kinds(),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEmbedResponse(res))
}

// SparseBM25 handles POST /sparse/bm25 - legacy sparse-only endpoint
func (h *EmbedHandler) SparseBM25(c *gin.Context) {
	var req dto.SparseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(c, err)
		return
	}

	res, err := h.orch.Embed(c.Request.Context(), orchestrator.Request{
		Texts:  req.Texts,
		AvgLen: req.AvgLen,
		Kinds:  types.KindSet{Sparse: true},
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEmbedResponse(res))
}

// DenseEmbed handles POST /dense/embed - legacy dense-only endpoint
func (h *EmbedHandler) DenseEmbed(c *gin.Context) {
	var req dto.DenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(c, err)
		return
	}

	res, err := h.orch.Embed(c.Request.Context(), orchestrator.Request{
		Texts:     req.Texts,
		BatchSize: req.BatchSize,
		Threads:   req.Threads,
		Kinds:     types.KindSet{Dense: true},
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEmbedResponse(res))
}

// HybridEmbed handles POST /hybrid/embed - legacy combined endpoint. It is
// the same pipeline as Embed; only the route differs.
func (h *EmbedHandler) HybridEmbed(c *gin.Context) {
	h.Embed(c)
}
