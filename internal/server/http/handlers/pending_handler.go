package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/snackbar/internal/server/http/dto"
	"github.com/polkiloo/snackbar/internal/server/http/middleware"
)

// PendingHandler lets staff review, accept and reject pending orders.
type PendingHandler struct {
	facade PendingFacade
	now    func() time.Time
}

// NewPendingHandler constructs PendingHandler.
func NewPendingHandler(facade PendingFacade) *PendingHandler {
	return &PendingHandler{facade: facade, now: time.Now}
}

// List handles GET /api/pending/:origin, oldest first.
func (h *PendingHandler) List(c *gin.Context) {
	origin, ok := pathOrigin(c)
	if !ok {
		return
	}
	pending, err := h.facade.PendingOrders(c.Request.Context(), origin)
	if err != nil {
		writeError(c, err)
		return
	}

	now := h.now()
	resp := make([]dto.PendingResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, toPendingResponse(p, now))
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/pending/:origin/:id.
func (h *PendingHandler) Get(c *gin.Context) {
	origin, ok := pathOrigin(c)
	if !ok {
		return
	}
	pending, err := h.facade.PendingOrder(c.Request.Context(), origin, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPendingResponse(*pending, h.now()))
}

// Accept handles POST /api/pending/:origin/:id/accept.
func (h *PendingHandler) Accept(c *gin.Context) {
	origin, ok := pathOrigin(c)
	if !ok {
		return
	}
	order, err := h.facade.Accept(c.Request.Context(), middleware.IdempotencyKey(c), origin, c.Param("id"), CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*order))
}

// Reject handles POST /api/pending/:origin/:id/reject. The body is optional.
func (h *PendingHandler) Reject(c *gin.Context) {
	origin, ok := pathOrigin(c)
	if !ok {
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "malformed request body")
		return
	}

	pending, err := h.facade.Reject(c.Request.Context(), origin, c.Param("id"), CurrentStaffID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPendingResponse(*pending, h.now()))
}
