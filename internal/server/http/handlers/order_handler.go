package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/server/http/dto"
	"github.com/polkiloo/snackbar/internal/server/http/middleware"
)

// OrderHandler manages committed orders.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// List handles GET /api/orders?status=PENDING,READY. Without a filter the
// kitchen board is returned.
func (h *OrderHandler) List(c *gin.Context) {
	var statuses []model.OrderStatus
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := model.ParseOrderStatus(part)
			if err != nil {
				writeError(c, err)
				return
			}
			statuses = append(statuses, s)
		}
	}

	orders, err := h.facade.Orders(c.Request.Context(), statuses)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.facade.Order(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// UpdateStatus handles POST /api/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	order, err := h.facade.UpdateOrderStatus(c.Request.Context(), id, status, CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Settle handles POST /api/orders/:id/settle.
func (h *OrderHandler) Settle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}
	payments, err := toPaymentRequests(req.Payments)
	if err != nil {
		writeError(c, err)
		return
	}

	order, err := h.facade.Settle(c.Request.Context(), middleware.IdempotencyKey(c), id, payments, CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// CorrectTendered handles POST /api/orders/:id/tendered.
func (h *OrderHandler) CorrectTendered(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.TenderedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}

	order, err := h.facade.CorrectTendered(c.Request.Context(), id, req.Tendered, CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}
