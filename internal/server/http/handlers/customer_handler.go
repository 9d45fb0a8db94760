package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/snackbar/internal/server/http/dto"
	"github.com/polkiloo/snackbar/internal/server/http/middleware"
	"github.com/polkiloo/snackbar/internal/usecase"
)

// CustomerHandler serves the table QR page and the kiosk.
type CustomerHandler struct {
	facade CustomerFacade
	now    func() time.Time
}

// NewCustomerHandler constructs CustomerHandler.
func NewCustomerHandler(facade CustomerFacade) *CustomerHandler {
	return &CustomerHandler{facade: facade, now: time.Now}
}

// ShopStatus handles GET /api/shop/status.
func (h *CustomerHandler) ShopStatus(c *gin.Context) {
	status, err := h.facade.ShopStatus(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ShopStatusResponse{Status: string(status)})
}

// SubmitTable handles POST /api/pending/table.
func (h *CustomerHandler) SubmitTable(c *gin.Context) {
	var req dto.TableSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}

	pending, err := h.facade.SubmitTable(c.Request.Context(), middleware.IdempotencyKey(c), usecase.TableSubmission{
		TableRef:     req.TableRef,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Items:        toItemRequests(req.Items),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toPendingResponse(*pending, h.now()))
}

// SubmitKiosk handles POST /api/pending/kiosk.
func (h *CustomerHandler) SubmitKiosk(c *gin.Context) {
	var req dto.KioskSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}
	payments, err := toPaymentRequests(req.Payments)
	if err != nil {
		writeError(c, err)
		return
	}

	pending, err := h.facade.SubmitKiosk(c.Request.Context(), middleware.IdempotencyKey(c), usecase.KioskSubmission{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Items:        toItemRequests(req.Items),
		Payments:     payments,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toPendingResponse(*pending, h.now()))
}

// Status handles GET /api/pending/:origin/:id/status.
func (h *CustomerHandler) Status(c *gin.Context) {
	origin, ok := pathOrigin(c)
	if !ok {
		return
	}
	status, err := h.facade.SubmissionStatus(c.Request.Context(), origin, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.SubmissionStatusResponse{
		PendingID:   status.PendingID,
		State:       status.State,
		WaitSeconds: int64(status.WaitTime / time.Second),
	}
	if status.Order != nil {
		order := toOrderResponse(*status.Order)
		resp.Order = &order
	}
	c.JSON(http.StatusOK, resp)
}
