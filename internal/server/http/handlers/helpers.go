package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/server/http/dto"
	"github.com/polkiloo/snackbar/internal/server/http/middleware"
	"github.com/polkiloo/snackbar/internal/usecase"
)

// CurrentStaffID extracts authenticated staff identifier from context.
func CurrentStaffID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.StaffIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrValidation),
		errors.Is(err, domainErrors.ErrProductUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrPaymentMismatch),
		errors.Is(err, domainErrors.ErrSessionAlreadyActive),
		errors.Is(err, domainErrors.ErrNoActiveSession),
		errors.Is(err, domainErrors.ErrSessionNotClosed),
		errors.Is(err, domainErrors.ErrInvalidTransition),
		errors.Is(err, domainErrors.ErrIdempotencyInFlight),
		errors.Is(err, domainErrors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domainErrors.ErrExhaustedRetries):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = http.StatusText(status)
	}
	c.JSON(status, dto.ErrorResponse{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg})
}

func pathOrigin(c *gin.Context) (model.Origin, bool) {
	origin, err := model.ParseOrigin(c.Param("origin"))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return "", false
	}
	return origin, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func toItemRequests(in []dto.ItemRequest) []usecase.ItemRequest {
	out := make([]usecase.ItemRequest, len(in))
	for i, it := range in {
		out[i] = usecase.ItemRequest{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Notes:       it.Notes,
			AdditionIDs: it.AdditionIDs,
		}
	}
	return out
}

func toPaymentRequests(in []dto.PaymentRequest) ([]usecase.PaymentRequest, error) {
	out := make([]usecase.PaymentRequest, len(in))
	for i, p := range in {
		method, err := model.ParsePaymentMethod(p.Method)
		if err != nil {
			return nil, err
		}
		out[i] = usecase.PaymentRequest{Method: method, Amount: p.Amount, Tendered: p.Tendered}
	}
	return out, nil
}

func toOrderResponse(o model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:           o.ID,
		Number:       o.Number.String(),
		Origin:       string(o.Origin),
		PendingID:    o.PendingID,
		Status:       string(o.Status),
		TableRef:     o.TableRef,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		Items:        o.Items,
		Payments:     o.Payments,
		Total:        o.Total,
		Paid:         o.Paid(),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func toPendingResponse(p model.PendingOrder, now time.Time) dto.PendingResponse {
	return dto.PendingResponse{
		ID:           p.ID,
		Origin:       string(p.Origin),
		TableRef:     p.TableRef,
		CustomerID:   p.CustomerID,
		CustomerName: p.CustomerName,
		Items:        p.Items,
		Payments:     p.Payments,
		Total:        p.Total(),
		SubmittedAt:  p.SubmittedAt,
		WaitSeconds:  int64(p.WaitTime(now) / time.Second),
	}
}
