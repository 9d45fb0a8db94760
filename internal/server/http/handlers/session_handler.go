package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/server/http/dto"
)

// SessionHandler runs the till: work sessions, manual movements and
// reconciliation.
type SessionHandler struct {
	facade CashFacade
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(facade CashFacade) *SessionHandler {
	return &SessionHandler{facade: facade}
}

// Start handles POST /api/sessions.
func (h *SessionHandler) Start(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}
	session, err := h.facade.StartSession(c.Request.Context(), req.OpeningFloat, CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Current handles GET /api/sessions/current.
func (h *SessionHandler) Current(c *gin.Context) {
	session, err := h.facade.CurrentSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Pause handles POST /api/sessions/current/pause.
func (h *SessionHandler) Pause(c *gin.Context) {
	h.respondSession(c, h.facade.PauseSession)
}

// Resume handles POST /api/sessions/current/resume.
func (h *SessionHandler) Resume(c *gin.Context) {
	h.respondSession(c, h.facade.ResumeSession)
}

func (h *SessionHandler) respondSession(c *gin.Context, op func(ctx context.Context, actorID int64) (*model.WorkSession, error)) {
	session, err := op(c.Request.Context(), CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Close handles POST /api/sessions/current/close.
func (h *SessionHandler) Close(c *gin.Context) {
	var req dto.CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}
	rec, err := h.facade.CloseSession(c.Request.Context(), req.Counted, CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Reconciliation handles GET /api/sessions/:id/reconciliation.
func (h *SessionHandler) Reconciliation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.facade.Reconciliation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Movements handles GET /api/sessions/:id/movements.
func (h *SessionHandler) Movements(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	movements, err := h.facade.Movements(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if movements == nil {
		movements = []model.CashMovement{}
	}
	c.JSON(http.StatusOK, movements)
}

// Withdraw handles POST /api/sessions/current/withdrawals.
func (h *SessionHandler) Withdraw(c *gin.Context) {
	h.recordMovement(c, h.facade.RecordWithdrawal)
}

// Deposit handles POST /api/sessions/current/deposits.
func (h *SessionHandler) Deposit(c *gin.Context) {
	h.recordMovement(c, h.facade.RecordDeposit)
}

func (h *SessionHandler) recordMovement(c *gin.Context, record func(ctx context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error)) {
	var req dto.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}
	movement, err := record(c.Request.Context(), req.Amount, req.Description, CurrentStaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

// Dashboard handles GET /api/dashboard/differences.
func (h *SessionHandler) Dashboard(c *gin.Context) {
	dash, err := h.facade.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
