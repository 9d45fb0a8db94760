package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/server/http/dto"
	"github.com/polkiloo/snackbar/internal/server/http/middleware"
)

// AuthHandler processes staff login and registration.
type AuthHandler struct {
	facade AuthFacade
}

// NewAuthHandler creates AuthHandler instance.
func NewAuthHandler(facade AuthFacade) *AuthHandler {
	return &AuthHandler{facade: facade}
}

// Login handles POST /api/staff/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	staff, token, err := h.facade.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token, StaffID: staff.ID, Role: string(staff.Role)})
}

// Register handles POST /api/staff. Only managers reach it.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	role := model.RoleCashier
	if req.Role != "" {
		role = model.StaffRole(strings.ToUpper(strings.TrimSpace(req.Role)))
	}

	staff, err := h.facade.RegisterStaff(c.Request.Context(), req.Login, req.Password, role)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.StaffResponse{
		ID:        staff.ID,
		Login:     staff.Login,
		Role:      string(staff.Role),
		CreatedAt: staff.CreatedAt,
	})
}
