package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"digital_legacy_echo/internal/middleware"
	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// StoreUser creates a login and profile. Only a super admin may hand out admin roles.
func (h *UserHandler) StoreUser(c echo.Context) error {
	var req createUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	role := models.Role(req.Role)
	if role == models.RoleAdmin || role == models.RoleSuperAdmin {
		if current := middleware.CurrentUser(c); current == nil || !current.HasRole(models.RoleSuperAdmin) {
			return echo.NewHTTPError(http.StatusForbidden, "Only a super admin can grant admin roles")
		}
	}

	user, err := h.users.Create(c.Request().Context(), services.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, user)
}
