package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketline/internal/models"
)

// OnAuthUserCreated - POST /internal/auth/users
// Хук auth-провайдера: аккаунт создан, профиль будет создан асинхронно
// @Summary Auth provider account-created hook
// @Tags hooks
// @Accept json
// @Param X-Hook-Secret header string true "Shared hook secret"
// @Param body body models.AuthUserHook true "Account"
// @Success 202
// @Failure 401 {object} models.ErrorResponse
// @Router /internal/auth/users [post]
func (h *Handlers) OnAuthUserCreated(c *gin.Context) {
	var hook models.AuthUserHook
	if err := c.ShouldBindJSON(&hook); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.users.Announce(c.Request.Context(), hook); err != nil {
		respondError(c, err, "Failed to announce user")
		return
	}

	c.Status(http.StatusAccepted)
}
