package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repurposer/internal/models"
	"repurposer/internal/services"
)

type PasswordHandler struct {
	accounts services.AccountService
}

func NewPasswordHandler(accounts services.AccountService) *PasswordHandler {
	return &PasswordHandler{accounts: accounts}
}

// @Summary      Mail a password reset code
// @Tags         Password
// @Accept       json
// @Produce      json
// @Param        body  body  handlers.emailRequest  true  "request body"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /password/request [post]
func (h *PasswordHandler) RequestOTP(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.RequestPasswordOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "OTP sent")
}

func (h *PasswordHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.VerifyPasswordOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "OTP valid")
}

// @Summary      Reset the password with a mailed code
// @Tags         Password
// @Accept       json
// @Produce      json
// @Param        reset  body  models.PasswordResetRequest  true  "request body"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /password/reset [post]
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req models.PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Password reset success")
}
