package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repurposer/internal/models"
	"repurposer/internal/services"
)

type AuthHandler struct {
	accounts services.AccountService
}

func NewAuthHandler(accounts services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type emailRequest struct {
	Email string `json:"email"`
}

// @Summary      Create an account
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        signup  body  models.SignupRequest  true  "request body"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.Signup(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Signup success")
}

// @Summary      Mail a signup code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  handlers.emailRequest  true  "request body"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /signup/request-otp [post]
func (h *AuthHandler) RequestSignupOTP(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.RequestSignupOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Signup OTP sent")
}

// Login returns the session token. Clients send it back as X-Auth-Token or
// a bearer Authorization header.
//
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body  models.LoginRequest  true  "request body"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token})
}

func (h *AuthHandler) UserExists(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
		return
	}
	ok, err := h.accounts.UserExists(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": ok})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), tokenFromCtx(c), c.Query("email")); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Logged out")
}
