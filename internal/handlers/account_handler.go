package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repurposer/internal/models"
	"repurposer/internal/services"
)

type AccountHandler struct {
	accounts services.AccountService
}

func NewAccountHandler(accounts services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// @Summary      Current plan and remaining days
// @Tags         Account
// @Produce      json
// @Param        email  query  string  false  "Account email"
// @Success      200  {object}  models.PlanInfo
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /plan [get]
func (h *AccountHandler) GetPlan(c *gin.Context) {
	info, err := h.accounts.GetPlan(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	view, err := h.accounts.GetAccount(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) Update(c *gin.Context) {
	var req models.UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.UpdateAccount(c.Request.Context(), tokenFromCtx(c), req); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Account updated")
}

func (h *AccountHandler) Delete(c *gin.Context) {
	removed, err := h.accounts.DeleteAccount(c.Request.Context(), tokenFromCtx(c), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "User not found"
	if removed {
		msg = "Deleted"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "deleted": removed})
}
