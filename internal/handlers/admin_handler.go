package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repurposer/internal/models"
	"repurposer/internal/services"
)

type AdminHandler struct {
	accounts services.AccountService
}

func NewAdminHandler(accounts services.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

func adminKey(c *gin.Context) string {
	return c.GetHeader(services.HeaderAdminKey)
}

// Upgrade takes email, plan (default pro) and cycle (default monthly) as
// query parameters.
//
// @Summary      Upgrade a user plan
// @Tags         Admin
// @Produce      json
// @Param        email  query  string  true  "Account email"
// @Param        plan  query  string  false  "pro or advanced"
// @Param        cycle  query  string  false  "monthly or yearly"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /upgrade [post]
func (h *AdminHandler) Upgrade(c *gin.Context) {
	plan := c.DefaultQuery("plan", services.PlanPro)
	cycle := c.DefaultQuery("cycle", services.CycleMonthly)
	if err := h.accounts.Upgrade(c.Request.Context(), c.Query("email"), plan, cycle, adminKey(c)); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Upgraded")
}

// @Summary      List users with their plans
// @Tags         Admin
// @Produce      json
// @Param        X-Admin-Key  header  string  true  "Admin key"
// @Success      200  {array}  models.PlanInfo
// @Failure      403  {object}  map[string]string
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.accounts.AdminListUsers(c.Request.Context(), adminKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// @Summary      Set a user plan
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        plan  body  models.SetPlanRequest  true  "request body"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/users/plan [post]
func (h *AdminHandler) SetPlan(c *gin.Context) {
	req := models.SetPlanRequest{Plan: services.PlanFree, Cycle: services.CycleMonthly}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.AdminSetPlan(c.Request.Context(), req, adminKey(c)); err != nil {
		respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Plan updated")
}
