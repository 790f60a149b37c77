package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repurposer/internal/services"
)

type GenerateHandler struct {
	repurpose services.RepurposeService
}

func NewGenerateHandler(repurpose services.RepurposeService) *GenerateHandler {
	return &GenerateHandler{repurpose: repurpose}
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &body) {
		return
	}
	blocks, err := h.repurpose.Generate(c.Request.Context(), services.GenerateRequest{
		Token:    tokenFromCtx(c),
		Email:    c.Query("email"),
		ClientIP: services.ClientIP(c.Request.Header, c.RemoteIP()),
		Text:     body.Text,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}
