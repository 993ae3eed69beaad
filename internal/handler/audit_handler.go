package handler

import (
	"net/http"

	"docapproval/internal/middleware"
	"docapproval/internal/service"
	"docapproval/pkg/pagination"
	"docapproval/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireAdmin())
	{
		group.GET("", h.GetAuditLogs)
	}
	router.GET("/documents/:id/history", h.GetDocumentHistory)
}

// GetAuditLogs retrieves paginated records with users preloaded
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(logs, total)))
}

// GetDocumentHistory returns the approval trail of one document
// @Summary      Document history
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Document ID"
// @Success      200  {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /api/documents/{id}/history [get]
func (h *AuditHandler) GetDocumentHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	history, err := h.auditService.GetDocumentHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}
