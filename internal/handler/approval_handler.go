package handler

import (
	"context"
	"net/http"

	"docapproval/internal/service"
	"docapproval/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	docs := router.Group("/documents/:id")
	{
		docs.GET("/progress", h.GetProgress)
		docs.GET("/can-act", h.CanAct)
		docs.PUT("/roles/:roleId/approve", h.ApproveStep)
		docs.PUT("/roles/:roleId/reject", h.RejectStep)
	}
	router.GET("/approvals/pending", h.ListPending)
}

// GetProgress returns status, percentage and every step of a document
// @Summary      Document approval progress
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Document ID"
// @Success      200  {object}  response.Response{data=service.ProgressResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/documents/{id}/progress [get]
func (h *ApprovalHandler) GetProgress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	progress, err := h.approvalService.GetDocumentProgress(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, progress))
}

// CanAct reports whether the current user may approve or reject the document now
// @Summary      Can the current user act
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Document ID"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/documents/{id}/can-act [get]
func (h *ApprovalHandler) CanAct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	allowed, err := h.approvalService.CanUserAct(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"can_act": allowed}))
}

// ApproveStep approves the current user's step for a role
// @Summary      Approve step
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                    true   "Document ID"
// @Param        roleId   path      int                    true   "Role ID"
// @Param        payload  body      service.ActionRequest  false  "Remarks"
// @Success      200      {object}  response.Response{data=service.ActionResult}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/documents/{id}/roles/{roleId}/approve [put]
func (h *ApprovalHandler) ApproveStep(c *gin.Context) {
	h.act(c, h.approvalService.ApproveStep)
}

// RejectStep rejects the current user's step for a role
// @Summary      Reject step
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                    true   "Document ID"
// @Param        roleId   path      int                    true   "Role ID"
// @Param        payload  body      service.ActionRequest  false  "Remarks"
// @Success      200      {object}  response.Response{data=service.ActionResult}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/documents/{id}/roles/{roleId}/reject [put]
func (h *ApprovalHandler) RejectStep(c *gin.Context) {
	h.act(c, h.approvalService.RejectStep)
}

type actionFunc func(ctx context.Context, documentID, roleID, userID uint, remarks string) (service.ActionResult, error)

func (h *ApprovalHandler) act(c *gin.Context, fn actionFunc) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := idParam(c, "id")
	if !ok {
		return
	}
	roleID, ok := idParam(c, "roleId")
	if !ok {
		return
	}

	var req service.ActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
	}

	result, err := fn(c.Request.Context(), docID, roleID, userID, req.Remarks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListPending returns the documents waiting on the current user
// @Summary      Documents awaiting my action
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.DocumentResponse}
// @Router       /api/approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	docs, err := h.approvalService.ListActionable(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, docs))
}
