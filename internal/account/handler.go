package account

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/accounts", h.Create)
	r.GET("/employees/:employee_id/accounts", h.ListByOwner)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	if !auth.CanActFor(c, req.OwnerID) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "cannot register an account for another employee"))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListByOwner(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("employee_id"), 10, 64)
	if err != nil || ownerID <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid employee_id"))
		return
	}
	if !auth.CanActFor(c, ownerID) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "cannot view another employee's accounts"))
		return
	}
	list, err := h.svc.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}
