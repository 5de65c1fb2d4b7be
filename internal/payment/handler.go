package payment

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

	r.POST("/payments", h.CreateOrGet)
	r.GET("/payments", h.List)
	r.GET("/payments/:payment_id", h.Get)
	r.POST("/payments/:payment_id/request", h.Request)

	// 入金確定は管理者のみ
	sup := r.Group("", auth.RequireRole(auth.RoleSupervisor))
	sup.POST("/payments/:payment_id/complete", h.Complete)
	sup.POST("/payments/execute", h.ExecuteNew)
}

func (h *Handler) CreateOrGet(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	if !auth.CanActFor(c, req.EmployeeID) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "cannot create a payment for another employee"))
		return
	}
	res, created, err := h.svc.CreateOrGet(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	if !created {
		c.JSON(http.StatusOK, res)
		return
	}
	c.Header("Location", "/payments/"+strconv.FormatInt(res.PaymentID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	if !auth.CanActFor(c, res.EmployeeID) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "forbidden"))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	q := ListQuery{
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if v := c.Query("employee_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "employee_id must be numeric"))
			return
		}
		q.EmployeeID = &id
	}
	if c.GetString(auth.CtxRoleKey) != auth.RoleSupervisor {
		if q.EmployeeID == nil || !auth.CanActFor(c, *q.EmployeeID) {
			c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "employee_id of the caller is required"))
			return
		}
	}
	if v := c.Query("store_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "store_id must be numeric"))
			return
		}
		q.StoreID = &id
	}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		q.Status = &st
	}

	res, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Request(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if c.GetString(auth.CtxRoleKey) != auth.RoleSupervisor {
		p, err := h.svc.Get(c.Request.Context(), id)
		if err != nil {
			c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
			return
		}
		if !auth.CanActFor(c, p.EmployeeID) {
			c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "forbidden"))
			return
		}
	}
	res, err := h.svc.Request(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req CompleteRequest
	// body は任意
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
			return
		}
	}
	res, err := h.svc.Complete(c.Request.Context(), id, req.AccountID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ExecuteNew(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.ExecuteNew(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("payment_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "payment_id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
