package attendance

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

	// 打刻（本人 or 管理者）
	r.POST("/attendances/clock-in", h.ClockIn)
	r.POST("/attendances/:attendance_id/clock-out", h.ClockOut)
	r.GET("/attendances", h.List)
	r.GET("/attendances/:attendance_id", h.Get)
	r.GET("/employees/:employee_id/open-shift", h.OpenShift)

	// 管理者のみ
	sup := r.Group("", auth.RequireRole(auth.RoleSupervisor))
	sup.POST("/attendances/manual", h.ManualRegister)
	sup.PUT("/attendances/:attendance_id", h.Modify)
	sup.POST("/attendances/:attendance_id/approve", h.Approve)
}

// ---------- handlers ----------

func (h *Handler) ClockIn(c *gin.Context) {
	var req ClockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	if !auth.CanActFor(c, req.EmployeeID) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "cannot clock in for another employee"))
		return
	}
	res, err := h.svc.ClockIn(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Header("Location", "/attendances/"+strconv.FormatInt(res.AttendanceID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ClockOut(c *gin.Context) {
	id, ok := paramID(c, "attendance_id")
	if !ok {
		return
	}
	var req ClockOutRequest
	// body は任意
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
			return
		}
	}
	if !h.authorizeRecord(c, id) {
		return
	}
	res, err := h.svc.ClockOut(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := paramID(c, "attendance_id")
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
	// employee は本人分のみ
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
	if v := c.Query("from"); v != "" {
		q.From = &v
	}
	if v := c.Query("to"); v != "" {
		q.To = &v
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

func (h *Handler) OpenShift(c *gin.Context) {
	id, ok := paramID(c, "employee_id")
	if !ok {
		return
	}
	if !auth.CanActFor(c, id) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "forbidden"))
		return
	}
	res, err := h.svc.OpenShift(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ManualRegister(c *gin.Context) {
	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.ManualRegister(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Header("Location", "/attendances/"+strconv.FormatInt(res.AttendanceID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Modify(c *gin.Context) {
	id, ok := paramID(c, "attendance_id")
	if !ok {
		return
	}
	var req ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Modify(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := paramID(c, "attendance_id")
	if !ok {
		return
	}
	res, err := h.svc.Approve(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

// authorizeRecord: 打刻の持ち主本人か管理者か
func (h *Handler) authorizeRecord(c *gin.Context, id int64) bool {
	if c.GetString(auth.CtxRoleKey) == auth.RoleSupervisor {
		return true
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return false
	}
	if !auth.CanActFor(c, rec.EmployeeID) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "forbidden"))
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, name+" must be a positive integer"))
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
