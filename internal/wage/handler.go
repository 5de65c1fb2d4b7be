package wage

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
	r.GET("/wages/estimate", h.Estimate)
}

// GET /wages/estimate?employee_id=&store_id=&year=&month=
func (h *Handler) Estimate(c *gin.Context) {
	employeeID, err1 := strconv.ParseInt(c.Query("employee_id"), 10, 64)
	storeID, err2 := strconv.ParseInt(c.Query("store_id"), 10, 64)
	year, err3 := strconv.Atoi(c.Query("year"))
	month, err4 := strconv.Atoi(c.Query("month"))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "employee_id, store_id, year and month must be integers"))
		return
	}
	if !auth.CanActFor(c, employeeID) {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "cannot view another employee's wage"))
		return
	}

	est, err := h.svc.Estimate(c.Request.Context(), employeeID, storeID, year, month)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, est)
}
