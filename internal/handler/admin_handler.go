package handler

import (
	"io"
	"net/http"
	"time"

	"panpos/internal/connectivity"
	"panpos/internal/model"
	"panpos/internal/offline"
	"panpos/internal/repository"
	"panpos/pkg/pagination"
	"panpos/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler covers the back-office surface: backup/restore, the batched
// reset, expenses, the audit trail and reporting. Reporting and audit reads
// aggregate in SQL, so they go straight to the remote repositories and are
// only served while online.
type AdminHandler struct {
	facade    *offline.Facade
	conn      connectivity.Provider
	audit     repository.AuditRepository
	reports   repository.ReportsRepository
	movements repository.StockMovementRepository
}

func NewAdminHandler(
	facade *offline.Facade,
	conn connectivity.Provider,
	audit repository.AuditRepository,
	reports repository.ReportsRepository,
	movements repository.StockMovementRepository,
) *AdminHandler {
	return &AdminHandler{
		facade:    facade,
		conn:      conn,
		audit:     audit,
		reports:   reports,
		movements: movements,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/backup", h.Backup)
		api.POST("/restore", h.Restore)
		api.POST("/reset", h.Reset)

		api.GET("/expenses", h.ListExpenses)
		api.POST("/expenses", h.CreateExpense)
		api.DELETE("/expenses/:id", h.DeleteExpense)

		api.GET("/audit", h.ListAudit)
		api.GET("/reports/summary", h.SalesSummary)
		api.GET("/reports/debtors", h.TopDebtors)
		api.GET("/products/:id/movements", h.ListStockMovements)
	}
}

// Backup returns a full data snapshot as a downloadable JSON document
// @Summary      Download backup
// @Tags         admin
// @Produce      json
// @Success      200  {object}  offline.Backup
// @Router       /api/backup [get]
func (h *AdminHandler) Backup(c *gin.Context) {
	backup, err := h.facade.Dump(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	filename := "panpos-backup-" + backup.BackupDate.Format("2006-01-02") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.JSON(http.StatusOK, backup)
}

// Restore replaces remote data with an uploaded backup file. Products and
// clients are always restored; sales and settings only when requested.
// @Summary      Restore backup
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        sales     query     bool  false  "Also restore sales"
// @Param        settings  query     bool  false  "Also restore settings"
// @Success      200       {object}  response.Response
// @Failure      400       {object}  response.Response
// @Failure      503       {object}  response.Response
// @Router       /api/restore [post]
func (h *AdminHandler) Restore(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read backup payload: "+err.Error()))
		return
	}
	scope := offline.RestoreScope{
		Sales:    c.Query("sales") == "true",
		Settings: c.Query("settings") == "true",
	}
	if err := h.facade.Restore(c.Request.Context(), data, scope); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"restored": true,
	}))
}

// Reset clears sales, payments, suspended sales and zeroes all client debt
// @Summary      Reset ledger data
// @Tags         admin
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /api/reset [post]
func (h *AdminHandler) Reset(c *gin.Context) {
	if err := h.facade.Reset(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"reset": true,
	}))
}

// ListExpenses returns expenses, paginated and newest first
// @Summary      List expenses
// @Tags         expenses
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=[]model.Expense}
// @Failure      503    {object}  response.Response
// @Router       /api/expenses [get]
func (h *AdminHandler) ListExpenses(c *gin.Context) {
	params := pagination.Parse(c)
	expenses, total, err := h.facade.ListExpenses(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// CreateExpense records an expense
// @Summary      Create expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        expense  body      model.Expense  true  "Expense"
// @Success      201      {object}  response.Response{data=model.Expense}
// @Failure      400      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/expenses [post]
func (h *AdminHandler) CreateExpense(c *gin.Context) {
	var expense model.Expense
	if err := c.ShouldBindJSON(&expense); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.facade.CreateExpense(c.Request.Context(), &expense); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// DeleteExpense removes an expense by id
// @Summary      Delete expense
// @Tags         expenses
// @Produce      json
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /api/expenses/{id} [delete]
func (h *AdminHandler) DeleteExpense(c *gin.Context) {
	if err := h.facade.DeleteExpense(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"deleted": true,
	}))
}

// ListAudit returns the audit trail, newest first
// @Summary      List audit log
// @Tags         admin
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=[]model.AuditLog}
// @Failure      503    {object}  response.Response
// @Router       /api/audit [get]
func (h *AdminHandler) ListAudit(c *gin.Context) {
	if !h.conn.IsOnline() {
		fail(c, offline.ErrOffline)
		return
	}
	params := pagination.Parse(c)
	logs, total, err := h.audit.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// SalesSummary returns daily POS and dispatch totals for a date range
// @Summary      Sales summary report
// @Tags         reports
// @Produce      json
// @Param        start  query     string  false  "Range start (YYYY-MM-DD)"
// @Param        end    query     string  false  "Range end (YYYY-MM-DD)"
// @Success      200    {object}  response.Response{data=[]repository.SalesSummaryRow}
// @Failure      400    {object}  response.Response
// @Failure      503    {object}  response.Response
// @Router       /api/reports/summary [get]
func (h *AdminHandler) SalesSummary(c *gin.Context) {
	if !h.conn.IsOnline() {
		fail(c, offline.ErrOffline)
		return
	}
	end := time.Now()
	start := end.AddDate(0, 0, -30)
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid start date: "+err.Error()))
			return
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid end date: "+err.Error()))
			return
		}
		// Include the whole end day
		end = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	rows, err := h.reports.SalesSummary(c.Request.Context(), start, end)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// TopDebtors returns the clients with the highest outstanding debt
// @Summary      Top debtors report
// @Tags         reports
// @Produce      json
// @Param        limit  query     int  false  "Max rows"  default(10)
// @Success      200    {object}  response.Response{data=[]repository.DebtorRow}
// @Failure      503    {object}  response.Response
// @Router       /api/reports/debtors [get]
func (h *AdminHandler) TopDebtors(c *gin.Context) {
	if !h.conn.IsOnline() {
		fail(c, offline.ErrOffline)
		return
	}
	limit := pagination.Parse(c).Limit
	rows, err := h.reports.TopDebtors(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// ListStockMovements returns the stock movement history for one product
// @Summary      List stock movements
// @Tags         reports
// @Produce      json
// @Param        id     path      string  true   "Product ID"
// @Param        page   query     int     false  "Page number"
// @Param        limit  query     int     false  "Items per page"
// @Success      200    {object}  response.Response{data=[]model.StockMovement}
// @Failure      503    {object}  response.Response
// @Router       /api/products/{id}/movements [get]
func (h *AdminHandler) ListStockMovements(c *gin.Context) {
	if !h.conn.IsOnline() {
		fail(c, offline.ErrOffline)
		return
	}
	params := pagination.Parse(c)
	movements, total, err := h.movements.ListByProduct(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
