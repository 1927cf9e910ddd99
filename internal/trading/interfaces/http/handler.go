// Package http 实现交易结果查询的 HTTP 接口层：参数解析、边界验证与错误响应
package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akarimov/spimextrading/internal/trading/application"
	"github.com/akarimov/spimextrading/internal/trading/domain"
	"github.com/akarimov/spimextrading/pkg/logger"
)

// 参数边界，超出即在进入应用服务之前以 400 拒绝
const (
	maxLastDatesDays      = 365
	maxTradingResultsDays = 30
	maxLimit              = 1000
	defaultLimit          = 1000
)

// Handler 交易结果查询 HTTP 处理器
type Handler struct {
	service *application.TradingQueryService
}

// NewHandler 创建 HTTP 处理器实例
func NewHandler(service *application.TradingQueryService) *Handler {
	return &Handler{
		service: service,
	}
}

// LastTradingDates 获取最近交易日列表
// GET /api/v1/trading/last-dates?days=1
func (h *Handler) LastTradingDates(c *gin.Context) {
	ctx := c.Request.Context()

	days, err := parseBoundedInt(c.DefaultQuery("days", "1"), "days", 1, maxLastDatesDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.service.LastTradingDates(ctx, days)
	if err != nil {
		logger.Error(ctx, "Failed to serve last trading dates",
			"days", days,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get last trading dates"})
		return
	}

	c.JSON(http.StatusOK, dto)
}

// Dynamics 获取指定时间段内的交易结果
// GET /api/v1/trading/dynamics?start_date=&end_date=&oil_id=&delivery_type_id=&delivery_basis_id=&limit=
func (h *Handler) Dynamics(c *gin.Context) {
	ctx := c.Request.Context()

	startDate, err := parseDate(c.Query("start_date"), "start_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	endDate, err := parseDate(c.Query("end_date"), "end_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if startDate.After(endDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must not be after end_date"})
		return
	}

	limit, err := parseBoundedInt(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)), "limit", 1, maxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dtos, err := h.service.Dynamics(ctx, application.DynamicsQuery{
		StartDate: startDate,
		EndDate:   endDate,
		Filters:   parseFilters(c),
		Limit:     limit,
	})
	if err != nil {
		logger.Error(ctx, "Failed to serve dynamics",
			"start_date", c.Query("start_date"),
			"end_date", c.Query("end_date"),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get dynamics"})
		return
	}

	c.JSON(http.StatusOK, dtos)
}

// TradingResults 获取最近 days 个交易日窗口内的交易结果
// GET /api/v1/trading/results?days=1&oil_id=&delivery_type_id=&delivery_basis_id=&limit=
func (h *Handler) TradingResults(c *gin.Context) {
	ctx := c.Request.Context()

	days, err := parseBoundedInt(c.DefaultQuery("days", "1"), "days", 1, maxTradingResultsDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := parseBoundedInt(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)), "limit", 1, maxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dtos, err := h.service.TradingResults(ctx, application.TradingResultsQuery{
		Days:    days,
		Filters: parseFilters(c),
		Limit:   limit,
	})
	if err != nil {
		logger.Error(ctx, "Failed to serve trading results",
			"days", days,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get trading results"})
		return
	}

	c.JSON(http.StatusOK, dtos)
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1/trading")
	{
		v1.GET("/last-dates", h.LastTradingDates)
		v1.GET("/dynamics", h.Dynamics)
		v1.GET("/results", h.TradingResults)
	}
}

// parseFilters 解析可选过滤参数；缺失与空串一律归一化为 nil，
// 保证逻辑相同的请求派生出相同的缓存键
func parseFilters(c *gin.Context) domain.Filters {
	return domain.Filters{
		OilID:           optionalQuery(c, "oil_id"),
		DeliveryTypeID:  optionalQuery(c, "delivery_type_id"),
		DeliveryBasisID: optionalQuery(c, "delivery_basis_id"),
	}
}

func optionalQuery(c *gin.Context, name string) *string {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	return &v
}

func parseBoundedInt(raw, name string, min, max int) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be between %d and %d", name, min, max)
	}
	return v, nil
}

func parseDate(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	d, err := time.Parse(application.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", name)
	}
	return d, nil
}
