// Package application 实现交易结果查询用例：缓存键派生、缓存旁路读写与 DTO 映射
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/akarimov/spimextrading/internal/trading/domain"
	tradingcache "github.com/akarimov/spimextrading/internal/trading/infrastructure/cache"
	"github.com/akarimov/spimextrading/pkg/logger"
)

// 端点标识，参与缓存键派生
const (
	endpointLastDates      = "/last-dates"
	endpointDynamics       = "/dynamics"
	endpointTradingResults = "/results"
)

// DateLayout 交易日的序列化格式
const DateLayout = "2006-01-02"

// TradingResultDTO 交易结果响应 DTO
// 字段与缓存中的序列化形态一一对应，日期渲染为 YYYY-MM-DD 字符串
type TradingResultDTO struct {
	ExchangeProductID   string  `json:"exchange_product_id"`
	ExchangeProductName string  `json:"exchange_product_name"`
	OilID               string  `json:"oil_id"`
	DeliveryBasisID     string  `json:"delivery_basis_id"`
	DeliveryBasisName   string  `json:"delivery_basis_name"`
	DeliveryTypeID      string  `json:"delivery_type_id"`
	Volume              float64 `json:"volume"`
	Total               float64 `json:"total"`
	Count               int64   `json:"count"`
	Date                string  `json:"date"`
}

// TradingDatesDTO 交易日列表响应 DTO
type TradingDatesDTO struct {
	Dates []string `json:"dates"`
}

// DynamicsQuery 指定时间段查询参数，由接口层验证后传入
type DynamicsQuery struct {
	StartDate time.Time
	EndDate   time.Time
	Filters   domain.Filters
	Limit     int
}

// TradingResultsQuery 最近交易日窗口查询参数，由接口层验证后传入
type TradingResultsQuery struct {
	Days    int
	Filters domain.Filters
	Limit   int
}

// TradingQueryService 交易结果查询应用服务
// 每个用例的流程：归一化参数 → 派生缓存键 → 查缓存（命中直接返回）→
// 仓储查询 → 转换 DTO → 按每日发布时刻写缓存 → 返回
type TradingQueryService struct {
	repo  domain.TradingResultRepository
	cache *tradingcache.Store
	ttl   *tradingcache.Policy
}

// NewTradingQueryService 创建交易结果查询应用服务
func NewTradingQueryService(repo domain.TradingResultRepository, cache *tradingcache.Store, ttl *tradingcache.Policy) *TradingQueryService {
	return &TradingQueryService{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// LastTradingDates 获取最近 days 个交易日
func (s *TradingQueryService) LastTradingDates(ctx context.Context, days int) (*TradingDatesDTO, error) {
	key := tradingcache.Key(endpointLastDates, map[string]any{
		"days": days,
	})

	var cached TradingDatesDTO
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	dates, err := s.repo.LastTradingDates(ctx, days)
	if err != nil {
		logger.Error(ctx, "Failed to get last trading dates",
			"days", days,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get last trading dates: %w", err)
	}

	dto := &TradingDatesDTO{Dates: make([]string, 0, len(dates))}
	for _, d := range dates {
		dto.Dates = append(dto.Dates, d.Format(DateLayout))
	}

	s.cache.Set(ctx, key, dto, s.ttl.UntilCutover())
	return dto, nil
}

// Dynamics 获取指定时间段内的交易结果
func (s *TradingQueryService) Dynamics(ctx context.Context, q DynamicsQuery) ([]TradingResultDTO, error) {
	key := tradingcache.Key(endpointDynamics, map[string]any{
		"start_date":        q.StartDate.Format(DateLayout),
		"end_date":          q.EndDate.Format(DateLayout),
		"oil_id":            filterValue(q.Filters.OilID),
		"delivery_type_id":  filterValue(q.Filters.DeliveryTypeID),
		"delivery_basis_id": filterValue(q.Filters.DeliveryBasisID),
		"limit":             q.Limit,
	})

	var cached []TradingResultDTO
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	results, err := s.repo.Dynamics(ctx, q.StartDate, q.EndDate, q.Filters, q.Limit)
	if err != nil {
		logger.Error(ctx, "Failed to get dynamics",
			"start_date", q.StartDate.Format(DateLayout),
			"end_date", q.EndDate.Format(DateLayout),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get dynamics: %w", err)
	}

	dtos := toDTOs(results)
	s.cache.Set(ctx, key, dtos, s.ttl.UntilCutover())
	return dtos, nil
}

// TradingResults 获取最近 days 个交易日窗口内的交易结果
func (s *TradingQueryService) TradingResults(ctx context.Context, q TradingResultsQuery) ([]TradingResultDTO, error) {
	key := tradingcache.Key(endpointTradingResults, map[string]any{
		"days":              q.Days,
		"oil_id":            filterValue(q.Filters.OilID),
		"delivery_type_id":  filterValue(q.Filters.DeliveryTypeID),
		"delivery_basis_id": filterValue(q.Filters.DeliveryBasisID),
		"limit":             q.Limit,
	})

	var cached []TradingResultDTO
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	results, err := s.repo.TradingResults(ctx, q.Days, q.Filters, q.Limit)
	if err != nil {
		logger.Error(ctx, "Failed to get trading results",
			"days", q.Days,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get trading results: %w", err)
	}

	dtos := toDTOs(results)
	s.cache.Set(ctx, key, dtos, s.ttl.UntilCutover())
	return dtos, nil
}

// filterValue 将可选过滤条件归一化为缓存键参数：nil 序列化为 JSON null
func filterValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func toDTOs(results []*domain.TradingResult) []TradingResultDTO {
	dtos := make([]TradingResultDTO, 0, len(results))
	for _, r := range results {
		dtos = append(dtos, TradingResultDTO{
			ExchangeProductID:   r.ExchangeProductID,
			ExchangeProductName: r.ExchangeProductName,
			OilID:               r.OilID,
			DeliveryBasisID:     r.DeliveryBasisID,
			DeliveryBasisName:   r.DeliveryBasisName,
			DeliveryTypeID:      r.DeliveryTypeID,
			Volume:              r.Volume.InexactFloat64(),
			Total:               r.Total.InexactFloat64(),
			Count:               r.Count,
			Date:                r.Date.Format(DateLayout),
		})
	}
	return dtos
}
