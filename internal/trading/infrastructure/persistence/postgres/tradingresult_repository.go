package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/akarimov/spimextrading/internal/trading/domain"
	"github.com/akarimov/spimextrading/pkg/logger"
	"github.com/akarimov/spimextrading/pkg/metrics"
)

// TradingResultModel 交易结果数据库模型
type TradingResultModel struct {
	ID uint `gorm:"column:id;primaryKey;autoIncrement"`
	// 品种代码
	ExchangeProductID string `gorm:"column:exchange_product_id;type:varchar(50);index;not null"`
	// 品种名称
	ExchangeProductName string `gorm:"column:exchange_product_name;type:varchar(255);not null"`
	// 油品类型代码
	OilID string `gorm:"column:oil_id;type:varchar(10);index;not null"`
	// 交割基准代码
	DeliveryBasisID string `gorm:"column:delivery_basis_id;type:varchar(10);index;not null"`
	// 交割基准名称
	DeliveryBasisName string `gorm:"column:delivery_basis_name;type:varchar(255);not null"`
	// 交割类型代码
	DeliveryTypeID string `gorm:"column:delivery_type_id;type:varchar(10);index;not null"`
	// 成交量
	Volume string `gorm:"column:volume;type:decimal(20,2);not null"`
	// 成交额
	Total string `gorm:"column:total;type:decimal(20,2);not null"`
	// 合同数量
	Count int64 `gorm:"column:count;not null"`
	// 交易日
	Date time.Time `gorm:"column:date;type:date;index;not null"`
	// 创建时间
	CreatedOn time.Time `gorm:"column:created_on;not null"`
	// 更新时间
	UpdatedOn time.Time `gorm:"column:updated_on;not null"`
}

// TableName 指定表名
func (TradingResultModel) TableName() string {
	return "spimex_trading_results"
}

// TradingResultRepositoryImpl 交易结果仓储实现
type TradingResultRepositoryImpl struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewTradingResultRepository 创建交易结果仓储
func NewTradingResultRepository(db *gorm.DB, m *metrics.Metrics) domain.TradingResultRepository {
	return &TradingResultRepositoryImpl{
		db:      db,
		metrics: m,
	}
}

// LastTradingDates 获取最近 days 个去重交易日，按日期降序
func (tr *TradingResultRepositoryImpl) LastTradingDates(ctx context.Context, days int) ([]time.Time, error) {
	defer tr.observe("last_trading_dates", time.Now())

	var dates []time.Time
	if err := tr.db.WithContext(ctx).
		Model(&TradingResultModel{}).
		Distinct("date").
		Order("date DESC").
		Limit(days).
		Pluck("date", &dates).Error; err != nil {
		logger.Error(ctx, "Failed to get last trading dates",
			"days", days,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get last trading dates: %w", err)
	}

	return dates, nil
}

// Dynamics 获取 [start, end] 闭区间内满足过滤条件的交易结果，按日期升序
func (tr *TradingResultRepositoryImpl) Dynamics(ctx context.Context, start, end time.Time, filters domain.Filters, limit int) ([]*domain.TradingResult, error) {
	defer tr.observe("dynamics", time.Now())

	var models []TradingResultModel
	q := tr.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", start, end)
	q = applyFilters(q, filters)

	if err := q.Order("date ASC").Limit(limit).Find(&models).Error; err != nil {
		logger.Error(ctx, "Failed to get dynamics",
			"start", start,
			"end", end,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get dynamics: %w", err)
	}

	return modelsToDomain(models), nil
}

// TradingResults 获取最近 days 个交易日窗口内满足过滤条件的交易结果，按日期降序
// 窗口取去重日期集合的最小值与最大值构成的闭区间，交易日历存在空洞时窗口可能
// 覆盖超出 days 个交易日之外的日期
func (tr *TradingResultRepositoryImpl) TradingResults(ctx context.Context, days int, filters domain.Filters, limit int) ([]*domain.TradingResult, error) {
	lastDates, err := tr.LastTradingDates(ctx, days)
	if err != nil {
		return nil, err
	}
	if len(lastDates) == 0 {
		return []*domain.TradingResult{}, nil
	}

	defer tr.observe("trading_results", time.Now())

	// lastDates 按降序排列：首元素为最大日期，末元素为最小日期
	maxDate := lastDates[0]
	minDate := lastDates[len(lastDates)-1]

	var models []TradingResultModel
	q := tr.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", minDate, maxDate)
	q = applyFilters(q, filters)

	if err := q.Order("date DESC").Limit(limit).Find(&models).Error; err != nil {
		logger.Error(ctx, "Failed to get trading results",
			"days", days,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get trading results: %w", err)
	}

	return modelsToDomain(models), nil
}

// applyFilters 叠加可选的等值过滤条件，nil 条件不限制
func applyFilters(q *gorm.DB, filters domain.Filters) *gorm.DB {
	if filters.OilID != nil {
		q = q.Where("oil_id = ?", *filters.OilID)
	}
	if filters.DeliveryTypeID != nil {
		q = q.Where("delivery_type_id = ?", *filters.DeliveryTypeID)
	}
	if filters.DeliveryBasisID != nil {
		q = q.Where("delivery_basis_id = ?", *filters.DeliveryBasisID)
	}
	return q
}

func (tr *TradingResultRepositoryImpl) observe(operation string, start time.Time) {
	if tr.metrics != nil {
		tr.metrics.ObserveDBQuery(operation, time.Since(start))
	}
}

func modelsToDomain(models []TradingResultModel) []*domain.TradingResult {
	results := make([]*domain.TradingResult, 0, len(models))
	for i := range models {
		results = append(results, modelToDomain(&models[i]))
	}
	return results
}

// modelToDomain 将数据库模型转换为领域对象
func modelToDomain(model *TradingResultModel) *domain.TradingResult {
	volume, _ := decimal.NewFromString(model.Volume)
	total, _ := decimal.NewFromString(model.Total)

	return &domain.TradingResult{
		ExchangeProductID:   model.ExchangeProductID,
		ExchangeProductName: model.ExchangeProductName,
		OilID:               model.OilID,
		DeliveryBasisID:     model.DeliveryBasisID,
		DeliveryBasisName:   model.DeliveryBasisName,
		DeliveryTypeID:      model.DeliveryTypeID,
		Volume:              volume,
		Total:               total,
		Count:               model.Count,
		Date:                model.Date,
		CreatedOn:           model.CreatedOn,
		UpdatedOn:           model.UpdatedOn,
	}
}
