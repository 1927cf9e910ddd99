// Package domain 包含交易结果查询服务的领域模型、值对象与仓储接口
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TradingResult 交易结果实体
// 代表某个交易日中某个交易品种的一条成交结果，由外部采集流程写入，本服务只读
type TradingResult struct {
	// 品种代码
	ExchangeProductID string
	// 品种名称
	ExchangeProductName string
	// 油品类型代码
	OilID string
	// 交割基准代码
	DeliveryBasisID string
	// 交割基准名称
	DeliveryBasisName string
	// 交割类型代码
	DeliveryTypeID string
	// 成交量（计量单位）
	Volume decimal.Decimal
	// 成交额（卢布）
	Total decimal.Decimal
	// 合同数量（份）
	Count int64
	// 交易日（只取日期部分）
	Date time.Time
	// 创建时间（仅供参考，不参与查询逻辑）
	CreatedOn time.Time
	// 更新时间（仅供参考，不参与查询逻辑）
	UpdatedOn time.Time
}

// Filters 查询过滤条件值对象
// nil 表示该维度不做限制；非 nil 的条件按 AND 叠加
type Filters struct {
	// 油品类型代码
	OilID *string
	// 交割类型代码
	DeliveryTypeID *string
	// 交割基准代码
	DeliveryBasisID *string
}

// TradingResultRepository 交易结果仓储接口
// 三个操作均为只读、无副作用，可被并发调用
type TradingResultRepository interface {
	// 获取最近 days 个去重交易日，按日期降序；不足 days 个时返回全部
	LastTradingDates(ctx context.Context, days int) ([]time.Time, error)
	// 获取 [start, end] 闭区间内满足过滤条件的交易结果，按日期升序，最多 limit 条；
	// start > end 时区间为空集，返回空结果而非错误
	Dynamics(ctx context.Context, start, end time.Time, filters Filters, limit int) ([]*TradingResult, error)
	// 获取最近 days 个交易日窗口内满足过滤条件的交易结果，按日期降序，最多 limit 条。
	// 窗口为去重日期集合的 [最小值, 最大值] 闭区间，而非逐日精确匹配；
	// 不存在任何交易日时直接返回空结果
	TradingResults(ctx context.Context, days int, filters Filters, limit int) ([]*TradingResult, error)
}
