package cache

import (
	"fmt"
	"time"
)

// DefaultFixedTTL 与每日发布周期无关的条目的默认固定 TTL
const DefaultFixedTTL = 3600 * time.Second

// SecondsUntilCutover 计算从 now 到交易所时区内下一次 hour:minute 的整秒数。
// now 已处于当天的发布时刻或之后时，目标滚动到次日的发布时刻，因此在发布
// 时刻整点调用返回约 86400 而不是 0。
func SecondsUntilCutover(now time.Time, hour, minute int, loc *time.Location) int {
	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !local.Before(target) {
		target = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return int(target.Sub(local) / time.Second)
}

// Policy 缓存过期策略
// 交易所每天在固定本地时刻发布新一期数据，与发布周期绑定的条目缓存到该时刻，
// 既最大化命中率又不会在数据刷新后继续提供过期结果
type Policy struct {
	hour     int
	minute   int
	location *time.Location
	fixedTTL time.Duration
	// 测试注入点，默认 time.Now
	now func() time.Time
}

// NewPolicy 创建缓存过期策略
// timezone 为 IANA 时区名称（如 Europe/Moscow）
func NewPolicy(timezone string, hour, minute int, fixedTTL time.Duration) (*Policy, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache timezone %q: %w", timezone, err)
	}
	if fixedTTL <= 0 {
		fixedTTL = DefaultFixedTTL
	}
	return &Policy{
		hour:     hour,
		minute:   minute,
		location: loc,
		fixedTTL: fixedTTL,
		now:      time.Now,
	}, nil
}

// UntilCutover 返回到下一次每日发布时刻的时长
func (p *Policy) UntilCutover() time.Duration {
	return time.Duration(SecondsUntilCutover(p.now(), p.hour, p.minute, p.location)) * time.Second
}

// Fixed 返回固定 TTL
func (p *Policy) Fixed() time.Duration {
	return p.fixedTTL
}
