package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akarimov/spimextrading/internal/trading/domain"
	tradingcache "github.com/akarimov/spimextrading/internal/trading/infrastructure/cache"
)

type fakeBackend struct {
	data   map[string]string
	getErr error
	setErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string]string)}
}

func (f *fakeBackend) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.data[key], nil
}

func (f *fakeBackend) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value.(string)
	return nil
}

// stubRepository 以内存数据实现仓储接口，模拟查询引擎的过滤与排序语义
type stubRepository struct {
	records []*domain.TradingResult
	err     error
	calls   int
}

func (r *stubRepository) LastTradingDates(ctx context.Context, days int) ([]time.Time, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	seen := map[time.Time]bool{}
	var dates []time.Time
	for _, rec := range r.records {
		if !seen[rec.Date] {
			seen[rec.Date] = true
			dates = append(dates, rec.Date)
		}
	}
	// 记录按日期升序构造，反转得到降序
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	if len(dates) > days {
		dates = dates[:days]
	}
	return dates, nil
}

func (r *stubRepository) Dynamics(ctx context.Context, start, end time.Time, filters domain.Filters, limit int) ([]*domain.TradingResult, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	out := []*domain.TradingResult{}
	for _, rec := range r.records {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		if !matches(rec, filters) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubRepository) TradingResults(ctx context.Context, days int, filters domain.Filters, limit int) ([]*domain.TradingResult, error) {
	dates, err := r.LastTradingDates(ctx, days)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return []*domain.TradingResult{}, nil
	}
	minDate := dates[len(dates)-1]
	maxDate := dates[0]

	out := []*domain.TradingResult{}
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.Date.Before(minDate) || rec.Date.After(maxDate) {
			continue
		}
		if !matches(rec, filters) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func matches(rec *domain.TradingResult, f domain.Filters) bool {
	if f.OilID != nil && rec.OilID != *f.OilID {
		return false
	}
	if f.DeliveryTypeID != nil && rec.DeliveryTypeID != *f.DeliveryTypeID {
		return false
	}
	if f.DeliveryBasisID != nil && rec.DeliveryBasisID != *f.DeliveryBasisID {
		return false
	}
	return true
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(product, oilID, deliveryType, basis string, day time.Time) *domain.TradingResult {
	return &domain.TradingResult{
		ExchangeProductID:   product,
		ExchangeProductName: "Бензин " + product,
		OilID:               oilID,
		DeliveryBasisID:     basis,
		DeliveryBasisName:   "базис " + basis,
		DeliveryTypeID:      deliveryType,
		Volume:              decimal.NewFromFloat(100.5),
		Total:               decimal.NewFromFloat(500000.25),
		Count:               10,
		Date:                day,
	}
}

func newService(repo domain.TradingResultRepository, backend tradingcache.Backend) *TradingQueryService {
	ttl, err := tradingcache.NewPolicy("UTC", 14, 11, time.Hour)
	if err != nil {
		panic(err)
	}
	return NewTradingQueryService(repo, tradingcache.NewStore(backend, nil), ttl)
}

func strPtr(s string) *string { return &s }

func TestLastTradingDatesDescendingAndTruncated(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 11)),
		record("A100", "A1", "F", "NVY", date(2025, 9, 12)),
		record("A692", "A6", "F", "SUR", date(2025, 9, 12)),
		record("A100", "A1", "F", "NVY", date(2025, 9, 13)),
	}}
	svc := newService(repo, newFakeBackend())

	got, err := svc.LastTradingDates(context.Background(), 2)
	if err != nil {
		t.Fatalf("LastTradingDates() error = %v", err)
	}

	want := []string{"2025-09-13", "2025-09-12"}
	if len(got.Dates) != len(want) {
		t.Fatalf("LastTradingDates() = %v, want %v", got.Dates, want)
	}
	for i := range want {
		if got.Dates[i] != want[i] {
			t.Fatalf("LastTradingDates() = %v, want %v", got.Dates, want)
		}
	}
}

func TestLastTradingDatesReturnsAllWhenFewerThanRequested(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 12)),
		record("A692", "A6", "F", "SUR", date(2025, 9, 13)),
	}}
	svc := newService(repo, newFakeBackend())

	got, err := svc.LastTradingDates(context.Background(), 10)
	if err != nil {
		t.Fatalf("LastTradingDates() error = %v", err)
	}
	if len(got.Dates) != 2 {
		t.Fatalf("got %d dates, want 2 (all available)", len(got.Dates))
	}
	if got.Dates[0] != "2025-09-13" {
		t.Fatalf("dates not descending: %v", got.Dates)
	}
}

func TestLastTradingDatesServedFromCacheOnSecondCall(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 13)),
	}}
	svc := newService(repo, newFakeBackend())
	ctx := context.Background()

	if _, err := svc.LastTradingDates(ctx, 1); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	got, err := svc.LastTradingDates(ctx, 1)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}

	if repo.calls != 1 {
		t.Fatalf("repository called %d times, want 1 (second call cached)", repo.calls)
	}
	if len(got.Dates) != 1 || got.Dates[0] != "2025-09-13" {
		t.Fatalf("cached result = %v, want [2025-09-13]", got.Dates)
	}
}

func TestDynamicsScenarioTwoRecords(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 12)),
		record("A692", "A6", "F", "SUR", date(2025, 9, 13)),
	}}
	svc := newService(repo, newFakeBackend())

	got, err := svc.Dynamics(context.Background(), DynamicsQuery{
		StartDate: date(2025, 9, 12),
		EndDate:   date(2025, 9, 13),
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("Dynamics() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Dynamics() returned %d records, want 2", len(got))
	}
	if got[0].Date != "2025-09-12" || got[1].Date != "2025-09-13" {
		t.Fatalf("Dynamics() not ascending by date: %s, %s", got[0].Date, got[1].Date)
	}
	if got[0].Volume != 100.5 || got[0].Total != 500000.25 {
		t.Fatalf("Dynamics() money fields = %v/%v, want 100.5/500000.25", got[0].Volume, got[0].Total)
	}
}

func TestDynamicsBackwardsRangeIsEmpty(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 12)),
	}}
	svc := newService(repo, newFakeBackend())

	got, err := svc.Dynamics(context.Background(), DynamicsQuery{
		StartDate: date(2025, 9, 13),
		EndDate:   date(2025, 9, 12),
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("Dynamics() with backwards range error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Dynamics() with backwards range = %d records, want 0", len(got))
	}
}

func TestDynamicsFilterConjunction(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 12)),
		record("A101", "A1", "P", "NVY", date(2025, 9, 12)),
		record("A692", "A6", "F", "SUR", date(2025, 9, 12)),
	}}
	svc := newService(repo, newFakeBackend())

	got, err := svc.Dynamics(context.Background(), DynamicsQuery{
		StartDate: date(2025, 9, 12),
		EndDate:   date(2025, 9, 12),
		Filters: domain.Filters{
			OilID:          strPtr("A1"),
			DeliveryTypeID: strPtr("F"),
		},
		Limit: 50,
	})
	if err != nil {
		t.Fatalf("Dynamics() error = %v", err)
	}

	if len(got) != 1 || got[0].ExchangeProductID != "A100" {
		t.Fatalf("conjoined filters returned %+v, want only A100", got)
	}
}

func TestDynamicsDistinctFiltersUseDistinctCacheKeys(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 12)),
		record("A692", "A6", "F", "SUR", date(2025, 9, 12)),
	}}
	svc := newService(repo, newFakeBackend())
	ctx := context.Background()
	q := DynamicsQuery{
		StartDate: date(2025, 9, 12),
		EndDate:   date(2025, 9, 12),
		Limit:     50,
	}

	all, err := svc.Dynamics(ctx, q)
	if err != nil {
		t.Fatalf("unfiltered call error = %v", err)
	}

	q.Filters.OilID = strPtr("A6")
	filtered, err := svc.Dynamics(ctx, q)
	if err != nil {
		t.Fatalf("filtered call error = %v", err)
	}

	if len(all) != 2 || len(filtered) != 1 {
		t.Fatalf("filtered request collided with unfiltered cache entry: %d/%d", len(all), len(filtered))
	}
}

func TestTradingResultsEmptyWhenNoDates(t *testing.T) {
	svc := newService(&stubRepository{}, newFakeBackend())

	got, err := svc.TradingResults(context.Background(), TradingResultsQuery{Days: 1, Limit: 20})
	if err != nil {
		t.Fatalf("TradingResults() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("TradingResults() with no trading dates = %d records, want 0", len(got))
	}
}

func TestTradingResultsResolvesSingleDayWindow(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 12)),
		record("A692", "A6", "F", "SUR", date(2025, 9, 13)),
	}}
	svc := newService(repo, newFakeBackend())

	got, err := svc.TradingResults(context.Background(), TradingResultsQuery{Days: 1, Limit: 20})
	if err != nil {
		t.Fatalf("TradingResults() error = %v", err)
	}

	if len(got) != 1 || got[0].Date != "2025-09-13" {
		t.Fatalf("TradingResults(days=1) = %+v, want only the 2025-09-13 record", got)
	}
}

func TestCacheFailureDegradesToRepository(t *testing.T) {
	repo := &stubRepository{records: []*domain.TradingResult{
		record("A100", "A1", "F", "NVY", date(2025, 9, 13)),
	}}
	backend := newFakeBackend()
	backend.getErr = errors.New("redis down")
	backend.setErr = errors.New("redis down")
	svc := newService(repo, backend)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.LastTradingDates(ctx, 1)
		if err != nil {
			t.Fatalf("call %d error = %v, cache failure must not surface", i+1, err)
		}
		if len(got.Dates) != 1 {
			t.Fatalf("call %d = %v, want one date", i+1, got.Dates)
		}
	}
	if repo.calls != 2 {
		t.Fatalf("repository called %d times, want 2 (every call misses)", repo.calls)
	}
}

func TestRepositoryErrorPropagates(t *testing.T) {
	repo := &stubRepository{err: errors.New("record store unreachable")}
	svc := newService(repo, newFakeBackend())

	if _, err := svc.LastTradingDates(context.Background(), 1); err == nil {
		t.Fatal("LastTradingDates() with failing store, want error")
	}
}
