package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQuotaService_CheckLimits_BlocksAtLimit(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("GetDailyCount", userID, usageDay(time.Now())).Return(10, nil)

	status, err := service.CheckLimits(userID, "free")

	require.NoError(t, err)
	assert.Equal(t, QuotaStatus{CanUse: false, Used: 10, Limit: 10, Remaining: 0}, status)
	store.AssertExpectations(t)
}

func TestQuotaService_CheckLimits_UnderLimit(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("GetDailyCount", userID, usageDay(time.Now())).Return(3, nil)

	status, err := service.CheckLimits(userID, "free")

	require.NoError(t, err)
	assert.True(t, status.CanUse)
	assert.Equal(t, 3, status.Used)
	assert.Equal(t, 10, status.Limit)
	assert.Equal(t, 7, status.Remaining)
}

func TestQuotaService_CheckLimits_UnlimitedPlanSkipsStore(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())

	status, err := service.CheckLimits(uuid.New(), "pro")

	require.NoError(t, err)
	assert.True(t, status.CanUse)
	assert.Equal(t, UnlimitedQuota, status.Limit)
	assert.Equal(t, UnlimitedQuota, status.Remaining)
	store.AssertNotCalled(t, "GetDailyCount", mock.Anything, mock.Anything)
}

func TestQuotaService_CheckLimits_UnknownPlanFallsBackToFreeTier(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("GetDailyCount", userID, mock.Anything).Return(0, nil)

	status, err := service.CheckLimits(userID, "enterprise-preview")

	require.NoError(t, err)
	assert.Equal(t, 10, status.Limit)
}

func TestQuotaService_CheckLimits_FailsClosedOnStoreError(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("GetDailyCount", userID, mock.Anything).Return(0, errors.New("connection refused"))

	status, err := service.CheckLimits(userID, "free")

	require.Error(t, err)
	assert.False(t, status.CanUse)
}

func TestQuotaService_ConsumeDailyUsage_Succeeds(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("IncrementDailyCount", userID, usageDay(time.Now()), 10).Return(4, true, nil)

	count, err := service.ConsumeDailyUsage(userID, "free")

	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestQuotaService_ConsumeDailyUsage_RejectsAtCap(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("IncrementDailyCount", userID, mock.Anything, 10).Return(0, false, nil)
	store.On("GetDailyCount", userID, mock.Anything).Return(10, nil)

	_, err := service.ConsumeDailyUsage(userID, "free")

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 10, quotaErr.Used)
	assert.Equal(t, 10, quotaErr.Limit)
	assert.Equal(t, 0, quotaErr.Remaining)
}

func TestQuotaService_ConsumeDailyUsage_FailsClosedOnStoreError(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("IncrementDailyCount", userID, mock.Anything, 10).Return(0, false, errors.New("connection refused"))

	_, err := service.ConsumeDailyUsage(userID, "free")

	require.Error(t, err)
	var quotaErr *QuotaExceededError
	assert.False(t, errors.As(err, &quotaErr))
}

func TestQuotaService_ConsumeDailyUsage_UnlimitedPlan(t *testing.T) {
	store := new(MockUsageStore)
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	store.On("IncrementDailyCount", userID, mock.Anything, UnlimitedQuota).Return(1234, true, nil)

	count, err := service.ConsumeDailyUsage(userID, "pro")

	require.NoError(t, err)
	assert.Equal(t, 1234, count)
}

// memoryUsageStore honors the same atomic increment-and-check contract as
// the Postgres upsert, for exercising the gate under concurrency.
type memoryUsageStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func (s *memoryUsageStore) key(userID uuid.UUID, day string) string {
	return userID.String() + "|" + day
}

func (s *memoryUsageStore) GetDailyCount(userID uuid.UUID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[s.key(userID, day)], nil
}

func (s *memoryUsageStore) IncrementDailyCount(userID uuid.UUID, day string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(userID, day)
	if limit != UnlimitedQuota && s.counts[k] >= limit {
		return 0, false, nil
	}
	s.counts[k]++
	return s.counts[k], true, nil
}

func TestQuotaService_ConsumeDailyUsage_ConcurrentConsumersNeverOvershoot(t *testing.T) {
	store := &memoryUsageStore{counts: make(map[string]int)}
	service := NewQuotaService(store, zerolog.Nop())
	userID := uuid.New()

	const attempts = 50
	var accepted int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.ConsumeDailyUsage(userID, "free"); err == nil {
				atomic.AddInt64(&accepted, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, accepted)
	count, err := store.GetDailyCount(userID, usageDay(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestDailyLimitForPlan(t *testing.T) {
	assert.Equal(t, 10, DailyLimitForPlan("free"))
	assert.Equal(t, 100, DailyLimitForPlan("plus"))
	assert.Equal(t, UnlimitedQuota, DailyLimitForPlan("pro"))
	assert.Equal(t, 10, DailyLimitForPlan(""))
	assert.Equal(t, 10, DailyLimitForPlan("no-such-plan"))
}

func TestUsageDay_IsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 23:30 local on Jan 2 is still Jan 2 in UTC terms only when the UTC
	// clock agrees; the helper must follow UTC, not server-local time.
	localLateEvening := time.Date(2025, 1, 2, 8, 30, 0, 0, loc)
	assert.Equal(t, "2025-01-01", usageDay(localLateEvening))
}
