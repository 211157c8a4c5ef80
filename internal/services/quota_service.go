package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// UnlimitedQuota marks a plan with no daily ceiling.
const UnlimitedQuota = -1

// planQuotas is the static plan table. Unknown plans resolve to the most
// restrictive tier.
var planQuotas = map[string]int{
	"free": 10,
	"plus": 100,
	"pro":  UnlimitedQuota,
}

const defaultPlan = "free"

// DailyLimitForPlan resolves a plan name to its daily generation limit.
func DailyLimitForPlan(plan string) int {
	limit, ok := planQuotas[plan]
	if !ok {
		return planQuotas[defaultPlan]
	}
	return limit
}

type QuotaStatus struct {
	CanUse    bool `json:"can_use"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

// QuotaExceededError is the only quota failure callers ever see. It carries
// the numbers needed for user-facing messaging.
type QuotaExceededError struct {
	Used      int
	Limit     int
	Remaining int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily generation limit reached (%d/%d)", e.Used, e.Limit)
}

// usageDay is the single place that defines the quota day boundary.
func usageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

type QuotaService struct {
	store UsageStore
	log   zerolog.Logger
}

func NewQuotaService(store UsageStore, log zerolog.Logger) *QuotaService {
	return &QuotaService{store: store, log: log}
}

// CheckLimits reports whether a new generation is permitted today. It only
// reads; incrementing is done by ConsumeDailyUsage. If the usage store
// cannot be read the gate fails closed.
func (s *QuotaService) CheckLimits(userID uuid.UUID, plan string) (QuotaStatus, error) {
	limit := DailyLimitForPlan(plan)
	if limit == UnlimitedQuota {
		return QuotaStatus{CanUse: true, Used: 0, Limit: UnlimitedQuota, Remaining: UnlimitedQuota}, nil
	}

	used, err := s.store.GetDailyCount(userID, usageDay(time.Now()))
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("usage store read failed, denying generation")
		return QuotaStatus{CanUse: false, Used: 0, Limit: limit, Remaining: 0}, err
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		CanUse:    used < limit,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
	}, nil
}

// ConsumeDailyUsage records one accepted generation as a single atomic
// increment-and-check, so two concurrent requests can never both slip under
// the cap. Returns the new count, or a QuotaExceededError when the cap was
// already reached.
func (s *QuotaService) ConsumeDailyUsage(userID uuid.UUID, plan string) (int, error) {
	limit := DailyLimitForPlan(plan)
	day := usageDay(time.Now())

	count, ok, err := s.store.IncrementDailyCount(userID, day, limit)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("usage store increment failed, denying generation")
		return 0, err
	}
	if !ok {
		used, readErr := s.store.GetDailyCount(userID, day)
		if readErr != nil {
			used = limit
		}
		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}
		return used, &QuotaExceededError{Used: used, Limit: limit, Remaining: remaining}
	}
	return count, nil
}

// GormUsageStore persists daily counters in Postgres via gorm.
type GormUsageStore struct {
	db *gorm.DB
}

func NewGormUsageStore(db *gorm.DB) *GormUsageStore {
	return &GormUsageStore{db: db}
}

func (s *GormUsageStore) GetDailyCount(userID uuid.UUID, day string) (int, error) {
	var count int
	result := s.db.Raw(
		`SELECT count FROM daily_usages WHERE user_id = ? AND day = ?`,
		userID, day,
	).Scan(&count)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return count, nil
}

// IncrementDailyCount bumps the counter with an upsert guarded by the limit.
// The guard and the increment run in one statement so the read-then-write
// race cannot overshoot the cap. A limit of UnlimitedQuota skips the guard.
func (s *GormUsageStore) IncrementDailyCount(userID uuid.UUID, day string, limit int) (int, bool, error) {
	query := `
		INSERT INTO daily_usages (user_id, day, count, created_at, updated_at)
		VALUES (?, ?, 1, NOW(), NOW())
		ON CONFLICT (user_id, day) DO UPDATE
		SET count = daily_usages.count + 1, updated_at = NOW()
		WHERE daily_usages.count < ?
		RETURNING count`
	args := []interface{}{userID, day, limit}

	if limit == UnlimitedQuota {
		query = `
			INSERT INTO daily_usages (user_id, day, count, created_at, updated_at)
			VALUES (?, ?, 1, NOW(), NOW())
			ON CONFLICT (user_id, day) DO UPDATE
			SET count = daily_usages.count + 1, updated_at = NOW()
			RETURNING count`
		args = []interface{}{userID, day}
	}

	var count int
	result := s.db.Raw(query, args...).Scan(&count)
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		// Guard rejected the update: the cap is already reached.
		return 0, false, nil
	}
	return count, true, nil
}
