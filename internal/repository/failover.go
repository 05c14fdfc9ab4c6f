package repository

import (
	"context"
	"sync/atomic"
	"time"

	"bookable/internal/domain"
	"bookable/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSlotCache reads through primary (redis) and switches to fallback (memory)
// while primary is failing. Invalidations always reach the fallback too.
type FailoverSlotCache struct {
	primary   domain.SlotCache
	fallback  domain.SlotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSlotCache(primary, fallback domain.SlotCache, logger *zerolog.Logger) *FailoverSlotCache {
	return &FailoverSlotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverSlotCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary reports whether the primary should be tried, probing it again once a minute.
func (r *FailoverSlotCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if r.now().Sub(last) > recoveryInterval {
		r.lastCheck.Store(r.now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverSlotCache) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary slot cache recovered")
	}
}

func (r *FailoverSlotCache) GetSlots(ctx context.Context, key domain.SlotCacheKey) ([]models.Slot, bool, error) {
	if r.usePrimary() {
		slots, ok, err := r.primary.GetSlots(ctx, key)
		if err == nil {
			r.recovered()
			return slots, ok, nil
		}
		r.markDown(err)
	}

	return r.fallback.GetSlots(ctx, key)
}

func (r *FailoverSlotCache) SetSlots(ctx context.Context, key domain.SlotCacheKey, slots []models.Slot) error {
	if r.usePrimary() {
		err := r.primary.SetSlots(ctx, key, slots)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetSlots(ctx, key, slots)
}

func (r *FailoverSlotCache) InvalidateDate(ctx context.Context, serviceID int64, date time.Time) error {
	return r.invalidate(
		func(c domain.SlotCache) error { return c.InvalidateDate(ctx, serviceID, date) },
	)
}

func (r *FailoverSlotCache) InvalidateService(ctx context.Context, serviceID int64) error {
	return r.invalidate(
		func(c domain.SlotCache) error { return c.InvalidateService(ctx, serviceID) },
	)
}

func (r *FailoverSlotCache) invalidate(fn func(c domain.SlotCache) error) error {
	fallbackErr := fn(r.fallback)
	if !r.isDown.Load() {
		if err := fn(r.primary); err != nil {
			r.markDown(err)
		}
	}
	return fallbackErr
}
