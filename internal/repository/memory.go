package repository

import (
	"context"
	"strings"
	"time"

	"bookable/internal/domain"
	"bookable/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

// MemorySlotCache keeps slot lists in process memory.
type MemorySlotCache struct {
	cache *gocache.Cache
}

func NewMemorySlotCache(ttl time.Duration) *MemorySlotCache {
	return &MemorySlotCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *MemorySlotCache) GetSlots(_ context.Context, key domain.SlotCacheKey) ([]models.Slot, bool, error) {
	val, ok := r.cache.Get(key.String())
	if !ok {
		return nil, false, nil
	}
	return append([]models.Slot{}, val.([]models.Slot)...), true, nil
}

func (r *MemorySlotCache) SetSlots(_ context.Context, key domain.SlotCacheKey, slots []models.Slot) error {
	r.cache.SetDefault(key.String(), append([]models.Slot{}, slots...))
	return nil
}

func (r *MemorySlotCache) InvalidateDate(_ context.Context, serviceID int64, date time.Time) error {
	r.deletePrefix(domain.DatePrefix(serviceID, date))
	return nil
}

func (r *MemorySlotCache) InvalidateService(_ context.Context, serviceID int64) error {
	r.deletePrefix(domain.ServicePrefix(serviceID))
	return nil
}

func (r *MemorySlotCache) deletePrefix(prefix string) {
	for key := range r.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Delete(key)
		}
	}
}

// Len is the number of live entries.
func (r *MemorySlotCache) Len() int {
	return r.cache.ItemCount()
}
