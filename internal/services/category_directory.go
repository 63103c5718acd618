package services

import (
	"context"
	"log/slog"

	"expentrax/internal/cache"
	"expentrax/internal/core"
	"expentrax/internal/ledger"
)

// CategoryDirectory resolves category references to display names through
// an LRU cache in front of the store.
type CategoryDirectory struct {
	namer ledger.CategoryNamer
	cache cache.Cache[string]
}

func NewCategoryDirectory(namer ledger.CategoryNamer, c cache.Cache[string]) *CategoryDirectory {
	return &CategoryDirectory{namer: namer, cache: c}
}

// Name returns the display name for ref. Lookup failures are logged and
// reported as Uncategorized; they are not cached.
func (d *CategoryDirectory) Name(ctx context.Context, ref core.CategoryRef) string {
	if ref.IsZero() {
		return core.UncategorizedName
	}
	key := ref.String()
	if d.cache != nil {
		if name, ok := d.cache.Get(key); ok {
			return name
		}
	}

	name, err := d.namer.CategoryName(ctx, ref)
	if err != nil {
		slog.WarnContext(ctx, "Category name lookup failed, using fallback",
			"category", key,
			"fallback", core.UncategorizedName,
			"error", err)
		return core.UncategorizedName
	}

	if d.cache != nil {
		d.cache.Set(key, name)
	}
	return name
}

// Invalidate drops a cached name, e.g. after a custom category is renamed.
func (d *CategoryDirectory) Invalidate(ref core.CategoryRef) {
	if d.cache != nil {
		d.cache.Delete(ref.String())
	}
}
