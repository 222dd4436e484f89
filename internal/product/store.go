package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/conectapr/backend-b2b/internal/common"
	"github.com/conectapr/backend-b2b/internal/quote"
)

// Store resolves product pricing data from Postgres with a Redis
// read-through cache. It implements quote.ProductLookup.
type Store struct {
	pool  *pgxpool.Pool
	cache *Cache
}

// NewStore constructs a product store. The cache is optional.
func NewStore(pool *pgxpool.Pool, cache *Cache) *Store {
	return &Store{pool: pool, cache: cache}
}

type cachedInfo struct {
	Price       string `json:"price"`
	MinOrderQty int    `json:"minOrderQty"`
}

// Resolve returns the pricing slice of a product record. A missing product
// yields a NOT_FOUND error; it is never replaced with a default price.
func (s *Store) Resolve(ctx context.Context, productID string) (quote.ProductInfo, error) {
	if s == nil || s.pool == nil {
		return quote.ProductInfo{}, errors.New("product store not configured")
	}
	id, err := uuid.Parse(productID)
	if err != nil {
		return quote.ProductInfo{}, common.BadRequest("invalid product id", err, map[string]any{"productId": productID})
	}

	key := cacheKey(productID)
	if s.cache != nil {
		var cached cachedInfo
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			price, err := decimal.NewFromString(cached.Price)
			if err == nil {
				return quote.ProductInfo{Price: price, MinOrderQty: cached.MinOrderQty}, nil
			}
		}
	}

	var priceText string
	var minOrderQty int
	row := s.pool.QueryRow(ctx,
		`SELECT price::text, COALESCE(min_order_qty, 0) FROM products WHERE id = $1`, id)
	if err := row.Scan(&priceText, &minOrderQty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quote.ProductInfo{}, common.NotFound("product not found", err)
		}
		return quote.ProductInfo{}, fmt.Errorf("get product price: %w", err)
	}
	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return quote.ProductInfo{}, fmt.Errorf("parse product price: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedInfo{Price: price.String(), MinOrderQty: minOrderQty})
	}
	return quote.ProductInfo{Price: price, MinOrderQty: minOrderQty}, nil
}

func cacheKey(productID string) string {
	return "product:pricing:" + productID
}
