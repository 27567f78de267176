package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/plant_store/internal/domain"
)

// ReviewPage is a cached page of approved reviews with its total
type ReviewPage struct {
	Reviews []*domain.Review `json:"reviews"`
	Total   int              `json:"total"`
}

// RedisCache implements caching for product ratings and review pages
type RedisCache struct {
	client           *redis.Client
	productRatingTTL time.Duration
	reviewsListTTL   time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, productRatingTTL, reviewsListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:           client,
		productRatingTTL: productRatingTTL,
		reviewsListTTL:   reviewsListTTL,
	}
}

func (c *RedisCache) productRatingKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:rating", productID.String())
}

// GetProductRating retrieves the cached aggregate of a product
func (c *RedisCache) GetProductRating(ctx context.Context, productID uuid.UUID) (*domain.RatingAggregate, error) {
	val, err := c.client.Get(ctx, c.productRatingKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var agg domain.RatingAggregate
	if err := json.Unmarshal(val, &agg); err != nil {
		return nil, err
	}

	return &agg, nil
}

// SetProductRating stores the aggregate of a product
func (c *RedisCache) SetProductRating(ctx context.Context, agg *domain.RatingAggregate) error {
	data, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.productRatingKey(agg.ProductID), data, c.productRatingTTL).Err()
}

// InvalidateProductRating removes product rating from cache
func (c *RedisCache) InvalidateProductRating(ctx context.Context, productID uuid.UUID) error {
	return c.client.Del(ctx, c.productRatingKey(productID)).Err()
}

func (c *RedisCache) reviewsListKey(productID uuid.UUID, filter domain.ReviewFilter) string {
	rating := 0
	if filter.Rating != nil {
		rating = *filter.Rating
	}
	return fmt.Sprintf(
		"product:%s:reviews:rating:%d:verified:%t:sort:%s:desc:%t:limit:%d:offset:%d",
		productID.String(), rating, filter.VerifiedOnly, filter.SortBy, filter.SortDesc, filter.Limit, filter.Offset,
	)
}

func (c *RedisCache) productCacheKeysSet(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:cache_keys", productID.String())
}

// GetReviewsList retrieves a cached review page for a product
func (c *RedisCache) GetReviewsList(ctx context.Context, productID uuid.UUID, filter domain.ReviewFilter) (*ReviewPage, error) {
	val, err := c.client.Get(ctx, c.reviewsListKey(productID, filter)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var page ReviewPage
	if err := json.Unmarshal(val, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// SetReviewsList stores a review page and tracks the key in a SET
func (c *RedisCache) SetReviewsList(ctx context.Context, productID uuid.UUID, filter domain.ReviewFilter, page *ReviewPage) error {
	key := c.reviewsListKey(productID, filter)
	trackingKey := c.productCacheKeysSet(productID)

	data, err := json.Marshal(page)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateReviewsList removes all cached review pages for a product using SET-based tracking
func (c *RedisCache) InvalidateReviewsList(ctx context.Context, productID uuid.UUID) error {
	trackingKey := c.productCacheKeysSet(productID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, trackingKey)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}

// InvalidateAllProductCache invalidates all cache entries for a product
func (c *RedisCache) InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error {
	if err := c.InvalidateProductRating(ctx, productID); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if err := c.InvalidateReviewsList(ctx, productID); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	return nil
}
