package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

type memKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestProductCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemKV()
	c := &ProductCache{redis: store, ttl: 5 * time.Minute}

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	p := &models.Product{
		ID:         1,
		Name:       "T-Shirt",
		IsVariable: true,
		Variants: []models.ProductVariant{{
			ID:          3,
			Price:       decimal.NewFromInt(10),
			SalePrice:   decimal.NewNullDecimal(decimal.NewFromInt(8)),
			SKU:         "TS-RED",
			Combination: []models.CombinationItem{{AttributeID: 1, AttributeName: "Color", ValueID: 11, Value: "Red"}},
		}},
	}
	require.NoError(t, c.Set(ctx, p))
	assert.Equal(t, 5*time.Minute, store.ttls["catalog:product:1"])

	got, err = c.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T-Shirt", got.Name)
	require.Len(t, got.Variants, 1)
	assert.True(t, decimal.NewFromInt(8).Equal(got.FinalPrice()))
	assert.Equal(t, "Red", got.Variants[0].Combination[0].Value)

	require.NoError(t, c.Invalidate(ctx, 1, 2))
	got, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
