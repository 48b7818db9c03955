package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
)

func TestAttributeCreate(t *testing.T) {
	f := newFixture(t)
	svc := NewAttributeService(f.store, f.cache)

	a, err := svc.Create(f.ctx, &AttributeInput{
		Name:   "Material",
		Values: []AttributeValueInput{{Value: "Cotton"}, {Value: "Linen", Slug: "Flax"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "material", a.Slug)
	require.Len(t, a.Values, 2)
	assert.Equal(t, "cotton", a.Values[0].Slug)
	assert.Equal(t, "flax", a.Values[1].Slug)
	assert.Equal(t, 1, a.Values[1].Position)

	tests := []struct {
		name string
		in   *AttributeInput
		want error
	}{
		{"missing name", &AttributeInput{Values: []AttributeValueInput{{Value: "x"}}}, apperr.ErrValidation},
		{"no values", &AttributeInput{Name: "Fit"}, apperr.ErrValidation},
		{"blank value", &AttributeInput{Name: "Fit", Values: []AttributeValueInput{{Value: " "}}}, apperr.ErrValidation},
		{"repeated value", &AttributeInput{Name: "Fit", Values: []AttributeValueInput{{Value: "Slim"}, {Value: "slim"}}}, apperr.ErrValidation},
		{"duplicate slug", &AttributeInput{Name: "Material", Values: []AttributeValueInput{{Value: "Wool"}}}, apperr.ErrDuplicateSlug},
		{"foreign value id", &AttributeInput{Name: "Fit", Values: []AttributeValueInput{{ID: a.Values[0].ID, Value: "Slim"}}}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(f.ctx, tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAttributeUpdateKeepsIDs(t *testing.T) {
	f := newFixture(t)
	svc := NewAttributeService(f.store, f.cache)
	red, blue := f.color.Values[0], f.color.Values[1]

	created, err := f.svc.Create(f.ctx, f.variable("Tee", newVariation("T", 10, f.pair(f.color, "Red"))))
	require.NoError(t, err)

	a, err := svc.Update(f.ctx, f.color.ID, &AttributeInput{
		Name: "Colour",
		Values: []AttributeValueInput{
			{ID: red.ID, Value: "Crimson"},
			{Value: "Green"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "colour", a.Slug)
	require.Len(t, a.Values, 2)
	assert.Equal(t, red.ID, a.Values[0].ID)
	assert.Equal(t, "Crimson", a.Values[0].Value)
	assert.Equal(t, "Green", a.Values[1].Value)
	for _, v := range a.Values {
		assert.NotEqual(t, blue.ID, v.ID)
	}
	assert.Contains(t, f.cache.invalidated, created.ID)

	d, err := f.svc.Get(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crimson", d.Variants[0].Combination[0].Value)
}

func TestAttributeUpdateRefusesRemovingUsedValue(t *testing.T) {
	f := newFixture(t)
	svc := NewAttributeService(f.store, f.cache)
	red, blue := f.color.Values[0], f.color.Values[1]

	_, err := f.svc.Create(f.ctx, f.variable("Tee", newVariation("T", 10, f.pair(f.color, "Red"))))
	require.NoError(t, err)

	_, err = svc.Update(f.ctx, f.color.ID, &AttributeInput{
		Name:   "Color",
		Values: []AttributeValueInput{{ID: blue.ID, Value: "Blue"}},
	})
	require.ErrorIs(t, err, apperr.ErrInUse)
	var fe *apperr.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "values", fe.Field)

	a, err := svc.Get(f.ctx, f.color.ID)
	require.NoError(t, err)
	assert.Len(t, a.Values, 2)
	assert.Equal(t, red.ID, a.Values[0].ID)

	_, err = svc.Update(f.ctx, 999, &AttributeInput{Name: "X", Values: []AttributeValueInput{{Value: "Y"}}})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAttributeDelete(t *testing.T) {
	t.Run("cascade keeps variants", func(t *testing.T) {
		f := newFixture(t)
		svc := NewAttributeService(f.store, f.cache)
		p, err := f.svc.Create(f.ctx, f.variable("Tee",
			newVariation("A", 10, f.pair(f.color, "Red"), f.pair(f.size, "S")),
			newVariation("B", 10, f.pair(f.color, "Red"), f.pair(f.size, "M")),
		))
		require.NoError(t, err)

		require.NoError(t, svc.Delete(f.ctx, f.color.ID))
		vs := f.variants(t, p.ID)
		require.Len(t, vs, 2)
		for _, v := range vs {
			require.Len(t, v.Combination, 1)
			assert.Equal(t, f.size.ID, v.Combination[0].AttributeID)
		}
		assert.Contains(t, f.cache.invalidated, p.ID)

		_, err = svc.Get(f.ctx, f.color.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("refused when variants would collapse", func(t *testing.T) {
		f := newFixture(t)
		svc := NewAttributeService(f.store, f.cache)
		p, err := f.svc.Create(f.ctx, f.variable("Tee",
			newVariation("A", 10, f.pair(f.color, "Red"), f.pair(f.size, "S")),
			newVariation("B", 10, f.pair(f.color, "Blue"), f.pair(f.size, "S")),
		))
		require.NoError(t, err)

		err = svc.Delete(f.ctx, f.color.ID)
		require.ErrorIs(t, err, apperr.ErrDuplicateCombination)
		for _, v := range f.variants(t, p.ID) {
			assert.Len(t, v.Combination, 2)
		}
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, NewAttributeService(f.store, nil).Delete(f.ctx, 999), apperr.ErrNotFound)
	})
}

func TestAttributeDeleteRollsBack(t *testing.T) {
	f := newFixture(t)
	svc := NewAttributeService(f.store, f.cache)
	p, err := f.svc.Create(f.ctx, f.variable("Tee",
		newVariation("A", 10, f.pair(f.color, "Red"), f.pair(f.size, "S")),
	))
	require.NoError(t, err)

	f.store.failOn["DeleteAttribute"] = errors.New("connection reset")
	require.Error(t, svc.Delete(f.ctx, f.color.ID))

	_, err = svc.Get(f.ctx, f.color.ID)
	require.NoError(t, err)
	vs := f.variants(t, p.ID)
	require.Len(t, vs, 1)
	assert.Len(t, vs[0].Combination, 2)
	assert.NotContains(t, f.cache.invalidated, p.ID)
}
