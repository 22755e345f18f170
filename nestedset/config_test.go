// Created by Yanjunhui

package nestedset_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolite/monotree/nestedset"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, nestedset.DefaultConfig().Validate())
	require.NoError(t, nestedset.ForestConfig().Validate())

	cases := map[string]func(c *nestedset.Config){
		"missing id column":        func(c *nestedset.Config) { c.IDAttribute = "" },
		"missing level column":     func(c *nestedset.Config) { c.LevelAttribute = "" },
		"negative root level":      func(c *nestedset.Config) { c.RootLevel = -1 },
		"left equals right":        func(c *nestedset.Config) { c.RightAttribute = c.LeftAttribute },
		"forest without root":      func(c *nestedset.Config) { c.HasManyRoots = true; c.RootAttribute = "" },
		"forest root reuses level": func(c *nestedset.Config) { c.HasManyRoots = true; c.RootAttribute = c.LevelAttribute },
		"negative slow threshold":  func(c *nestedset.Config) { c.SlowMutationThreshold = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := nestedset.DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, nestedset.ErrConfiguration)
		})
	}

	// 单根模式下 root 列不参与校验
	// EN: Single-root mode does not need a root column.
	cfg := nestedset.DefaultConfig()
	cfg.RootAttribute = ""
	assert.NoError(t, cfg.Validate())
}

func TestParsePlacement(t *testing.T) {
	for _, p := range []nestedset.Placement{nestedset.Prepend, nestedset.Append, nestedset.Before, nestedset.After} {
		got, err := nestedset.ParsePlacement(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := nestedset.ParsePlacement("AFTER")
	require.NoError(t, err)
	assert.Equal(t, nestedset.After, got)

	_, err = nestedset.ParsePlacement("inside")
	assert.ErrorIs(t, err, nestedset.ErrInvalidOperation)
	assert.Equal(t, "Placement(7)", nestedset.Placement(7).String())
}

func TestTreeErrorMatching(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("outer: %w", nestedset.AsTreeError(cause))

	assert.True(t, nestedset.IsTreeError(err))
	assert.ErrorIs(t, err, nestedset.ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, nestedset.ErrInvalidOperation)

	te := nestedset.NewTreeError(nestedset.ErrorCodeNodeNotFound, "node 3 not found")
	assert.Equal(t, "NodeNotFound (24): node 3 not found", te.Error())
	assert.Equal(t, nestedset.ErrorCodeNodeNotFound, te.ErrorCode())
	assert.Equal(t, "NodeNotFound", te.ErrorCodeName())
	assert.False(t, te.Retryable())

	assert.Equal(t, "UnknownError", nestedset.NewTreeError(99, "x").CodeName)
	assert.Nil(t, nestedset.AsTreeError(nil))
	assert.False(t, nestedset.IsTreeError(cause))
}

func TestPredicateMatches(t *testing.T) {
	row := nestedset.Row{"lft": int64(4), "rgt": int32(7), "level": 1, "title": "B"}
	assert.True(t, nestedset.Predicate{nestedset.Gte("lft", 4), nestedset.Lte("rgt", 7)}.Matches(row))
	assert.True(t, nestedset.Predicate{nestedset.Eq("level", 1), nestedset.Ne("lft", 5)}.Matches(row))
	assert.False(t, nestedset.Predicate{nestedset.Gte("lft", 5)}.Matches(row))
	assert.False(t, nestedset.Predicate{nestedset.Eq("root", 0)}.Matches(row), "missing column never matches")
	assert.False(t, nestedset.Predicate{nestedset.Eq("title", 0)}.Matches(row))
	assert.True(t, nestedset.Predicate{}.Matches(row))
	assert.Equal(t, "lft >= 4 AND rgt <= 7", nestedset.Predicate{nestedset.Gte("lft", 4), nestedset.Lte("rgt", 7)}.String())

	assert.EqualValues(t, 9, nestedset.Add("lft", 2).Apply(7))
	assert.EqualValues(t, 3, nestedset.Set("root", 3).Apply(7))
}
