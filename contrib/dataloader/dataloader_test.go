package dataloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fee struct {
	ID        string
	StudentID string
}

func TestOrderByKeys(t *testing.T) {
	t.Parallel()

	keyFn := func(f *fee) string { return f.ID }

	t.Run("all keys found", func(t *testing.T) {
		t.Parallel()
		values := []*fee{{ID: "f3"}, {ID: "f1"}, {ID: "f2"}}

		result, errs := OrderByKeys([]string{"f1", "f2", "f3"}, values, keyFn)

		require.Len(t, result, 3)
		assert.Equal(t, "f1", result[0].ID)
		assert.Equal(t, "f2", result[1].ID)
		assert.Equal(t, "f3", result[2].ID)
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("some keys missing", func(t *testing.T) {
		t.Parallel()
		values := []*fee{{ID: "f1"}}

		result, errs := OrderByKeys([]string{"f1", "f2"}, values, keyFn)

		require.Len(t, result, 2)
		assert.Equal(t, "f1", result[0].ID)
		assert.Nil(t, result[1])
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], ErrNotFound)
	})
}

func TestGroupByKey(t *testing.T) {
	t.Parallel()

	values := []*fee{
		{ID: "f1", StudentID: "s1"},
		{ID: "f2", StudentID: "s2"},
		{ID: "f3", StudentID: "s1"},
	}
	groups := GroupByKey(values, func(f *fee) string { return f.StudentID })

	require.Len(t, groups, 2)
	require.Len(t, groups["s1"], 2)
	assert.Equal(t, "f1", groups["s1"][0].ID)
	assert.Equal(t, "f3", groups["s1"][1].ID)
	assert.Len(t, groups["s2"], 1)
}

func TestOrderGroupsByKeys(t *testing.T) {
	t.Parallel()

	groups := map[string][]*fee{
		"s1": {{ID: "f1"}},
	}
	ordered := OrderGroupsByKeys([]string{"s2", "s1"}, groups)

	require.Len(t, ordered, 2)
	assert.NotNil(t, ordered[0])
	assert.Empty(t, ordered[0])
	assert.Len(t, ordered[1], 1)
}

func TestUniqueKeys(t *testing.T) {
	t.Parallel()

	values := []map[string]any{
		{"teacherId": "s1"},
		{"teacherId": nil},
		{"teacherId": "s2"},
		{"teacherId": "s1"},
	}
	keys := UniqueKeys(values, func(v map[string]any) any { return v["teacherId"] })
	assert.Equal(t, []any{"s1", "s2"}, keys)
}

func TestChunk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []int
		size   int
		want   [][]int
	}{
		{name: "empty", values: nil, size: 2, want: nil},
		{name: "single batch", values: []int{1, 2}, size: 5, want: [][]int{{1, 2}}},
		{name: "no limit", values: []int{1, 2, 3}, size: 0, want: [][]int{{1, 2, 3}}},
		{name: "exact", values: []int{1, 2, 3, 4}, size: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", values: []int{1, 2, 3, 4, 5}, size: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Chunk(tt.values, tt.size))
		})
	}
}
