/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(n int) []*int {
	out := make([]*int, n)
	for i := range out {
		v := i
		out[i] = &v
	}
	return out
}

func TestPageRequestDefaults(t *testing.T) {
	req := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, req.GetPage())
	assert.Equal(t, DefaultPageSize, req.GetPageSize())
	assert.Equal(t, 0, req.GetOffset())
	assert.False(t, req.HasOrders())

	req = NewDefaultPageRequest(3, 5000)
	assert.Equal(t, MaxPageSize, req.GetPageSize())
	assert.Equal(t, 2*MaxPageSize, req.GetOffset())
}

func TestPaginationNavigation(t *testing.T) {
	p := &Pagination[int]{Page: 2, PageSize: 2, Total: 5}
	assert.Equal(t, 3, p.TotalPages())
	assert.False(t, p.IsFirst())
	assert.False(t, p.IsLast())
	assert.True(t, p.HasNext())

	empty := NewDefaultPagination[int](1, 10)
	assert.Equal(t, 0, empty.TotalPages())
	assert.True(t, empty.IsFirst())
	assert.NotNil(t, empty.Items)
}

func TestResolvePage(t *testing.T) {
	failCount := func() (int, error) { return 0, errors.New("count must not run") }

	t.Run("first page not full skips count", func(t *testing.T) {
		page, err := ResolvePage(items(3), NewDefaultPageRequest(1, 10), failCount)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Len(t, page.Items, 3)
	})

	t.Run("last partial page skips count", func(t *testing.T) {
		page, err := ResolvePage(items(2), NewDefaultPageRequest(3, 10), failCount)
		require.NoError(t, err)
		assert.Equal(t, 22, page.Total)
	})

	t.Run("full page counts", func(t *testing.T) {
		calls := 0
		page, err := ResolvePage(items(10), NewDefaultPageRequest(1, 10), func() (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 42, page.Total)
	})

	t.Run("empty page past the end counts", func(t *testing.T) {
		page, err := ResolvePage[int](nil, NewDefaultPageRequest(5, 10), func() (int, error) { return 7, nil })
		require.NoError(t, err)
		assert.Equal(t, 7, page.Total)
		assert.Empty(t, page.Items)
	})

	t.Run("count error propagates", func(t *testing.T) {
		_, err := ResolvePage(items(10), NewDefaultPageRequest(1, 10), failCount)
		assert.Error(t, err)
	})
}
