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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequest_Bounds(t *testing.T) {
	tests := []struct {
		page, size              int
		wantPage, wantSize, off int
	}{
		{0, 0, 1, DefaultPageSize, 0},
		{-3, 5, 1, 5, 0},
		{3, 20, 3, 20, 40},
		{2, 1000, 2, MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		p := NewPageRequestWithOrders(tt.page, tt.size, nil)
		assert.Equal(t, tt.wantPage, p.GetPage())
		assert.Equal(t, tt.wantSize, p.GetPageSize())
		assert.Equal(t, tt.off, p.GetOffset())
	}
}

func TestPagination_Pages(t *testing.T) {
	p := NewDefaultPagination[struct{}](1, 10)
	assert.Equal(t, 0, p.Pages())
	p.Total = 21
	assert.Equal(t, 3, p.Pages())

	p.SetTotal(30)
	assert.Equal(t, 30, p.Total)
	assert.Equal(t, 3, p.TotalPages)
}

func TestPagination_JSONIncludesPages(t *testing.T) {
	p := NewDefaultPagination[struct{}](2, 5)
	p.SetTotal(11)
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"page":2,"page_size":5,"total":11,"pages":3,"items":[]}`, string(b))
}

func TestJsonObject_ValueScan(t *testing.T) {
	var empty JsonObject
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	obj := JsonObject{"priority": "high"}
	v, err = obj.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"priority":"high"}`, v)

	var fromString JsonObject
	require.NoError(t, fromString.Scan(`{"a":1}`))
	assert.Equal(t, float64(1), fromString["a"])

	var fromBytes JsonObject
	require.NoError(t, fromBytes.Scan([]byte(`{"b":true}`)))
	assert.Equal(t, true, fromBytes["b"])

	var fromNil JsonObject
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	assert.Error(t, fromNil.Scan(42))
}
