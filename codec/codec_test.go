/*
 *	Copyright 2015 Benjamin Kiessling
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAlphabet(t *testing.T) {
	c := FromAlphabet(map[string]int{"b": 3, "a": 10, "c": 1})
	// Sorted symbols get indices 1..n; blank stays reserved.
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, c.Table())
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 3, c.MaxIndex())
}

func TestEncodeDecode(t *testing.T) {
	c := FromAlphabet(map[string]int{"a": 1, "b": 1, " ": 1})
	labels, err := c.Encode("ab a")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1, 2}, labels)
	assert.Equal(t, "ab a", c.Decode(labels))

	// Blanks and unassigned indices are skipped on decode.
	assert.Equal(t, "a", c.Decode([]int{Blank, 2, 99}))

	_, err = c.Encode("abz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"z"`)
}

func TestEncodeGraphemeClusters(t *testing.T) {
	// A combining sequence is one symbol, not two.
	c := FromAlphabet(map[string]int{"é": 1, "e": 1})
	labels, err := c.Encode("ée")
	require.NoError(t, err)
	assert.Len(t, labels, 2)
	assert.Equal(t, "ée", c.Decode(labels))
}

func TestFromTableValidation(t *testing.T) {
	_, err := FromTable(map[string]int{"a": Blank})
	assert.Error(t, err)
	_, err = FromTable(map[string]int{"a": -1})
	assert.Error(t, err)
	_, err = FromTable(map[string]int{"a": 1, "b": 1})
	assert.Error(t, err)

	c, err := FromTable(map[string]int{"a": 5, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, 5, c.MaxIndex())
}

func TestSaveLoad(t *testing.T) {
	c := FromAlphabet(map[string]int{"x": 1, "y": 1})
	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))
	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.Table(), loaded.Table())

	_, err = Load(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestGraphemes(t *testing.T) {
	assert.Equal(t, []string{"a", "b́", "c"}, Graphemes("ab́c"))
	assert.Nil(t, Graphemes(""))
}
