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

package train

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("%06d.png", i)
	}

	trainIDs, testIDs := Partition(ids, 0.9)
	assert.Len(t, trainIDs, 9)
	assert.Len(t, testIDs, 1)

	// No sample lost, none duplicated.
	all := append(append([]string{}, trainIDs...), testIDs...)
	sort.Strings(all)
	want := append([]string{}, ids...)
	sort.Strings(want)
	assert.Equal(t, want, all)

	// The input slice is untouched.
	assert.Equal(t, "000000.png", ids[0])
}

func TestPartitionEdgeRatios(t *testing.T) {
	ids := []string{"a", "b", "c"}

	trainIDs, testIDs := Partition(ids, 1.0)
	assert.Len(t, trainIDs, 3)
	assert.Empty(t, testIDs)

	trainIDs, testIDs = Partition(ids, 0)
	assert.Empty(t, trainIDs)
	assert.Len(t, testIDs, 3)

	trainIDs, testIDs = Partition(nil, 0.9)
	assert.Empty(t, trainIDs)
	assert.Empty(t, testIDs)
}

func TestPartitionFloors(t *testing.T) {
	// 7 * 0.9 = 6.3 floors to 6.
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	trainIDs, testIDs := Partition(ids, 0.9)
	require.Len(t, trainIDs, 6)
	require.Len(t, testIDs, 1)
}
