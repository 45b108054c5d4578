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

package rpred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bertsky/kraken/codec"
	"github.com/bertsky/kraken/vgsl"
)

// fixedNet builds a linear-only network whose output class f+1 mirrors
// input feature f, with all-zero input mapping to the blank class.
func fixedNet(t *testing.T) *vgsl.Network {
	t.Helper()
	net, err := vgsl.NewNetwork("[1,1,0,4 O1c5]")
	require.NoError(t, err)
	params := net.Params()
	require.Len(t, params, 2)
	w := params[0].Value // 5x4
	w.Zero()
	for f := 0; f < 4; f++ {
		w.Set(f+1, f, 1)
	}
	params[1].Value.Zero()
	net.AddCodec(codec.FromAlphabet(map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}))
	return net
}

func TestNewRequiresCodec(t *testing.T) {
	net, err := vgsl.NewNetwork("[1,1,0,4 O1c5]")
	require.NoError(t, err)
	_, err = New(net)
	assert.Error(t, err)

	net.AddCodec(codec.FromAlphabet(map[string]int{"a": 1}))
	_, err = New(net)
	assert.NoError(t, err)
}

func TestPredictFramesGreedyDecode(t *testing.T) {
	rec, err := New(fixedNet(t))
	require.NoError(t, err)

	// Argmax per frame: a, a, blank, b, c. Repeats collapse, blanks drop.
	frames := mat.NewDense(5, 4, []float64{
		1, 0, 0, 0,
		1, 0, 0, 0,
		0, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})
	text, err := rec.PredictFrames(frames)
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}

func TestPredictFramesRepeatAfterBlank(t *testing.T) {
	rec, err := New(fixedNet(t))
	require.NoError(t, err)

	// a, blank, a decodes to "aa": the blank separates the repeat.
	frames := mat.NewDense(3, 4, []float64{
		1, 0, 0, 0,
		0, 0, 0, 0,
		1, 0, 0, 0,
	})
	text, err := rec.PredictFrames(frames)
	require.NoError(t, err)
	assert.Equal(t, "aa", text)
}

func TestPredictFramesFeatureMismatch(t *testing.T) {
	rec, err := New(fixedNet(t))
	require.NoError(t, err)
	_, err = rec.PredictFrames(mat.NewDense(3, 7, nil))
	assert.Error(t, err)
}
