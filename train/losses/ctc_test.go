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

package losses

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCTCSingleFrame(t *testing.T) {
	// One frame, two classes, uniform logits: P(label) = 0.5, so the loss
	// is ln 2 and the gradient is softmax minus the one-hot posterior.
	logits := mat.NewDense(1, 2, []float64{0, 0})
	loss, grad, err := CTC(logits, []int{1})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), loss, 1e-12)
	assert.InDelta(t, 0.5, grad.At(0, 0), 1e-12)
	assert.InDelta(t, -0.5, grad.At(0, 1), 1e-12)
}

func TestCTCTwoFrames(t *testing.T) {
	// Two frames, uniform logits, one label. Feasible paths are (blank,1),
	// (1,blank) and (1,1), each with probability 1/4: P = 3/4.
	logits := mat.NewDense(2, 2, nil)
	loss, _, err := CTC(logits, []int{1})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(4.0/3.0), loss, 1e-12)
}

func TestCTCNumericalGradient(t *testing.T) {
	logits := mat.NewDense(5, 4, []float64{
		0.3, -0.2, 0.1, 0.4,
		-0.5, 0.2, 0.8, -0.1,
		0.0, 0.7, -0.3, 0.2,
		0.4, -0.6, 0.5, 0.1,
		-0.2, 0.3, 0.0, -0.4,
	})
	labels := []int{2, 1, 1}
	_, grad, err := CTC(logits, labels)
	require.NoError(t, err)

	const eps = 1e-6
	rows, cols := logits.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			orig := logits.At(i, j)
			logits.Set(i, j, orig+eps)
			plus, _, err := CTC(logits, labels)
			require.NoError(t, err)
			logits.Set(i, j, orig-eps)
			minus, _, err := CTC(logits, labels)
			require.NoError(t, err)
			logits.Set(i, j, orig)
			assert.InDelta(t, (plus-minus)/(2*eps), grad.At(i, j), 1e-5,
				"gradient at (%d,%d)", i, j)
		}
	}
}

func TestCTCDegenerateInputs(t *testing.T) {
	logits := mat.NewDense(2, 3, nil)

	_, _, err := CTC(logits, nil)
	assert.Error(t, err)

	// Repeated labels need a separating blank: [1,1] requires 3 frames.
	_, _, err = CTC(logits, []int{1, 1})
	assert.Error(t, err)

	_, _, err = CTC(logits, []int{3})
	assert.Error(t, err)
	_, _, err = CTC(logits, []int{0})
	assert.Error(t, err)
}

func TestCTCFiniteLoss(t *testing.T) {
	// Strongly peaked logits must not overflow the log-space recursion.
	logits := mat.NewDense(4, 3, []float64{
		100, -100, -100,
		-100, 100, -100,
		100, -100, -100,
		-100, -100, 100,
	})
	loss, grad, err := CTC(logits, []int{1, 2})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsInf(loss, 0))
	rows, cols := grad.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.False(t, math.IsNaN(grad.At(i, j)), "grad at (%d,%d)", i, j)
		}
	}
}
