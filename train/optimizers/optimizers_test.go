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

package optimizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bertsky/kraken/layers"
)

func param(values, grads []float64) *layers.Parameter {
	return &layers.Parameter{
		Name:  "p",
		Value: mat.NewDense(1, len(values), values),
		Grad:  mat.NewDense(1, len(grads), grads),
	}
}

func TestSGDStep(t *testing.T) {
	p := param([]float64{1, -2}, []float64{0.5, -0.5})
	SGD(0.1, 0).Step([]*layers.Parameter{p})
	assert.InDelta(t, 0.95, p.Value.At(0, 0), 1e-12)
	assert.InDelta(t, -1.95, p.Value.At(0, 1), 1e-12)
}

func TestSGDWeightDecay(t *testing.T) {
	p := param([]float64{1}, []float64{0})
	SGD(0.1, 0.5).Step([]*layers.Parameter{p})
	// Pure decay: w -= lr * wdecay * w.
	assert.InDelta(t, 0.95, p.Value.At(0, 0), 1e-12)
}

func TestAdamFirstStep(t *testing.T) {
	// With bias correction the first update has magnitude close to the
	// learning rate regardless of the gradient scale.
	p := param([]float64{0}, []float64{3})
	Adam().LearningRate(0.01).Done().Step([]*layers.Parameter{p})
	assert.InDelta(t, -0.01, p.Value.At(0, 0), 1e-6)
}

func TestAdamBuilderDefaults(t *testing.T) {
	cfg := Adam()
	assert.Equal(t, AdamDefaultLearningRate, cfg.lrate)
	assert.Equal(t, 0.9, cfg.beta1)
	assert.Equal(t, 0.999, cfg.beta2)

	cfg.Betas(0.8, 0.99).Epsilon(1e-6).WeightDecay(0.1)
	assert.Equal(t, 0.8, cfg.beta1)
	assert.Equal(t, 0.1, cfg.wdecay)
}

func TestRMSpropConverges(t *testing.T) {
	// Minimize (w-2)^2 with its analytic gradient; RMSprop should settle
	// near the minimum.
	p := param([]float64{0}, []float64{0})
	opt := RMSprop(0.1, 0)
	for i := 0; i < 200; i++ {
		w := p.Value.At(0, 0)
		p.Grad.Set(0, 0, 2*(w-2))
		opt.Step([]*layers.Parameter{p})
	}
	assert.InDelta(t, 2.0, p.Value.At(0, 0), 0.1)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"SGD", "Adam", "RMSprop"} {
		opt, err := ByName(name, 1e-3, 0)
		require.NoError(t, err, name)
		require.NotNil(t, opt, name)
	}
	_, err := ByName("Adagrad", 1e-3, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Adagrad")
}
