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
	"math"

	"github.com/bertsky/kraken/layers"
)

// AdamDefaultLearningRate is used by Adam if no learning rate is set.
const AdamDefaultLearningRate = 1e-3

// Adam returns a configuration object for the Adam optimizer
// [Kingma et al., 2014]. Configure it with the chained setters and call
// Done to build the optimizer.
func Adam() *AdamConfig {
	return &AdamConfig{
		lrate: AdamDefaultLearningRate,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
	}
}

// AdamConfig holds the configuration for an Adam optimizer. Create it with
// Adam(), configure, then call Done.
type AdamConfig struct {
	lrate        float64
	beta1, beta2 float64
	eps          float64
	wdecay       float64
}

// LearningRate sets the base learning rate. Default is 1e-3.
func (c *AdamConfig) LearningRate(v float64) *AdamConfig {
	c.lrate = v
	return c
}

// Betas sets the two moment decay constants. They default to 0.9 and 0.999.
func (c *AdamConfig) Betas(beta1, beta2 float64) *AdamConfig {
	c.beta1, c.beta2 = beta1, beta2
	return c
}

// Epsilon sets the denominator stability constant. Default 1e-8.
func (c *AdamConfig) Epsilon(v float64) *AdamConfig {
	c.eps = v
	return c
}

// WeightDecay sets an L2 penalty added to every gradient. Default 0.
func (c *AdamConfig) WeightDecay(v float64) *AdamConfig {
	c.wdecay = v
	return c
}

// Done builds the optimizer with the current configuration.
func (c *AdamConfig) Done() Interface {
	return &adam{
		cfg:    *c,
		moment: make(map[*layers.Parameter]*adamState),
	}
}

type adamState struct {
	m, v []float64
}

type adam struct {
	cfg    AdamConfig
	step   int
	moment map[*layers.Parameter]*adamState
}

// Step implements Interface.
func (o *adam) Step(params []*layers.Parameter) {
	o.step++
	c1 := 1 - math.Pow(o.cfg.beta1, float64(o.step))
	c2 := 1 - math.Pow(o.cfg.beta2, float64(o.step))
	for _, p := range params {
		rows, cols := p.Value.Dims()
		st := o.moment[p]
		if st == nil {
			st = &adamState{m: make([]float64, rows*cols), v: make([]float64, rows*cols)}
			o.moment[p] = st
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j) + o.cfg.wdecay*p.Value.At(i, j)
				k := i*cols + j
				st.m[k] = o.cfg.beta1*st.m[k] + (1-o.cfg.beta1)*g
				st.v[k] = o.cfg.beta2*st.v[k] + (1-o.cfg.beta2)*g*g
				mHat := st.m[k] / c1
				vHat := st.v[k] / c2
				p.Value.Set(i, j, p.Value.At(i, j)-o.cfg.lrate*mHat/(math.Sqrt(vHat)+o.cfg.eps))
			}
		}
	}
}
