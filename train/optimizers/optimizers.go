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

// Package optimizers implements the gradient-descent optimizers the train
// command can select. They all implement optimizers.Interface.
package optimizers

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/bertsky/kraken/layers"
)

// Interface applies one update step to a parameter set from its accumulated
// gradients. Implementations keep their own per-parameter state between
// steps.
type Interface interface {
	Step(params []*layers.Parameter)
}

// KnownOptimizers maps the optimizer names accepted by the CLI to default
// constructors taking learning rate and weight decay.
var KnownOptimizers = map[string]func(lrate, wdecay float64) Interface{
	"SGD":     func(lrate, wdecay float64) Interface { return SGD(lrate, wdecay) },
	"Adam":    func(lrate, wdecay float64) Interface { return Adam().LearningRate(lrate).WeightDecay(wdecay).Done() },
	"RMSprop": func(lrate, wdecay float64) Interface { return RMSprop(lrate, wdecay) },
}

// ByName returns an optimizer for one of the KnownOptimizers names.
func ByName(name string, lrate, wdecay float64) (Interface, error) {
	build, ok := KnownOptimizers[name]
	if !ok {
		return nil, errors.Errorf("unknown optimizer %q, valid values are %v", name, maps.Keys(KnownOptimizers))
	}
	return build(lrate, wdecay), nil
}

// sgd is plain stochastic gradient descent with optional weight decay.
type sgd struct {
	lrate, wdecay float64
}

// SGD creates a stochastic gradient descent optimizer.
func SGD(lrate, wdecay float64) Interface {
	return &sgd{lrate: lrate, wdecay: wdecay}
}

// Step implements Interface.
func (o *sgd) Step(params []*layers.Parameter) {
	for _, p := range params {
		rows, cols := p.Value.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j) + o.wdecay*p.Value.At(i, j)
				p.Value.Set(i, j, p.Value.At(i, j)-o.lrate*g)
			}
		}
	}
}

// rmsprop keeps a moving average of squared gradients per parameter.
type rmsprop struct {
	lrate, wdecay float64
	alpha, eps    float64
	sq            map[*layers.Parameter][]float64
}

// RMSprop creates an RMSprop optimizer with the usual defaults
// (alpha 0.99, epsilon 1e-8).
func RMSprop(lrate, wdecay float64) Interface {
	return &rmsprop{
		lrate:  lrate,
		wdecay: wdecay,
		alpha:  0.99,
		eps:    1e-8,
		sq:     make(map[*layers.Parameter][]float64),
	}
}

// Step implements Interface.
func (o *rmsprop) Step(params []*layers.Parameter) {
	for _, p := range params {
		rows, cols := p.Value.Dims()
		sq := o.sq[p]
		if sq == nil {
			sq = make([]float64, rows*cols)
			o.sq[p] = sq
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j) + o.wdecay*p.Value.At(i, j)
				k := i*cols + j
				sq[k] = o.alpha*sq[k] + (1-o.alpha)*g*g
				p.Value.Set(i, j, p.Value.At(i, j)-o.lrate*g/(math.Sqrt(sq[k])+o.eps))
			}
		}
	}
}
