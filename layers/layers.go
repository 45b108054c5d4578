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

// Package layers implements the trainable layers the VGSL block grammar can
// produce. Sequences are represented as dense matrices with one row per
// time frame and one column per feature.
package layers

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Parameter is one trainable tensor together with its accumulated gradient.
// Value and Grad always have identical shape.
type Parameter struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParameter(name string, rows, cols int) *Parameter {
	return &Parameter{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// ZeroGrad resets the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	p.Grad.Zero()
}

// Layer is one stage of a network: Forward consumes a frames-by-features
// matrix and produces another; Backward consumes the gradient with respect
// to the last Forward output, accumulates parameter gradients and returns
// the gradient with respect to the input. Layers are stateful between
// Forward and Backward and must not be shared.
type Layer interface {
	Forward(x *mat.Dense) *mat.Dense
	Backward(grad *mat.Dense) *mat.Dense
	Params() []*Parameter
	InputSize() int
	OutputSize() int
}

// initNormal fills a parameter with N(0, scale) noise.
func initNormal(p *Parameter, scale float64, rng *rand.Rand) {
	rows, cols := p.Value.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p.Value.Set(i, j, rng.NormFloat64()*scale)
		}
	}
}
