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

package layers

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear is a per-frame affine projection, the layer behind the VGSL
// "O1c<n>" output block.
type Linear struct {
	in, out int
	w       *Parameter // out x in
	b       *Parameter // 1 x out

	lastIn *mat.Dense
}

// NewLinear creates a projection from in to out features.
func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		in:  in,
		out: out,
		w:   newParameter(name+".w", out, in),
		b:   newParameter(name+".b", 1, out),
	}
	initNormal(l.w, 1.0/math.Sqrt(float64(in)), rng)
	return l
}

// Forward implements Layer.
func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	l.lastIn = x
	frames, _ := x.Dims()
	y := mat.NewDense(frames, l.out, nil)
	y.Mul(x, l.w.Value.T())
	for t := 0; t < frames; t++ {
		for j := 0; j < l.out; j++ {
			y.Set(t, j, y.At(t, j)+l.b.Value.At(0, j))
		}
	}
	return y
}

// Backward implements Layer.
func (l *Linear) Backward(grad *mat.Dense) *mat.Dense {
	frames, _ := grad.Dims()

	var gw mat.Dense
	gw.Mul(grad.T(), l.lastIn)
	l.w.Grad.Add(l.w.Grad, &gw)
	for t := 0; t < frames; t++ {
		for j := 0; j < l.out; j++ {
			l.b.Grad.Set(0, j, l.b.Grad.At(0, j)+grad.At(t, j))
		}
	}

	dx := mat.NewDense(frames, l.in, nil)
	dx.Mul(grad, l.w.Value)
	return dx
}

// Params implements Layer.
func (l *Linear) Params() []*Parameter { return []*Parameter{l.w, l.b} }

// InputSize implements Layer.
func (l *Linear) InputSize() int { return l.in }

// OutputSize implements Layer.
func (l *Linear) OutputSize() int { return l.out }
