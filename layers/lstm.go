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

// Direction selects how an LSTM traverses the frame sequence.
type Direction int

const (
	// Forward processes frames left to right.
	Forward Direction = iota
	// Reverse processes frames right to left.
	Reverse
	// Bidirectional runs one pass in each direction and concatenates the
	// outputs, doubling the output size.
	Bidirectional
)

// LSTM is a recurrent layer over the frame sequence, the layer behind the
// VGSL "L[fbr]x<n>" blocks.
type LSTM struct {
	in, units int
	dir       Direction
	fwd, bwd  *lstmCell
}

// NewLSTM creates an LSTM with the given number of units per direction.
func NewLSTM(name string, in, units int, dir Direction, rng *rand.Rand) *LSTM {
	l := &LSTM{in: in, units: units, dir: dir}
	switch dir {
	case Bidirectional:
		l.fwd = newLSTMCell(name+".fwd", in, units, rng)
		l.bwd = newLSTMCell(name+".bwd", in, units, rng)
	case Reverse:
		l.bwd = newLSTMCell(name+".bwd", in, units, rng)
	default:
		l.fwd = newLSTMCell(name+".fwd", in, units, rng)
	}
	return l
}

// Forward implements Layer.
func (l *LSTM) Forward(x *mat.Dense) *mat.Dense {
	frames, _ := x.Dims()
	y := mat.NewDense(frames, l.OutputSize(), nil)
	if l.fwd != nil {
		l.fwd.run(x, forwardOrder(frames))
		for t := 0; t < frames; t++ {
			for j := 0; j < l.units; j++ {
				y.Set(t, j, l.fwd.hs[t][j])
			}
		}
	}
	if l.bwd != nil {
		offset := 0
		if l.dir == Bidirectional {
			offset = l.units
		}
		order := reverseOrder(frames)
		l.bwd.run(x, order)
		for k, t := range order {
			for j := 0; j < l.units; j++ {
				y.Set(t, offset+j, l.bwd.hs[k][j])
			}
		}
	}
	return y
}

// Backward implements Layer.
func (l *LSTM) Backward(grad *mat.Dense) *mat.Dense {
	frames, _ := grad.Dims()
	dx := mat.NewDense(frames, l.in, nil)
	if l.fwd != nil {
		d := l.fwd.backward(grad, forwardOrder(frames), 0)
		dx.Add(dx, d)
	}
	if l.bwd != nil {
		offset := 0
		if l.dir == Bidirectional {
			offset = l.units
		}
		d := l.bwd.backward(grad, reverseOrder(frames), offset)
		dx.Add(dx, d)
	}
	return dx
}

// Params implements Layer.
func (l *LSTM) Params() []*Parameter {
	var ps []*Parameter
	if l.fwd != nil {
		ps = append(ps, l.fwd.params()...)
	}
	if l.bwd != nil {
		ps = append(ps, l.bwd.params()...)
	}
	return ps
}

// InputSize implements Layer.
func (l *LSTM) InputSize() int { return l.in }

// OutputSize implements Layer.
func (l *LSTM) OutputSize() int {
	if l.dir == Bidirectional {
		return 2 * l.units
	}
	return l.units
}

func forwardOrder(frames int) []int {
	order := make([]int, frames)
	for i := range order {
		order[i] = i
	}
	return order
}

func reverseOrder(frames int) []int {
	order := make([]int, frames)
	for i := range order {
		order[i] = frames - 1 - i
	}
	return order
}

// lstmCell is one direction of an LSTM: standard gate equations with
// truncated-nothing BPTT over the whole sequence.
type lstmCell struct {
	in, units  int
	wx, wh, bs *Parameter // wx: 4u x in, wh: 4u x u, bs: 1 x 4u

	// caches from the last run, indexed by processing step.
	xs             *mat.Dense
	order          []int
	iG, fG, gG, oG [][]float64
	cs, hs         [][]float64
}

func newLSTMCell(name string, in, units int, rng *rand.Rand) *lstmCell {
	c := &lstmCell{
		in:    in,
		units: units,
		wx:    newParameter(name+".wx", 4*units, in),
		wh:    newParameter(name+".wh", 4*units, units),
		bs:    newParameter(name+".b", 1, 4*units),
	}
	initNormal(c.wx, 1.0/math.Sqrt(float64(in)), rng)
	initNormal(c.wh, 1.0/math.Sqrt(float64(units)), rng)
	// Forget gate bias starts open.
	for j := units; j < 2*units; j++ {
		c.bs.Value.Set(0, j, 1)
	}
	return c
}

func (c *lstmCell) params() []*Parameter {
	return []*Parameter{c.wx, c.wh, c.bs}
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

// run processes the rows of x in the given order, caching everything needed
// for backward.
func (c *lstmCell) run(x *mat.Dense, order []int) {
	u := c.units
	steps := len(order)
	c.xs = x
	c.order = order
	c.iG = make([][]float64, steps)
	c.fG = make([][]float64, steps)
	c.gG = make([][]float64, steps)
	c.oG = make([][]float64, steps)
	c.cs = make([][]float64, steps)
	c.hs = make([][]float64, steps)

	hPrev := make([]float64, u)
	cPrev := make([]float64, u)
	z := make([]float64, 4*u)
	for k, t := range order {
		for j := 0; j < 4*u; j++ {
			sum := c.bs.Value.At(0, j)
			for p := 0; p < c.in; p++ {
				sum += c.wx.Value.At(j, p) * x.At(t, p)
			}
			for p := 0; p < u; p++ {
				sum += c.wh.Value.At(j, p) * hPrev[p]
			}
			z[j] = sum
		}
		i := make([]float64, u)
		f := make([]float64, u)
		g := make([]float64, u)
		o := make([]float64, u)
		cv := make([]float64, u)
		hv := make([]float64, u)
		for j := 0; j < u; j++ {
			i[j] = sigmoid(z[j])
			f[j] = sigmoid(z[u+j])
			g[j] = math.Tanh(z[2*u+j])
			o[j] = sigmoid(z[3*u+j])
			cv[j] = f[j]*cPrev[j] + i[j]*g[j]
			hv[j] = o[j] * math.Tanh(cv[j])
		}
		c.iG[k], c.fG[k], c.gG[k], c.oG[k] = i, f, g, o
		c.cs[k], c.hs[k] = cv, hv
		hPrev, cPrev = hv, cv
	}
}

// backward consumes the output gradient (reading column offset..offset+u of
// grad at each frame) and returns the input gradient.
func (c *lstmCell) backward(grad *mat.Dense, order []int, offset int) *mat.Dense {
	u := c.units
	frames, _ := grad.Dims()
	dx := mat.NewDense(frames, c.in, nil)

	dhNext := make([]float64, u)
	dcNext := make([]float64, u)
	dz := make([]float64, 4*u)
	for k := len(order) - 1; k >= 0; k-- {
		t := order[k]
		i, f, g, o := c.iG[k], c.fG[k], c.gG[k], c.oG[k]
		cv := c.cs[k]
		var cPrev, hPrev []float64
		if k > 0 {
			cPrev = c.cs[k-1]
			hPrev = c.hs[k-1]
		} else {
			cPrev = make([]float64, u)
			hPrev = make([]float64, u)
		}

		for j := 0; j < u; j++ {
			dh := grad.At(t, offset+j) + dhNext[j]
			tc := math.Tanh(cv[j])
			do := dh * tc
			dc := dcNext[j] + dh*o[j]*(1-tc*tc)
			di := dc * g[j]
			dg := dc * i[j]
			df := dc * cPrev[j]
			dcNext[j] = dc * f[j]

			dz[j] = di * i[j] * (1 - i[j])
			dz[u+j] = df * f[j] * (1 - f[j])
			dz[2*u+j] = dg * (1 - g[j]*g[j])
			dz[3*u+j] = do * o[j] * (1 - o[j])
		}

		for j := 0; j < 4*u; j++ {
			c.bs.Grad.Set(0, j, c.bs.Grad.At(0, j)+dz[j])
			for p := 0; p < c.in; p++ {
				c.wx.Grad.Set(j, p, c.wx.Grad.At(j, p)+dz[j]*c.xs.At(t, p))
			}
			for p := 0; p < u; p++ {
				c.wh.Grad.Set(j, p, c.wh.Grad.At(j, p)+dz[j]*hPrev[p])
			}
		}
		for j := 0; j < u; j++ {
			sum := 0.0
			for q := 0; q < 4*u; q++ {
				sum += c.wh.Value.At(q, j) * dz[q]
			}
			dhNext[j] = sum
		}
		for p := 0; p < c.in; p++ {
			sum := 0.0
			for q := 0; q < 4*u; q++ {
				sum += c.wx.Value.At(q, p) * dz[q]
			}
			dx.Set(t, p, dx.At(t, p)+sum)
		}
	}
	return dx
}
