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

// Package losses implements the sequence-alignment loss used for training.
package losses

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/bertsky/kraken/codec"
)

// CTC computes the connectionist temporal classification loss of a logit
// sequence (one row per frame, one column per class, class 0 the blank)
// against a label sequence, and the gradient of the loss with respect to
// the logits.
//
// The whole computation runs in log space. Degenerate inputs -- an empty
// label sequence, or fewer frames than the labels require -- are an error
// rather than a NaN loss.
func CTC(logits *mat.Dense, labels []int) (loss float64, grad *mat.Dense, err error) {
	frames, classes := logits.Dims()
	if len(labels) == 0 {
		return 0, nil, errors.New("ctc: empty label sequence")
	}
	required := len(labels)
	for i := 1; i < len(labels); i++ {
		if labels[i] == labels[i-1] {
			required++
		}
	}
	if frames < required {
		return 0, nil, errors.Errorf("ctc: %d frames cannot emit %d labels (%d required)", frames, len(labels), required)
	}
	for _, l := range labels {
		if l <= codec.Blank || l >= classes {
			return 0, nil, errors.Errorf("ctc: label %d out of range (1..%d)", l, classes-1)
		}
	}

	// Per-frame log-softmax.
	lp := mat.NewDense(frames, classes, nil)
	for t := 0; t < frames; t++ {
		max := math.Inf(-1)
		for c := 0; c < classes; c++ {
			if v := logits.At(t, c); v > max {
				max = v
			}
		}
		sum := 0.0
		for c := 0; c < classes; c++ {
			sum += math.Exp(logits.At(t, c) - max)
		}
		logZ := max + math.Log(sum)
		for c := 0; c < classes; c++ {
			lp.Set(t, c, logits.At(t, c)-logZ)
		}
	}

	// Blank-augmented label sequence.
	ext := make([]int, 2*len(labels)+1)
	for i, l := range labels {
		ext[2*i+1] = l
	}
	S := len(ext)

	ninf := math.Inf(-1)
	alpha := newFilled(frames, S, ninf)
	beta := newFilled(frames, S, ninf)

	alpha[0][0] = lp.At(0, ext[0])
	if S > 1 {
		alpha[0][1] = lp.At(0, ext[1])
	}
	for t := 1; t < frames; t++ {
		for s := 0; s < S; s++ {
			v := alpha[t-1][s]
			if s > 0 {
				v = logSum2(v, alpha[t-1][s-1])
			}
			if s > 1 && ext[s] != codec.Blank && ext[s] != ext[s-2] {
				v = logSum2(v, alpha[t-1][s-2])
			}
			alpha[t][s] = v + lp.At(t, ext[s])
		}
	}

	logP := alpha[frames-1][S-1]
	if S > 1 {
		logP = logSum2(logP, alpha[frames-1][S-2])
	}
	if math.IsInf(logP, -1) {
		return 0, nil, errors.New("ctc: no feasible alignment")
	}

	beta[frames-1][S-1] = lp.At(frames-1, ext[S-1])
	if S > 1 {
		beta[frames-1][S-2] = lp.At(frames-1, ext[S-2])
	}
	for t := frames - 2; t >= 0; t-- {
		for s := S - 1; s >= 0; s-- {
			v := beta[t+1][s]
			if s < S-1 {
				v = logSum2(v, beta[t+1][s+1])
			}
			if s < S-2 && ext[s+2] != codec.Blank && ext[s+2] != ext[s] {
				v = logSum2(v, beta[t+1][s+2])
			}
			beta[t][s] = v + lp.At(t, ext[s])
		}
	}

	// grad = softmax - posterior over states emitting each class.
	grad = mat.NewDense(frames, classes, nil)
	for t := 0; t < frames; t++ {
		post := make([]float64, classes)
		for c := range post {
			post[c] = ninf
		}
		for s := 0; s < S; s++ {
			c := ext[s]
			v := alpha[t][s] + beta[t][s] - lp.At(t, c)
			post[c] = logSum2(post[c], v)
		}
		for c := 0; c < classes; c++ {
			g := math.Exp(lp.At(t, c))
			if !math.IsInf(post[c], -1) {
				g -= math.Exp(post[c] - logP)
			}
			grad.Set(t, c, g)
		}
	}
	return -logP, grad, nil
}

func newFilled(rows, cols int, v float64) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		row := make([]float64, cols)
		for j := range row {
			row[j] = v
		}
		m[i] = row
	}
	return m
}

func logSum2(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}
