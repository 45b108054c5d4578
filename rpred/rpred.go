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

// Package rpred runs recognition with a trained network: forward pass plus
// greedy CTC decoding through the network's codec.
package rpred

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/bertsky/kraken/codec"
	"github.com/bertsky/kraken/dataset"
	"github.com/bertsky/kraken/vgsl"
)

// Recognizer wraps a network with an attached codec for inference.
type Recognizer struct {
	net   *vgsl.Network
	codec *codec.Codec
}

// New creates a Recognizer. The network must carry a codec.
func New(net *vgsl.Network) (*Recognizer, error) {
	c := net.Codec()
	if c == nil {
		return nil, errors.New("network has no codec attached")
	}
	return &Recognizer{net: net, codec: c}, nil
}

// Predict recognizes a line image: geometry conversion, forward pass,
// greedy decode.
func (r *Recognizer) Predict(img image.Image) (string, error) {
	frames, err := dataset.Frames(img, r.net.Geometry())
	if err != nil {
		return "", err
	}
	return r.PredictFrames(frames)
}

// PredictFrames recognizes an already converted frame sequence.
func (r *Recognizer) PredictFrames(frames *mat.Dense) (string, error) {
	out, err := r.net.Forward(frames)
	if err != nil {
		return "", err
	}
	return r.codec.Decode(greedyDecode(out.Frames)), nil
}

// greedyDecode takes the per-frame argmax, collapses repeats and drops
// blanks.
func greedyDecode(frames *mat.Dense) []int {
	rows, cols := frames.Dims()
	var out []int
	prev := -1
	for t := 0; t < rows; t++ {
		best, bestV := 0, frames.At(t, 0)
		for c := 1; c < cols; c++ {
			if v := frames.At(t, c); v > bestV {
				best, bestV = c, v
			}
		}
		if best != prev && best != codec.Blank {
			out = append(out, best)
		}
		prev = best
	}
	return out
}
