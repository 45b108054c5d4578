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

package vgsl

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/bertsky/kraken/codec"
	"github.com/bertsky/kraken/layers"
)

// Output is the result of one forward pass. Height reports the collapsed
// vertical extent of the output: training requires it to be 1, which only
// holds when the input declaration folds the height axis into channels.
type Output struct {
	// Frames is one row per time frame, one column per class.
	Frames *mat.Dense
	// Height of the output's vertical axis.
	Height int
}

// Network is a layer stack built from a VGSL descriptor. It implements the
// narrow capability the training loop needs: forward, backward, parameter
// access, (de)serialization and an attached codec.
type Network struct {
	spec     string
	geom     Geometry
	stack    []layers.Layer
	codec    *codec.Codec
	training bool
}

var (
	lstmBlockRe   = regexp.MustCompile(`^L([bfr])x(\d+)$`)
	outputBlockRe = regexp.MustCompile(`^O1c(\d+)$`)
)

// NewNetwork builds a network from a descriptor, e.g. "[1,1,0,48 Lbx100 O1c57]".
// Weights are randomly initialized. Layer blocks supported: L[bfr]x<units>
// recurrent layers and the O1c<classes> output projection; anything else
// fails wrapping ErrInvalidSpec.
func NewNetwork(spec string) (*Network, error) {
	return newNetworkSeeded(spec, time.Now().UnixNano())
}

func newNetworkSeeded(spec string, seed int64) (*Network, error) {
	g, err := Resolve(spec, 0)
	if err != nil {
		return nil, err
	}
	spec = strings.TrimSpace(spec)
	blocks := strings.Fields(spec[1 : len(spec)-1])

	features := g.InputFeatures()
	if features == 0 && len(blocks) > 1 {
		return nil, errors.Wrapf(ErrInvalidSpec,
			"input block %q has no fixed height, cannot size the first layer", blocks[0])
	}

	rng := rand.New(rand.NewSource(seed))
	n := &Network{spec: spec, geom: g, training: false}
	width := features
	for i, block := range blocks[1:] {
		name := fmt.Sprintf("l%d", i)
		switch {
		case lstmBlockRe.MatchString(block):
			m := lstmBlockRe.FindStringSubmatch(block)
			units, _ := strconv.Atoi(m[2])
			if units <= 0 {
				return nil, errors.Wrapf(ErrInvalidSpec, "block %q has zero units", block)
			}
			dir := layers.Forward
			switch m[1] {
			case "b":
				dir = layers.Bidirectional
			case "r":
				dir = layers.Reverse
			}
			l := layers.NewLSTM(name, width, units, dir, rng)
			n.stack = append(n.stack, l)
			width = l.OutputSize()
		case outputBlockRe.MatchString(block):
			m := outputBlockRe.FindStringSubmatch(block)
			classes, _ := strconv.Atoi(m[1])
			if classes <= 0 {
				return nil, errors.Wrapf(ErrInvalidSpec, "block %q has zero classes", block)
			}
			l := layers.NewLinear(name, width, classes, rng)
			n.stack = append(n.stack, l)
			width = classes
		default:
			return nil, errors.Wrapf(ErrInvalidSpec, "unsupported block %q", block)
		}
	}
	return n, nil
}

// InputFeatures returns the per-frame feature count implied by the
// geometry, or 0 when the input height is variable.
func (g Geometry) InputFeatures() int {
	switch {
	case g.Order == OrderWHC:
		return g.Channels
	case g.Scale.Kind == ScaleToHeight:
		return g.Scale.Height
	case g.Scale.Kind == ScaleToFixed:
		return g.Scale.Height
	default:
		return 0
	}
}

// Spec returns the descriptor the network was built from.
func (n *Network) Spec() string { return n.spec }

// Geometry returns the ingestion geometry resolved from the descriptor.
func (n *Network) Geometry() Geometry { return n.geom }

// Codec returns the attached codec, or nil.
func (n *Network) Codec() *codec.Codec { return n.codec }

// AddCodec attaches the codec used to interpret the output classes. It is
// serialized with the network.
func (n *Network) AddCodec(c *codec.Codec) { n.codec = c }

// Train switches the network between training and inference mode.
func (n *Network) Train(mode bool) { n.training = mode }

// Params returns all trainable parameters, in a stable order.
func (n *Network) Params() []*layers.Parameter {
	var ps []*layers.Parameter
	for _, l := range n.stack {
		ps = append(ps, l.Params()...)
	}
	return ps
}

// OutputSize returns the class count of the final layer, or the input
// feature count for an empty stack.
func (n *Network) OutputSize() int {
	if len(n.stack) == 0 {
		return n.geom.InputFeatures()
	}
	return n.stack[len(n.stack)-1].OutputSize()
}

// Forward runs the stack over a frames-by-features matrix. The reported
// Output.Height is 1 when the input declaration folds height into channels
// and the raw feature count otherwise: specs that neither fold nor
// summarize the vertical axis cannot feed a sequence loss.
func (n *Network) Forward(frames *mat.Dense) (Output, error) {
	_, feats := frames.Dims()
	if want := n.geom.InputFeatures(); want != 0 && feats != want {
		return Output{}, errors.Errorf("input has %d features per frame, network expects %d", feats, want)
	}
	height := feats
	if n.geom.Order == OrderWHC {
		height = 1
	}
	out := frames
	for _, l := range n.stack {
		out = l.Forward(out)
	}
	return Output{Frames: out, Height: height}, nil
}

// Backward propagates the output gradient through the stack, accumulating
// parameter gradients.
func (n *Network) Backward(grad *mat.Dense) {
	for i := len(n.stack) - 1; i >= 0; i-- {
		grad = n.stack[i].Backward(grad)
	}
}

// ZeroGrad clears all accumulated parameter gradients.
func (n *Network) ZeroGrad() {
	for _, p := range n.Params() {
		p.ZeroGrad()
	}
}
