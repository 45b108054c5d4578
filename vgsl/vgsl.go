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

// Package vgsl resolves VGSL network descriptors into image-ingestion
// geometry and builds the sequence-recognition networks they describe.
//
// A descriptor is a bracketed, space-separated block list, e.g.
// "[1,1,0,48 Lbx100]". The first block is always the input declaration
// "batch,height,width,channels"; the remaining blocks are network layers.
package vgsl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidSpec is wrapped by all descriptor parse and resolution failures.
var ErrInvalidSpec = errors.New("invalid VGSL spec")

// ScaleKind enumerates the closed set of image scaling modes a descriptor
// can resolve to.
type ScaleKind int

const (
	// NoScale ingests line images at their original size.
	NoScale ScaleKind = iota
	// ScaleToHeight rescales lines to a fixed pixel height, keeping the
	// aspect ratio; width stays variable.
	ScaleToHeight
	// ScaleToFixed resamples lines to a fixed height and width.
	ScaleToFixed
)

// ScaleMode is a tagged scaling variant: Height is set for ScaleToHeight and
// ScaleToFixed, Width only for ScaleToFixed.
type ScaleMode struct {
	Kind          ScaleKind
	Height, Width int
}

// AxisOrder selects which image axis is the scan dimension.
type AxisOrder int

const (
	// OrderHWC is the default (height, width, channel) layout.
	OrderHWC AxisOrder = iota
	// OrderWHC swaps the height axis into the channel dimension: the line
	// is ingested as a sequence of fixed-height pixel columns.
	OrderWHC
)

// Geometry is the image-ingestion configuration derived from a descriptor.
// Immutable once resolved.
type Geometry struct {
	Batch, Height, Width, Channels int

	Order AxisOrder
	Scale ScaleMode

	// Pad is the left and right padding, in frames, applied to line
	// images. Forced to 0 whenever a fixed width is in effect.
	Pad int
}

var inputBlockRe = regexp.MustCompile(`^(\d+),(\d+),(\d+),(\d+)$`)

// Resolve parses a descriptor and derives its ingestion geometry. The pad
// argument is the caller-supplied horizontal padding; it is zeroed for the
// fixed-size and no-scale cases.
//
// The four recognized (height, width, channels) cases are checked in
// priority order, and the order is part of the contract -- degenerate zero
// values could otherwise satisfy more than one case:
//
//  1. height == 1, width == 0, channels > 3: fixed-height strip, the height
//     axis folded into channels, rescaled to `channels` pixel rows.
//  2. height > 1, width == 0, channels in {1, 3}: variable width, rescaled
//     to `height` pixel rows.
//  3. height > 0, width > 0, channels in {1, 3}: fully fixed size, bicubic
//     resampling, no padding.
//  4. height == 0, width == 0, channels in {1, 3}: no scaling, no padding.
//
// Anything else (notably variable height with fixed width) is not
// representable by the ingestion pipeline and fails.
func Resolve(spec string, pad int) (Geometry, error) {
	var g Geometry
	spec = strings.TrimSpace(spec)
	if len(spec) < 2 || spec[0] != '[' || spec[len(spec)-1] != ']' {
		return g, errors.Wrapf(ErrInvalidSpec, "spec %q not bracketed", spec)
	}
	blocks := strings.Fields(spec[1 : len(spec)-1])
	if len(blocks) == 0 {
		return g, errors.Wrapf(ErrInvalidSpec, "spec %q has no blocks", spec)
	}
	m := inputBlockRe.FindStringSubmatch(blocks[0])
	if m == nil {
		return g, errors.Wrapf(ErrInvalidSpec, "invalid input block %q", blocks[0])
	}
	dims := make([]int, 4)
	for i, s := range m[1:] {
		v, err := strconv.Atoi(s)
		if err != nil {
			return g, errors.Wrapf(ErrInvalidSpec, "invalid input block %q", blocks[0])
		}
		dims[i] = v
	}
	g.Batch, g.Height, g.Width, g.Channels = dims[0], dims[1], dims[2], dims[3]
	g.Order = OrderHWC
	g.Pad = pad

	switch {
	case g.Height == 1 && g.Width == 0 && g.Channels > 3:
		// The channel count doubles as the target pixel-row count.
		g.Order = OrderWHC
		g.Scale = ScaleMode{Kind: ScaleToHeight, Height: g.Channels}
	case g.Height > 1 && g.Width == 0 && (g.Channels == 1 || g.Channels == 3):
		g.Scale = ScaleMode{Kind: ScaleToHeight, Height: g.Height}
	case g.Height > 0 && g.Width > 0 && (g.Channels == 1 || g.Channels == 3):
		g.Scale = ScaleMode{Kind: ScaleToFixed, Height: g.Height, Width: g.Width}
		g.Pad = 0
	case g.Height == 0 && g.Width == 0 && (g.Channels == 1 || g.Channels == 3):
		g.Scale = ScaleMode{Kind: NoScale}
		g.Pad = 0
	default:
		return g, errors.Wrapf(ErrInvalidSpec,
			"input block %q not supported (variable height with fixed width cannot be ingested)", blocks[0])
	}
	return g, nil
}

// WithOutputLayer returns the spec with an "O1c<classes>" output block
// appended, the form used when constructing a fresh network for a codec.
func WithOutputLayer(spec string, classes int) (string, error) {
	spec = strings.TrimSpace(spec)
	if len(spec) < 2 || spec[0] != '[' || spec[len(spec)-1] != ']' {
		return "", errors.Wrapf(ErrInvalidSpec, "spec %q not bracketed", spec)
	}
	return "[" + spec[1:len(spec)-1] + " O1c" + strconv.Itoa(classes) + "]", nil
}
