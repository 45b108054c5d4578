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

// Package linegen synthesizes artificial text line images for training:
// font rendering plus configurable degradation.
package linegen

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrSurface is wrapped when a line cannot be rendered (empty or oversized
// surface). Per-sample: callers skip the line and continue.
var ErrSurface = errors.New("cannot allocate rendering surface")

// maxLineWidth bounds the rendered surface; longer lines fail with
// ErrSurface.
const maxLineWidth = 32768

// lineMargin is the white border around the rendered text, in pixels.
const lineMargin = 8

// LineGenerator renders text lines in a fixed face.
type LineGenerator struct {
	face font.Face
}

// New creates a generator for an OpenType font file. An empty path falls
// back to the built-in fixed face (useful for tests and smoke runs).
func New(fontPath string, fontSize float64) (*LineGenerator, error) {
	if fontPath == "" {
		return &LineGenerator{face: basicfont.Face7x13}, nil
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading font %q", fontPath)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing font %q", fontPath)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "sizing font %q", fontPath)
	}
	return &LineGenerator{face: face}, nil
}

// RenderLine renders one text line black-on-white.
func (lg *LineGenerator) RenderLine(text string) (*image.Gray, error) {
	width := font.MeasureString(lg.face, text).Ceil()
	metrics := lg.face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrSurface, "%dx%d surface for %q", width, height, text)
	}
	if width > maxLineWidth {
		return nil, errors.Wrapf(ErrSurface, "%dx%d surface for %q", width, height, text)
	}
	img := image.NewGray(image.Rect(0, 0, width+2*lineMargin, height+2*lineMargin))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: lg.face,
		Dot:  fixed.P(lineMargin, lineMargin+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
	return img, nil
}

// DegradeLine adds Gaussian pixel noise (mean, sigma over normalized
// intensities) and salt-and-pepper speckles with the given density.
func DegradeLine(img *image.Gray, mean, sigma, density float64) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		val := float64(v)/255 + mean + rand.NormFloat64()*sigma
		if rand.Float64() < density {
			if rand.Float64() < 0.5 {
				val = 0
			} else {
				val = 1
			}
		}
		out.Pix[i] = clamp8(val * 255)
	}
	return out
}

// DistortLine shifts pixel columns vertically by a smoothed random offset
// field, approximating the ink spread and baseline wobble of scanned
// lines. distort scales the offsets, sigma the smoothing window.
func DistortLine(img *image.Gray, distort, sigma float64) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	raw := make([]float64, w)
	for i := range raw {
		raw[i] = rand.NormFloat64()
	}
	window := int(sigma)
	if window < 1 {
		window = 1
	}
	offsets := make([]int, w)
	for x := 0; x < w; x++ {
		sum, n := 0.0, 0
		for k := x - window; k <= x+window; k++ {
			if k >= 0 && k < w {
				sum += raw[k]
				n++
			}
		}
		offsets[x] = int(distort * sum / float64(n))
	}

	out := image.NewGray(b)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			sy := y + offsets[x]
			if sy < 0 || sy >= h {
				out.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: 255})
				continue
			}
			out.SetGray(b.Min.X+x, b.Min.Y+y, img.GrayAt(b.Min.X+x, b.Min.Y+sy))
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
