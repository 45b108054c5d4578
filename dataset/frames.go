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

package dataset

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/bertsky/kraken/vgsl"
)

// Frames converts a line image into the frames-by-features matrix the
// network consumes: the image is grayscaled, scaled per the geometry's
// ScaleMode, and read out column by column with ink intensity normalized to
// [0, 1] (background 0). Pad zero-frames are added on both sides.
func Frames(img image.Image, g vgsl.Geometry) (*mat.Dense, error) {
	switch g.Scale.Kind {
	case vgsl.ScaleToHeight:
		img = imaging.Resize(img, 0, g.Scale.Height, imaging.Lanczos)
	case vgsl.ScaleToFixed:
		img = imaging.Resize(img, g.Scale.Width, g.Scale.Height, imaging.CatmullRom)
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.Errorf("line image has empty extent %dx%d", w, h)
	}

	frames := mat.NewDense(w+2*g.Pad, h, nil)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.GrayModel.Convert(gray.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			frames.Set(g.Pad+x, y, float64(255-c.Y)/255)
		}
	}
	return frames, nil
}
