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

// Package binarization turns grayscale page images into bitonal ones.
package binarization

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// IsBitonal reports whether an image only contains (near) black and white
// pixels.
func IsBitonal(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y > 10 && g.Y < 245 {
				return false
			}
		}
	}
	return true
}

// Nlbin binarizes a page image with a global Otsu threshold over the
// grayscale histogram.
func Nlbin(img image.Image) (*image.Gray, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Errorf("empty input image %v", b)
	}
	var hist [256]int
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			gray.SetGray(x, y, g)
			hist[g.Y]++
		}
	}
	threshold := otsu(hist, b.Dx()*b.Dy())
	for i, v := range gray.Pix {
		if v > threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray, nil
}

// otsu finds the threshold maximizing inter-class variance.
func otsu(hist [256]int, total int) uint8 {
	var sum float64
	for i, v := range hist {
		sum += float64(i) * float64(v)
	}
	var sumB, wB float64
	var best float64
	var threshold uint8
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(i)
		}
	}
	return threshold
}
