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

// Package pageseg segments bitonal page images into text line bounding
// boxes using an ink projection profile.
package pageseg

import (
	"image"
	"image/color"
	"sort"

	"github.com/pkg/errors"

	"github.com/bertsky/kraken/binarization"
)

// Directions accepted by Segment.
const (
	HorizontalTB = "horizontal-tb"
	VerticalLR   = "vertical-lr"
	VerticalRL   = "vertical-rl"
)

// minInkRatio is the fraction of a scan line that must carry ink for the
// line to count as part of a text line.
const minInkRatio = 0.005

// Segment finds text line bounding boxes in reading order. The image is
// binarized first if it is not already bitonal. For vertical directions
// the scan runs over columns instead of rows; VerticalRL orders lines
// right to left.
func Segment(img image.Image, direction string) ([]image.Rectangle, error) {
	switch direction {
	case HorizontalTB, VerticalLR, VerticalRL:
	default:
		return nil, errors.Errorf("unknown text direction %q", direction)
	}
	if !binarization.IsBitonal(img) {
		var err error
		img, err = binarization.Nlbin(img)
		if err != nil {
			return nil, err
		}
	}
	b := img.Bounds()
	vertical := direction != HorizontalTB

	extent, span := b.Dy(), b.Dx()
	if vertical {
		extent, span = b.Dx(), b.Dy()
	}
	profile := make([]int, extent)
	for i := 0; i < extent; i++ {
		for j := 0; j < span; j++ {
			x, y := j, i
			if vertical {
				x, y = i, j
			}
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < 128 {
				profile[i]++
			}
		}
	}

	minInk := int(float64(span) * minInkRatio)
	if minInk < 1 {
		minInk = 1
	}
	var boxes []image.Rectangle
	start := -1
	for i := 0; i <= extent; i++ {
		inked := i < extent && profile[i] >= minInk
		switch {
		case inked && start < 0:
			start = i
		case !inked && start >= 0:
			boxes = append(boxes, inkBox(img, b, start, i, vertical))
			start = -1
		}
	}
	if direction == VerticalRL {
		sort.Slice(boxes, func(i, j int) bool { return boxes[i].Min.X > boxes[j].Min.X })
	}
	return boxes, nil
}

// inkBox trims the cross extent of a detected band to its ink columns
// (resp. rows).
func inkBox(img image.Image, b image.Rectangle, lo, hi int, vertical bool) image.Rectangle {
	span := b.Dx()
	if vertical {
		span = b.Dy()
	}
	first, last := span, -1
	for j := 0; j < span; j++ {
		for i := lo; i < hi; i++ {
			x, y := j, i
			if vertical {
				x, y = i, j
			}
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < 128 {
				if j < first {
					first = j
				}
				if j > last {
					last = j
				}
				break
			}
		}
	}
	if last < 0 {
		first, last = 0, span-1
	}
	if vertical {
		return image.Rect(b.Min.X+lo, b.Min.Y+first, b.Min.X+hi, b.Min.Y+last+1)
	}
	return image.Rect(b.Min.X+first, b.Min.Y+lo, b.Min.X+last+1, b.Min.Y+hi)
}
