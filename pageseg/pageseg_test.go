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

package pageseg

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageWithBars paints horizontal black bars on a white page.
func pageWithBars(w, h int, bars []image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, bar := range bars {
		for y := bar.Min.Y; y < bar.Max.Y; y++ {
			for x := bar.Min.X; x < bar.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

func TestSegmentHorizontal(t *testing.T) {
	img := pageWithBars(100, 60, []image.Rectangle{
		image.Rect(10, 10, 90, 18),
		image.Rect(20, 35, 70, 44),
	})
	boxes, err := Segment(img, HorizontalTB)
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	// Reading order top to bottom, cross extent trimmed to the ink.
	assert.Equal(t, image.Rect(10, 10, 90, 18), boxes[0])
	assert.Equal(t, image.Rect(20, 35, 70, 44), boxes[1])
}

func TestSegmentVerticalRL(t *testing.T) {
	img := pageWithBars(60, 100, []image.Rectangle{
		image.Rect(10, 10, 18, 90),
		image.Rect(35, 20, 44, 70),
	})
	boxes, err := Segment(img, VerticalRL)
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	// Right to left: the rightmost column comes first.
	assert.Equal(t, image.Rect(35, 20, 44, 70), boxes[0])
	assert.Equal(t, image.Rect(10, 10, 18, 90), boxes[1])
}

func TestSegmentEmptyPage(t *testing.T) {
	img := pageWithBars(50, 50, nil)
	boxes, err := Segment(img, HorizontalTB)
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestSegmentUnknownDirection(t *testing.T) {
	img := pageWithBars(10, 10, nil)
	_, err := Segment(img, "diagonal")
	assert.Error(t, err)
}

func TestSegmentBinarizesGrayInput(t *testing.T) {
	// A grayscale page (not bitonal) is binarized before segmentation.
	img := image.NewGray(image.Rect(0, 0, 60, 40))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	for y := 10; y < 18; y++ {
		for x := 5; x < 55; x++ {
			img.SetGray(x, y, color.Gray{Y: 60})
		}
	}
	boxes, err := Segment(img, HorizontalTB)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 10, boxes[0].Min.Y)
	assert.Equal(t, 18, boxes[0].Max.Y)
}
