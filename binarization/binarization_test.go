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

package binarization

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBitonal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(1, 1, color.Gray{Y: 0})
	assert.True(t, IsBitonal(img))

	img.SetGray(2, 2, color.Gray{Y: 128})
	assert.False(t, IsBitonal(img))
}

func TestNlbin(t *testing.T) {
	// Two well-separated gray populations must split cleanly.
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(200)
			if x < 5 {
				v = 60
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	out, err := Nlbin(img)
	require.NoError(t, err)
	assert.True(t, IsBitonal(out))
	assert.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), out.GrayAt(9, 9).Y)
}

func TestNlbinEmptyImage(t *testing.T) {
	_, err := Nlbin(image.NewGray(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}
