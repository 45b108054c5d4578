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

// Package dataset holds ground-truth line corpora: (line image,
// transcription) pairs with a derived alphabet, ingested under a fixed
// geometry and text-handling configuration.
package dataset

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rivo/uniseg"
	"gonum.org/v1/gonum/mat"
	"golang.org/x/text/unicode/norm"

	"github.com/bertsky/kraken/codec"
	"github.com/bertsky/kraken/vgsl"
)

// Options configure corpus ingestion. Train and test corpora of one run
// share the same Options.
type Options struct {
	Geometry vgsl.Geometry

	// Normalization is one of "NFC", "NFD", "NFKC", "NFKD" or empty for
	// none, applied to every transcription on ingestion.
	Normalization string

	// Reorder rewrites transcriptions into display order.
	Reorder bool
}

// Sample is one ingested (line image, transcription) pair. The source data
// is never mutated after Add.
type Sample struct {
	// ID is the image path the sample was read from.
	ID string
	// Frames is the geometry-converted line image.
	Frames *mat.Dense
	// Text is the transcription after normalization and reordering.
	Text string
	// Labels is the encoded transcription, set by Encode on the training
	// corpus only.
	Labels []int
}

// GroundTruth is an ordered collection of samples plus the alphabet
// observed over their transcriptions. Samples are added one at a time;
// Encode freezes the corpus and derives (or adopts) its codec.
type GroundTruth struct {
	opts     Options
	form     *norm.Form
	samples  []*Sample
	alphabet map[string]int
	codec    *codec.Codec

	rng   *rand.Rand
	order []int
	pos   int
}

// New creates an empty corpus. Fails only on an unknown normalization form.
func New(opts Options) (*GroundTruth, error) {
	form, err := NormForm(opts.Normalization)
	if err != nil {
		return nil, err
	}
	return &GroundTruth{
		opts:     opts,
		form:     form,
		alphabet: make(map[string]int),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// GtSuffix is the transcription file suffix expected next to each line
// image: "foo.png" pairs with "foo.gt.txt".
const GtSuffix = ".gt.txt"

// Add ingests the line image at imgPath and its sibling transcription,
// updating the alphabet. Adding after Encode is an error.
func (g *GroundTruth) Add(imgPath string) error {
	if g.codec != nil {
		return errors.New("corpus already encoded")
	}
	base := strings.TrimSuffix(imgPath, filepath.Ext(imgPath))
	raw, err := os.ReadFile(base + GtSuffix)
	if err != nil {
		return errors.Wrapf(err, "reading transcription for %q", imgPath)
	}
	text := strings.TrimRight(string(raw), "\r\n")
	if text == "" {
		return errors.Errorf("empty transcription for %q", imgPath)
	}
	if g.form != nil {
		text = g.form.String(text)
	}
	if g.opts.Reorder {
		text = DisplayOrder(text)
	}

	f, err := os.Open(imgPath)
	if err != nil {
		return errors.Wrapf(err, "opening line image %q", imgPath)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return errors.Wrapf(err, "decoding line image %q", imgPath)
	}
	frames, err := Frames(img, g.opts.Geometry)
	if err != nil {
		return errors.Wrapf(err, "converting line image %q", imgPath)
	}

	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		g.alphabet[gr.Str()]++
	}
	g.samples = append(g.samples, &Sample{ID: imgPath, Frames: frames, Text: text})
	g.order = append(g.order, len(g.samples)-1)
	return nil
}

// Len returns the number of ingested samples.
func (g *GroundTruth) Len() int { return len(g.samples) }

// Alphabet returns the grapheme cluster counts observed so far. The map is
// live; callers must not mutate it.
func (g *GroundTruth) Alphabet() map[string]int { return g.alphabet }

// Samples returns the ingested samples in insertion order.
func (g *GroundTruth) Samples() []*Sample { return g.samples }

// Codec returns the frozen codec, or nil before Encode.
func (g *GroundTruth) Codec() *codec.Codec { return g.codec }

// Encode freezes the corpus: with a nil argument a codec is derived from
// the accumulated alphabet (plus the reserved blank class), otherwise the
// supplied codec is used verbatim. Every transcription is encoded to class
// indices; with a supplied codec that can fail on out-of-vocabulary
// symbols. Encode is called exactly once, on the training corpus only.
func (g *GroundTruth) Encode(c *codec.Codec) error {
	if g.codec != nil {
		return errors.New("corpus already encoded")
	}
	if c == nil {
		c = codec.FromAlphabet(g.alphabet)
	}
	for _, s := range g.samples {
		labels, err := c.Encode(s.Text)
		if err != nil {
			return errors.Wrapf(err, "encoding %q", s.ID)
		}
		s.Labels = labels
	}
	g.codec = c
	return nil
}

// Yield returns the next sample of the current epoch, in an order
// reshuffled by Reset, and io.EOF once the epoch is exhausted.
func (g *GroundTruth) Yield() (*Sample, error) {
	if g.pos >= len(g.order) {
		return nil, io.EOF
	}
	s := g.samples[g.order[g.pos]]
	g.pos++
	return s, nil
}

// Reset reshuffles the iteration order and rewinds to the start.
func (g *GroundTruth) Reset() {
	g.rng.Shuffle(len(g.order), func(i, j int) {
		g.order[i], g.order[j] = g.order[j], g.order[i]
	})
	g.pos = 0
}
