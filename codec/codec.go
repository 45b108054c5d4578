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

// Package codec maps grapheme clusters to the integer class indices consumed
// by the CTC loss. Index 0 is reserved for the CTC blank label and is never
// assigned to a symbol.
package codec

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/rivo/uniseg"
)

// Blank is the class index reserved for the CTC blank label.
const Blank = 0

// Codec is a bijection between grapheme clusters and class indices.
// It is immutable once built.
type Codec struct {
	toIndex map[string]int
	toSym   map[int]string
}

// FromAlphabet derives a codec from an alphabet (symbol to occurrence count,
// counts are ignored). Symbols are assigned indices 1..n in sorted order, so
// the same alphabet always yields the same codec.
func FromAlphabet(alphabet map[string]int) *Codec {
	syms := make([]string, 0, len(alphabet))
	for sym := range alphabet {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	c := &Codec{
		toIndex: make(map[string]int, len(syms)),
		toSym:   make(map[int]string, len(syms)),
	}
	for i, sym := range syms {
		c.toIndex[sym] = i + 1
		c.toSym[i+1] = sym
	}
	return c
}

// Load reads a codec definition from a JSON document mapping symbols to
// class indices, the format written by Save.
func Load(r io.Reader) (*Codec, error) {
	var table map[string]int
	if err := json.NewDecoder(r).Decode(&table); err != nil {
		return nil, errors.Wrap(err, "decoding codec definition")
	}
	return FromTable(table)
}

// FromTable builds a codec from an explicit symbol to index table.
// The table must be a bijection and must not claim the blank index.
func FromTable(table map[string]int) (*Codec, error) {
	c := &Codec{
		toIndex: make(map[string]int, len(table)),
		toSym:   make(map[int]string, len(table)),
	}
	for sym, idx := range table {
		if idx == Blank {
			return nil, errors.Errorf("codec assigns symbol %q to the reserved blank index %d", sym, Blank)
		}
		if idx < 0 {
			return nil, errors.Errorf("codec assigns symbol %q a negative index %d", sym, idx)
		}
		if prev, ok := c.toSym[idx]; ok {
			return nil, errors.Errorf("codec assigns index %d to both %q and %q", idx, prev, sym)
		}
		c.toIndex[sym] = idx
		c.toSym[idx] = sym
	}
	return c, nil
}

// Save writes the codec as a JSON symbol to index table.
func (c *Codec) Save(w io.Writer) error {
	return errors.Wrap(json.NewEncoder(w).Encode(c.toIndex), "encoding codec definition")
}

// Table returns a copy of the symbol to index table.
func (c *Codec) Table() map[string]int {
	table := make(map[string]int, len(c.toIndex))
	for sym, idx := range c.toIndex {
		table[sym] = idx
	}
	return table
}

// Len returns the number of classes, including the blank class.
func (c *Codec) Len() int {
	return len(c.toIndex) + 1
}

// MaxIndex returns the highest assigned class index.
func (c *Codec) MaxIndex() int {
	max := Blank
	for idx := range c.toSym {
		if idx > max {
			max = idx
		}
	}
	return max
}

// Encode maps text to a class index sequence, one index per grapheme
// cluster. Symbols absent from the codec are an error: silently dropping
// them would corrupt the alignment targets.
func (c *Codec) Encode(text string) ([]int, error) {
	labels := make([]int, 0, len(text))
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		sym := gr.Str()
		idx, ok := c.toIndex[sym]
		if !ok {
			return nil, errors.Errorf("symbol %q not in codec", sym)
		}
		labels = append(labels, idx)
	}
	return labels, nil
}

// Decode maps a class index sequence back to text. Blank indices and
// indices without a symbol are skipped.
func (c *Codec) Decode(labels []int) string {
	var out []byte
	for _, idx := range labels {
		if idx == Blank {
			continue
		}
		if sym, ok := c.toSym[idx]; ok {
			out = append(out, sym...)
		}
	}
	return string(out)
}

// Graphemes splits text into its grapheme clusters.
func Graphemes(text string) []string {
	var syms []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		syms = append(syms, gr.Str())
	}
	return syms
}
