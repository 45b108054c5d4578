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
	"compress/gzip"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/bertsky/kraken/codec"
)

// ErrModelLoad is wrapped by all failures to read a serialized network.
var ErrModelLoad = errors.New("cannot load model")

// Extension of serialized model files.
const Extension = ".mlmodel"

// networkDoc is the on-disk model format: a gzip'd JSON document. The
// format is an implementation detail; only the extension is contract.
type networkDoc struct {
	Spec    string         `json:"spec"`
	Codec   map[string]int `json:"codec,omitempty"`
	Weights []weightDoc    `json:"weights"`
}

type weightDoc struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// Save writes the network, including the attached codec, to path.
func (n *Network) Save(path string) error {
	doc := networkDoc{Spec: n.spec}
	if n.codec != nil {
		doc.Codec = n.codec.Table()
	}
	for _, p := range n.Params() {
		rows, cols := p.Value.Dims()
		data := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				data = append(data, p.Value.At(i, j))
			}
		}
		doc.Weights = append(doc.Weights, weightDoc{Name: p.Name, Rows: rows, Cols: cols, Data: data})
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating model file %q", path)
	}
	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(&doc); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "serializing model to %q", path)
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "serializing model to %q", path)
	}
	return errors.Wrapf(f.Close(), "closing model file %q", path)
}

// LoadNetwork reads a network serialized with Save. All failures wrap
// ErrModelLoad so callers can treat them as one fatal class.
func LoadNetwork(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "opening %q: %v", path, err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "reading %q: %v", path, err)
	}
	defer zr.Close()
	var doc networkDoc
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "decoding %q: %v", path, err)
	}

	n, err := NewNetwork(doc.Spec)
	if err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "rebuilding network from %q: %v", path, err)
	}
	params := n.Params()
	if len(params) != len(doc.Weights) {
		return nil, errors.Wrapf(ErrModelLoad,
			"%q holds %d weight tensors, network %q has %d parameters", path, len(doc.Weights), doc.Spec, len(params))
	}
	for i, w := range doc.Weights {
		p := params[i]
		rows, cols := p.Value.Dims()
		if rows != w.Rows || cols != w.Cols || len(w.Data) != rows*cols {
			return nil, errors.Wrapf(ErrModelLoad,
				"weight %q in %q has shape %dx%d, parameter expects %dx%d", w.Name, path, w.Rows, w.Cols, rows, cols)
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				p.Value.Set(r, c, w.Data[r*cols+c])
			}
		}
	}
	if doc.Codec != nil {
		c, err := codec.FromTable(doc.Codec)
		if err != nil {
			return nil, errors.Wrapf(ErrModelLoad, "codec in %q: %v", path, err)
		}
		n.codec = c
	}
	return n, nil
}
