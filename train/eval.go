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

package train

import (
	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/codec"
	"github.com/bertsky/kraken/dataset"
	"github.com/bertsky/kraken/rpred"
)

// Report is the accuracy report produced by one evaluation pass over the
// test corpus. It is ephemeral: forwarded to presentation, never persisted.
type Report struct {
	Epoch  int
	Chars  int
	Errors int
}

// Accuracy is (chars - errors) / chars, or 0 for an empty corpus.
func (r Report) Accuracy() float64 {
	if r.Chars == 0 {
		return 0
	}
	return float64(r.Chars-r.Errors) / float64(r.Chars)
}

// ComputeError recognizes every raw (image, text) pair of the corpus and
// sums transcription length and grapheme-level edit distance.
func ComputeError(rec *rpred.Recognizer, set *dataset.GroundTruth) (chars, errCount int, err error) {
	for _, s := range set.Samples() {
		pred, err := rec.PredictFrames(s.Frames)
		if err != nil {
			return 0, 0, err
		}
		want := codec.Graphemes(s.Text)
		chars += len(want)
		errCount += levenshtein(codec.Graphemes(pred), want)
	}
	return chars, errCount, nil
}

// Evaluator runs ComputeError over the test corpus when its hook fires and
// emits a Report. An empty test corpus makes the hook a no-op.
type Evaluator struct {
	Rec  *rpred.Recognizer
	Set  *dataset.GroundTruth
	Emit func(Report)
}

// OnEpochEnd is the hook attached via EveryNEpochs.
func (e *Evaluator) OnEpochEnd(loop *Loop, _ float64) error {
	if e.Set.Len() == 0 {
		klog.V(1).Infof("empty test set, skipping accuracy report for epoch %d", loop.Epoch)
		return nil
	}
	chars, errCount, err := ComputeError(e.Rec, e.Set)
	if err != nil {
		return err
	}
	report := Report{Epoch: loop.Epoch, Chars: chars, Errors: errCount}
	if e.Emit != nil {
		e.Emit(report)
	}
	return nil
}

// levenshtein is the edit distance between two symbol sequences.
func levenshtein(a, b []string) int {
	if len(a) == 0 {
		return len(b)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
