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
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/codec"
	"github.com/bertsky/kraken/dataset"
)

// BuildOptions configure corpus construction for one training run.
type BuildOptions struct {
	dataset.Options

	// Codec is an externally supplied codec used verbatim for the train
	// corpus; nil derives one from the accumulated alphabet.
	Codec *codec.Codec

	// Progress, if set, is called once per ingested sample id.
	Progress func(id string)
}

// BuildSets constructs the train and test corpora with identical ingestion
// configuration, ingests the partitioned sample ids, reports alphabet
// divergence between the two sets as a warning, and freezes the training
// corpus codec. The test corpus is intentionally left unencoded: its raw
// (image, text) pairs are evaluated directly, so a vocabulary mismatch
// surfaces as degraded accuracy instead of an encoding failure.
func BuildSets(trainIDs, testIDs []string, opts BuildOptions) (gtSet, testSet *dataset.GroundTruth, err error) {
	gtSet, err = dataset.New(opts.Options)
	if err != nil {
		return nil, nil, err
	}
	testSet, err = dataset.New(opts.Options)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range trainIDs {
		klog.V(2).Infof("Adding line %s to training set", id)
		if opts.Progress != nil {
			opts.Progress(id)
		}
		if err := gtSet.Add(id); err != nil {
			return nil, nil, errors.WithMessage(err, "building training set")
		}
	}
	for _, id := range testIDs {
		klog.V(2).Infof("Adding line %s to test set", id)
		if opts.Progress != nil {
			opts.Progress(id)
		}
		if err := testSet.Add(id); err != nil {
			return nil, nil, errors.WithMessage(err, "building test set")
		}
	}
	klog.V(1).Infof("Training set %d lines, test set %d lines, alphabet %d symbols",
		gtSet.Len(), testSet.Len(), len(gtSet.Alphabet()))

	if diff := AlphabetDiff(gtSet.Alphabet(), testSet.Alphabet()); len(diff) > 0 {
		klog.Warningf("alphabet mismatch %q", diff)
	}

	if err := gtSet.Encode(opts.Codec); err != nil {
		return nil, nil, errors.WithMessage(err, "encoding training set")
	}
	return gtSet, testSet, nil
}

// AlphabetDiff returns the sorted symmetric difference of two alphabets.
// A non-empty difference is a quality signal, not an error: held-out
// symbols absent from the training vocabulary cannot be recognized.
func AlphabetDiff(a, b map[string]int) []string {
	var diff []string
	for _, sym := range maps.Keys(a) {
		if _, ok := b[sym]; !ok {
			diff = append(diff, sym)
		}
	}
	for _, sym := range maps.Keys(b) {
		if _, ok := a[sym]; !ok {
			diff = append(diff, sym)
		}
	}
	sort.Strings(diff)
	return diff
}
