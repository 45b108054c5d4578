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
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/dataset"
	"github.com/bertsky/kraken/rpred"
	"github.com/bertsky/kraken/train/optimizers"
	"github.com/bertsky/kraken/vgsl"
)

// ErrCodecConflict is returned when an external codec is supplied together
// with an explicitly loaded pre-existing network: the two vocabularies
// could silently disagree and corrupt class indices.
var ErrCodecConflict = errors.New("codec option is not supported when loading an existing model")

// Config is the full configuration of one training run.
type Config struct {
	// Spec is the VGSL descriptor of the network to train; ignored when
	// Load is set.
	Spec string

	// Load is the path of an existing model to continue training, empty
	// to construct a fresh network.
	Load string

	// Output is the checkpoint path prefix.
	Output string

	// Epochs is the total epoch count.
	Epochs int

	// SaveFreq and ReportFreq are the checkpoint and evaluation
	// frequencies in epochs; 0 disables.
	SaveFreq, ReportFreq int

	// Optimizer is one of the optimizers.KnownOptimizers names.
	Optimizer string

	LRate, WDecay float64

	// HasSuppliedCodec records that the training corpus was encoded with
	// an externally supplied codec, which conflicts with Load.
	HasSuppliedCodec bool

	// FinalCheckpoint forces a save at terminal exit even when the last
	// epoch is not a SaveFreq boundary. Off by default: the reference
	// behavior only saves on SaveFreq boundaries.
	FinalCheckpoint bool

	// OnReport receives accuracy reports; nil discards them.
	OnReport func(Report)

	// OnEpochEnd, if set, is called after every epoch with the epoch index
	// and its mean training loss. Used for progress display.
	OnEpochEnd func(epoch int, meanLoss float64)
}

// Run executes the supervised training loop over an encoded training
// corpus and a raw test corpus, and returns the final in-memory network.
//
// Fatal failures are a failed model load (before any epoch runs), a
// geometry/architecture mismatch at the first forward pass, and anything
// the loop cannot classify. Checkpoint save failures and an empty test set
// only degrade observability and never abort the run.
func (cfg Config) Run(gtSet, testSet *dataset.GroundTruth) (*vgsl.Network, error) {
	if cfg.Load != "" && cfg.HasSuppliedCodec {
		return nil, ErrCodecConflict
	}
	if gtSet.Codec() == nil {
		return nil, errors.New("training corpus not encoded")
	}

	var net *vgsl.Network
	if cfg.Load != "" {
		var err error
		net, err = vgsl.LoadNetwork(cfg.Load)
		if err != nil {
			return nil, err
		}
		if net.Codec() == nil {
			net.AddCodec(gtSet.Codec())
		}
		klog.V(1).Infof("Loaded existing model from %s", cfg.Load)
	} else {
		spec, err := vgsl.WithOutputLayer(cfg.Spec, gtSet.Codec().MaxIndex()+1)
		if err != nil {
			return nil, err
		}
		net, err = vgsl.NewNetwork(spec)
		if err != nil {
			return nil, err
		}
		net.AddCodec(gtSet.Codec())
		klog.V(1).Infof("Created new model %s with %d outputs", spec, gtSet.Codec().Len())
	}
	net.Train(true)

	opt, err := optimizers.ByName(cfg.Optimizer, cfg.LRate, cfg.WDecay)
	if err != nil {
		return nil, err
	}
	rec, err := rpred.New(net)
	if err != nil {
		return nil, err
	}

	loop := NewLoop(NewTrainer(net, opt), cfg.Epochs)
	if cfg.OnEpochEnd != nil {
		loop.OnEpochEnd("progress", 0, func(l *Loop, meanLoss float64) error {
			cfg.OnEpochEnd(l.Epoch, meanLoss)
			return nil
		})
	}
	ckpt := NewCheckpointer(cfg.Output, net)
	if cfg.SaveFreq > 0 {
		// Large priority so checkpoints are written after everything
		// else has seen the epoch.
		EveryNEpochs(loop, cfg.SaveFreq, "checkpointing", 100, ckpt.OnEpochEnd)
	}
	if cfg.ReportFreq > 0 {
		eval := &Evaluator{Rec: rec, Set: testSet, Emit: cfg.OnReport}
		EveryNEpochs(loop, cfg.ReportFreq, "accuracy report", 50, eval.OnEpochEnd)
	}

	if err := loop.Run(gtSet); err != nil {
		return nil, err
	}
	if cfg.FinalCheckpoint && cfg.Epochs > 0 && ckpt.LastSaved != cfg.Epochs-1 {
		ckpt.Save(cfg.Epochs - 1)
	}
	return net, nil
}
