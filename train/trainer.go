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
	"math"

	"github.com/pkg/errors"

	"github.com/bertsky/kraken/dataset"
	"github.com/bertsky/kraken/train/losses"
	"github.com/bertsky/kraken/train/optimizers"
	"github.com/bertsky/kraken/vgsl"
)

// ErrGeometryMismatch is wrapped by a mid-training mismatch between the
// network output and the expected collapsed geometry. It indicates a
// descriptor/architecture combination that cannot feed the sequence loss
// and cannot be recovered from mid-run.
var ErrGeometryMismatch = errors.New("network output geometry mismatch")

// Trainer owns one forward/backward/update sequence: network, sequence
// loss and optimizer. Steps are strictly serialized; the Trainer holds the
// only mutable reference to the network's parameters during an update.
type Trainer struct {
	Net       *vgsl.Network
	Optimizer optimizers.Interface

	// Steps counts optimizer steps applied so far.
	Steps int
}

// NewTrainer creates a Trainer for a network in training mode.
func NewTrainer(net *vgsl.Network, opt optimizers.Interface) *Trainer {
	return &Trainer{Net: net, Optimizer: opt}
}

// TrainStep runs one optimizer step on a single sample: forward pass,
// collapsed-geometry check, CTC loss, backward pass, parameter update.
// It returns the sample loss.
func (t *Trainer) TrainStep(s *dataset.Sample) (float64, error) {
	out, err := t.Net.Forward(s.Frames)
	if err != nil {
		return 0, err
	}
	if out.Height != 1 {
		return 0, errors.Wrapf(ErrGeometryMismatch, "expected output height 1, actual %d", out.Height)
	}
	loss, grad, err := losses.CTC(out.Frames, s.Labels)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, errors.Errorf("sample loss is %f, training interrupted", loss)
	}
	t.Net.ZeroGrad()
	t.Net.Backward(grad)
	t.Optimizer.Step(t.Net.Params())
	t.Steps++
	return loss, nil
}
