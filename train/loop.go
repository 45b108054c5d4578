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

// Package train drives the epoch-based training of a sequence-recognition
// network: corpus partitioning and construction, the epoch loop with
// periodic checkpointing and evaluation, and the optimizer step sequence.
package train

import (
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/bertsky/kraken/dataset"
)

// Priority for hooks, the lowest values are run first. Defaults to 0, but
// negative values are ok.
type Priority int

// OnEpochEndFn is the type of epoch-end hooks. meanLoss is the mean
// training loss of the epoch just finished.
type OnEpochEndFn func(loop *Loop, meanLoss float64) error

// Loop runs the epoch-based training loop, invoking Trainer.TrainStep for
// every sample and calling the registered hooks after each epoch.
//
// In itself it doesn't do much; checkpointing and accuracy reporting are
// attached as hooks (see EveryNEpochs). The public attributes are meant for
// reading only.
type Loop struct {
	Trainer *Trainer

	// Epoch is the zero-based index of the epoch currently running (or
	// just finished, from inside a hook).
	Epoch int

	// Epochs is the terminal epoch count, fixed at construction.
	Epochs int

	// Elapsed is the cumulative wall-clock time since Run started.
	Elapsed time.Duration

	onEpochEnd *priorityHooks[*hookWithName[OnEpochEndFn]]
}

// NewLoop creates a training loop running for a fixed number of epochs.
func NewLoop(trainer *Trainer, epochs int) *Loop {
	return &Loop{
		Trainer:    trainer,
		Epochs:     epochs,
		onEpochEnd: newPriorityHooks[*hookWithName[OnEpochEndFn]](),
	}
}

// OnEpochEnd adds a hook with given priority and name (for error
// reporting) to the end of every epoch.
func (loop *Loop) OnEpochEnd(name string, priority Priority, fn OnEpochEndFn) {
	loop.onEpochEnd.Add(priority, &hookWithName[OnEpochEndFn]{name: name, fn: fn})
}

// Run iterates the training corpus for the configured number of epochs,
// one optimizer step per sample in a freshly shuffled order per epoch.
// There is no early stopping; the loop runs to completion or fails on the
// first fatal error.
func (loop *Loop) Run(ds *dataset.GroundTruth) error {
	start := time.Now()
	for loop.Epoch = 0; loop.Epoch < loop.Epochs; loop.Epoch++ {
		ds.Reset()
		var epochLoss float64
		var steps int
		for {
			sample, err := ds.Yield()
			if err == io.EOF {
				break
			}
			if err != nil {
				return errors.WithMessagef(err, "epoch %d: reading training sample", loop.Epoch)
			}
			loss, err := loop.Trainer.TrainStep(sample)
			if err != nil {
				return errors.WithMessagef(err, "epoch %d: training on %s", loop.Epoch, sample.ID)
			}
			epochLoss += loss
			steps++
		}
		loop.Elapsed = time.Since(start)

		meanLoss := 0.0
		if steps > 0 {
			meanLoss = epochLoss / float64(steps)
		}
		var hookErr error
		loop.onEpochEnd.Enumerate(func(hook *hookWithName[OnEpochEndFn]) {
			if hookErr != nil {
				return
			}
			if err := hook.fn(loop, meanLoss); err != nil {
				hookErr = errors.WithMessagef(err, "OnEpochEnd(hook %q)", hook.name)
			}
		})
		if hookErr != nil {
			return hookErr
		}
	}
	return nil
}

type everyNEpochs struct {
	n  int
	fn OnEpochEndFn
}

func (eN *everyNEpochs) onEpochEnd(loop *Loop, meanLoss float64) error {
	if loop.Epoch == 0 || loop.Epoch%eN.n != 0 {
		return nil
	}
	return eN.fn(loop, meanLoss)
}

// EveryNEpochs registers an epoch-end hook that fires when the zero-based
// epoch index is positive and divisible by n. Epoch 0 never fires, and the
// last epoch only fires when it happens to be divisible -- both inherited
// contract, see the checkpointing notes in DESIGN.md.
func EveryNEpochs(loop *Loop, n int, name string, priority Priority, fn OnEpochEndFn) {
	eN := &everyNEpochs{n: n, fn: fn}
	loop.OnEpochEnd(name, priority, eN.onEpochEnd)
}

// hookWithName stores a hook name and function.
type hookWithName[F any] struct {
	name string
	fn   F
}

// priorityHooks organizes hooks for type F per priority.
type priorityHooks[H any] struct {
	hooks map[Priority][]H
}

func newPriorityHooks[H any]() *priorityHooks[H] {
	return &priorityHooks[H]{hooks: make(map[Priority][]H)}
}

func (h *priorityHooks[H]) Add(priority Priority, hook H) {
	h.hooks[priority] = append(h.hooks[priority], hook)
}

// Enumerate calls fn for all registered hooks in priority order.
func (h *priorityHooks[H]) Enumerate(fn func(hook H)) {
	keys := make([]Priority, 0, len(h.hooks))
	for key := range h.hooks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		for _, hook := range h.hooks[key] {
			fn(hook)
		}
	}
}
