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
	"fmt"

	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/vgsl"
)

// Checkpointer saves the network to "<output>_<epoch>.mlmodel" when its
// hook fires. Save failures are logged and swallowed: losing one
// checkpoint must not abort a multi-hour run.
type Checkpointer struct {
	Output string
	Net    *vgsl.Network

	// LastSaved is the epoch of the last successful save, -1 before any.
	LastSaved int
}

// NewCheckpointer creates a Checkpointer writing under the given output
// path prefix.
func NewCheckpointer(output string, net *vgsl.Network) *Checkpointer {
	return &Checkpointer{Output: output, Net: net, LastSaved: -1}
}

// Path returns the checkpoint file name for an epoch.
func (c *Checkpointer) Path(epoch int) string {
	return fmt.Sprintf("%s_%d%s", c.Output, epoch, vgsl.Extension)
}

// Save writes a checkpoint for the given epoch, logging (not returning)
// failures.
func (c *Checkpointer) Save(epoch int) {
	path := c.Path(epoch)
	if err := c.Net.Save(path); err != nil {
		klog.Warningf("Saving model failed: %v", err)
		return
	}
	klog.V(1).Infof("Saved model to %s", path)
	c.LastSaved = epoch
}

// OnEpochEnd is the hook attached via EveryNEpochs.
func (c *Checkpointer) OnEpochEnd(loop *Loop, _ float64) error {
	c.Save(loop.Epoch)
	return nil
}
