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
	"math/rand"

	"golang.org/x/exp/slices"
)

// Partition shuffles sample ids uniformly (unseeded, so reruns produce
// different splits) and splits them at floor(len*ratio) into train and test
// sets. With ratio 1.0 the test set is empty; with fewer than 2 samples one
// side is empty. Callers must not assume either side is non-empty.
func Partition(ids []string, ratio float64) (trainIDs, testIDs []string) {
	shuffled := slices.Clone(ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	cut := int(float64(len(shuffled)) * ratio)
	if cut > len(shuffled) {
		cut = len(shuffled)
	}
	return shuffled[:cut], shuffled[cut:]
}
