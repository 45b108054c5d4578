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
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bertsky/kraken/dataset"
	"github.com/bertsky/kraken/train/optimizers"
	"github.com/bertsky/kraken/vgsl"
)

// writeCorpus generates line images with their sibling transcriptions and
// returns the image paths.
func writeCorpus(t *testing.T, dir string, texts []string) []string {
	t.Helper()
	ids := make([]string, len(texts))
	for i, text := range texts {
		img := image.NewGray(image.Rect(0, 0, 24, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 24; x++ {
				v := uint8(255)
				if (x*7+y*3+i)%6 == 0 {
					v = 0
				}
				img.SetGray(x, y, color.Gray{Y: v})
			}
		}
		name := fmt.Sprintf("%06d", i)
		imgPath := filepath.Join(dir, name+".png")
		f, err := os.Create(imgPath)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+dataset.GtSuffix), []byte(text+"\n"), 0o644))
		ids[i] = imgPath
	}
	return ids
}

func corpusOptions(t *testing.T) BuildOptions {
	t.Helper()
	g, err := vgsl.Resolve("[1,1,0,8]", 2)
	require.NoError(t, err)
	var opts BuildOptions
	opts.Geometry = g
	return opts
}

var corpusTexts = []string{
	"ab", "ba", "a b", "bab", "aba", "b a", "ab a", "ba b", "aa", "bb",
}

func TestBuildSets(t *testing.T) {
	dir := t.TempDir()
	ids := writeCorpus(t, dir, corpusTexts)

	gtSet, testSet, err := BuildSets(ids[:9], ids[9:], corpusOptions(t))
	require.NoError(t, err)
	assert.Equal(t, 9, gtSet.Len())
	assert.Equal(t, 1, testSet.Len())

	// Only the training corpus is encoded.
	require.NotNil(t, gtSet.Codec())
	assert.Nil(t, testSet.Codec())
	for _, s := range gtSet.Samples() {
		assert.NotEmpty(t, s.Labels, "sample %s", s.ID)
	}
	for _, s := range testSet.Samples() {
		assert.Empty(t, s.Labels, "sample %s", s.ID)
	}
}

func TestTrainRun(t *testing.T) {
	dir := t.TempDir()
	ids := writeCorpus(t, dir, corpusTexts)
	gtSet, testSet, err := BuildSets(ids[:9], ids[9:], corpusOptions(t))
	require.NoError(t, err)

	var reports []Report
	cfg := Config{
		Spec:       "[1,1,0,8 Lfx4]",
		Output:     filepath.Join(dir, "model"),
		Epochs:     2,
		SaveFreq:   1,
		ReportFreq: 1,
		Optimizer:  "Adam",
		LRate:      1e-3,
		OnReport:   func(r Report) { reports = append(reports, r) },
	}
	net, err := cfg.Run(gtSet, testSet)
	require.NoError(t, err)
	require.NotNil(t, net)
	require.NotNil(t, net.Codec())

	// Epoch 0 never checkpoints or reports; epoch 1 does both.
	assert.FileExists(t, filepath.Join(dir, "model_1"+vgsl.Extension))
	assert.NoFileExists(t, filepath.Join(dir, "model_0"+vgsl.Extension))
	assert.NoFileExists(t, filepath.Join(dir, "model_2"+vgsl.Extension))
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Epoch)
	assert.Greater(t, reports[0].Chars, 0)

	// Continue training from the checkpoint.
	cfg2 := Config{
		Load:      filepath.Join(dir, "model_1"+vgsl.Extension),
		Output:    filepath.Join(dir, "resumed"),
		Epochs:    1,
		SaveFreq:  1,
		Optimizer: "SGD",
		LRate:     1e-3,
	}
	resumed, err := cfg2.Run(gtSet, testSet)
	require.NoError(t, err)
	require.NotNil(t, resumed.Codec())
}

func TestTrainRunCodecConflict(t *testing.T) {
	cfg := Config{Load: "some.mlmodel", HasSuppliedCodec: true}
	_, err := cfg.Run(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodecConflict), "%v", err)
}

func TestTrainRunLoadFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	ids := writeCorpus(t, dir, corpusTexts[:3])
	gtSet, testSet, err := BuildSets(ids, nil, corpusOptions(t))
	require.NoError(t, err)

	cfg := Config{
		Load:      filepath.Join(dir, "missing"+vgsl.Extension),
		Output:    filepath.Join(dir, "model"),
		Epochs:    1,
		Optimizer: "SGD",
		LRate:     1e-3,
	}
	_, err = cfg.Run(gtSet, testSet)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vgsl.ErrModelLoad), "%v", err)
}

func TestTrainRunEmptyTestSet(t *testing.T) {
	dir := t.TempDir()
	ids := writeCorpus(t, dir, corpusTexts[:4])
	gtSet, testSet, err := BuildSets(ids, nil, corpusOptions(t))
	require.NoError(t, err)
	require.Equal(t, 0, testSet.Len())

	var reports []Report
	cfg := Config{
		Spec:       "[1,1,0,8 Lfx4]",
		Output:     filepath.Join(dir, "model"),
		Epochs:     2,
		ReportFreq: 1,
		Optimizer:  "SGD",
		LRate:      1e-3,
		OnReport:   func(r Report) { reports = append(reports, r) },
	}
	_, err = cfg.Run(gtSet, testSet)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestTrainRunFinalCheckpoint(t *testing.T) {
	dir := t.TempDir()
	ids := writeCorpus(t, dir, corpusTexts[:4])
	gtSet, testSet, err := BuildSets(ids, nil, corpusOptions(t))
	require.NoError(t, err)

	// With savefreq 2 and 2 epochs, no boundary is hit; the flag forces a
	// terminal save.
	cfg := Config{
		Spec:            "[1,1,0,8 Lfx4]",
		Output:          filepath.Join(dir, "model"),
		Epochs:          2,
		SaveFreq:        2,
		Optimizer:       "SGD",
		LRate:           1e-3,
		FinalCheckpoint: true,
	}
	_, err = cfg.Run(gtSet, testSet)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "model_1"+vgsl.Extension))
}

func TestCheckpointerToleratesSaveFailure(t *testing.T) {
	dir := t.TempDir()
	net, err := vgsl.NewNetwork("[1,1,0,4 O1c3]")
	require.NoError(t, err)

	// The parent of the checkpoint path is a regular file, so every save
	// fails with ENOTDIR.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	ckpt := NewCheckpointer(filepath.Join(blocker, "model"), net)
	ckpt.Save(1)
	assert.Equal(t, -1, ckpt.LastSaved)

	ckpt = NewCheckpointer(filepath.Join(dir, "model"), net)
	assert.Equal(t, filepath.Join(dir, "model_3"+vgsl.Extension), ckpt.Path(3))
	ckpt.Save(3)
	assert.Equal(t, 3, ckpt.LastSaved)
	assert.FileExists(t, ckpt.Path(3))
}

func TestGeometryMismatch(t *testing.T) {
	// A descriptor that neither folds nor summarizes the vertical axis
	// cannot feed the sequence loss; the first step fails.
	net, err := vgsl.NewNetwork("[1,32,0,1]")
	require.NoError(t, err)
	trainer := NewTrainer(net, optimizers.SGD(1e-3, 0))

	sample := &dataset.Sample{
		ID:     "synthetic",
		Frames: mat.NewDense(6, 32, nil),
		Labels: []int{1},
	}
	_, err = trainer.TrainStep(sample)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeometryMismatch), "%v", err)
}
