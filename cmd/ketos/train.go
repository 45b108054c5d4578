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

package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/codec"
	"github.com/bertsky/kraken/train"
	"github.com/bertsky/kraken/vgsl"
)

var reportStyle = lipgloss.NewStyle().Bold(true)

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	klog.InitFlags(fs)
	var (
		pad       = fs.Int("pad", 16, "left and right padding around lines, in frames")
		output    = fs.String("output", "model", "output model file prefix")
		spec      = fs.String("spec", "[1,1,0,48 Lbx100]", "VGSL spec of the network to train")
		load      = fs.String("load", "", "existing model to continue training")
		savefreq  = fs.Int("savefreq", 1, "model save frequency in epochs")
		report    = fs.Int("report", 1, "report creation frequency in epochs")
		epochs    = fs.Int("epochs", 1000, "number of epochs to train for")
		device    = fs.String("device", "cpu", "select device to use")
		optimizer = fs.String("optimizer", "SGD", "select optimizer (SGD, Adam, RMSprop)")
		lrate     = fs.Float64("lrate", 1e-3, "learning rate")
		wdecay    = fs.Float64("wdecay", 0.0, "weight decay")
		partition = fs.Float64("partition", 0.9, "ground truth data partition ratio between train/test set")
		norma     = fs.String("normalization", "", "ground truth normalization (NFC, NFD, NFKC, NFKD)")
		codecPath = fs.String("codec", "", "load a codec JSON definition")
		reorder   = fs.Bool("reorder", true, "reorder code points to display order")
		finalCkpt = fs.Bool("final-checkpoint", false, "always save a checkpoint for the last epoch")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no ground truth line images given")
	}
	if *load != "" && *codecPath != "" {
		return train.ErrCodecConflict
	}
	if *device != "cpu" {
		klog.Warningf("device %q not supported, falling back to cpu", *device)
	}

	geom, err := vgsl.Resolve(*spec, *pad)
	if err != nil {
		return err
	}
	if *load != "" {
		// The loaded model's own descriptor governs ingestion geometry.
		net, err := vgsl.LoadNetwork(*load)
		if err != nil {
			return err
		}
		geom, err = vgsl.Resolve(net.Spec(), *pad)
		if err != nil {
			return err
		}
	}

	var suppliedCodec *codec.Codec
	if *codecPath != "" {
		f, err := os.Open(*codecPath)
		if err != nil {
			return errors.Wrapf(err, "opening codec %q", *codecPath)
		}
		suppliedCodec, err = codec.Load(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	trainIDs, testIDs := train.Partition(fs.Args(), *partition)
	klog.V(1).Infof("Partitioned %d lines into %d training and %d test lines",
		fs.NArg(), len(trainIDs), len(testIDs))

	opts := train.BuildOptions{Codec: suppliedCodec}
	opts.Geometry = geom
	opts.Normalization = *norma
	opts.Reorder = *reorder
	if !klog.V(1).Enabled() {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Building training set"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetWriter(os.Stderr))
		opts.Progress = func(string) { _ = bar.Add(1) }
		defer bar.Finish()
	}
	gtSet, testSet, err := train.BuildSets(trainIDs, testIDs, opts)
	if err != nil {
		return err
	}
	printAlphabet(gtSet.Alphabet())

	cfg := train.Config{
		Spec:             *spec,
		Load:             *load,
		Output:           *output,
		Epochs:           *epochs,
		SaveFreq:         *savefreq,
		ReportFreq:       *report,
		Optimizer:        *optimizer,
		LRate:            *lrate,
		WDecay:           *wdecay,
		HasSuppliedCodec: suppliedCodec != nil,
		FinalCheckpoint:  *finalCkpt,
		OnReport: func(r train.Report) {
			fmt.Println(reportStyle.Render(fmt.Sprintf(
				"Accuracy report (%d) %.4f %s %s",
				r.Epoch, r.Accuracy(),
				humanize.Comma(int64(r.Chars)), humanize.Comma(int64(r.Errors)))))
		},
	}
	if !klog.V(1).Enabled() {
		epochBar := progressbar.NewOptions(*epochs,
			progressbar.OptionSetDescription("Training"),
			progressbar.OptionSetWriter(os.Stderr))
		cfg.OnEpochEnd = func(epoch int, meanLoss float64) {
			epochBar.Describe(fmt.Sprintf("Training (loss %.4f)", meanLoss))
			_ = epochBar.Add(1)
		}
	} else {
		cfg.OnEpochEnd = func(epoch int, meanLoss float64) {
			klog.V(1).Infof("Epoch %d done, mean loss %.6f", epoch, meanLoss)
		}
	}
	_, err = cfg.Run(gtSet, testSet)
	return err
}

// printAlphabet lists the training alphabet with counts, flagging
// whitespace and combining characters that are easy to miss in review.
func printAlphabet(alphabet map[string]int) {
	if !klog.V(1).Enabled() {
		return
	}
	syms := make([]string, 0, len(alphabet))
	for sym := range alphabet {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	var sb strings.Builder
	for _, sym := range syms {
		display := sym
		if strings.TrimSpace(sym) == "" || combining(sym) {
			display = fmt.Sprintf("%U", []rune(sym))
		}
		fmt.Fprintf(&sb, "%s\t%d\n", display, alphabet[sym])
	}
	fmt.Print(lipgloss.NewStyle().Faint(true).Render(sb.String()))
}

func combining(sym string) bool {
	for _, r := range sym {
		if r >= 0x0300 && r <= 0x036f {
			return true
		}
	}
	return false
}
