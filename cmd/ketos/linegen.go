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
	"bufio"
	"flag"
	"fmt"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rivo/uniseg"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/unicode/norm"
	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/binarization"
	"github.com/bertsky/kraken/dataset"
	"github.com/bertsky/kraken/linegen"
)

func runLinegen(args []string) error {
	fs := flag.NewFlagSet("linegen", flag.ExitOnError)
	klog.InitFlags(fs)
	var (
		fontPath  = fs.String("font", "", "font file to render lines with")
		fontSize  = fs.Float64("font-size", 32, "font size to render lines with")
		maxlines  = fs.Int("maxlines", 200, "maximum number of lines to generate")
		norma     = fs.String("normalization", "", "normalize sampled text (NFC, NFD, NFKC, NFKD)")
		reorder   = fs.Bool("reorder", false, "reorder code points to display order before rendering")
		maxLength = fs.Int("max-length", 100, "discard lines above length in grapheme clusters")
		strip     = fs.String("strip", "", "strip these characters from sampled text")
		noDegrade = fs.Bool("disable-degradation", false, "disable image degradation")
		binarize  = fs.Bool("binarize", false, "binarize generated lines")
		mean      = fs.Float64("mean", 0.0, "mean of the degradation noise")
		sigma     = fs.Float64("sigma", 0.001, "standard deviation of the degradation noise")
		density   = fs.Float64("density", 0.002, "salt-and-pepper noise density")
		distort   = fs.Float64("distort", 1.0, "mean of the distortion offsets")
		distSigma = fs.Float64("distortion-sigma", 20.0, "smoothing window of the distortion offsets")
		output    = fs.String("output", "training_data", "output directory")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no text files given")
	}
	form, err := dataset.NormForm(*norma)
	if err != nil {
		return err
	}

	lines, err := sampleLines(fs.Args(), form, *strip, *maxLength, *maxlines)
	if err != nil {
		return err
	}
	klog.V(1).Infof("Sampled %s unique lines", humanize.Comma(int64(len(lines))))
	printAlphabet(countAlphabet(lines))

	lg, err := linegen.New(*fontPath, *fontSize)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*output, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %q", *output)
	}

	var bar *progressbar.ProgressBar
	if !klog.V(1).Enabled() {
		bar = progressbar.NewOptions(len(lines),
			progressbar.OptionSetDescription("Writing images"),
			progressbar.OptionSetWriter(os.Stderr))
	}
	written := 0
	for _, text := range lines {
		if bar != nil {
			_ = bar.Add(1)
		}
		render := text
		if *reorder {
			render = dataset.DisplayOrder(render)
		}
		img, err := lg.RenderLine(render)
		if err != nil {
			if errors.Is(err, linegen.ErrSurface) {
				klog.Warningf("Skipping %q: %v", text, err)
				continue
			}
			return err
		}
		if !*noDegrade {
			img = linegen.DistortLine(img, *distort, *distSigma)
			img = linegen.DegradeLine(img, *mean, *sigma, *density)
		}
		if *binarize {
			img, err = binarization.Nlbin(img)
			if err != nil {
				return errors.WithMessagef(err, "binarizing %q", text)
			}
		}
		name := fmt.Sprintf("%06d", written)
		imgPath := filepath.Join(*output, name+".png")
		out, err := os.Create(imgPath)
		if err != nil {
			return errors.Wrapf(err, "creating %q", imgPath)
		}
		err = png.Encode(out, img)
		out.Close()
		if err != nil {
			return errors.Wrapf(err, "writing %q", imgPath)
		}
		gtPath := filepath.Join(*output, name+dataset.GtSuffix)
		if err := os.WriteFile(gtPath, []byte(text+"\n"), 0o644); err != nil {
			return errors.Wrapf(err, "writing %q", gtPath)
		}
		written++
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	klog.V(1).Infof("Wrote %d line images to %s", written, *output)
	return nil
}

// sampleLines reads, deduplicates, normalizes and filters the source text,
// then samples it down to at most maxlines lines.
func sampleLines(paths []string, form *norm.Form, strip string, maxLength, maxlines int) ([]string, error) {
	seen := make(map[string]struct{})
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening text %q", path)
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for sc.Scan() {
			text := strings.TrimSpace(sc.Text())
			if form != nil {
				text = form.String(text)
			}
			if strip != "" {
				text = strings.Map(func(r rune) rune {
					if strings.ContainsRune(strip, r) {
						return -1
					}
					return r
				}, text)
			}
			if text == "" || uniseg.GraphemeClusterCount(text) > maxLength {
				continue
			}
			seen[text] = struct{}{}
		}
		err = sc.Err()
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading text %q", path)
		}
	}
	lines := make([]string, 0, len(seen))
	for text := range seen {
		lines = append(lines, text)
	}
	sort.Strings(lines)
	if len(lines) > maxlines {
		rand.Shuffle(len(lines), func(i, j int) { lines[i], lines[j] = lines[j], lines[i] })
		lines = lines[:maxlines]
		sort.Strings(lines)
	}
	return lines, nil
}

func countAlphabet(lines []string) map[string]int {
	alphabet := make(map[string]int)
	for _, text := range lines {
		gr := uniseg.NewGraphemes(text)
		for gr.Next() {
			alphabet[gr.Str()]++
		}
	}
	return alphabet
}
