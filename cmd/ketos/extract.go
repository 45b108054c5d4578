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
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/dataset"
	"github.com/bertsky/kraken/transcrib"
)

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	klog.InitFlags(fs)
	var (
		output  = fs.String("output", "training", "output directory")
		norma   = fs.String("normalization", "", "normalize ground truth (NFC, NFD, NFKC, NFKD)")
		reorder = fs.Bool("reorder", true, "reorder transcribed lines to display order")
		rotate  = fs.Bool("rotate", true, "rotate vertical lines to horizontal")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no transcription documents given")
	}
	form, err := dataset.NormForm(*norma)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*output, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %q", *output)
	}

	var manifest []string
	idx := 0
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "opening transcription %q", path)
		}
		doc, err := transcrib.Parse(f)
		f.Close()
		if err != nil {
			return errors.WithMessagef(err, "parsing transcription %q", path)
		}
		vertical := strings.HasPrefix(doc.TextDirection, "vertical")
		for _, page := range doc.Pages {
			for _, line := range page.Lines {
				text := line.Text
				if form != nil {
					text = form.String(text)
				}
				if *reorder {
					text = dataset.DisplayOrder(text)
				}
				if text == "" {
					klog.V(1).Infof("Skipping empty line %v in %s", line.Box, path)
					continue
				}
				crop := imaging.Crop(page.Image, line.Box)
				if vertical && *rotate {
					crop = imaging.Rotate90(crop)
				}
				name := fmt.Sprintf("%06d", idx)
				imgPath := filepath.Join(*output, name+".png")
				out, err := os.Create(imgPath)
				if err != nil {
					return errors.Wrapf(err, "creating %q", imgPath)
				}
				err = png.Encode(out, crop)
				out.Close()
				if err != nil {
					return errors.Wrapf(err, "writing %q", imgPath)
				}
				gtPath := filepath.Join(*output, name+dataset.GtSuffix)
				if err := os.WriteFile(gtPath, []byte(text+"\n"), 0o644); err != nil {
					return errors.Wrapf(err, "writing %q", gtPath)
				}
				manifest = append(manifest, name+".png")
				idx++
			}
		}
	}
	manifestPath := filepath.Join(*output, "manifest.txt")
	if err := os.WriteFile(manifestPath, []byte(strings.Join(manifest, "\n")+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "writing %q", manifestPath)
	}
	klog.V(1).Infof("Extracted %d lines to %s", idx, *output)
	return nil
}
