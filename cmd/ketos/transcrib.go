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
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bertsky/kraken/binarization"
	"github.com/bertsky/kraken/pageseg"
	"github.com/bertsky/kraken/rpred"
	"github.com/bertsky/kraken/transcrib"
	"github.com/bertsky/kraken/vgsl"
)

func runTranscrib(args []string) error {
	fs := flag.NewFlagSet("transcrib", flag.ExitOnError)
	klog.InitFlags(fs)
	var (
		direction = fs.String("text-direction", pageseg.HorizontalTB, "text direction (horizontal-tb, vertical-lr, vertical-rl)")
		fontName  = fs.String("font", "", "font family to render transcription text in")
		fontStyle = fs.String("font-style", "", "font style to render transcription text in")
		prefill   = fs.String("prefill", "", "model to prefill transcriptions with")
		output    = fs.String("output", "transcrib.html", "output transcription environment file")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no page images given")
	}

	var rec *rpred.Recognizer
	if *prefill != "" {
		net, err := vgsl.LoadNetwork(*prefill)
		if err != nil {
			return err
		}
		rec, err = rpred.New(net)
		if err != nil {
			return err
		}
		klog.V(1).Infof("Prefilling transcriptions with %s", *prefill)
	}

	ti := transcrib.New(*fontName, *fontStyle)
	ti.TextDirection = *direction
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "opening page image %q", path)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "decoding page image %q", path)
		}
		if !binarization.IsBitonal(img) {
			img, err = binarization.Nlbin(img)
			if err != nil {
				return errors.WithMessagef(err, "binarizing %q", path)
			}
		}
		boxes, err := pageseg.Segment(img, *direction)
		if err != nil {
			return errors.WithMessagef(err, "segmenting %q", path)
		}
		klog.V(1).Infof("Segmented %s into %d lines", path, len(boxes))

		var preds []string
		if rec != nil {
			for _, box := range boxes {
				text, err := rec.Predict(imaging.Crop(img, box))
				if err != nil {
					klog.Warningf("Prefill failed for %v in %s: %v", box, path, err)
					text = ""
				}
				preds = append(preds, text)
			}
		}
		ti.AddPage(img, boxes, preds)
	}

	out, err := os.Create(*output)
	if err != nil {
		return errors.Wrapf(err, "creating %q", *output)
	}
	defer out.Close()
	return ti.Write(out)
}
