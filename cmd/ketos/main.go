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

// ketos prepares line-image/text training corpora and drives the training
// of sequence-recognition models.
//
// Subcommands:
//
//	train     train a model from image-text pairs
//	extract   extract image-text pairs from a transcription environment
//	transcrib create a transcription environment from page images
//	linegen   generate artificial text line training data
package main

import (
	"fmt"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: ketos <command> [flags] [args...]

commands:
  train      Trains a model from image-text pairs.
  extract    Extracts image-text pairs from a transcription environment.
  transcrib  Creates a transcription environment from page images.
  linegen    Generates artificial text line training data.

run "ketos <command> -help" for command flags.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var run func(args []string) error
	switch os.Args[1] {
	case "train":
		run = runTrain
	case "extract":
		run = runExtract
	case "transcrib":
		run = runTranscrib
	case "linegen":
		run = runLinegen
	case "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "ketos: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err := exceptions.TryCatch[error](func() { must.M(run(os.Args[2:])) }); err != nil {
		klog.Exitf("Error:\n%+v", err)
	}
}
