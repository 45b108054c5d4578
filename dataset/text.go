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

package dataset

import (
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/bidi"
	"golang.org/x/text/unicode/norm"
)

// NormForm returns the Unicode normalization form for one of the four
// standard form names, or nil for the empty string (no normalization).
func NormForm(name string) (*norm.Form, error) {
	var f norm.Form
	switch name {
	case "":
		return nil, nil
	case "NFC":
		f = norm.NFC
	case "NFD":
		f = norm.NFD
	case "NFKC":
		f = norm.NFKC
	case "NFKD":
		f = norm.NFKD
	default:
		return nil, errors.Errorf("unknown normalization form %q", name)
	}
	return &f, nil
}

// DisplayOrder reorders a logical-order string into display order,
// reversing right-to-left runs. Lines that fail bidi resolution are
// returned unchanged.
func DisplayOrder(s string) string {
	var p bidi.Paragraph
	p.SetString(s)
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		text := run.String()
		if run.Direction() == bidi.RightToLeft {
			text = reverseRunes(text)
		}
		out = append(out, text...)
	}
	return string(out)
}

func reverseRunes(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
