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

// Package transcrib builds and reads interactive transcription-review
// documents: self-contained HTML with one section per page image and one
// editable entry per segmented line.
package transcrib

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"io"

	"github.com/pkg/errors"
)

// Line is one segmented text line: its bounding box on the page and its
// (possibly prefilled or human-edited) transcription.
type Line struct {
	Box  image.Rectangle
	Text string
}

// Page is one page image with its lines in reading order.
type Page struct {
	Image image.Image
	Lines []Line
}

// Document is a parsed transcription environment.
type Document struct {
	TextDirection string
	Pages         []Page
}

// Interface accumulates pages and writes the transcription environment.
type Interface struct {
	Font          string
	FontStyle     string
	TextDirection string
	pages         []Page
}

// New creates a transcription interface with the given display font
// settings.
func New(font, fontStyle string) *Interface {
	return &Interface{Font: font, FontStyle: fontStyle, TextDirection: "horizontal-tb"}
}

// AddPage appends a page with its line boxes. preds optionally prefills
// line transcriptions (shorter slices leave the remainder empty).
func (ti *Interface) AddPage(img image.Image, boxes []image.Rectangle, preds []string) {
	page := Page{Image: img}
	for i, box := range boxes {
		line := Line{Box: box}
		if i < len(preds) {
			line.Text = preds[i]
		}
		page.Lines = append(page.Lines, line)
	}
	ti.pages = append(ti.pages, page)
}

var docTemplate = template.Must(template.New("transcription").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta itemprop="text_direction" content="{{.TextDirection}}">
<title>Transcription</title>
<style>body { font-family: '{{.Font}}'; font-style: {{.FontStyle}}; }</style>
</head>
<body>
{{- range .Pages}}
<section>
<img src="data:image/png;base64,{{.B64}}" alt="page">
<ol>
{{- range .Lines}}
<li contenteditable="true" data-bbox="{{.BBox}}">{{.Text}}</li>
{{- end}}
</ol>
</section>
{{- end}}
</body>
</html>
`))

type templatePage struct {
	B64   string
	Lines []templateLine
}

type templateLine struct {
	BBox string
	Text string
}

// Write renders the accumulated pages as a self-contained HTML document.
func (ti *Interface) Write(w io.Writer) error {
	data := struct {
		Font, FontStyle, TextDirection string
		Pages                          []templatePage
	}{
		Font:          ti.Font,
		FontStyle:     ti.FontStyle,
		TextDirection: ti.TextDirection,
	}
	if data.FontStyle == "" {
		data.FontStyle = "normal"
	}
	for _, page := range ti.pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, page.Image); err != nil {
			return errors.Wrap(err, "encoding page image")
		}
		tp := templatePage{B64: base64.StdEncoding.EncodeToString(buf.Bytes())}
		for _, line := range page.Lines {
			tp.Lines = append(tp.Lines, templateLine{
				BBox: fmt.Sprintf("%d,%d,%d,%d", line.Box.Min.X, line.Box.Min.Y, line.Box.Max.X, line.Box.Max.Y),
				Text: line.Text,
			})
		}
		data.Pages = append(data.Pages, tp)
	}
	return errors.Wrap(docTemplate.Execute(w, data), "writing transcription document")
}
