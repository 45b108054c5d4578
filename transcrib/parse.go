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

package transcrib

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// Parse reads a transcription environment written by Interface.Write
// (possibly edited in a browser) back into pages with decoded images and
// line texts.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing transcription document")
	}
	doc := &Document{TextDirection: "horizontal-tb"}
	if meta := findMeta(root, "text_direction"); meta != "" {
		doc.TextDirection = meta
	}
	for _, section := range findAll(root, "section") {
		page, err := parseSection(section)
		if err != nil {
			return nil, err
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func parseSection(section *html.Node) (Page, error) {
	var page Page
	imgs := findAll(section, "img")
	if len(imgs) == 0 {
		return page, errors.New("transcription section has no page image")
	}
	src := attr(imgs[0], "src")
	idx := strings.Index(src, "base64,")
	if idx < 0 {
		return page, errors.Errorf("page image source %.40q is not base64 embedded", src)
	}
	raw, err := base64.StdEncoding.DecodeString(src[idx+len("base64,"):])
	if err != nil {
		return page, errors.Wrap(err, "decoding embedded page image")
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return page, errors.Wrap(err, "decoding embedded page image")
	}
	page.Image = img

	for _, li := range findAll(section, "li") {
		if attr(li, "contenteditable") == "" {
			continue
		}
		box, err := parseBBox(attr(li, "data-bbox"))
		if err != nil {
			return page, err
		}
		page.Lines = append(page.Lines, Line{Box: box, Text: strings.TrimSpace(text(li))})
	}
	return page, nil
}

func parseBBox(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, errors.Errorf("invalid bounding box %q", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, errors.Errorf("invalid bounding box %q", s)
		}
		vals[i] = v
	}
	return image.Rect(vals[0], vals[1], vals[2], vals[3]), nil
}

func findMeta(n *html.Node, itemprop string) string {
	for _, meta := range findAll(n, "meta") {
		if attr(meta, "itemprop") == itemprop {
			return attr(meta, "content")
		}
	}
	return ""
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
