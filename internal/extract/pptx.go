package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"iter"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pptxSlidePathPrefix is the path prefix for slide XML files inside a .pptx zip.
const pptxSlidePathPrefix = "ppt/slides/slide"

// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t> (and any other attributes).
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

type slideFile struct {
	number int
	file   *zip.File
}

// pptxPages yields one page per slide, ordered by slide number.
func pptxPages(ctx context.Context, content []byte) (iter.Seq2[Page, error], error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	var slides []slideFile
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePathPrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, pptxSlidePathPrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{number: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	return func(yield func(Page, error) bool) {
		for i, s := range slides {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}
			text, err := slideText(s.file)
			if err != nil {
				yield(Page{}, err)
				return
			}
			if !yield(Page{Number: i + 1, Text: text}, nil) {
				return
			}
		}
	}, nil
}

func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("extract PPTX: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("extract PPTX: read %s: %w", f.Name, err)
	}
	var parts []string
	for _, m := range atTag.FindAllSubmatch(data, -1) {
		if t := strings.TrimSpace(html.UnescapeString(string(m[1]))); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
