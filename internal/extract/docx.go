package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"iter"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// partNameRe and partNameRe2 find the main document part in either attribute order.
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

	// docxPageBreak matches an explicit page break run.
	docxPageBreak = regexp.MustCompile(`<w:br\s[^>]*w:type="page"[^>]*/>`)
	// docxToken matches a text run, or a paragraph end or tab that separates words.
	docxToken = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>|</w:p>|<w:tab/>`)
)

// docxMainPart returns the main document path from [Content_Types].xml,
// without the leading slash, or the default path when none is declared.
func docxMainPart(zr *zip.Reader) string {
	types, err := zipPart(zr, contentTypesPath, "DOCX")
	if err != nil {
		return docxDocumentXMLPath
	}
	for _, re := range []*regexp.Regexp{partNameRe, partNameRe2} {
		if m := re.FindSubmatch(types); m != nil {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDocumentXMLPath
}

// docxPages yields the text between explicit page breaks. A document without
// breaks is a single page. Runs inside a paragraph are concatenated as-is.
func docxPages(ctx context.Context, content []byte) (iter.Seq2[Page, error], error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	body, err := zipPart(zr, docxMainPart(zr), "DOCX")
	if err != nil {
		return nil, err
	}
	var pages []string
	for _, chunk := range docxPageBreak.Split(string(body), -1) {
		pages = append(pages, docxText(chunk))
	}
	return fromSlice(ctx, pages), nil
}

func docxText(chunk string) string {
	var b strings.Builder
	for _, m := range docxToken.FindAllStringSubmatch(chunk, -1) {
		if strings.HasPrefix(m[0], "<w:t") && !strings.HasPrefix(m[0], "<w:tab") {
			b.WriteString(html.UnescapeString(m[1]))
			continue
		}
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
