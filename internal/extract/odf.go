package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// odfContentPath is the main content part of an OpenDocument package.
const odfContentPath = "content.xml"

var (
	// odfPara matches a non-empty text:p or text:h element, including nested spans.
	odfPara = regexp.MustCompile(`(?s)<text:[ph](?:\s[^>]*[^/>])?>(.*?)</text:[ph]>`)
	// odfSpacing matches the elements OpenDocument uses instead of literal whitespace.
	odfSpacing = regexp.MustCompile(`<text:(?:s|tab|line-break)\b[^>]*/>`)
	anyTag     = regexp.MustCompile(`<[^>]*>`)
)

// zipPart returns the bytes of the named part. format prefixes errors.
func zipPart(zr *zip.Reader, name, format string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract %s: open %s: %w", format, f.Name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("extract %s: read %s: %w", format, f.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("extract %s: %s not found", format, name)
}

// odfContent opens an OpenDocument package and returns its content.xml.
func odfContent(content []byte, format string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	data, err := zipPart(zr, odfContentPath, format)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// odfText returns the paragraph text of an XML fragment, one space between words.
func odfText(fragment string) string {
	var words []string
	for _, m := range odfPara.FindAllStringSubmatch(fragment, -1) {
		words = append(words, strings.Fields(inlineText(m[1]))...)
	}
	return strings.Join(words, " ")
}

// inlineText strips markup from the inside of a paragraph.
func inlineText(s string) string {
	s = odfSpacing.ReplaceAllString(s, " ")
	return html.UnescapeString(anyTag.ReplaceAllString(s, ""))
}
