// Package e2e runs the full ingest, persist and query path over generated multi-page documents.
package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FixtureExtensions are the formats generated for end-to-end tests.
var FixtureExtensions = []string{".pdf", ".txt", ".md", ".pptx", ".xlsx", ".docx", ".odp", ".ods"}

// EncodePages returns the bytes of a file of type ext with one page per
// element of pages. An empty string produces a blank page.
func EncodePages(ext string, pages []string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(strings.Join(pages, "\f")), nil
	case ".pptx":
		return pptxFile(pages)
	case ".xlsx":
		return xlsxFile(pages)
	case ".pdf":
		return pdfFile(pages), nil
	case ".docx":
		return docxFile(pages)
	case ".odp":
		return odpFile(pages)
	case ".ods":
		return odsFile(pages)
	default:
		return nil, fmt.Errorf("no fixture encoder for %q", ext)
	}
}

// pdfFile writes an uncompressed PDF with one Helvetica text line per page.
// Blank pages have no content stream.
func pdfFile(pages []string) []byte {
	objs := []string{"<< /Type /Catalog /Pages 2 0 R >>", "",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"}
	add := func(body string) int {
		objs = append(objs, body)
		return len(objs)
	}
	kids := make([]string, 0, len(pages))
	for _, text := range pages {
		page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >>"
		if text != "" {
			stream := "BT /F1 12 Tf 72 720 Td (" + pdfEscaper.Replace(text) + ") Tj ET"
			page += fmt.Sprintf(" /Contents %d 0 R", add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)))
		}
		kids = append(kids, fmt.Sprintf("%d 0 R", add(page+" >>")))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

var pdfEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// zipFile packs named parts in order.
func zipFile(parts ...[2]string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, part := range parts {
		fw, err := w.Create(part[0])
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write([]byte(part[1])); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func docxFile(pages []string) ([]byte, error) {
	var body strings.Builder
	for i, text := range pages {
		if i > 0 {
			body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}
		if text != "" {
			body.WriteString(`<w:p><w:r><w:t>` + html.EscapeString(text) + `</w:t></w:r></w:p>`)
		}
	}
	return zipFile([2]string{"word/document.xml", `<w:document><w:body>` + body.String() + `</w:body></w:document>`})
}

func odpFile(slides []string) ([]byte, error) {
	var body strings.Builder
	for i, text := range slides {
		fmt.Fprintf(&body, `<draw:page draw:name="page%d">`, i+1)
		if text != "" {
			body.WriteString(`<draw:frame><draw:text-box><text:p>` + html.EscapeString(text) + `</text:p></draw:text-box></draw:frame>`)
		}
		body.WriteString(`</draw:page>`)
	}
	return zipFile(
		[2]string{"mimetype", "application/vnd.oasis.opendocument.presentation"},
		[2]string{"content.xml", `<office:document-content><office:body><office:presentation>` + body.String() + `</office:presentation></office:body></office:document-content>`},
	)
}

func odsFile(sheets []string) ([]byte, error) {
	var body strings.Builder
	for i, text := range sheets {
		fmt.Fprintf(&body, `<table:table table:name="Sheet%d">`, i+1)
		if text != "" {
			body.WriteString(`<table:table-row><table:table-cell office:value-type="string"><text:p>` + html.EscapeString(text) + `</text:p></table:table-cell></table:table-row>`)
		}
		body.WriteString(`</table:table>`)
	}
	return zipFile(
		[2]string{"mimetype", "application/vnd.oasis.opendocument.spreadsheet"},
		[2]string{"content.xml", `<office:document-content><office:body><office:spreadsheet>` + body.String() + `</office:spreadsheet></office:body></office:document-content>`},
	)
}

func pptxFile(slides []string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i, text := range slides {
		fw, err := w.Create(fmt.Sprintf("ppt/slides/slide%d.xml", i+1))
		if err != nil {
			return nil, err
		}
		body := ""
		if text != "" {
			body = `<p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp>`
		}
		if _, err := fw.Write([]byte(`<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree>` + body + `</p:spTree></p:cSld></p:sld>`)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxFile(sheets []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	for i, text := range sheets {
		name := fmt.Sprintf("Sheet%d", i+1)
		if i > 0 {
			if _, err := f.NewSheet(name); err != nil {
				return nil, err
			}
		}
		if text != "" {
			if err := f.SetCellValue(name, "A1", text); err != nil {
				return nil, err
			}
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
