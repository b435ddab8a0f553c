package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, content []byte) Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	return Document{Name: name, Path: path}
}

func pagesOf(t *testing.T, doc Document) []Page {
	t.Helper()
	seq, err := NewMultiExtractor().Pages(context.Background(), doc)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	pages, err := Collect(seq)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return pages
}

func TestPages_plainFormFeed(t *testing.T) {
	doc := writeFile(t, "notes.txt", []byte("first page\fsecond page\f\fthird"))
	pages := pagesOf(t, doc)
	want := []string{"first page", "second page", "", "third"}
	if len(pages) != len(want) {
		t.Fatalf("got %d pages, want %d", len(pages), len(want))
	}
	for i, p := range pages {
		if p.Number != i+1 || p.Text != want[i] {
			t.Errorf("page %d = %+v, want text %q", i, p, want[i])
		}
	}
}

func TestPages_plainInvalidUTF8(t *testing.T) {
	pages := pagesOf(t, writeFile(t, "a.md", []byte("hello\x80world")))
	if pages[0].Text != "hello\uFFFDworld" {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestPages_excelSheetPerPage(t *testing.T) {
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	if _, err := f.NewSheet("Second"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Second", "A1", "More")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	f.Close()

	pages := pagesOf(t, writeFile(t, "book.xlsx", buf.Bytes()))
	if len(pages) != 2 {
		t.Fatalf("got %d pages", len(pages))
	}
	if pages[0].Text != "Title\nValue 1\tValue 2" {
		t.Errorf("sheet 1: %q", pages[0].Text)
	}
	if pages[1].Number != 2 || pages[1].Text != "More" {
		t.Errorf("sheet 2: %+v", pages[1])
	}
}

func buildPPTX(t *testing.T, slides map[int]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for n, body := range slides {
		w, err := zw.Create(fmt.Sprintf("ppt/slides/slide%d.xml", n))
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(body))
	}
	w, _ := zw.Create("ppt/slides/_rels/slide1.xml.rels")
	w.Write([]byte("<Relationships/>"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPages_pptxOrderedBySlideNumber(t *testing.T) {
	content := buildPPTX(t, map[int]string{
		10: `<p:sld><a:t>Ten</a:t></p:sld>`,
		2:  `<p:sld><a:t xml:space="preserve">Two </a:t><a:t>A &amp; B</a:t></p:sld>`,
		1:  `<p:sld><a:t>One</a:t></p:sld>`,
	})
	pages := pagesOf(t, writeFile(t, "deck.pptx", content))
	want := []string{"One", "Two A & B", "Ten"}
	if len(pages) != len(want) {
		t.Fatalf("got %d pages", len(pages))
	}
	for i, p := range pages {
		if p.Text != want[i] || p.Number != i+1 {
			t.Errorf("page %d = %+v, want %q", i, p, want[i])
		}
	}
}

func TestPages_pptxNotZip(t *testing.T) {
	_, err := NewMultiExtractor().Pages(context.Background(), writeFile(t, "bad.pptx", []byte("not a zip")))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPages_pdfInvalid(t *testing.T) {
	_, err := NewMultiExtractor().Pages(context.Background(), writeFile(t, "bad.pdf", []byte("%PDF-1.4 garbage")))
	if err == nil {
		t.Fatal("expected error opening invalid PDF")
	}
}

func TestPages_unsupported(t *testing.T) {
	_, err := NewMultiExtractor().Pages(context.Background(), writeFile(t, "a.rtf", []byte("x")))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
}

func TestPages_missingFile(t *testing.T) {
	_, err := NewMultiExtractor().Pages(context.Background(), Document{Name: "x.pdf", Path: filepath.Join(t.TempDir(), "x.pdf")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPages_canceledContext(t *testing.T) {
	doc := writeFile(t, "a.txt", []byte("one\ftwo"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq, err := NewMultiExtractor().Pages(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Collect(seq); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestPages_earlyBreak(t *testing.T) {
	seq, err := NewMultiExtractor().PagesBytes(context.Background(), []byte("a\fb\fc"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range seq {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterated %d pages after break", n)
	}
}

func TestMultiExtractor_Supports(t *testing.T) {
	m := NewMultiExtractor()
	for name, want := range map[string]bool{
		"a.pdf": true, "B.PDF": true, "c.txt": true, "d.md": true,
		"e.xlsx": true, "f.pptx": true, "g.docx": true, "h.ODP": true,
		"i.ods": true, "j.rtf": false, "noext": false,
	} {
		if got := m.Supports(name); got != want {
			t.Errorf("Supports(%q) = %v, want %v", name, got, want)
		}
	}
	if got := m.Extensions(); len(got) != 8 || got[0] != ".docx" {
		t.Errorf("Extensions() = %v", got)
	}
}
