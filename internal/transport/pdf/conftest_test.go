package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// buildPDF writes a minimal uncompressed PDF with one Helvetica text line per page.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	var (
		b       bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	b.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		encoded, err := charmap.Windows1252.NewEncoder().String(text)
		if err != nil {
			t.Fatalf("encode page %d: %v", i+1, err)
		}
		obj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", encoded)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	return finishPDF(&b, offsets)
}

// buildCIDPDF writes a one-page PDF whose text is shown with a Type0 Identity-H
// font: two-byte glyph codes mapped to Unicode only through a ToUnicode CMap.
func buildCIDPDF(t *testing.T, text string) []byte {
	t.Helper()

	var (
		b       bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	stream := func(data string) string {
		return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
	}

	// Glyph code = rune + 0x100, so the raw bytes never read as text.
	var hex strings.Builder
	for _, r := range text {
		fmt.Fprintf(&hex, "%04X", r+0x100)
	}
	cmap := strings.Join([]string{
		"/CIDInit /ProcSet findresource begin",
		"12 dict begin",
		"begincmap",
		"1 begincodespacerange",
		"<0000> <FFFF>",
		"endcodespacerange",
		"1 beginbfrange",
		"<0100> <01FF> <0000>",
		"endbfrange",
		"endcmap",
		"end end",
	}, "\n")

	b.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	obj(stream(fmt.Sprintf("BT /F1 12 Tf 72 720 Td <%s> Tj ET", hex.String())))
	obj("<< /Type /Font /Subtype /Type0 /BaseFont /ArialMT /Encoding /Identity-H " +
		"/DescendantFonts [6 0 R] /ToUnicode 7 0 R >>")
	obj("<< /Type /Font /Subtype /CIDFontType2 /BaseFont /ArialMT " +
		"/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> " +
		"/FontDescriptor 8 0 R /CIDToGIDMap /Identity /DW 500 >>")
	obj(stream(cmap))
	obj("<< /Type /FontDescriptor /FontName /ArialMT /Flags 32 /FontBBox [-665 -325 2000 1006] " +
		"/ItalicAngle 0 /Ascent 905 /Descent -212 /CapHeight 716 /StemV 80 >>")

	return finishPDF(&b, offsets)
}

// finishPDF appends the cross-reference table and trailer.
func finishPDF(b *bytes.Buffer, offsets []int) []byte {
	xref := b.Len()
	fmt.Fprintf(b, "xref\n0 %d\n", len(offsets)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return b.Bytes()
}

// openDoc opens ref through src and closes the document when the test ends.
func openDoc(t *testing.T, src *Source, ref string) *Document {
	t.Helper()
	doc, err := src.Open(context.Background(), ref)
	if err != nil {
		t.Fatalf("Open %q: %v", ref, err)
	}
	d, ok := doc.(*Document)
	if !ok {
		t.Fatalf("Open returned %T", doc)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// writePDF stores a generated PDF under dir and returns its path.
func writePDF(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buildPDF(t, pages...), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}
