package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"path"
	"sort"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

var (
	oleHeader        = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	encryptedPackage = utf16le("EncryptedPackage")
)

// NativeDocuments extracts embedded text in-process: PDF content streams via
// ledongthuc/pdf and DOCX word parts via archive/zip.
type NativeDocuments struct {
	// MaxPartBytes bounds a single decompressed zip part.
	MaxPartBytes int64
}

func (n NativeDocuments) ExtractText(ctx context.Context, data []byte, format domain.DocKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch format {
	case domain.DocPDF:
		return extractPDF(data)
	case domain.DocDOCX:
		return n.extractDOCX(data)
	default:
		return "", fmt.Errorf("native extraction of %q: %w", format, domain.ErrUnsupportedFormat)
	}
}

func isPDFHeader(b []byte) bool {
	head := b[:min(len(b), 1024)]
	return bytes.Contains(head, []byte("%PDF-"))
}

func extractPDF(data []byte) (text string, err error) {
	if !isPDFHeader(data) {
		return "", fmt.Errorf("missing %%PDF header: %w", domain.ErrDocumentCorrupt)
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v: %w", r, domain.ErrDocumentCorrupt)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return "", fmt.Errorf("pdf reader: %v: %w", err, domain.ErrDocumentEncrypted)
		}
		return "", fmt.Errorf("pdf reader: %v: %w", err, domain.ErrDocumentCorrupt)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %v: %w", err, domain.ErrDocumentCorrupt)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %v: %w", err, domain.ErrDocumentCorrupt)
	}
	return string(b), nil
}

func (n NativeDocuments) openDOCX(data []byte) (*zip.Reader, error) {
	if bytes.HasPrefix(data, oleHeader) {
		if bytes.Contains(data, encryptedPackage) {
			return nil, fmt.Errorf("ole container with EncryptedPackage: %w", domain.ErrDocumentEncrypted)
		}
		return nil, fmt.Errorf("legacy ole document: %w", domain.ErrUnsupportedFormat)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx container: %v: %w", err, domain.ErrDocumentCorrupt)
	}
	if findZipFile(zr, "word/document.xml") == nil {
		return nil, fmt.Errorf("docx has no word/document.xml: %w", domain.ErrDocumentCorrupt)
	}
	return zr, nil
}

// extractDOCX is the primary pass: body runs of word/document.xml only.
func (n NativeDocuments) extractDOCX(data []byte) (string, error) {
	zr, err := n.openDOCX(data)
	if err != nil {
		return "", err
	}
	body, err := n.readPart(findZipFile(zr, "word/document.xml"))
	if err != nil {
		return "", err
	}
	return docxRunsText(body), nil
}

// RenderDOCXHTML is the fallback pass. It renders every text-bearing part
// (body, headers, footers, notes, comments) to HTML, including DrawingML and
// math runs that the primary pass ignores.
func (n NativeDocuments) RenderDOCXHTML(data []byte) (string, error) {
	zr, err := n.openDOCX(data)
	if err != nil {
		return "", err
	}
	var parts []*zip.File
	for _, f := range zr.File {
		if isRenderablePart(f.Name) {
			parts = append(parts, f)
		}
	}
	sort.SliceStable(parts, func(i, j int) bool { return partRank(parts[i].Name) < partRank(parts[j].Name) })

	var b strings.Builder
	b.WriteString("<html><body>")
	for _, f := range parts {
		raw, err := n.readPart(f)
		if err != nil {
			return "", err
		}
		b.WriteString("<div>")
		renderWordML(&b, raw)
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func isRenderablePart(name string) bool {
	if !strings.HasPrefix(name, "word/") || path.Ext(name) != ".xml" || strings.Count(name, "/") != 1 {
		return false
	}
	base := strings.TrimSuffix(path.Base(name), ".xml")
	for _, prefix := range []string{"document", "header", "footer", "footnotes", "endnotes", "comments"} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}

func partRank(name string) int {
	base := path.Base(name)
	switch {
	case strings.HasPrefix(base, "header"):
		return 0
	case strings.HasPrefix(base, "document"):
		return 1
	case strings.HasPrefix(base, "footnotes"), strings.HasPrefix(base, "endnotes"):
		return 2
	case strings.HasPrefix(base, "comments"):
		return 3
	default:
		return 4
	}
}

func (n NativeDocuments) readPart(f *zip.File) ([]byte, error) {
	limit := n.MaxPartBytes
	if limit <= 0 {
		limit = 64 << 20
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", f.Name, err, domain.ErrDocumentCorrupt)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", f.Name, err, domain.ErrDocumentCorrupt)
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%s expands beyond %d bytes: %w", f.Name, limit, domain.ErrDocumentCorrupt)
	}
	return b, nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// docxRunsText collects w:t runs, honoring paragraph, tab and break markers.
func docxRunsText(xmlBytes []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != "" && !strings.Contains(t.Name.Space, "wordprocessingml") {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if t.Name.Space == "" || strings.Contains(t.Name.Space, "wordprocessingml") {
					out.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String()
}

// renderWordML writes paragraphs, breaks and table cells as HTML, taking text
// from any namespace's t element (w:t, a:t, m:t).
func renderWordML(b *strings.Builder, xmlBytes []byte) {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				b.WriteString("<p>")
			case "tbl":
				b.WriteString("<table>")
			case "tr":
				b.WriteString("<tr>")
			case "tc":
				b.WriteString("<td>")
			case "br", "cr":
				b.WriteString("<br>")
			case "tab":
				b.WriteString(" ")
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				b.WriteString("</p>")
			case "tbl":
				b.WriteString("</table>")
			case "tr":
				b.WriteString("</tr>")
			case "tc":
				b.WriteString("</td>")
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				b.WriteString(html.EscapeString(string(t)))
			}
		}
	}
}

func utf16le(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}
