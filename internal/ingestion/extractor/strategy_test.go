package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/upstream"
)

type fakeSpeech struct {
	text  string
	err   error
	delay time.Duration
	calls int
	last  TranscriptionRequest
}

func (f *fakeSpeech) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	f.calls++
	f.last = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type fakeDocs struct {
	text string
	err  error
}

func (f fakeDocs) ExtractText(context.Context, []byte, domain.DocKind) (string, error) {
	return f.text, f.err
}

var (
	audio = domain.Classification{Kind: domain.KindAudio, Evidence: domain.EvidenceMime}
	video = domain.Classification{Kind: domain.KindVideo, Evidence: domain.EvidenceMime}
	pdfC  = domain.Classification{Kind: domain.KindDocument, Doc: domain.DocPDF, Evidence: domain.EvidenceMime}
	docxC = domain.Classification{Kind: domain.KindDocument, Doc: domain.DocDOCX, Evidence: domain.EvidenceExtension}
	txtC  = domain.Classification{Kind: domain.KindDocument, Doc: domain.DocTXT, Evidence: domain.EvidenceMime}
)

func artifact(name string, b []byte) *domain.Artifact {
	return &domain.Artifact{Name: name, Bytes: b, SizeBytes: int64(len(b))}
}

func wantKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("got kind=%q (err=%v) want=%q", got, err, kind)
	}
}

func TestTranscribeTinyBufferIsEmptyTranscription(t *testing.T) {
	stt := &fakeSpeech{text: "should not be called"}
	s := NewTranscribe(nil, stt, nil, nil, TranscribeConfig{MinBytes: 1024})
	_, err := s.Extract(context.Background(), artifact("empty.webm", []byte{0, 0}), audio)
	wantKind(t, err, domain.KindEmptyTranscription)
	if stt.calls != 0 {
		t.Fatalf("capability called %d times for an empty buffer", stt.calls)
	}
}

func TestTranscribeBlankResultIsEmptyTranscription(t *testing.T) {
	stt := &fakeSpeech{text: "  \n\t "}
	s := NewTranscribe(nil, stt, nil, nil, TranscribeConfig{MinBytes: 1})
	_, err := s.Extract(context.Background(), artifact("a.mp3", make([]byte, 64)), audio)
	wantKind(t, err, domain.KindEmptyTranscription)
}

func TestTranscribeHonorsCapabilityCeiling(t *testing.T) {
	s := NewTranscribe(nil, &fakeSpeech{text: "x"}, nil, nil, TranscribeConfig{MinBytes: 1, MaxBytes: 10})
	_, err := s.Extract(context.Background(), artifact("a.mp3", make([]byte, 11)), audio)
	wantKind(t, err, domain.KindPayloadTooLargeForTranscription)
}

func TestTranscribeSoftDegradeIsConfigurable(t *testing.T) {
	soft := NewTranscribe(nil, nil, nil, nil, TranscribeConfig{MinBytes: 1, SoftDegrade: true})
	out, err := soft.Extract(context.Background(), artifact("a.mp3", make([]byte, 8)), audio)
	if err != nil {
		t.Fatalf("soft degrade returned error: %v", err)
	}
	if !out.Degraded || out.Text != UnavailablePlaceholder {
		t.Fatalf("got=%+v want degraded placeholder", out)
	}

	hard := NewTranscribe(nil, nil, nil, nil, TranscribeConfig{MinBytes: 1})
	_, err = hard.Extract(context.Background(), artifact("a.mp3", make([]byte, 8)), audio)
	wantKind(t, err, domain.KindUpstreamUnavailable)
}

func TestTranscribeMapsCapabilityFailures(t *testing.T) {
	cases := []struct {
		err  error
		want domain.ErrorKind
	}{
		{fmt.Errorf("503: %w", domain.ErrCapabilityUnavailable), domain.KindUpstreamUnavailable},
		{fmt.Errorf("413: %w", domain.ErrCapabilityPayloadTooLarge), domain.KindPayloadTooLargeForTranscription},
		{fmt.Errorf("nothing: %w", domain.ErrCapabilityEmptyResult), domain.KindEmptyTranscription},
		{fmt.Errorf("weird"), domain.KindInternal},
	}
	for _, tc := range cases {
		s := NewTranscribe(nil, &fakeSpeech{err: tc.err}, nil, nil, TranscribeConfig{MinBytes: 1})
		_, err := s.Extract(context.Background(), artifact("a.wav", make([]byte, 8)), audio)
		wantKind(t, err, tc.want)
	}
}

func TestTranscribeTimeoutIsTyped(t *testing.T) {
	stt := &fakeSpeech{text: "late", delay: time.Second}
	guard := upstream.NewGuard("speech", upstream.Config{Timeout: 20 * time.Millisecond}, nil)
	s := NewTranscribe(nil, stt, nil, guard, TranscribeConfig{MinBytes: 1})
	_, err := s.Extract(context.Background(), artifact("a.wav", make([]byte, 8)), audio)
	wantKind(t, err, domain.KindUpstreamTimeout)
}

func TestTranscribeRoutesVideoAndPassesHints(t *testing.T) {
	audioSTT := &fakeSpeech{text: "audio"}
	videoSTT := &fakeSpeech{text: "  video   transcript "}
	s := NewTranscribe(nil, audioSTT, videoSTT, nil, TranscribeConfig{MinBytes: 1, LanguageHint: "it"})
	a := artifact("call.mp4", make([]byte, 8))
	a.DeclaredMime = "video/mp4"
	out, err := s.Extract(context.Background(), a, video)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != "video transcript" || out.SourceKind != "video" || out.StrategyUsed != StrategyTranscribe {
		t.Fatalf("unexpected result: %+v", out)
	}
	if videoSTT.last.LanguageHint != "it" || videoSTT.last.MimeHint != "video/mp4" || audioSTT.calls != 0 {
		t.Fatalf("unexpected routing: video=%+v audioCalls=%d", videoSTT.last, audioSTT.calls)
	}
}

func TestDocumentWhitespacePDFIsScanned(t *testing.T) {
	d := NewDocument(nil, fakeDocs{text: "   \n\n  "}, NativeDocuments{}, nil, DocumentConfig{})
	_, err := d.Extract(context.Background(), artifact("scan.pdf", []byte("%PDF-1.7")), pdfC)
	wantKind(t, err, domain.KindScannedDocumentNoText)
}

func TestDocumentPDFBelowThresholdIsScanned(t *testing.T) {
	d := NewDocument(nil, fakeDocs{text: "Page 1"}, NativeDocuments{}, nil, DocumentConfig{MinPDFChars: 50})
	_, err := d.Extract(context.Background(), artifact("scan.pdf", []byte("%PDF-1.7")), pdfC)
	wantKind(t, err, domain.KindScannedDocumentNoText)

	long := strings.Repeat("Il consiglio approva il bilancio. ", 3)
	d = NewDocument(nil, fakeDocs{text: long}, NativeDocuments{}, nil, DocumentConfig{MinPDFChars: 50})
	out, err := d.Extract(context.Background(), artifact("ok.pdf", []byte("%PDF-1.7")), pdfC)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != strings.TrimSpace(long) || out.SourceKind != "pdf" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestDocumentDistinguishesCorruptAndProtected(t *testing.T) {
	d := NewDocument(nil, nil, NativeDocuments{}, nil, DocumentConfig{})
	_, err := d.Extract(context.Background(), artifact("bad.pdf", []byte("definitely not a pdf")), pdfC)
	wantKind(t, err, domain.KindCorruptDocument)

	d = NewDocument(nil, fakeDocs{err: fmt.Errorf("x: %w", domain.ErrDocumentEncrypted)}, NativeDocuments{}, nil, DocumentConfig{})
	_, err = d.Extract(context.Background(), artifact("locked.pdf", []byte("%PDF-1.7")), pdfC)
	wantKind(t, err, domain.KindProtectedDocument)

	_, err = d.Extract(context.Background(), artifact("bad.docx", []byte("PK but not really")), docxC)
	wantKind(t, err, domain.KindCorruptDocument)

	ole := append(append([]byte{}, oleHeader...), utf16le("EncryptedPackage")...)
	_, err = d.Extract(context.Background(), artifact("locked.docx", ole), docxC)
	wantKind(t, err, domain.KindProtectedDocument)
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`

func buildDOCX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDocumentDOCXRawText(t *testing.T) {
	doc := buildDOCX(t, map[string]string{
		"word/document.xml": `<w:document ` + wordNS + `><w:body>` +
			`<w:p><w:r><w:t>Ordine del giorno</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t xml:space="preserve">Punto </w:t></w:r><w:r><w:t>1</w:t><w:tab/><w:t>bilancio</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
	})
	d := NewDocument(nil, nil, NativeDocuments{}, nil, DocumentConfig{})
	out, err := d.Extract(context.Background(), artifact("minutes.docx", doc), docxC)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != "Ordine del giorno\nPunto 1\tbilancio" || out.StrategyUsed != StrategyDocument {
		t.Fatalf("got=%+v", out)
	}
}

func TestDocumentDOCXFallsBackToRenderedParts(t *testing.T) {
	doc := buildDOCX(t, map[string]string{
		"word/document.xml": `<w:document ` + wordNS + `><w:body><w:p><w:r><a:t>Testo &amp; forma</a:t></w:r></w:p></w:body></w:document>`,
		"word/header1.xml":  `<w:hdr ` + wordNS + `><w:p><w:r><w:t>Intestazione</w:t></w:r></w:p></w:hdr>`,
	})
	d := NewDocument(nil, nil, NativeDocuments{}, nil, DocumentConfig{})
	out, err := d.Extract(context.Background(), artifact("shapes.docx", doc), docxC)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != "Intestazione\n\nTesto & forma" || out.StrategyUsed != StrategyDocumentFallback {
		t.Fatalf("got=%+v", out)
	}
}

func TestDocumentEmptyDOCXHasNoExtractableText(t *testing.T) {
	doc := buildDOCX(t, map[string]string{
		"word/document.xml": `<w:document ` + wordNS + `><w:body><w:p/></w:body></w:document>`,
	})
	d := NewDocument(nil, nil, NativeDocuments{}, nil, DocumentConfig{})
	_, err := d.Extract(context.Background(), artifact("blank.docx", doc), docxC)
	wantKind(t, err, domain.KindNoExtractableText)
}

func TestPlainTextRoundTrip(t *testing.T) {
	out, err := PlainText{}.Extract(context.Background(), artifact("a.txt", []byte("\xEF\xBB\xBFhello")), txtC)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != "hello" || out.CharCount != 5 || out.OriginalSizeBytes != 8 {
		t.Fatalf("got=%+v", out)
	}
}

func TestPlainTextRejectsInvalidUTF8AndEmpty(t *testing.T) {
	_, err := PlainText{}.Extract(context.Background(), artifact("a.txt", []byte{'o', 'k', 0xff, 0xfe}), txtC)
	wantKind(t, err, domain.KindInvalidTextEncoding)

	_, err = PlainText{}.Extract(context.Background(), artifact("a.md", []byte(" \n\x00\n ")), txtC)
	wantKind(t, err, domain.KindNoExtractableText)
}

func TestRouterSelect(t *testing.T) {
	r := &Router{Transcribe: &Transcribe{}, Document: &Document{}, PlainText: PlainText{}}
	cases := map[domain.Classification]string{
		audio: StrategyTranscribe,
		video: StrategyTranscribe,
		pdfC:  StrategyDocument,
		docxC: StrategyDocument,
		txtC:  StrategyPlainText,
	}
	for c, want := range cases {
		s, err := r.Select(c)
		if err != nil {
			t.Fatalf("Select(%s): %v", c, err)
		}
		if s.Name() != want {
			t.Fatalf("Select(%s) got=%s want=%s", c, s.Name(), want)
		}
	}
	_, err := r.Select(domain.Classification{Kind: domain.KindUnsupported})
	wantKind(t, err, domain.KindUnsupportedArtifact)
}
