package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/observability"
)

type stubStrategy struct {
	name  string
	text  string
	err   error
	calls int
	seen  domain.Classification
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(_ context.Context, a *domain.Artifact, c domain.Classification) (*domain.ExtractedText, error) {
	s.calls++
	s.seen = c
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ExtractedText{
		Text:              s.text,
		SourceKind:        c.SourceKind(),
		StrategyUsed:      s.name,
		OriginalSizeBytes: a.SizeBytes,
		CharCount:         len([]rune(s.text)),
	}, nil
}

func newService() (*Service, *stubStrategy, *stubStrategy, *stubStrategy) {
	tr := &stubStrategy{name: extractor.StrategyTranscribe, text: "trascrizione"}
	doc := &stubStrategy{name: extractor.StrategyDocument, text: "documento"}
	plain := &stubStrategy{name: extractor.StrategyPlainText, text: "note"}
	r := &extractor.Router{Transcribe: tr, Document: doc, PlainText: plain}
	return New(nil, r, observability.New()), tr, doc, plain
}

func artifact(name, mime string, b []byte) *domain.Artifact {
	return &domain.Artifact{
		Name:         name,
		DeclaredMime: mime,
		Bytes:        b,
		SizeBytes:    int64(len(b)),
		Source:       domain.SourceMultipart,
		ReceivedAt:   time.Unix(1700000000, 0),
	}
}

func TestProcessRoutesByClassification(t *testing.T) {
	svc, tr, doc, plain := newService()

	out, err := svc.Process(context.Background(), artifact("riunione.mp3", "", []byte("ID3....")))
	if err != nil {
		t.Fatalf("audio: %v", err)
	}
	if tr.calls != 1 || out.SourceKind != "audio" || out.StrategyUsed != extractor.StrategyTranscribe {
		t.Fatalf("audio routed wrong: calls=%d out=%+v", tr.calls, out)
	}

	if _, err := svc.Process(context.Background(), artifact("verbale.pdf", "application/pdf", []byte("%PDF-1.4"))); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if doc.calls != 1 || doc.seen.Doc != domain.DocPDF {
		t.Fatalf("pdf routed wrong: calls=%d seen=%v", doc.calls, doc.seen)
	}

	if _, err := svc.Process(context.Background(), artifact("note.md", "", []byte("# note"))); err != nil {
		t.Fatalf("md: %v", err)
	}
	if plain.calls != 1 || plain.seen.Doc != domain.DocMD {
		t.Fatalf("md routed wrong: calls=%d seen=%v", plain.calls, plain.seen)
	}
}

func TestProcessUnsupported(t *testing.T) {
	svc, tr, doc, plain := newService()
	_, err := svc.Process(context.Background(), artifact("foto.png", "image/png", []byte{0x89, 'P', 'N', 'G'}))
	if got := domain.KindOf(err); got != domain.KindUnsupportedArtifact {
		t.Fatalf("kind got=%v want=%v", got, domain.KindUnsupportedArtifact)
	}
	if tr.calls+doc.calls+plain.calls != 0 {
		t.Fatalf("no strategy should run for unsupported input")
	}
}

func TestProcessEmptyArtifact(t *testing.T) {
	svc, _, _, _ := newService()
	_, err := svc.Process(context.Background(), artifact("a.txt", "text/plain", nil))
	if got := domain.KindOf(err); got != domain.KindNoFileProvided {
		t.Fatalf("kind got=%v want=%v", got, domain.KindNoFileProvided)
	}
}

func TestTranscribeRejectsDocuments(t *testing.T) {
	svc, tr, doc, _ := newService()
	_, err := svc.Transcribe(context.Background(), artifact("verbale.pdf", "application/pdf", []byte("%PDF-1.4")))
	if got := domain.KindOf(err); got != domain.KindUnsupportedArtifact {
		t.Fatalf("kind got=%v want=%v", got, domain.KindUnsupportedArtifact)
	}
	if tr.calls != 0 || doc.calls != 0 {
		t.Fatalf("strategies should not run")
	}

	if _, err := svc.Transcribe(context.Background(), artifact("call.mp4", "video/mp4", []byte("....ftyp"))); err != nil {
		t.Fatalf("video: %v", err)
	}
	if tr.calls != 1 || tr.seen.Kind != domain.KindVideo {
		t.Fatalf("video routed wrong: calls=%d seen=%v", tr.calls, tr.seen)
	}
}

func TestProcessPropagatesStrategyError(t *testing.T) {
	svc, _, doc, _ := newService()
	doc.err = domain.Errorf(domain.KindScannedDocumentNoText, "scanned")
	_, err := svc.Process(context.Background(), artifact("scan.pdf", "application/pdf", []byte("%PDF-1.4")))
	if got := domain.KindOf(err); got != domain.KindScannedDocumentNoText {
		t.Fatalf("kind got=%v want=%v", got, domain.KindScannedDocumentNoText)
	}
}

func TestProcessSniffsOctetStream(t *testing.T) {
	svc, _, doc, _ := newService()
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	if _, err := svc.Process(context.Background(), artifact("upload", "application/octet-stream", pdf)); err != nil {
		t.Fatalf("sniffed pdf: %v", err)
	}
	if doc.calls != 1 || doc.seen.Evidence != domain.EvidenceSniff {
		t.Fatalf("sniff routed wrong: calls=%d seen=%v", doc.calls, doc.seen)
	}
}
