// Package classify decides which extraction strategy applies to an artifact.
package classify

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

var byExtension = map[string]domain.Classification{
	".mp3":  {Kind: domain.KindAudio},
	".wav":  {Kind: domain.KindAudio},
	".m4a":  {Kind: domain.KindAudio},
	".ogg":  {Kind: domain.KindAudio},
	".webm": {Kind: domain.KindAudio},
	".mp4":  {Kind: domain.KindVideo},
	".mov":  {Kind: domain.KindVideo},
	".avi":  {Kind: domain.KindVideo},
	".pdf":  {Kind: domain.KindDocument, Doc: domain.DocPDF},
	".docx": {Kind: domain.KindDocument, Doc: domain.DocDOCX},
	".txt":  {Kind: domain.KindDocument, Doc: domain.DocTXT},
	".md":   {Kind: domain.KindDocument, Doc: domain.DocMD},
}

// Classify is a pure function of the artifact name and its declared MIME type.
// The declared MIME wins over the extension; neither matching yields Unsupported.
func Classify(name, declaredMime string) domain.Classification {
	if c, ok := fromMime(declaredMime); ok {
		c.Evidence = domain.EvidenceMime
		return c
	}
	if c, ok := byExtension[strings.ToLower(filepath.Ext(strings.TrimSpace(name)))]; ok {
		c.Evidence = domain.EvidenceExtension
		return c
	}
	return domain.Classification{Kind: domain.KindUnsupported, Evidence: domain.EvidenceNone}
}

func fromMime(declared string) (domain.Classification, bool) {
	m := strings.ToLower(strings.TrimSpace(declared))
	if m == "" {
		return domain.Classification{}, false
	}
	switch {
	case strings.HasPrefix(m, "audio/"):
		return domain.Classification{Kind: domain.KindAudio}, true
	case strings.HasPrefix(m, "video/"):
		return domain.Classification{Kind: domain.KindVideo}, true
	case strings.Contains(m, "pdf"):
		return domain.Classification{Kind: domain.KindDocument, Doc: domain.DocPDF}, true
	case strings.Contains(m, "wordprocessingml"):
		return domain.Classification{Kind: domain.KindDocument, Doc: domain.DocDOCX}, true
	case strings.Contains(m, "markdown"):
		return domain.Classification{Kind: domain.KindDocument, Doc: domain.DocMD}, true
	case strings.HasPrefix(m, "text/"):
		return domain.Classification{Kind: domain.KindDocument, Doc: domain.DocTXT}, true
	default:
		return domain.Classification{}, false
	}
}

// Ambiguous reports whether the declared MIME carries no usable signal, the
// only case in which sniffing content is allowed.
func Ambiguous(declaredMime string) bool {
	m := strings.ToLower(strings.TrimSpace(declaredMime))
	if m == "" {
		return true
	}
	if base, _, err := mime.ParseMediaType(m); err == nil {
		m = base
	}
	return m == "application/octet-stream" || m == "binary/octet-stream" || m == "application/unknown"
}

// Sniff classifies by magic bytes. Last resort only.
func Sniff(b []byte) domain.Classification {
	if len(b) == 0 {
		return domain.Classification{Kind: domain.KindUnsupported, Evidence: domain.EvidenceNone}
	}
	detected := mimetype.Detect(b)
	for mt := detected; mt != nil; mt = mt.Parent() {
		if c, ok := fromMime(mt.String()); ok {
			c.Evidence = domain.EvidenceSniff
			return c
		}
	}
	return domain.Classification{Kind: domain.KindUnsupported, Evidence: domain.EvidenceNone}
}

// Resolve applies Classify and falls back to Sniff for ambiguous inputs.
func Resolve(name, declaredMime string, b []byte) domain.Classification {
	c := Classify(name, declaredMime)
	if c.Kind == domain.KindUnsupported && Ambiguous(declaredMime) {
		return Sniff(b)
	}
	return c
}

// ExtensionFor returns a file extension (with dot) for a MIME type, used when
// synthesizing names for artifacts that arrived without one.
func ExtensionFor(declaredMime string) string {
	m := strings.ToLower(strings.TrimSpace(declaredMime))
	if base, _, err := mime.ParseMediaType(m); err == nil {
		m = base
	}
	switch m {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mp4", "audio/x-m4a", "audio/m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm", "video/webm":
		return ".webm"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/x-msvideo":
		return ".avi"
	case "application/pdf":
		return ".pdf"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "text/markdown":
		return ".md"
	case "text/plain":
		return ".txt"
	}
	if mt := mimetype.Lookup(m); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	return ".bin"
}
