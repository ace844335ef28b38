package domain

import "time"

type ArtifactSource string

const (
	SourceMultipart ArtifactSource = "multipart"
	SourceDataURI   ArtifactSource = "data_uri"
	SourceRemote    ArtifactSource = "remote"
	SourceChunked   ArtifactSource = "chunked"
)

// Artifact is one submitted file for the lifetime of a single request.
// Bytes is owned by the request and must not be retained after it returns.
type Artifact struct {
	Name         string
	DeclaredMime string
	Bytes        []byte
	SizeBytes    int64
	Source       ArtifactSource
	LanguageHint string
	ReceivedAt   time.Time
}

type Kind string

const (
	KindAudio       Kind = "audio"
	KindVideo       Kind = "video"
	KindDocument    Kind = "document"
	KindUnsupported Kind = "unsupported"
)

type DocKind string

const (
	DocPDF  DocKind = "pdf"
	DocDOCX DocKind = "docx"
	DocTXT  DocKind = "txt"
	DocMD   DocKind = "md"
)

type Evidence string

const (
	EvidenceMime      Evidence = "mime"
	EvidenceExtension Evidence = "extension"
	EvidenceSniff     Evidence = "sniff"
	EvidenceNone      Evidence = "none"
)

type Classification struct {
	Kind     Kind
	Doc      DocKind
	Evidence Evidence
}

func (c Classification) IsMedia() bool {
	return c.Kind == KindAudio || c.Kind == KindVideo
}

// SourceKind is the label reported in response metadata: "audio", "video", "pdf", "docx", "txt", "md".
func (c Classification) SourceKind() string {
	if c.Kind == KindDocument {
		return string(c.Doc)
	}
	return string(c.Kind)
}

func (c Classification) String() string {
	return c.SourceKind() + "(" + string(c.Evidence) + ")"
}

type ExtractedText struct {
	Text              string `json:"text"`
	SourceKind        string `json:"sourceKind"`
	StrategyUsed      string `json:"strategyUsed"`
	OriginalSizeBytes int64  `json:"sizeBytes"`
	CharCount         int    `json:"charCount"`
	Degraded          bool   `json:"degraded,omitempty"`
}
