package intake

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/minutebridge-backend/internal/ingestion/classify"
)

const (
	MaxNameLen   = 128
	maxExtLen    = 16
	safeNameRune = "._-"
)

// SanitizeName maps every character outside [A-Za-z0-9._-] to '_' and bounds
// the length, keeping a short extension. Names that reduce to dots only are
// replaced, so the result is always a single safe path component.
func SanitizeName(name string, now time.Time, declaredMime string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', strings.ContainsRune(safeNameRune, r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, ".") == "" {
		return SynthesizeName(now, declaredMime)
	}
	if len(out) > MaxNameLen {
		ext := filepath.Ext(out)
		if len(ext) > maxExtLen {
			ext = ""
		}
		out = out[:MaxNameLen-len(ext)] + ext
	}
	return out
}

// SynthesizeName builds upload-<unix millis><ext> for artifacts that arrived unnamed.
func SynthesizeName(now time.Time, declaredMime string) string {
	return "upload-" + strconv.FormatInt(now.UnixMilli(), 10) + classify.ExtensionFor(declaredMime)
}
