package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies whether a recording blob carries the audio or video
// component of a session recording.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var allKinds = []Kind{KindAudio, KindVideo}

// AllKinds returns the ordered list of known media kinds.
func AllKinds() []Kind {
	kinds := make([]Kind, len(allKinds))
	copy(kinds, allKinds)
	return kinds
}

// ParseKind normalizes and validates a media kind value.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", fmt.Errorf("media kind: unsupported value %q", value)
	}
	return kind, nil
}

// Valid reports whether the kind is one of the known media kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAudio, KindVideo:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// contentTypes maps recording file extensions to MIME types. The extension is
// discovered from whatever container the recording client produced, so the
// table stays small and unknown extensions degrade to a binary content type.
var contentTypes = map[string]string{
	"webm": "video/webm",
	"mp4":  "video/mp4",
	"ogg":  "audio/ogg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
}

const binaryContentType = "application/octet-stream"

// ContentTypeForPath resolves the MIME type for a stored recording path by
// its file extension. Unknown extensions resolve to application/octet-stream.
func ContentTypeForPath(path string) string {
	ext := NormalizeExtension(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return binaryContentType
}

// NormalizeExtension lowercases an extension and strips any leading dot.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
