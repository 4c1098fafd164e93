package transcribe

import (
	"path"
	"strings"
)

const (
	ContentTypeMP3 = "audio/mp3"
	ContentTypeWAV = "audio/wav"
)

// SplitExt splits name into root and extension. Leading dots belong to the
// root, so ".mp3" has no extension.
func SplitExt(name string) (root, ext string) {
	ext = path.Ext(strings.TrimLeft(name, "."))
	return name[:len(name)-len(ext)], ext
}

// ContentType maps a file name to the audio content type sent to the
// backend. Unknown extensions fall back to audio/mp3 with known == false.
func ContentType(name string) (contentType string, known bool) {
	_, ext := SplitExt(name)
	switch strings.ToLower(ext) {
	case ".mp3":
		return ContentTypeMP3, true
	case ".wav":
		return ContentTypeWAV, true
	}
	return ContentTypeMP3, false
}
