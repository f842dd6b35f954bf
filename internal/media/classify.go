package media

import (
	"path/filepath"
	"strings"
)

// Kind buckets a file by how the viewer presents it.
type Kind string

const (
	KindVideo   Kind = "video"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

// TextInlineLimit is the largest text file the viewer renders inline.
// Larger files get a placeholder; the raw stream path is unaffected.
const TextInlineLimit = 512 * 1024

// FileType is the classification result for one file name.
type FileType struct {
	Kind        Kind
	ContentType string // empty for KindUnknown
}

var fileTypes = map[string]FileType{
	".mkv":  {KindVideo, "video/x-matroska"},
	".mp4":  {KindVideo, "video/mp4"},
	".webm": {KindVideo, "video/webm"},
	".avi":  {KindVideo, "video/x-msvideo"},
	".mov":  {KindVideo, "video/quicktime"},

	".jpg":  {KindImage, "image/jpeg"},
	".jpeg": {KindImage, "image/jpeg"},
	".png":  {KindImage, "image/png"},
	".gif":  {KindImage, "image/gif"},
	".webp": {KindImage, "image/webp"},

	".mp3":  {KindAudio, "audio/mpeg"},
	".ogg":  {KindAudio, "audio/ogg"},
	".wav":  {KindAudio, "audio/wav"},
	".flac": {KindAudio, "audio/flac"},
	".m4a":  {KindAudio, "audio/mp4"},

	".txt":  {KindText, "text/plain"},
	".md":   {KindText, "text/markdown"},
	".json": {KindText, "application/json"},
	".yaml": {KindText, "application/yaml"},
	".yml":  {KindText, "application/yaml"},
	".py":   {KindText, "text/x-python"},
	".log":  {KindText, "text/plain"},
}

// Classify buckets a path by extension, case-insensitively. Unknown
// extensions get no content type and are never rendered inline.
func Classify(path string) FileType {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := fileTypes[ext]; ok {
		return t
	}
	return FileType{Kind: KindUnknown}
}
