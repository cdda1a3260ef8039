// Package media finds video files under dropped paths.
package media

import (
	"mime"
	"path/filepath"
	"strings"
)

// videoTypes covers the containers users actually drop. System mime tables
// are sparse for video (many lack .mkv and map .ts to a translation format),
// so these win over mime.TypeByExtension.
var videoTypes = map[string]string{
	".3gp":  "video/3gpp",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".m2ts": "video/mp2t",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ogv":  "video/ogg",
	".ts":   "video/mp2t",
	".webm": "video/webm",
	".wmv":  "video/x-ms-wmv",
}

// ContentType returns a best-guess MIME type from the path's extension,
// or "" when there is no guess.
func ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// IsVideo reports whether the sniffed content type is video/*.
func IsVideo(path string) bool {
	return strings.HasPrefix(ContentType(path), "video/")
}
