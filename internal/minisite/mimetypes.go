package minisite

import (
	"path"
	"strings"
)

// mimeTypes is the fixed extension table used to record a file's media type.
// It covers the default allow-list plus common web formats an administrator
// may add. The host's mime.types is not consulted, so the same bundle is
// recorded the same way everywhere.
var mimeTypes = map[string]string{
	"css":   "text/css",
	"csv":   "text/csv",
	"doc":   "application/msword",
	"docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"eot":   "application/vnd.ms-fontobject",
	"gif":   "image/gif",
	"htm":   "text/html",
	"html":  "text/html",
	"ico":   "image/vnd.microsoft.icon",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"js":    "text/javascript",
	"json":  "application/json",
	"mjs":   "text/javascript",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"otf":   "font/otf",
	"pdf":   "application/pdf",
	"png":   "image/png",
	"ppt":   "application/vnd.ms-powerpoint",
	"pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"svg":   "image/svg+xml",
	"tif":   "image/tiff",
	"tiff":  "image/tiff",
	"ttf":   "font/ttf",
	"txt":   "text/plain",
	"webm":  "video/webm",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xls":   "application/vnd.ms-excel",
	"xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xml":   "application/xml",
}

const defaultMimeType = "application/octet-stream"

// mimeType returns the media type for name's extension, matched
// case-insensitively, or application/octet-stream.
func mimeType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return defaultMimeType
}
