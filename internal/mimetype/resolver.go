// Package mimetype resolves a file extension to an IANA media type using a
// fixed, compiled-in table (§4.2, §6's "MIME-type table collaborator").
package mimetype

import "strings"

// table maps a lowercased extension, leading dot included, to its media
// type. It covers the standard document, image, audio, video, font,
// archive, certificate, and source-code extensions named in §6.
var table = map[string]string{
	// Documents
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".rtf":  "application/rtf",
	".odt":  "application/vnd.oasis.opendocument.text",
	".html": "text/html",
	".htm":  "text/html",
	".xml":  "application/xml",
	".json": "application/json",
	".md":   "text/markdown",

	// Images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",

	// Audio
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",

	// Video
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",

	// Fonts
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",

	// Archives
	".zip": "application/zip",
	".tar": "application/x-tar",
	".gz":  "application/gzip",
	".rar": "application/vnd.rar",
	".7z":  "application/x-7z-compressed",

	// Certificates
	".pem": "application/x-pem-file",
	".crt": "application/x-x509-ca-cert",
	".cer": "application/x-x509-ca-cert",
	".der": "application/x-x509-ca-cert",
	".p12": "application/x-pkcs12",

	// Source code
	".go":   "text/x-go",
	".py":   "text/x-python",
	".js":   "text/javascript",
	".ts":   "application/typescript",
	".c":    "text/x-csrc",
	".h":    "text/x-chdr",
	".java": "text/x-java-source",
	".sh":   "application/x-sh",
	".yaml": "application/x-yaml",
	".yml":  "application/x-yaml",
}

// defaultType is returned for any extension not found in the table.
const defaultType = "application/octet-stream"

// Resolve returns the media type for ext (the lowercased extension,
// leading dot included). Lookup is case-insensitive; on a miss it returns
// "application/octet-stream".
func Resolve(ext string) string {
	if t, ok := table[strings.ToLower(ext)]; ok {
		return t
	}
	return defaultType
}
