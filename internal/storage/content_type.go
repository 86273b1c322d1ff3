package storage

import (
	"net/http"
	"strings"
)

// AllowedImageTypes are the upload formats accepted for avatars.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// SniffImageType detects the MIME type from the first bytes of an upload.
// The client-supplied Content-Type header is never trusted.
func SniffImageType(head []byte) (contentType string, ok bool) {
	contentType = http.DetectContentType(head)
	base := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return base, AllowedImageTypes[base]
}
