package constants

import "strings"

// AllowedExtensions holds the image extensions accepted for scanning.
// Anything else is rejected before preprocessing.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether the extension belongs to a supported image type.
func IsImageExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
