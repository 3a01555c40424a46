package llm

import (
	"encoding/base64"
	"mime"
	"path/filepath"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/common"
)

// EncodeImageDataURL wraps raw image bytes as a data: URL for the vision
// call. The extension gates the whole pipeline: anything that is not a known
// image type fails with ErrNotImage before any remote work happens.
func EncodeImageDataURL(data []byte, filename string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if !constants.IsImageExt(ext) {
		return "", common.ErrNotImage
	}
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		default:
			mt = "image/" + ext
		}
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
