package model

import (
	"path/filepath"
	"strings"
)

// FileType identifies a supported input document format.
type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypePDF  FileType = "pdf"
	FileTypeTIFF FileType = "tiff"
	FileTypeBMP  FileType = "bmp"
)

// AllFileTypes returns all supported file types.
func AllFileTypes() []FileType {
	return []FileType{FileTypePNG, FileTypeJPEG, FileTypePDF, FileTypeTIFF, FileTypeBMP}
}

// IsImage reports whether the file type is a single-page raster format.
func (t FileType) IsImage() bool {
	return t == FileTypePNG || t == FileTypeJPEG || t == FileTypeTIFF || t == FileTypeBMP
}

// FileTypeFromFilename derives a FileType from a filename extension.
// Returns false for unrecognized extensions.
func FileTypeFromFilename(name string) (FileType, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "png":
		return FileTypePNG, true
	case "jpg", "jpeg":
		return FileTypeJPEG, true
	case "pdf":
		return FileTypePDF, true
	case "tif", "tiff":
		return FileTypeTIFF, true
	case "bmp":
		return FileTypeBMP, true
	default:
		return "", false
	}
}

// Page is one raster page of an input document, in document order.
// Pages are transient: produced by normalization, consumed by recognition,
// never persisted.
type Page struct {
	Index int
	Image []byte
}

// PageResult holds recognized text and engine confidence for a single page.
// Confidence is the engine-reported score clamped to [0,100]; a blank page
// carries empty text and confidence 0.
type PageResult struct {
	PageIndex  int     `json:"page_index"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// DocumentResult is the document-level OCR outcome: page texts joined in page
// order with single newline delimiters, and the mean page confidence rounded
// to one decimal place.
type DocumentResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
	CharCount  int     `json:"char_count"`
	PageCount  int     `json:"page_count"`
}
