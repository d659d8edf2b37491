package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileTypeFromFilename(t *testing.T) {
	tests := []struct {
		name   string
		want   FileType
		wantOK bool
	}{
		{"scan.png", FileTypePNG, true},
		{"photo.jpg", FileTypeJPEG, true},
		{"photo.jpeg", FileTypeJPEG, true},
		{"PHOTO.JPG", FileTypeJPEG, true},
		{"doc.pdf", FileTypePDF, true},
		{"fax.tif", FileTypeTIFF, true},
		{"fax.tiff", FileTypeTIFF, true},
		{"bitmap.bmp", FileTypeBMP, true},
		{"archive.tar.pdf", FileTypePDF, true},
		{"noext", "", false},
		{"trailing.", "", false},
		{"tool.exe", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FileTypeFromFilename(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsImage(t *testing.T) {
	for _, ft := range []FileType{FileTypePNG, FileTypeJPEG, FileTypeTIFF, FileTypeBMP} {
		assert.True(t, ft.IsImage(), "%s", ft)
	}
	assert.False(t, FileTypePDF.IsImage())
	assert.False(t, FileType("docx").IsImage())
}

func TestEntitySetTotal(t *testing.T) {
	assert.Equal(t, 0, EntitySet{}.Total())

	set := EntitySet{
		Emails:  []string{"a@b.com"},
		Phones:  []string{"123-456-7890", "+1 222 333 4444"},
		Dates:   []string{"2025-01-15"},
		Amounts: []string{"$5.00"},
		URLs:    []string{"https://example.com"},
	}
	assert.Equal(t, 6, set.Total())
}

func TestRecordSummary(t *testing.T) {
	now := time.Now().UTC()
	rec := Record{
		ID:               "rec-1",
		CreatedAt:        now,
		OriginalFilename: "invoice.pdf",
		FileType:         FileTypePDF,
		Result: DocumentResult{
			Text:       "long text elided from summaries",
			Confidence: 87.5,
			WordCount:  5,
			CharCount:  31,
			PageCount:  3,
		},
		Entities: EntitySet{Emails: []string{"a@b.com"}, Dates: []string{"2025-01-15"}},
	}

	sum := rec.Summary()
	assert.Equal(t, "rec-1", sum.ID)
	assert.Equal(t, now, sum.CreatedAt)
	assert.Equal(t, "invoice.pdf", sum.OriginalFilename)
	assert.Equal(t, FileTypePDF, sum.FileType)
	assert.Equal(t, 87.5, sum.Confidence)
	assert.Equal(t, 3, sum.PageCount)
	assert.Equal(t, 5, sum.WordCount)
	assert.Equal(t, 2, sum.EntityCount)
}
