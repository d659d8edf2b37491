package model

import "time"

// EntitySet holds the structured values recognized in a document's text.
// Each slice preserves first-seen order and contains no duplicates after
// normalization. Slices are never nil so the wire format always carries
// arrays.
type EntitySet struct {
	Emails  []string `json:"emails"`
	Phones  []string `json:"phones"`
	Dates   []string `json:"dates"`
	Amounts []string `json:"amounts"`
	URLs    []string `json:"urls"`
}

// Total returns the number of entities across all kinds.
func (e EntitySet) Total() int {
	return len(e.Emails) + len(e.Phones) + len(e.Dates) + len(e.Amounts) + len(e.URLs)
}

// Record is the persisted result of one successful processing run. It is
// created atomically by the store, immutable thereafter, and addressable by
// its unique id until deleted.
type Record struct {
	ID               string         `json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	OriginalFilename string         `json:"original_filename"`
	FileType         FileType       `json:"file_type"`
	Result           DocumentResult `json:"result"`
	Entities         EntitySet      `json:"entities"`
}

// RecordSummary is the listing view of a Record, without the full text and
// entity payload.
type RecordSummary struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	OriginalFilename string    `json:"original_filename"`
	FileType         FileType  `json:"file_type"`
	Confidence       float64   `json:"confidence"`
	PageCount        int       `json:"page_count"`
	WordCount        int       `json:"word_count"`
	EntityCount      int       `json:"entity_count"`
}

// Summary derives the listing view from a full Record.
func (r *Record) Summary() RecordSummary {
	return RecordSummary{
		ID:               r.ID,
		CreatedAt:        r.CreatedAt,
		OriginalFilename: r.OriginalFilename,
		FileType:         r.FileType,
		Confidence:       r.Result.Confidence,
		PageCount:        r.Result.PageCount,
		WordCount:        r.Result.WordCount,
		EntityCount:      r.Entities.Total(),
	}
}
