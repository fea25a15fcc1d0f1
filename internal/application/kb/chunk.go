// Package kb builds the overlapping chunks the AI Rule Driver's
// retrieval step reads back out of KBRepository.SearchChunks (§4.9), and
// drives re-chunking a KBSource (document or web page) when it is first
// indexed or swept for reindex. Split can tag each chunk with a page
// range from page breaks, but IndexSource passes none, so indexed chunks
// carry no page range.
package kb

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/swsreview/engine/internal/application/align"
)

// ChunkSize and ChunkOverlap are the page-boundary-tagged chunking
// parameters: 800 characters per chunk, 100 characters of overlap
// between consecutive chunks, matching the original indexer.
const (
	ChunkSize    = 800
	ChunkOverlap = 100
)

// PageBreak marks where one source page's text ends and the next one's
// begins within a flattened text buffer, so chunking can tag each chunk
// with the page range it spans.
type PageBreak struct {
	PageNo int
	Offset int // rune offset into the flattened text where this page starts
}

// Chunk is one overlapping slice of a source's flattened text, still
// detached from a KBSource id — the caller assigns SourceID and upserts
// via KBRepository.ReplaceChunks.
type Chunk struct {
	Index       int
	Text        string
	ContentHash string
	CharStart   int
	CharEnd     int
	PageStart   *int
	PageEnd     *int
}

// Split slices text into overlapping ChunkSize-rune windows advancing by
// (ChunkSize - ChunkOverlap) runes at a time, tagging each chunk with the
// page range its [CharStart, CharEnd) span falls within according to
// breaks (sorted ascending by Offset; may be empty for sourceless text).
func Split(text string, breaks []PageBreak) []Chunk {
	runes := []rune(align.NormText(text))
	if len(runes) == 0 {
		return nil
	}

	step := ChunkSize - ChunkOverlap
	if step <= 0 {
		step = ChunkSize
	}

	var chunks []Chunk
	idx := 0
	for start := 0; start < len(runes); start += step {
		end := start + ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		slice := string(runes[start:end])
		sum := sha256.Sum256([]byte(slice))
		pageStart, pageEnd := pageRange(breaks, start, end)
		chunks = append(chunks, Chunk{
			Index:       idx,
			Text:        slice,
			ContentHash: hex.EncodeToString(sum[:]),
			CharStart:   start,
			CharEnd:     end,
			PageStart:   pageStart,
			PageEnd:     pageEnd,
		})
		idx++
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func pageRange(breaks []PageBreak, start, end int) (*int, *int) {
	if len(breaks) == 0 {
		return nil, nil
	}
	var first, last *int
	for _, b := range breaks {
		if b.Offset > end {
			break
		}
		if b.Offset < start && first != nil {
			continue
		}
		page := b.PageNo
		if first == nil {
			first = &page
		}
		last = &page
	}
	if first == nil {
		first = &breaks[0].PageNo
		last = first
	}
	return first, last
}
