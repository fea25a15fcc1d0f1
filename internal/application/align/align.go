// Package align locates each Block on the rendered PDF's pages (§4.2),
// producing at most one PageAnchor per block. The algorithm
// mirrors the original worker's sliding-window coarse filter followed by
// per-page fine localization: a cheap substring scan over whole-page text
// narrows the candidate pages before the more expensive fragment search
// runs only on those pages.
package align

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// windows is the coarse-filter search radius ladder: try a small window
// around the cursor first, widen only if nothing matches.
var windows = []int{3, 8, 20}

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormText turns full-width spaces into ASCII spaces, removes the BOM,
// collapses runs of whitespace to single ASCII spaces and trims, the
// same normalization applied to both
// page text and search fragments so they compare on equal footing.
func NormText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "　", " ")
	s = strings.ReplaceAll(s, "﻿", "")
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Candidates returns search fragments derived from text, longest first,
// deduplicated. A block shorter than 8 normalized characters yields no
// candidates: it's too short to locate reliably.
func Candidates(text string) []string {
	t := NormText(text)
	if len(runes(t)) < 8 {
		return nil
	}
	lengths := []int{40, 30, 20}
	seen := make(map[string]bool)
	var out []string
	for _, n := range lengths {
		r := runes(t)
		if len(r) >= n {
			cand := string(r[:n])
			if !seen[cand] {
				seen[cand] = true
				out = append(out, cand)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, t)
	}
	return out
}

func runes(s string) []rune { return []rune(s) }

// Snippet is the piece of text used to locate a block: block prose, or a
// table's number/title for TABLE blocks (table cell contents are never
// searched directly — they rarely appear verbatim on a rendered page).
func Snippet(blockType, text string, table *models.Table) string {
	if blockType == models.BlockTypeTable && table != nil {
		no := strings.TrimSpace(table.TableNo)
		title := strings.TrimSpace(table.Title)
		switch {
		case no != "" && title != "":
			return NormText(no + " " + title)
		case no != "":
			return NormText(no)
		case title != "":
			return NormText(title)
		}
	}
	return NormText(text)
}

// PageText is a single rendered page's full extracted text plus its
// positioned fragments, needed for fine localization after a page is
// shortlisted by the coarse filter.
type PageText struct {
	PageNo     int
	Normalized string     // NormText(full page text), for the coarse filter
	Width      float64
	Height     float64
	Fragments  []Fragment // positioned text runs, for fine localization
}

// Fragment is one positioned run of text on a page, as extracted from the
// PDF content stream.
type Fragment struct {
	Text string
	X0, Y0, X1, Y1 float64
}

// BlockInput is one block to locate, paired with any table metadata
// needed to build its search snippet.
type BlockInput struct {
	BlockID   uuid.UUID
	BlockType string
	Text      string
	Table     *models.Table
}

// Anchor is a located block: the page it was found on, its rect in PDF
// points and normalized 0..1 page coordinates, and a confidence score.
type Anchor struct {
	BlockID    uuid.UUID
	PageNo     int
	RectPoints models.Rect
	RectNorm   models.Rect
	Confidence float64
}

// Aligner runs the block-to-page algorithm over an already-extracted set
// of page texts, advancing a "last found page" cursor so sequential
// blocks (which appear in document order) narrow the search window
// instead of re-scanning the whole PDF each time.
type Aligner struct {
	pages []PageText
}

func NewAligner(pages []PageText) *Aligner {
	return &Aligner{pages: pages}
}

// Locate runs alignment for every input block in order, returning one
// Anchor per block that was found (blocks with no match are omitted —
// callers persist page_no = NULL for those, per §3's nullable PageAnchor).
func (a *Aligner) Locate(blocks []BlockInput) []Anchor {
	anchors := make([]Anchor, 0, len(blocks))
	lastPage := 1
	lastYByPage := make(map[int]float64)

	for _, b := range blocks {
		snippet := Snippet(b.BlockType, b.Text, b.Table)
		cands := Candidates(snippet)
		if len(cands) == 0 {
			continue
		}

		probe := cands[len(cands)-1] // shortest, most likely to appear
		candidatePages := a.coarseCandidates(probe, lastPage)

		anchor, ok := a.fineLocate(b.BlockID, cands, candidatePages, lastYByPage)
		if !ok {
			continue
		}
		lastPage = anchor.PageNo
		lastYByPage[anchor.PageNo] = anchor.RectPoints.Y0
		anchors = append(anchors, anchor)
	}
	return anchors
}

// coarseCandidates finds pages whose normalized text contains probe,
// searching an expanding window around lastPage before falling back to
// a full scan.
func (a *Aligner) coarseCandidates(probe string, lastPage int) []int {
	numPages := len(a.pages)
	for _, w := range windows {
		start := lastPage - 1
		if start < 1 {
			start = 1
		}
		end := start + w - 1
		if end > numPages {
			end = numPages
		}
		var pages []int
		for p := start; p <= end; p++ {
			if strings.Contains(a.pages[p-1].Normalized, probe) {
				pages = append(pages, p)
			}
		}
		if len(pages) > 0 {
			return pages
		}
	}
	var pages []int
	for p := 1; p <= numPages; p++ {
		if strings.Contains(a.pages[p-1].Normalized, probe) {
			pages = append(pages, p)
		}
	}
	return pages
}

// fineLocate searches candidatePages with progressively shorter
// fragments (longest first, for specificity) and picks, among the
// matches on the winning page, the first fragment whose top edge does
// not regress above the previous match on that page (2pt tolerance) —
// the positional analog of "blocks appear in reading order".
func (a *Aligner) fineLocate(blockID uuid.UUID, cands []string, candidatePages []int, lastYByPage map[int]float64) (Anchor, bool) {
	for _, p := range candidatePages {
		page := a.pages[p-1]
		var matches []Fragment
		var used string
		for _, cand := range cands {
			matches = matches[:0]
			for _, f := range page.Fragments {
				if strings.Contains(NormText(f.Text), cand) {
					matches = append(matches, f)
				}
			}
			if len(matches) > 0 {
				used = cand
				break
			}
		}
		if len(matches) == 0 {
			continue
		}

		sortFragments(matches)
		prevY, hasPrev := lastYByPage[p]
		pick := matches[0]
		if hasPrev {
			for _, m := range matches {
				if m.Y0 >= prevY-2 {
					pick = m
					break
				}
			}
		}

		confidence := 0.5
		if used != "" {
			confidence = float64(len([]rune(used))) / 40.0
			if confidence > 1.0 {
				confidence = 1.0
			}
		}

		rectPoints := models.Rect{X0: pick.X0, Y0: pick.Y0, X1: pick.X1, Y1: pick.Y1}
		rectNorm := models.Rect{}
		if page.Width > 0 && page.Height > 0 {
			rectNorm = models.Rect{
				X0: pick.X0 / page.Width,
				Y0: pick.Y0 / page.Height,
				X1: pick.X1 / page.Width,
				Y1: pick.Y1 / page.Height,
			}
		}

		return Anchor{
			BlockID:    blockID,
			PageNo:     p,
			RectPoints: rectPoints,
			RectNorm:   rectNorm,
			Confidence: confidence,
		}, true
	}
	return Anchor{}, false
}

func sortFragments(f []Fragment) {
	for i := 1; i < len(f); i++ {
		for j := i; j > 0 && less(f[j], f[j-1]); j-- {
			f[j], f[j-1] = f[j-1], f[j]
		}
	}
}

func less(a, b Fragment) bool {
	if a.Y0 != b.Y0 {
		return a.Y0 < b.Y0
	}
	return a.X0 < b.X0
}
