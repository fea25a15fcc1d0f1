package align

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractPageTexts renders every page of a PDF (already-converted
// rendition of a Version, produced by the convert stage) into the
// PageText shape Aligner consumes: whole-page normalized text for the
// coarse filter, plus positioned text fragments for fine localization.
func ExtractPageTexts(r io.ReaderAt, size int64) ([]PageText, error) {
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := doc.NumPage()
	pages := make([]PageText, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			pages = append(pages, PageText{PageNo: i})
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			pages = append(pages, PageText{PageNo: i})
			continue
		}

		var sb []byte
		var fragments []Fragment
		for _, row := range rows {
			var line string
			for _, word := range row.Content {
				line += word.S
				fragments = append(fragments, Fragment{
					Text: word.S,
					X0:   word.X,
					Y0:   word.Y,
					X1:   word.X + word.W,
					Y1:   word.Y + word.Font.Size(),
				})
			}
			sb = append(sb, []byte(line+"\n")...)
		}

		dims := page.V.Key("MediaBox")
		width, height := mediaBoxDims(dims)

		pages = append(pages, PageText{
			PageNo:     i,
			Normalized: NormText(string(sb)),
			Width:      width,
			Height:     height,
			Fragments:  fragments,
		})
	}
	return pages, nil
}

func mediaBoxDims(v pdf.Value) (float64, float64) {
	if v.Len() != 4 {
		return 612, 792 // US Letter default
	}
	x0 := v.Index(0).Float64()
	y0 := v.Index(1).Float64()
	x1 := v.Index(2).Float64()
	y1 := v.Index(3).Float64()
	return x1 - x0, y1 - y0
}
