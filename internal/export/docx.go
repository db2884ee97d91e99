package export

import (
	"bytes"
	"fmt"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"
)

// A4 portrait with one-inch margins, in twentieths of a point.
const (
	pageWidth   = 11906
	pageHeight  = 16838
	pageMargin  = 1440
	marginExtra = 708
)

// packDocx lays the paragraphs out in a new document built from the library's
// default template and returns the encoded package.
func packDocx(paragraphs []docParagraph) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("new document: %w", err)
	}
	setA4(doc)

	for _, p := range paragraphs {
		if p.PageBreak {
			doc.AddPageBreak()
			continue
		}
		addParagraph(doc, p)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("write package: %w", err)
	}
	return buf.Bytes(), nil
}

func addParagraph(doc *docx.RootDoc, p docParagraph) {
	para := doc.AddEmptyParagraph()
	if p.Style != "" {
		para.Style(p.Style)
	}
	if p.Center {
		para.Justification(stypes.JustificationCenter)
	}
	if p.Indent > 0 {
		ct := para.GetCT()
		if ct.Property == nil {
			ct.Property = ctypes.DefaultParaProperty()
		}
		left := p.Indent
		ct.Property.Indent = &ctypes.Indent{Left: &left}
	}
	for _, r := range p.Runs {
		run := para.AddText(r.Text)
		if r.Bold {
			run.Bold(true)
		}
		if r.Italic {
			run.Italic(true)
		}
	}
}

func setA4(doc *docx.RootDoc) {
	body := doc.Document.Body
	if body.SectPr == nil {
		body.SectPr = ctypes.NewSectionProper()
	}
	w, h := uint64(pageWidth), uint64(pageHeight)
	m, extra, gutter := pageMargin, marginExtra, 0
	body.SectPr.PageSize = &ctypes.PageSize{Width: &w, Height: &h}
	body.SectPr.PageMargin = &ctypes.PageMargin{
		Top: &m, Right: &m, Bottom: &m, Left: &m,
		Header: &extra, Footer: &extra, Gutter: &gutter,
	}
}
