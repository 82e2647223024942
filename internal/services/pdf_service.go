package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-qrscan-webapp/internal/scan"

	"github.com/jung-kurt/gofpdf"
)

const (
	MaxSheetPayloads = 60

	sheetColumns  = 2
	sheetRows     = 3
	sheetMargin   = 20.0
	sheetQRSize   = 60.0
	sheetCellH    = 82.0
	sheetCaption  = 48
	sheetBarcodeH = 12.0
)

var ErrTooManyPayloads = fmt.Errorf("a sheet holds at most %d payloads", MaxSheetPayloads)

// SheetOptions controls the printable test sheet.
type SheetOptions struct {
	Title string
	// IncludeBarcodes adds a Code128 strip under every payload that
	// Code128 can carry.
	IncludeBarcodes bool
	// BareHostnameMatch decides how payloads are labelled.
	BareHostnameMatch bool
}

// SheetService renders printable PDF sheets of codes to point a camera at.
type SheetService struct {
	codes *BarcodeService
	now   func() time.Time
}

func NewSheetService(codes *BarcodeService) *SheetService {
	return &SheetService{codes: codes, now: time.Now}
}

// GenerateTestSheetPDF lays out one QR code per payload, six per A4 page,
// each captioned with the payload and whether the scanner treats it as a URL.
func (s *SheetService) GenerateTestSheetPDF(payloads []string, opts SheetOptions) ([]byte, error) {
	if len(payloads) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payloads) > MaxSheetPayloads {
		return nil, ErrTooManyPayloads
	}
	for i, p := range payloads {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("payload %d: %w", i+1, ErrEmptyPayload)
		}
	}

	title := opts.Title
	if title == "" {
		title = "QR Scanner Test Sheet"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(sheetMargin, sheetMargin, sheetMargin)
	pdf.SetAutoPageBreak(false, sheetMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("qrscan", true)

	pageW, _ := pdf.GetPageSize()
	colW := (pageW - 2*sheetMargin) / sheetColumns
	perPage := sheetColumns * sheetRows

	for i, payload := range payloads {
		slot := i % perPage
		if slot == 0 {
			s.addPage(pdf, title)
		}

		x := sheetMargin + float64(slot%sheetColumns)*colW
		y := 40 + float64(slot/sheetColumns)*sheetCellH

		if err := s.drawCell(pdf, i, payload, x, y, colW, opts); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		return nil, errors.New("rendered sheet is not a PDF")
	}
	return buf.Bytes(), nil
}

func (s *SheetService) addPage(pdf *gofpdf.Fpdf, title string) {
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(37, 99, 235)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Generated "+s.now().Format("02.01.2006 15:04"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func (s *SheetService) drawCell(pdf *gofpdf.Fpdf, index int, payload string, x, y, w float64, opts SheetOptions) error {
	png, err := s.codes.GenerateQRCode(payload, 512)
	if err != nil {
		return fmt.Errorf("payload %d: %w", index+1, err)
	}

	name := fmt.Sprintf("qr-%d", index)
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	pdf.ImageOptions(name, x+(w-sheetQRSize)/2, y, sheetQRSize, sheetQRSize, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	label := "Text"
	if scan.LooksLikeURL(payload, opts.BareHostnameMatch) {
		label = "URL: " + scan.NormalizeURL(payload)
	}

	pdf.SetXY(x, y+sheetQRSize+1)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(w, 5, caption(payload), "", 2, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(w, 4, caption(label), "", 2, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	if opts.IncludeBarcodes && isCode128Text(payload) {
		strip, err := s.codes.GenerateBarcode(payload)
		if err == nil {
			bname := fmt.Sprintf("bc-%d", index)
			pdf.RegisterImageOptionsReader(bname, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(strip))
			pdf.ImageOptions(bname, x+10, pdf.GetY()+1, w-20, sheetBarcodeH, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
	}

	if pdf.Err() {
		return fmt.Errorf("payload %d: %w", index+1, pdf.Error())
	}
	return nil
}

func caption(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > sheetCaption {
		return text[:sheetCaption-3] + "..."
	}
	return text
}

// isCode128Text reports whether text is short printable ASCII.
func isCode128Text(text string) bool {
	if len(text) > 40 {
		return false
	}
	for _, r := range text {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}
