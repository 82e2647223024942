package services

import (
	"bytes"
	"image/png"
	"regexp"
	"strings"
	"testing"
	"time"

	"go-qrscan-webapp/internal/decoder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampQRSize(t *testing.T) {
	assert.Equal(t, DefaultQRSize, ClampQRSize(0))
	assert.Equal(t, MinQRSize, ClampQRSize(10))
	assert.Equal(t, MaxQRSize, ClampQRSize(5000))
	assert.Equal(t, 300, ClampQRSize(300))
}

func TestBarcodeService_GenerateQRCode_Decodes(t *testing.T) {
	data, err := NewBarcodeService().GenerateQRCode("https://example.com/q", 300)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	res, err := decoder.NewZXingDecoder(decoder.PriorityAuto).DecodeImage(img)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/q", res.Text)
}

func TestBarcodeService_GenerateBarcode_Size(t *testing.T) {
	data, err := NewBarcodeService().GenerateBarcode("SCAN-0042")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, barcodeWidth, img.Bounds().Dx())
	assert.Equal(t, barcodeHeight, img.Bounds().Dy())
}

func TestBarcodeService_LongBarcodeKeepsNativeWidth(t *testing.T) {
	data, err := NewBarcodeService().GenerateBarcode(strings.Repeat("ABCDEFGHIJ", 6))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, img.Bounds().Dx(), barcodeWidth)
}

func TestBarcodeService_RejectsEmptyPayload(t *testing.T) {
	s := NewBarcodeService()

	_, err := s.GenerateQRCode("  ", 0)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = s.GenerateBarcode("")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

var pageObject = regexp.MustCompile(`/Type\s*/Page\b`)

func TestSheetService_GenerateTestSheetPDF(t *testing.T) {
	s := NewSheetService(NewBarcodeService())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	payloads := []string{
		"https://example.com",
		"example.org",
		"Hello World",
		"4006381333931",
		"www.example.net/path",
		"WIFI:S:lab;T:WPA;P:secret;;",
		"second page",
	}

	pdf, err := s.GenerateTestSheetPDF(payloads, SheetOptions{IncludeBarcodes: true, BareHostnameMatch: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Len(t, pageObject.FindAll(pdf, -1), 2)
}

func TestSheetService_Validation(t *testing.T) {
	s := NewSheetService(NewBarcodeService())

	_, err := s.GenerateTestSheetPDF(nil, SheetOptions{})
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = s.GenerateTestSheetPDF([]string{"ok", " "}, SheetOptions{})
	assert.ErrorIs(t, err, ErrEmptyPayload)

	many := make([]string, MaxSheetPayloads+1)
	for i := range many {
		many[i] = "x"
	}
	_, err = s.GenerateTestSheetPDF(many, SheetOptions{})
	assert.ErrorIs(t, err, ErrTooManyPayloads)
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "a b", caption("a\n b"))
	long := caption(strings.Repeat("x", 100))
	assert.Len(t, long, sheetCaption)
	assert.True(t, strings.HasSuffix(long, "..."))
}
