package services

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024

	barcodeWidth  = 400
	barcodeHeight = 120
)

var ErrEmptyPayload = errors.New("payload is empty")

// BarcodeService renders the codes the scanner is expected to read.
type BarcodeService struct{}

func NewBarcodeService() *BarcodeService {
	return &BarcodeService{}
}

// ClampQRSize maps a requested edge length into the supported range. Zero
// selects the default.
func ClampQRSize(size int) int {
	switch {
	case size == 0:
		return DefaultQRSize
	case size < MinQRSize:
		return MinQRSize
	case size > MaxQRSize:
		return MaxQRSize
	}
	return size
}

// GenerateQRCode returns a PNG QR code of size x size pixels.
func (s *BarcodeService) GenerateQRCode(data string, size int) ([]byte, error) {
	if strings.TrimSpace(data) == "" {
		return nil, ErrEmptyPayload
	}

	pngBytes, err := qrcode.Encode(data, qrcode.Medium, ClampQRSize(size))
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	return pngBytes, nil
}

// GenerateBarcode returns a PNG Code128 barcode.
func (s *BarcodeService) GenerateBarcode(data string) ([]byte, error) {
	if strings.TrimSpace(data) == "" {
		return nil, ErrEmptyPayload
	}

	bc, err := code128.Encode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode barcode: %w", err)
	}

	width := barcodeWidth
	if w := bc.Bounds().Dx(); w > width {
		width = w
	}

	scaledBC, err := barcode.Scale(bc, width, barcodeHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to scale barcode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaledBC); err != nil {
		return nil, fmt.Errorf("failed to encode barcode as PNG: %w", err)
	}

	return buf.Bytes(), nil
}
