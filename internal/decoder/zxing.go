package decoder

import (
	"image"
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXingDecoder decodes QR codes and 1D barcodes from still frames with
// gozxing. Safe for concurrent use.
type ZXingDecoder struct {
	mu       sync.Mutex
	oneD     []gozxing.Reader
	twoD     []gozxing.Reader
	priority ScanPriority
}

// NewZXingDecoder creates a decoder trying readers in the given priority.
func NewZXingDecoder(priority ScanPriority) *ZXingDecoder {
	return &ZXingDecoder{
		oneD: []gozxing.Reader{
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			oned.NewEAN13Reader(),
			oned.NewEAN8Reader(),
			oned.NewUPCAReader(),
			oned.NewUPCEReader(),
			oned.NewITFReader(),
		},
		twoD: []gozxing.Reader{
			qrcode.NewQRCodeReader(),
			// Note: DataMatrix and PDF417 not available in gozxing v0.1.1
		},
		priority: priority,
	}
}

// DecodePixels decodes a tightly packed RGBA pixel buffer.
func (d *ZXingDecoder) DecodePixels(pixels []byte, width, height int) (*DecodeResult, error) {
	img, err := RGBAFromPixels(pixels, width, height)
	if err != nil {
		return nil, err
	}
	return d.DecodeImage(img)
}

// DecodeImage decodes the first code found in img.
func (d *ZXingDecoder) DecodeImage(img image.Image) (*DecodeResult, error) {
	return d.decode(img, nil, d.priority, nil)
}

// decode performs the actual barcode decoding
func (d *ZXingDecoder) decode(img image.Image, roi *ROI, priority ScanPriority, formats []string) (*DecodeResult, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrInvalidImage
	}

	var err error
	if roi != nil {
		img, err = extractROI(img, roi)
		if err != nil {
			return nil, err
		}
	} else if priority == Priority1D {
		// 1D codes sit in the middle of the frame when aimed at
		b := img.Bounds()
		if cropped, cropErr := extractROI(img, createCenterROI(b.Dx(), b.Dy(), 0.7)); cropErr == nil {
			img = cropped
		}
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(toGray(img))
	if err != nil {
		return nil, err
	}

	hints := decodeHints(priority, formats)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, reader := range d.readersForPriority(priority) {
		result, decodeErr := reader.Decode(bmp, hints)
		if decodeErr != nil || result == nil {
			continue
		}
		return &DecodeResult{
			Text:         result.GetText(),
			Format:       mapGozxingFormat(result.GetBarcodeFormat()),
			CornerPoints: extractCornerPoints(result),
			Confidence:   1.0, // gozxing doesn't provide confidence scores
			Timestamp:    time.Now().UnixMilli(),
		}, nil
	}

	return nil, ErrNoCodeFound
}

// readersForPriority returns readers based on scan priority
func (d *ZXingDecoder) readersForPriority(priority ScanPriority) []gozxing.Reader {
	switch priority {
	case Priority1D:
		return d.oneD
	case Priority2D:
		return d.twoD
	default:
		readers := make([]gozxing.Reader, 0, len(d.twoD)+len(d.oneD))
		readers = append(readers, d.twoD...)
		return append(readers, d.oneD...)
	}
}

var (
	oneDFormats = []gozxing.BarcodeFormat{
		gozxing.BarcodeFormat_CODE_128,
		gozxing.BarcodeFormat_CODE_39,
		gozxing.BarcodeFormat_EAN_13,
		gozxing.BarcodeFormat_EAN_8,
		gozxing.BarcodeFormat_UPC_A,
		gozxing.BarcodeFormat_UPC_E,
		gozxing.BarcodeFormat_ITF,
	}
	twoDFormats = []gozxing.BarcodeFormat{
		gozxing.BarcodeFormat_QR_CODE,
	}
)

// decodeHints returns decode hints for the priority, narrowed to the
// requested formats when any are given
func decodeHints(priority ScanPriority, formats []string) map[gozxing.DecodeHintType]interface{} {
	hints := make(map[gozxing.DecodeHintType]interface{})

	var possibleFormats []gozxing.BarcodeFormat
	if len(formats) > 0 {
		for _, format := range formats {
			if gzFormat, ok := mapStringToGozxingFormat(format); ok {
				possibleFormats = append(possibleFormats, gzFormat)
			}
		}
	} else {
		switch priority {
		case Priority1D:
			possibleFormats = oneDFormats
		case Priority2D:
			possibleFormats = twoDFormats
		default:
			possibleFormats = append(append([]gozxing.BarcodeFormat{}, twoDFormats...), oneDFormats...)
		}
	}

	if len(possibleFormats) > 0 {
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = possibleFormats
	}
	hints[gozxing.DecodeHintType_TRY_HARDER] = true

	return hints
}

// extractCornerPoints extracts corner points from decode result
func extractCornerPoints(result *gozxing.Result) []Point {
	resultPoints := result.GetResultPoints()
	corners := make([]Point, 0, len(resultPoints))
	for _, p := range resultPoints {
		if p == nil {
			continue
		}
		corners = append(corners, Point{X: float64(p.GetX()), Y: float64(p.GetY())})
	}
	return corners
}

// mapGozxingFormat maps gozxing format to string
func mapGozxingFormat(format gozxing.BarcodeFormat) string {
	switch format {
	case gozxing.BarcodeFormat_CODE_128:
		return CODE128.String()
	case gozxing.BarcodeFormat_CODE_39:
		return CODE39.String()
	case gozxing.BarcodeFormat_EAN_13:
		return EAN13.String()
	case gozxing.BarcodeFormat_EAN_8:
		return EAN8.String()
	case gozxing.BarcodeFormat_UPC_A:
		return UPCA.String()
	case gozxing.BarcodeFormat_UPC_E:
		return UPCE.String()
	case gozxing.BarcodeFormat_ITF:
		return ITF.String()
	case gozxing.BarcodeFormat_QR_CODE:
		return QR_CODE.String()
	default:
		return "UNKNOWN"
	}
}

// mapStringToGozxingFormat maps string format to gozxing format
func mapStringToGozxingFormat(format string) (gozxing.BarcodeFormat, bool) {
	switch format {
	case "CODE_128":
		return gozxing.BarcodeFormat_CODE_128, true
	case "CODE_39":
		return gozxing.BarcodeFormat_CODE_39, true
	case "EAN_13":
		return gozxing.BarcodeFormat_EAN_13, true
	case "EAN_8":
		return gozxing.BarcodeFormat_EAN_8, true
	case "UPC_A":
		return gozxing.BarcodeFormat_UPC_A, true
	case "UPC_E":
		return gozxing.BarcodeFormat_UPC_E, true
	case "ITF":
		return gozxing.BarcodeFormat_ITF, true
	case "QR_CODE":
		return gozxing.BarcodeFormat_QR_CODE, true
	default:
		return 0, false
	}
}
