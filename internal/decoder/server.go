package decoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"
)

// DecodeRequest represents a server-side decode request
type DecodeRequest struct {
	ImageData string   `json:"imageData" binding:"required"` // Base64 encoded PNG or JPEG, optionally a data URL
	Width     int      `json:"width" binding:"required"`
	Height    int      `json:"height" binding:"required"`
	ROI       *ROI     `json:"roi,omitempty"`
	Priority  int      `json:"priority"` // 0=auto, 1=1D, 2=2D
	Formats   []string `json:"formats,omitempty"`
}

// DecodeResponse represents a server-side decode response
type DecodeResponse struct {
	Success        bool          `json:"success"`
	Result         *DecodeResult `json:"result,omitempty"`
	Error          string        `json:"error,omitempty"`
	ErrorCode      string        `json:"errorCode,omitempty"`
	ProcessingTime int64         `json:"processingTime"` // milliseconds
	Timestamp      int64         `json:"timestamp"`
	ServerDecode   bool          `json:"serverDecode"`
}

// Error codes carried by DecodeResponse.ErrorCode.
const (
	CodeInvalidImage = "INVALID_IMAGE"
	CodeInvalidROI   = "INVALID_ROI"
	CodeNoCode       = "NO_CODE_FOUND"
	CodeDecodeFailed = "DECODE_FAILED"
)

// ServerDecoder handles server-side barcode decoding
type ServerDecoder struct {
	zxing *ZXingDecoder
}

// NewServerDecoder creates a new server-side decoder
func NewServerDecoder() *ServerDecoder {
	return &ServerDecoder{zxing: NewZXingDecoder(PriorityAuto)}
}

// Decode processes a decode request
func (d *ServerDecoder) Decode(req *DecodeRequest) *DecodeResponse {
	startTime := time.Now()

	response := &DecodeResponse{
		Timestamp:    startTime.UnixMilli(),
		ServerDecode: true,
	}
	finish := func(code, errMsg string) *DecodeResponse {
		response.ErrorCode = code
		response.Error = errMsg
		response.ProcessingTime = time.Since(startTime).Milliseconds()
		return response
	}

	img, err := decodeImageData(req.ImageData)
	if err != nil {
		return finish(CodeInvalidImage, fmt.Sprintf("Failed to decode image: %v", err))
	}

	result, err := d.zxing.decode(img, req.ROI, ScanPriority(req.Priority), req.Formats)
	switch {
	case errors.Is(err, ErrNoCodeFound):
		return finish(CodeNoCode, "No barcode found")
	case errors.Is(err, ErrInvalidROI):
		return finish(CodeInvalidROI, fmt.Sprintf("Failed to extract ROI: %v", err))
	case err != nil:
		return finish(CodeDecodeFailed, fmt.Sprintf("Failed to decode frame: %v", err))
	}

	response.Success = true
	response.Result = result
	return finish("", "")
}

// decodeImageData decodes base64 image data, stripping a data URL prefix
func decodeImageData(imageData string) (image.Image, error) {
	if strings.HasPrefix(imageData, "data:") {
		comma := strings.IndexByte(imageData, ',')
		if comma < 0 {
			return nil, errors.New("malformed data URL")
		}
		imageData = imageData[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	return img, nil
}
