package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go-qrscan-webapp/internal/config"
	"go-qrscan-webapp/internal/logger"
	"go-qrscan-webapp/internal/services"

	"github.com/gin-gonic/gin"
)

// BarcodeHandler serves generated codes for testing the scanner.
type BarcodeHandler struct {
	barcodeService *services.BarcodeService
	sheetService   *services.SheetService
	scanner        config.ScannerConfig
}

func NewBarcodeHandler(barcodeService *services.BarcodeService, sheetService *services.SheetService, scanner config.ScannerConfig) *BarcodeHandler {
	return &BarcodeHandler{
		barcodeService: barcodeService,
		sheetService:   sheetService,
		scanner:        scanner,
	}
}

// QRCode handles GET /api/codes/qr?data=&size=
func (h *BarcodeHandler) QRCode(c *gin.Context) {
	data := c.Query("data")
	if data == "" {
		apiError(c, http.StatusBadRequest, "MISSING_DATA", "Query parameter data is required")
		return
	}

	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			apiError(c, http.StatusBadRequest, "INVALID_SIZE", "Query parameter size must be an integer")
			return
		}
		size = n
	}

	qrBytes, err := h.barcodeService.GenerateQRCode(data, size)
	if err != nil {
		h.generationFailed(c, "qr", err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=qr.png")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", qrBytes)
}

// Barcode handles GET /api/codes/barcode?data=
func (h *BarcodeHandler) Barcode(c *gin.Context) {
	data := c.Query("data")
	if data == "" {
		apiError(c, http.StatusBadRequest, "MISSING_DATA", "Query parameter data is required")
		return
	}

	barcodeBytes, err := h.barcodeService.GenerateBarcode(data)
	if err != nil {
		h.generationFailed(c, "barcode", err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=barcode.png")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", barcodeBytes)
}

// Sheet handles GET /api/codes/sheet.pdf?data=a&data=b[&barcodes=1][&title=]
func (h *BarcodeHandler) Sheet(c *gin.Context) {
	payloads := c.QueryArray("data")
	if len(payloads) == 0 {
		apiError(c, http.StatusBadRequest, "MISSING_DATA", "At least one data parameter is required")
		return
	}

	includeBarcodes, _ := strconv.ParseBool(c.DefaultQuery("barcodes", "false"))

	pdf, err := h.sheetService.GenerateTestSheetPDF(payloads, services.SheetOptions{
		Title:             c.Query("title"),
		IncludeBarcodes:   includeBarcodes,
		BareHostnameMatch: h.scanner.BareHostnameMatch,
	})
	if err != nil {
		h.generationFailed(c, "sheet", err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=qrscan-test-sheet.pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *BarcodeHandler) generationFailed(c *gin.Context, kind string, err error) {
	if errors.Is(err, services.ErrEmptyPayload) || errors.Is(err, services.ErrTooManyPayloads) {
		apiError(c, http.StatusBadRequest, "INVALID_DATA", err.Error())
		return
	}

	logger.Default().Error("Code generation failed", err, map[string]interface{}{
		"kind":       kind,
		"request_id": c.GetString("request_id"),
	})
	_ = c.Error(err)
	apiError(c, http.StatusUnprocessableEntity, "GENERATION_FAILED", err.Error())
}
