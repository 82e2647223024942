package decoder

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// RGBAFromPixels wraps a tightly packed RGBA buffer (4 bytes per pixel, row
// major) as an image. The buffer is copied.
func RGBAFromPixels(data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(data) != width*height*4 {
		return nil, ErrInvalidImage
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, data)
	return img, nil
}

// ToRGBA returns img as *image.RGBA anchored at the origin, converting when
// needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// extractROI extracts a region of interest from the image
func extractROI(img image.Image, roi *ROI) (image.Image, error) {
	if roi == nil {
		return img, nil
	}

	bounds := img.Bounds()

	// Validate ROI bounds
	if roi.X < 0 || roi.Y < 0 || roi.Width <= 0 || roi.Height <= 0 ||
		bounds.Min.X+roi.X+roi.Width > bounds.Max.X ||
		bounds.Min.Y+roi.Y+roi.Height > bounds.Max.Y {
		return nil, ErrInvalidROI
	}

	roiImg := image.NewRGBA(image.Rect(0, 0, roi.Width, roi.Height))
	src := image.Pt(bounds.Min.X+roi.X, bounds.Min.Y+roi.Y)
	draw.Draw(roiImg, roiImg.Bounds(), img, src, draw.Src)

	return roiImg, nil
}

// createCenterROI creates a center ROI for 1D barcode priority scanning
func createCenterROI(width, height int, percentage float64) *ROI {
	if percentage <= 0 || percentage >= 1 {
		percentage = 0.7 // Default 70% center area
	}

	roiWidth := int(float64(width) * percentage)
	roiHeight := int(float64(height) * percentage)

	return &ROI{
		X:      (width - roiWidth) / 2,
		Y:      (height - roiHeight) / 2,
		Width:  roiWidth,
		Height: roiHeight,
	}
}

// toGray converts the image to grayscale before binarization
func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}

	bounds := img.Bounds()
	processed := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			processed.SetGray(x, y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}

	return processed
}
