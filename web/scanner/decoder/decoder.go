//go:build js && wasm

// Command decoder is the browser build of the library decoder. scanner.js
// loads it when the page has no native barcode detector and calls goDecode
// with the RGBA pixels of each captured frame.
package main

import (
	"errors"
	"syscall/js"

	"go-qrscan-webapp/internal/decoder"
)

var decoders = map[decoder.ScanPriority]*decoder.ZXingDecoder{}

func decoderFor(priority decoder.ScanPriority) *decoder.ZXingDecoder {
	d, ok := decoders[priority]
	if !ok {
		d = decoder.NewZXingDecoder(priority)
		decoders[priority] = d
	}
	return d
}

// decode(frameData, width, height[, priority]) returns
// {success, result: {text, format}} or {success: false, notFound, error}.
func decode(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return failure(errors.New("insufficient arguments: need frameData, width, height"), false)
	}

	priority := decoder.PriorityAuto
	if len(args) > 3 && args[3].Type() == js.TypeNumber {
		priority = decoder.ScanPriority(args[3].Int())
	}

	frame := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(frame, args[0])

	result, err := decoderFor(priority).DecodePixels(frame, args[1].Int(), args[2].Int())
	if err != nil {
		return failure(err, errors.Is(err, decoder.ErrNoCodeFound))
	}

	return map[string]interface{}{
		"success": true,
		"result": map[string]interface{}{
			"text":   result.Text,
			"format": result.Format,
		},
	}
}

func failure(err error, notFound bool) map[string]interface{} {
	return map[string]interface{}{
		"success":  false,
		"notFound": notFound,
		"error":    err.Error(),
	}
}

func formats(this js.Value, args []js.Value) interface{} {
	names := decoder.SupportedFormats()
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func main() {
	js.Global().Set("goDecode", js.FuncOf(decode))
	js.Global().Set("goSupportedFormats", js.FuncOf(formats))
	js.Global().Set("goWasmReady", js.ValueOf(true))

	select {}
}
