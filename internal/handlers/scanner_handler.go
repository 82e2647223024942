package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"go-qrscan-webapp/internal/config"

	"github.com/gin-gonic/gin"
)

// ScannerHandler serves the scanning page.
type ScannerHandler struct {
	scanner         config.ScannerConfig
	fallbackEnabled bool
	staticDir       string
}

func NewScannerHandler(cfg *config.Config) *ScannerHandler {
	return &ScannerHandler{
		scanner:         cfg.Scanner,
		fallbackEnabled: cfg.Fallback.Enabled,
		staticDir:       cfg.Server.StaticDir,
	}
}

// ScanPage renders scan.html. A ?profile= query selects another scanner
// preset for this page only.
func (h *ScannerHandler) ScanPage(c *gin.Context) {
	profile := h.scanner
	if name := c.Query("profile"); name != "" {
		if name != config.ProfileDefault && name != config.ProfileToggle {
			renderErrorPage(c, http.StatusBadRequest, "Unknown scanner profile")
			return
		}
		profile = config.ScannerProfile(name)
	}

	SafeHTML(c, http.StatusOK, "scan.html", gin.H{
		"title":             "QR Code Scanner",
		"profile":           profile.Profile,
		"autoRedirect":      profile.AutoRedirectDefault,
		"bareHostnameMatch": profile.BareHostnameMatch,
		"redirectDelayMs":   profile.RedirectDelayMs,
		"pollIntervalMs":    profile.PollIntervalMs,
		"fallbackEnabled":   h.fallbackEnabled,
		"wasmAvailable":     h.wasmAvailable(),
	})
}

// Root redirects to the scanner.
func (h *ScannerHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusFound, "/scan")
}

// wasmAvailable reports whether the optional decoder library was built into
// the static directory.
func (h *ScannerHandler) wasmAvailable() bool {
	if h.staticDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(h.staticDir, "wasm", "decoder.wasm"))
	return err == nil
}
