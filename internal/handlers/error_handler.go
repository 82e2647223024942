package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-qrscan-webapp/internal/logger"

	"github.com/gin-gonic/gin"
)

const defaultTitle = "QR Scanner"

// SafeHTML renders a template and falls back to a plain error page when
// rendering panics, so a broken template never yields a blank page.
func SafeHTML(c *gin.Context, statusCode int, templateName string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, exists := data["title"]; !exists {
		data["title"] = defaultTitle
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Default().Error("Template rendering panic", fmt.Errorf("%v", r), map[string]interface{}{
				"template": templateName,
			})
			renderErrorPage(c, http.StatusInternalServerError, "Template rendering error")
		}
	}()

	c.HTML(statusCode, templateName, data)

	if len(c.Errors) > 0 && !c.Writer.Written() {
		logger.Default().Error("Template rendering failed", c.Errors.Last(), map[string]interface{}{
			"template": templateName,
		})
		renderErrorPage(c, http.StatusInternalServerError, "Template rendering error")
	}
}

// SafeJSON renders JSON and answers RENDER_ERROR when encoding panics.
func SafeJSON(c *gin.Context, statusCode int, data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Default().Error("JSON rendering panic", fmt.Errorf("%v", r))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
				"code":  "RENDER_ERROR",
			})
		}
	}()

	c.JSON(statusCode, data)
}

// renderErrorPage writes a self-contained HTML error page. It never depends
// on a template.
func renderErrorPage(c *gin.Context, statusCode int, message string) {
	if c.Writer.Written() {
		return
	}

	requestID := c.GetString("request_id")

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(statusCode, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Error %d - %s</title>
    <link rel="stylesheet" href="/static/css/scanner.css">
</head>
<body>
    <main class="container error-page">
        <h1>Error %d</h1>
        <p>%s</p>
        <p><a href="/scan">Back to scanner</a></p>
        <small>Request ID: %s · %s</small>
    </main>
</body>
</html>`, statusCode, defaultTitle, statusCode, getErrorMessage(statusCode, message), requestID, time.Now().Format("2006-01-02 15:04:05"))
}

// getErrorMessage returns a user-friendly error message based on status code
func getErrorMessage(statusCode int, originalMessage string) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "Bad Request - The request was invalid or cannot be processed"
	case http.StatusNotFound:
		return "Page Not Found - The requested page could not be found"
	case http.StatusTooManyRequests:
		return "Too Many Requests - Please slow down"
	case http.StatusInternalServerError:
		return "Internal Server Error - Something went wrong on the server"
	case http.StatusServiceUnavailable:
		return "Service Unavailable - The server is temporarily unavailable"
	default:
		if originalMessage != "" {
			return originalMessage
		}
		return "An unexpected error occurred"
	}
}

// GlobalErrorHandler recovers panics in handlers.
func GlobalErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Default().Error("Panic recovered", fmt.Errorf("%v", recovered), map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		})

		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
				"code":  "INTERNAL_ERROR",
			})
			return
		}
		renderErrorPage(c, http.StatusInternalServerError, "An unexpected error occurred")
		c.Abort()
	})
}

// NotFoundHandler answers JSON for API clients and an HTML page otherwise.
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if wantsJSON(c) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Resource not found",
				"code":  "NOT_FOUND",
				"path":  c.Request.URL.Path,
			})
			return
		}
		renderErrorPage(c, http.StatusNotFound, "Page not found")
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.ContentType() == "application/json"
}

// apiError writes the JSON error shape shared by every API handler.
func apiError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
