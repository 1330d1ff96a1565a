// Package http holds shared handler helpers and middleware.
package http

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"finsight/internal/templates"
)

// RenderTemplate renders a full page template with data
func RenderTemplate(w http.ResponseWriter, renderer *templates.Renderer, templateName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.Render(w, templateName, data)
	} else {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>" + templateName + "</h1><p>Templates not loaded. Check configuration.</p></body></html>"))
	}
}

// RenderPartial renders a partial template with data
func RenderPartial(w http.ResponseWriter, renderer *templates.Renderer, partialName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.RenderPartial(w, partialName, data)
	} else {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<div><!-- Partial " + partialName + " not loaded --></div>"))
	}
}

// ErrorResponse sends an error response
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	log.Error().Int("status", statusCode).Msg(message)
	http.Error(w, message, statusCode)
}

// NoContent tells an htmx client to keep the current markup. Used when a
// refresh result turned stale before it could render.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
