// Package preferences serves the preference editor: auto-load on open,
// field edits, save, and explicit re-load for any user id.
package preferences

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"finsight/internal/backend"
	httputil "finsight/internal/http"
	"finsight/internal/models"
	"finsight/internal/services/prefsource"
	"finsight/internal/templates"
)

var (
	client      *backend.Client
	loader      *prefsource.Loader
	renderer    *templates.Renderer
	defaultUser string
)

// Initialize sets up the preferences package with required dependencies
func Initialize(c *backend.Client, l *prefsource.Loader, r *templates.Renderer, defaultUserID string) {
	client = c
	loader = l
	renderer = r
	defaultUser = defaultUserID
}

// RegisterRoutes registers all preferences routes
func RegisterRoutes(r chi.Router) {
	r.Get("/preferences", handlePreferences)
	r.Post("/preferences/save", handleSave)
}

// handlePreferences loads the record for the requested user and renders the
// editor. A failed load surfaces an inline error and falls back to defaults;
// the form stays editable either way.
func handlePreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	explicit := userID != ""
	if userID == "" {
		userID = defaultUser
	}

	var form models.Preferences
	var loadError string

	var err error
	if explicit {
		form, err = loader.Reload(r.Context(), userID)
	} else {
		form, err = loader.Load(r.Context(), userID)
	}
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("preference load failed, using defaults")
		form = models.DefaultPreferences()
		form.UserID = userID
		loadError = err.Error()
	}

	renderEditor(w, r, form, loadError, "")
}

// handleSave persists the submitted form and re-renders the editor with a
// success flash or the backend's error message.
func handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.ErrorResponse(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	form := formPreferences(r)

	if _, err := client.SavePreferences(r.Context(), form); err != nil {
		renderEditor(w, r, form, err.Error(), "")
		return
	}

	loader.Invalidate(form.UserID)
	renderEditor(w, r, form, "", "Preferences saved successfully")
}

// formPreferences decodes the editor form. The dark-theme checkbox maps onto
// the theme enum; out-of-enum values are snapped back by Merge.
func formPreferences(r *http.Request) models.Preferences {
	form := models.Preferences{
		UserID:        r.PostFormValue("user_id"),
		ChartType:     r.PostFormValue("chart_type"),
		FinanceMetric: r.PostFormValue("finance_metric"),
		TimeRange:     r.PostFormValue("time_range"),
		Currency:      r.PostFormValue("currency"),
		Granularity:   r.PostFormValue("granularity"),
		ShowNews:      r.PostFormValue("show_news") == "on",
	}
	if r.PostFormValue("dark_theme") == "on" {
		form.Theme = "dark"
	} else {
		form.Theme = "light"
	}
	return models.Merge(form)
}

func renderEditor(w http.ResponseWriter, r *http.Request, form models.Preferences, errMsg, flash string) {
	pageData := map[string]interface{}{
		"Title":     "Preferences",
		"ActiveTab": "preferences",
		"Theme":     layoutTheme(r),
		"Form":      form,
		"Error":     errMsg,
		"Flash":     flash,
		"Users":     []string{defaultUser},

		"ChartTypeOptions":     models.ChartTypeOptions,
		"FinanceMetricOptions": models.FinanceMetricOptions,
		"TimeRangeOptions":     models.TimeRangeOptions,
		"CurrencyOptions":      models.CurrencyOptions,
		"GranularityOptions":   models.GranularityOptions,
	}

	httputil.RenderTemplate(w, renderer, "base", pageData)
}

func layoutTheme(r *http.Request) string {
	prefs, err := loader.Load(r.Context(), defaultUser)
	if err != nil {
		return "light"
	}
	return prefs.Theme
}
