// Package studio serves the combined screen: the preference editor and the
// insight panel side by side, sharing the dashboard's partial routes.
package studio

import (
	"net/http"
	"net/url"

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

// Initialize sets up the studio package with required dependencies
func Initialize(c *backend.Client, l *prefsource.Loader, r *templates.Renderer, defaultUserID string) {
	client = c
	loader = l
	renderer = r
	defaultUser = defaultUserID
}

// RegisterRoutes registers all studio routes
func RegisterRoutes(r chi.Router) {
	r.Get("/studio", handleStudio)
	r.Post("/studio/save", handleSave)
}

// handleStudio renders the split view. A user id in the query reloads the
// record for that id; the insight panel lazy-loads through the dashboard
// partial for the same user.
func handleStudio(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	explicit := userID != ""
	if userID == "" {
		userID = defaultUser
	}

	var form models.Preferences
	var err error
	if explicit {
		form, err = loader.Reload(r.Context(), userID)
	} else {
		form, err = loader.Load(r.Context(), userID)
	}

	var loadError string
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("studio preference load failed, using defaults")
		form = models.DefaultPreferences()
		form.UserID = userID
		loadError = err.Error()
	}

	renderStudio(w, r, userID, form, loadError, r.URL.Query().Get("flash"))
}

// handleSave persists the form and redirects back to the studio so a reload
// never resubmits. The insight panel refreshes itself against the new record.
func handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.ErrorResponse(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	form := formPreferences(r)

	if _, err := client.SavePreferences(r.Context(), form); err != nil {
		renderStudio(w, r, form.UserID, form, err.Error(), "")
		return
	}

	loader.Invalidate(form.UserID)

	q := url.Values{}
	q.Set("user_id", form.UserID)
	q.Set("flash", "Preferences saved successfully")
	http.Redirect(w, r, "/studio?"+q.Encode(), http.StatusSeeOther)
}

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

func renderStudio(w http.ResponseWriter, r *http.Request, userID string, form models.Preferences, errMsg, flash string) {
	pageData := map[string]interface{}{
		"Title":     "Studio",
		"ActiveTab": "studio",
		"Theme":     layoutTheme(r),
		"UserID":    userID,
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
