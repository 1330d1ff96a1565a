// Package customizer serves the ad-hoc prompt page: a free-form prompt plus
// tone/length/chart toggles that persist locally, with the user's stored
// preference record shown read-only in a sidebar.
package customizer

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finsight/internal/backend"
	httputil "finsight/internal/http"
	"finsight/internal/models"
	"finsight/internal/services/prefcache"
	"finsight/internal/services/prefsource"
	"finsight/internal/templates"
)

// DefaultPrompt pre-fills the prompt box on first visit.
const DefaultPrompt = "Explain the latest trends in AI for finance."

var (
	client      *backend.Client
	loader      *prefsource.Loader
	prefstore   *prefcache.Store
	renderer    *templates.Renderer
	defaultUser string
	prefsKey    string
)

// Initialize sets up the customizer package with required dependencies
func Initialize(c *backend.Client, l *prefsource.Loader, p *prefcache.Store, r *templates.Renderer, defaultUserID, cacheKey string) {
	client = c
	loader = l
	prefstore = p
	renderer = r
	defaultUser = defaultUserID
	prefsKey = cacheKey
	if prefsKey == "" {
		prefsKey = prefcache.DefaultKey
	}
}

// RegisterRoutes registers all customizer routes
func RegisterRoutes(r chi.Router) {
	r.Get("/customizer", handleCustomizer)
	r.Post("/customizer/generate", handleGenerate)
}

// handleCustomizer renders the page. Form state starts from defaults with any
// locally saved tone/length/chart values overlaid; the sidebar shows the stored
// preference record or an inline error when the load fails.
func handleCustomizer(w http.ResponseWriter, r *http.Request) {
	uiPrefs := models.DefaultUIPreferences()
	if saved, ok := prefstore.Load(prefsKey); ok {
		uiPrefs = saved.ApplyTo(uiPrefs)
	}

	pageData := map[string]interface{}{
		"Title":     "Customizer",
		"ActiveTab": "customizer",
		"Theme":     layoutTheme(r),
		"Prompt":    DefaultPrompt,
		"UIPrefs":   uiPrefs,

		"ToneOptions":   models.ToneOptions,
		"LengthOptions": models.LengthOptions,
	}

	prefs, err := loader.Load(r.Context(), defaultUser)
	if err != nil {
		pageData["PrefsError"] = err.Error()
	} else {
		pageData["Prefs"] = prefs
	}

	httputil.RenderTemplate(w, renderer, "base", pageData)
}

// handleGenerate persists the toggles locally, submits the prompt and renders
// the result partial. Each submit is a synchronous round trip on its own
// connection, so concurrent clients never contend and every result reaches
// the client that asked for it.
func handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.ErrorResponse(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	uiPrefs := models.UIPreferences{
		Tone:          r.PostFormValue("tone"),
		Length:        r.PostFormValue("length"),
		IncludeCharts: r.PostFormValue("include_charts") == "on",
	}.Normalized()

	// Saved before the request goes out, so the toggles survive a failed
	// generate.
	prefstore.Save(prefsKey, uiPrefs)

	prompt := strings.TrimSpace(r.PostFormValue("prompt"))
	if prompt == "" {
		prompt = DefaultPrompt
	}

	result, err := client.Customize(r.Context(), models.CustomizeRequest{
		Prompt:        prompt,
		Tone:          uiPrefs.Tone,
		Length:        uiPrefs.Length,
		IncludeCharts: uiPrefs.IncludeCharts,
	})

	partialData := map[string]interface{}{
		"Prompt":  prompt,
		"UIPrefs": uiPrefs,
	}
	if err != nil {
		partialData["Error"] = err.Error()
	} else {
		partialData["Text"] = result.Text
		if len(result.ChartData) > 0 {
			partialData["ChartData"] = result.ChartData
			partialData["Palette"] = templates.Palette(layoutTheme(r))
		}
	}

	httputil.RenderPartial(w, renderer, "customize-result", partialData)
}

func layoutTheme(r *http.Request) string {
	prefs, err := loader.Load(r.Context(), defaultUser)
	if err != nil {
		return "light"
	}
	return prefs.Theme
}
