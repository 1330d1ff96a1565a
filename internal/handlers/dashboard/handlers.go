// Package dashboard serves the insight dashboard: the chart driven by the
// user's stored preferences, the AI insight text and the optional news list.
package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"finsight/internal/backend"
	httputil "finsight/internal/http"
	"finsight/internal/models"
	"finsight/internal/services/currency"
	"finsight/internal/services/prefsource"
	"finsight/internal/services/series"
	"finsight/internal/services/viewseq"
	"finsight/internal/templates"
)

var (
	client      *backend.Client
	loader      *prefsource.Loader
	renderer    *templates.Renderer
	tracker     *viewseq.Tracker
	defaultUser string
)

// Initialize sets up the dashboard package with required dependencies
func Initialize(c *backend.Client, l *prefsource.Loader, r *templates.Renderer, t *viewseq.Tracker, defaultUserID string) {
	client = c
	loader = l
	renderer = r
	tracker = t
	defaultUser = defaultUserID
}

// RegisterRoutes registers all dashboard routes
func RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", handleDashboard)
	r.Get("/dashboard/insight", handleInsightPartial)
	r.Get("/dashboard/news", handleNewsPartial)
}

// handleDashboard renders the page shell; the insight panel loads itself via
// the partial route so the page stays responsive while the backend thinks.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := requestedUser(r)

	pageData := map[string]interface{}{
		"Title":     "Dashboard",
		"ActiveTab": "dashboard",
		"Theme":     layoutTheme(r),
		"UserID":    userID,
		"Users":     []string{defaultUser},
	}

	httputil.RenderTemplate(w, renderer, "base", pageData)
}

// handleInsightPartial runs one refresh: generate the insight, derive the
// chart from the returned preferences and, when those preferences ask for it,
// fetch the news list. A refresh that is overtaken by a newer one returns 204
// so the newest result wins.
func handleInsightPartial(w http.ResponseWriter, r *http.Request) {
	userID := requestedUser(r)
	seq := tracker.Begin("dashboard:insight:" + userID)

	result, err := client.GenerateInsights(r.Context(), userID)
	if err != nil {
		if !tracker.IsLatest("dashboard:insight:"+userID, seq) {
			httputil.NoContent(w)
			return
		}
		// No news on a failed refresh: nothing was fetched, so the
		// section must not render even when the record asks for it.
		fallback := fallbackPrefs(r, userID)
		fallback.ShowNews = false
		renderInsight(w, insightView{
			UserID: userID,
			Prefs:  fallback,
			Error:  err.Error(),
		})
		return
	}

	prefs := models.Merge(result.Preferences)

	view := insightView{
		UserID:  userID,
		Prefs:   prefs,
		Insight: result.Response,
		Cached:  result.Cached,
		HasData: true,
	}

	// News is gated strictly on the preferences that came back with the
	// insight: off means the section is cleared, on means one fetch.
	if prefs.ShowNews {
		news, newsErr := client.GetNews(r.Context(), userID, "", 0)
		if newsErr != nil {
			view.NewsError = newsErr.Error()
		} else {
			view.News = renderableNews(news.News)
		}
	}

	if !tracker.IsLatest("dashboard:insight:"+userID, seq) {
		httputil.NoContent(w)
		return
	}

	renderInsight(w, view)
}

// handleNewsPartial re-runs just the news fetch, used when show_news is
// toggled on without a full refresh.
func handleNewsPartial(w http.ResponseWriter, r *http.Request) {
	userID := requestedUser(r)
	seq := tracker.Begin("dashboard:news:" + userID)

	partialData := map[string]interface{}{
		"UserID":   userID,
		"ShowNews": true,
	}

	news, err := client.GetNews(r.Context(), userID, r.URL.Query().Get("q"), 0)
	if err != nil {
		partialData["NewsError"] = err.Error()
	} else {
		partialData["News"] = renderableNews(news.News)
	}

	if !tracker.IsLatest("dashboard:news:"+userID, seq) {
		httputil.NoContent(w)
		return
	}

	httputil.RenderPartial(w, renderer, "news-panel", partialData)
}

// insightView is everything the insight panel needs to render.
type insightView struct {
	UserID    string
	Prefs     models.Preferences
	Insight   string
	Cached    bool
	HasData   bool
	Error     string
	News      []models.NewsItem
	NewsError string
}

func renderInsight(w http.ResponseWriter, view insightView) {
	chartData := series.Generate(view.Prefs.FinanceMetric, view.Prefs.TimeRange, view.Prefs.Granularity)

	partialData := map[string]interface{}{
		"UserID":    view.UserID,
		"Prefs":     view.Prefs,
		"Insight":   view.Insight,
		"Cached":    view.Cached,
		"HasData":   view.HasData,
		"Error":     view.Error,
		"News":      view.News,
		"NewsError": view.NewsError,
		"ShowNews":  view.Prefs.ShowNews,
		"ChartData": chartData,
		"Palette":   templates.Palette(view.Prefs.Theme),
		"Symbol":    currency.Symbol(view.Prefs.Currency),
		"Theme":     view.Prefs.Theme,
	}

	httputil.RenderPartial(w, renderer, "insight-panel", partialData)
}

// fallbackPrefs keeps the chart area alive on insight failure: last known
// record when one is cached, defaults otherwise.
func fallbackPrefs(r *http.Request, userID string) models.Preferences {
	prefs, err := loader.Load(r.Context(), userID)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("falling back to default preferences")
		prefs = models.DefaultPreferences()
		prefs.UserID = userID
	}
	return prefs
}

func requestedUser(r *http.Request) string {
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		return userID
	}
	return defaultUser
}

// layoutTheme picks the root theme class from the default profile, the same
// record the dashboard itself loads; failures fall back to light.
func layoutTheme(r *http.Request) string {
	prefs, err := loader.Load(r.Context(), defaultUser)
	if err != nil {
		return "light"
	}
	return prefs.Theme
}

func renderableNews(items []models.NewsItem) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	for _, n := range items {
		if n.Renderable() {
			out = append(out, n)
		}
	}
	return out
}
