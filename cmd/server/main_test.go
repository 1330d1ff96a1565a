package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"finsight/internal/config"
	"finsight/internal/models"
	"finsight/internal/testutil"
)

// stubBackend fakes the Finance Insights API and counts calls per endpoint.
type stubBackend struct {
	*httptest.Server

	mu             sync.Mutex
	prefs          models.Preferences
	insightText    string
	cached         bool
	news           []models.NewsItem
	customizeText  string
	customizeDelay time.Duration
	chartData      []models.ChartPoint
	failGenerate   bool
	failPrefs      bool
	failSave       bool
	saveErrorBody  string
	generateCalls  int
	newsCalls      int
	saveCalls      int
	customizeCalls int
	lastSaved      map[string]any
}

func newStubBackend() *stubBackend {
	sb := &stubBackend{
		prefs:         models.DefaultPreferences(),
		insightText:   "Revenue is **trending up** this quarter.",
		customizeText: "Here is your custom insight.",
		news: []models.NewsItem{
			{Title: "Markets rally", URL: "https://example.com/rally", Snippet: "Stocks up."},
		},
	}
	sb.Server = httptest.NewServer(http.HandlerFunc(sb.handle))
	return sb
}

func (sb *stubBackend) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/customize" && sb.customizeDelay > 0 {
		time.Sleep(sb.customizeDelay)
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	switch r.URL.Path {
	case "/api/preferences":
		if sb.failPrefs {
			http.Error(w, "preferences unavailable", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user_id":     sb.prefs.UserID,
			"preferences": sb.prefs,
		})
	case "/api/generate":
		sb.generateCalls++
		if sb.failGenerate {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(models.InsightResult{
			UserID:      r.URL.Query().Get("user_id"),
			Preferences: sb.prefs,
			Response:    sb.insightText,
			Cached:      sb.cached,
		})
	case "/api/news":
		sb.newsCalls++
		json.NewEncoder(w).Encode(models.NewsResult{
			UserID: r.URL.Query().Get("user_id"),
			Query:  r.URL.Query().Get("q"),
			News:   sb.news,
		})
	case "/api/customize":
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		json.Unmarshal(body, &payload)

		// The save and customize payloads share the endpoint and are
		// distinguished by shape, exactly like the real backend.
		if _, isPrompt := payload["prompt"]; isPrompt {
			sb.customizeCalls++
			json.NewEncoder(w).Encode(models.CustomizeResult{
				Text:      sb.customizeText,
				ChartData: sb.chartData,
			})
			return
		}

		sb.saveCalls++
		if sb.failSave {
			http.Error(w, sb.saveErrorBody, http.StatusUnprocessableEntity)
			return
		}
		sb.lastSaved = payload
		json.NewEncoder(w).Encode(models.SaveConfirmation{
			Status: "ok",
			UserID: sb.prefs.UserID,
			Saved:  payload,
		})
	default:
		http.NotFound(w, r)
	}
}

func (sb *stubBackend) counts() (generate, news, save, customize int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.generateCalls, sb.newsCalls, sb.saveCalls, sb.customizeCalls
}

// setupTestServer wires the full application against a stub backend.
func setupTestServer(t *testing.T, sb *stubBackend) *testutil.TestServer {
	t.Helper()

	root := testutil.ProjectRoot()
	dataDir := t.TempDir()
	cfg := &config.Config{
		ListenAddr:         ":0",
		Debug:              false,
		BackendURL:         sb.URL,
		DefaultUserID:      "default_user",
		PrefsCacheKey:      "user_prefs",
		DataDirectory:      dataDir,
		SettingsDirectory:  dataDir + "/settings",
		TemplatesDirectory: root + "/web/templates",
		StaticDirectory:    root + "/web/static",
	}

	deps, err := SetupDependencies(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}
	if deps.Renderer == nil {
		t.Fatal("Templates failed to load")
	}

	router := SetupRouter(deps)
	return testutil.NewTestServer(t, router)
}

// TestHealthEndpoint tests the /api/health endpoint
func TestHealthEndpoint(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/api/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"ok"`)
}

// TestRootRedirect tests that / redirects to /dashboard
func TestRootRedirect(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(ts.BaseURL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Expected status %d, got %d", http.StatusTemporaryRedirect, resp.StatusCode)
	}
	if location := resp.Header.Get("Location"); location != "/dashboard" {
		t.Errorf("Expected redirect to /dashboard, got %s", location)
	}
}

// TestDashboard tests the dashboard page shell
func TestDashboard(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/dashboard")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll("Dashboard", "/dashboard/insight").
		HasElement("insight-panel")
}

// TestDashboardInsightPartial tests a full insight refresh
func TestDashboardInsightPartial(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/dashboard/insight")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll("trending up", "revenue", "3M", "monthly")
}

// TestDashboardNewsGating tests that news is fetched only when the returned
// preferences ask for it
func TestDashboardNewsGating(t *testing.T) {
	t.Run("off", func(t *testing.T) {
		sb := newStubBackend()
		defer sb.Close()
		ts := setupTestServer(t, sb)
		defer ts.Close()

		resp := ts.GET("/dashboard/insight")
		testutil.AssertResponse(t, resp).
			StatusOK().
			NotContains("Markets rally")

		_, news, _, _ := sb.counts()
		if news != 0 {
			t.Errorf("Expected 0 news calls with show_news off, got %d", news)
		}
	})

	t.Run("on", func(t *testing.T) {
		sb := newStubBackend()
		sb.prefs.ShowNews = true
		defer sb.Close()
		ts := setupTestServer(t, sb)
		defer ts.Close()

		resp := ts.GET("/dashboard/insight")
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContainsAll("Related News", "Markets rally")

		_, news, _, _ := sb.counts()
		if news != 1 {
			t.Errorf("Expected exactly 1 news call with show_news on, got %d", news)
		}
	})
}

// TestDashboardCachedBadge tests the cached indicator
func TestDashboardCachedBadge(t *testing.T) {
	sb := newStubBackend()
	sb.cached = true
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/dashboard/insight")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("cached")
}

// TestDashboardInsightFailure tests that an insight failure still renders the
// chart from fallback preferences with an inline error
func TestDashboardInsightFailure(t *testing.T) {
	sb := newStubBackend()
	sb.failGenerate = true
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/dashboard/insight")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll("model overloaded", "chart-wrap")
}

// TestDashboardInsightFailureHidesNews tests that a failed refresh never
// renders the news section, even when the stored record has show_news on
func TestDashboardInsightFailureHidesNews(t *testing.T) {
	sb := newStubBackend()
	sb.failGenerate = true
	sb.prefs.ShowNews = true
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/dashboard/insight")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("model overloaded").
		NotContains("Related News")

	_, news, _, _ := sb.counts()
	if news != 0 {
		t.Errorf("Expected 0 news calls on a failed refresh, got %d", news)
	}
}

// TestDashboardNewsPartial tests the standalone news partial
func TestDashboardNewsPartial(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/dashboard/news")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		Contains("Markets rally")
}

// TestPreferencesPage tests the editor with an auto-loaded record
func TestPreferencesPage(t *testing.T) {
	sb := newStubBackend()
	sb.prefs.ChartType = "pie"
	sb.prefs.Currency = "EUR"
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/preferences")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll("Preferences", `value="pie" selected`, `value="EUR" selected`)
}

// TestPreferencesLoadFailure tests the defaults fallback with an inline error
func TestPreferencesLoadFailure(t *testing.T) {
	sb := newStubBackend()
	sb.failPrefs = true
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/preferences")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll("preferences unavailable", `value="bar" selected`)
}

// TestPreferencesSave tests a successful save
func TestPreferencesSave(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	form := url.Values{}
	form.Set("user_id", "alice")
	form.Set("chart_type", "line")
	form.Set("finance_metric", "expenses")
	form.Set("time_range", "6M")
	form.Set("currency", "GBP")
	form.Set("granularity", "weekly")
	form.Set("dark_theme", "on")
	form.Set("show_news", "on")

	resp := ts.POSTForm("/preferences/save", form)
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("Preferences saved successfully")

	_, _, saves, _ := sb.counts()
	if saves != 1 {
		t.Fatalf("Expected 1 save call, got %d", saves)
	}

	sb.mu.Lock()
	saved := sb.lastSaved
	sb.mu.Unlock()
	if saved["chart_type"] != "line" || saved["theme"] != "dark" || saved["show_news"] != true {
		t.Errorf("Unexpected saved payload: %v", saved)
	}
}

// TestPreferencesSaveFailure tests that the backend error body is surfaced
func TestPreferencesSaveFailure(t *testing.T) {
	sb := newStubBackend()
	sb.failSave = true
	sb.saveErrorBody = "user id is not valid"
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	form := url.Values{}
	form.Set("user_id", "alice")

	resp := ts.POSTForm("/preferences/save", form)
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll("user id is not valid", "Save Preferences")
}

// TestCustomizerPage tests the customizer with the default prompt and sidebar
func TestCustomizerPage(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/customizer")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll(
			"Explain the latest trends in AI for finance.",
			"Saved Preferences",
		)
}

// TestCustomizerSidebarFailure tests the inline sidebar error
func TestCustomizerSidebarFailure(t *testing.T) {
	sb := newStubBackend()
	sb.failPrefs = true
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/customizer")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll("preferences unavailable", "Generate")
}

// TestCustomizerGenerate tests an ad-hoc generate round trip
func TestCustomizerGenerate(t *testing.T) {
	sb := newStubBackend()
	sb.chartData = []models.ChartPoint{{Label: "Q1", Value: 12}, {Label: "Q2", Value: 19}}
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	form := url.Values{}
	form.Set("prompt", "Compare Q1 and Q2 revenue")
	form.Set("tone", "informal")
	form.Set("length", "long")
	form.Set("include_charts", "on")

	resp := ts.POSTForm("/customizer/generate", form)
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll("Here is your custom insight.", "chart-wrap")

	_, _, _, customizes := sb.counts()
	if customizes != 1 {
		t.Fatalf("Expected 1 customize call, got %d", customizes)
	}

	// The submitted toggles persist and pre-fill the next page load.
	resp = ts.GET("/customizer")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`value="informal" selected`, `value="long" selected`)
}

// TestCustomizerGenerateNoChart tests a text-only result
func TestCustomizerGenerateNoChart(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	form := url.Values{}
	form.Set("prompt", "Just text please")
	form.Set("tone", "formal")
	form.Set("length", "short")

	resp := ts.POSTForm("/customizer/generate", form)
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("Here is your custom insight.").
		NotContains("chart-wrap")
}

// TestCustomizerGenerateConcurrent tests that overlapping submits from
// separate clients each get their own result back
func TestCustomizerGenerateConcurrent(t *testing.T) {
	sb := newStubBackend()
	sb.customizeDelay = 50 * time.Millisecond
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	form := url.Values{}
	form.Set("prompt", "Summarize the quarter")
	form.Set("tone", "formal")
	form.Set("length", "short")

	var wg sync.WaitGroup
	results := make([]*http.Response, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = http.Post(ts.BaseURL+"/customizer/generate",
				"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		}(i)
	}
	wg.Wait()

	for i, resp := range results {
		if errs[i] != nil {
			t.Fatalf("POST /customizer/generate failed: %v", errs[i])
		}
		testutil.AssertResponse(t, resp).
			StatusOK().
			Contains("Here is your custom insight.")
	}

	_, _, _, customizes := sb.counts()
	if customizes != 2 {
		t.Errorf("Expected 2 customize calls, got %d", customizes)
	}
}

// TestStudio tests the combined page
func TestStudio(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	resp := ts.GET("/studio")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll("Studio", "Save Preferences", "/dashboard/insight").
		HasElement("insight-panel")
}

// TestStudioSaveRedirects tests the post-save redirect back to the studio
func TestStudioSaveRedirects(t *testing.T) {
	sb := newStubBackend()
	defer sb.Close()
	ts := setupTestServer(t, sb)
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	form := url.Values{}
	form.Set("user_id", "alice")
	form.Set("chart_type", "bar")

	resp, err := client.PostForm(ts.BaseURL+"/studio/save", form)
	if err != nil {
		t.Fatalf("POST /studio/save failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("Expected status %d, got %d", http.StatusSeeOther, resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, "/studio?") {
		t.Errorf("Expected redirect back to /studio, got %q", location)
	}
}
