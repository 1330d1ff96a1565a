package models

// ChartPoint is one ordered (label, value) pair consumed by the chart script.
// Points come either from the backend or from the synthetic series generator.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// InsightResult is the response of POST /api/generate.
type InsightResult struct {
	UserID      string      `json:"user_id"`
	Preferences Preferences `json:"preferences"`
	Response    string      `json:"response"`
	Cached      bool        `json:"cached"`
}

// SaveConfirmation is the response of POST /api/customize (preference shape).
type SaveConfirmation struct {
	Status string         `json:"status"`
	UserID string         `json:"user_id"`
	Saved  map[string]any `json:"saved"`
}

// CustomizeRequest is the ad-hoc prompt payload for POST /api/customize.
type CustomizeRequest struct {
	Prompt        string `json:"prompt"`
	Tone          string `json:"tone"`
	Length        string `json:"length"`
	IncludeCharts bool   `json:"include_charts"`
}

// CustomizeResult is the response for the ad-hoc customize payload.
// ChartData may be absent or null.
type CustomizeResult struct {
	Text      string       `json:"text"`
	ChartData []ChartPoint `json:"chart_data,omitempty"`
}

// NewsItem is one entry of GET /api/news. All fields are optional; an item is
// renderable only when it carries a title or a URL.
type NewsItem struct {
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Source  string  `json:"source,omitempty"`
}

// Renderable reports whether the item has enough content to show in the list.
func (n NewsItem) Renderable() bool {
	return n.Title != "" || n.URL != ""
}

// NewsResult is the response of GET /api/news.
type NewsResult struct {
	UserID string     `json:"user_id"`
	Query  string     `json:"query"`
	News   []NewsItem `json:"news"`
}
