package models

// UIPreferences are the customizer-only settings. They are persisted locally
// (never sent to the preferences API) and ride along with every ad-hoc
// customize request.
type UIPreferences struct {
	Tone          string `json:"tone"`
	Length        string `json:"length"`
	IncludeCharts bool   `json:"include_charts"`
}

var (
	ToneOptions   = []string{"formal", "informal"}
	LengthOptions = []string{"short", "long"}
)

// DefaultUIPreferences mirrors the customizer's initial form state.
func DefaultUIPreferences() UIPreferences {
	return UIPreferences{
		Tone:          "formal",
		Length:        "short",
		IncludeCharts: true,
	}
}

// Normalized snaps tone and length back onto their option lists.
func (p UIPreferences) Normalized() UIPreferences {
	defaults := DefaultUIPreferences()
	p.Tone = pick(p.Tone, ToneOptions, defaults.Tone)
	p.Length = pick(p.Length, LengthOptions, defaults.Length)
	return p
}
