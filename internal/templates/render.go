// Package templates renders the page and partial templates.
package templates

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"

	"finsight/internal/services/currency"
)

// Renderer handles template rendering
type Renderer struct {
	templates *template.Template
	debug     bool
	baseDir   string
}

// New creates a new template renderer
func New(templateDir string, debug bool) (*Renderer, error) {
	r := &Renderer{
		debug:   debug,
		baseDir: templateDir,
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// getFuncMap returns the template function map
func getFuncMap() template.FuncMap {
	return template.FuncMap{
		"currencySymbol": currency.Symbol,
		"formatValue":    currency.Format,
		"markdown":       markdown,
		"palette":        Palette,
		"toJSON":         toJSON,
		"json":           toJSON,
		"lower":          strings.ToLower,
		"upper":          strings.ToUpper,
		"contains":       strings.Contains,
		"trimSpace":      strings.TrimSpace,
		"join":           strings.Join,
		"dict":           dict,
		"safeHTML":       safeHTML,
		"now":            time.Now,
	}
}

// loadTemplates parses all templates with strict validation
func (r *Renderer) loadTemplates() error {
	funcMap := getFuncMap()
	tmpl := template.New("").Funcs(funcMap)

	// Collect all template files
	var templateFiles []string
	for _, subdir := range []string{"layouts", "pages", "partials", "components"} {
		subPattern := filepath.Join(r.baseDir, subdir, "*.html")
		matches, err := filepath.Glob(subPattern)
		if err != nil {
			return fmt.Errorf("error globbing %s: %w", subPattern, err)
		}
		templateFiles = append(templateFiles, matches...)
	}

	if len(templateFiles) == 0 {
		return fmt.Errorf("no template files found in %s", r.baseDir)
	}

	// Parse each template file individually for better error reporting
	var parseErrors []string
	for _, file := range templateFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("  %s: failed to read: %v", file, err))
			continue
		}

		_, err = tmpl.New(filepath.Base(file)).Parse(string(content))
		if err != nil {
			parseErrors = append(parseErrors, formatTemplateError(file, string(content), err))
		}
	}

	if len(parseErrors) > 0 {
		for _, e := range parseErrors {
			log.Error().Msg(e)
		}
		return fmt.Errorf("template parsing failed with %d error(s)", len(parseErrors))
	}

	// Validate template references
	if err := r.validateTemplateReferences(tmpl, templateFiles); err != nil {
		return err
	}

	r.templates = tmpl
	log.Debug().Int("files", len(templateFiles)).Msg("templates loaded")
	return nil
}

// formatTemplateError formats a template error with file context
func formatTemplateError(file, content string, err error) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n  File: %s\n", file))

	errStr := err.Error()
	lineNum := extractLineNumber(errStr)

	if lineNum > 0 {
		sb.WriteString(fmt.Sprintf("  Line: %d\n", lineNum))
		sb.WriteString(fmt.Sprintf("  Error: %s\n", errStr))
		sb.WriteString("  Context:\n")

		lines := strings.Split(content, "\n")
		start := lineNum - 3
		if start < 0 {
			start = 0
		}
		end := lineNum + 2
		if end > len(lines) {
			end = len(lines)
		}

		for i := start; i < end; i++ {
			marker := "   "
			if i+1 == lineNum {
				marker = ">>>"
			}
			sb.WriteString(fmt.Sprintf("    %s %4d | %s\n", marker, i+1, lines[i]))
		}
	} else {
		sb.WriteString(fmt.Sprintf("  Error: %s\n", errStr))
	}

	return sb.String()
}

// extractLineNumber tries to extract a line number from a template error
func extractLineNumber(errStr string) int {
	re := regexp.MustCompile(`:(\d+):`)
	matches := re.FindStringSubmatch(errStr)
	if len(matches) >= 2 {
		var lineNum int
		fmt.Sscanf(matches[1], "%d", &lineNum)
		return lineNum
	}
	return 0
}

// validateTemplateReferences checks that all {{template "name"}} calls reference defined templates
func (r *Renderer) validateTemplateReferences(tmpl *template.Template, files []string) error {
	definedTemplates := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Name() != "" {
			definedTemplates[t.Name()] = true
		}
	}

	templateCallRe := regexp.MustCompile(`\{\{\s*template\s+"([^"]+)"`)

	var refErrors []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(strings.NewReader(string(content)))
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			for _, match := range templateCallRe.FindAllStringSubmatch(line, -1) {
				if len(match) >= 2 && !definedTemplates[match[1]] {
					refErrors = append(refErrors, fmt.Sprintf(
						"%s:%d: undefined template %q", file, lineNum, match[1]))
				}
			}
		}
	}

	if len(refErrors) > 0 {
		for _, e := range refErrors {
			log.Error().Msg(e)
		}
		return fmt.Errorf("found %d undefined template reference(s)", len(refErrors))
	}

	return nil
}

// Reload reloads templates (useful for development)
func (r *Renderer) Reload() error {
	return r.loadTemplates()
}

// Render renders a full page with the base layout
func (r *Renderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	// In debug mode, reload templates on each request
	if r.debug {
		if err := r.loadTemplates(); err != nil {
			log.Error().Err(err).Msg("error reloading templates")
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("error rendering template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	return nil
}

// RenderPartial renders a partial template (no base layout)
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) error {
	if r.debug {
		if err := r.loadTemplates(); err != nil {
			log.Error().Err(err).Msg("error reloading templates")
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("partial", name).Msg("error rendering partial")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	return nil
}

// RenderToString renders a template to a string
func (r *Renderer) RenderToString(name string, data interface{}) (string, error) {
	var buf strings.Builder
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExecuteTemplate executes a template to a writer
func (r *Renderer) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Fixed six-color chart palettes, one per theme.
var (
	paletteLight = []string{"#6366f1", "#22c55e", "#eab308", "#f97316", "#ef4444", "#06b6d4"}
	paletteDark  = []string{"#a5b4fc", "#86efac", "#fde68a", "#fdba74", "#fca5a5", "#67e8f9"}
)

// Palette returns the chart palette for a theme. Anything but dark gets the
// light palette.
func Palette(theme string) []string {
	if theme == "dark" {
		return paletteDark
	}
	return paletteLight
}

// Template functions

// markdown converts the backend's markdown-ish response text to HTML. On
// conversion failure the raw text is escaped and shown as-is.
func markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(s), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(s) + "</p>")
	}
	return template.HTML(buf.String())
}

// toJSON embeds a value as a JS literal, for chart configs.
func toJSON(v interface{}) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(b)
}

// dict creates a map from key-value pairs
func dict(values ...interface{}) map[string]interface{} {
	if len(values)%2 != 0 {
		return nil
	}
	result := make(map[string]interface{})
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		result[key] = values[i+1]
	}
	return result
}

func safeHTML(s string) template.HTML {
	return template.HTML(s)
}
