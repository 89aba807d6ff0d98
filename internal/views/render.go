package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/ashureev/prompt-forge/internal/markdown"
	"github.com/ashureev/prompt-forge/internal/notify"
	"github.com/ashureev/prompt-forge/internal/preview"
	"github.com/ashureev/prompt-forge/internal/state"
	"github.com/dustin/go-humanize"
)

// Renderer holds one parsed template set per view.
type Renderer struct {
	pages map[domain.View]*template.Template
}

var funcs = template.FuncMap{
	"markdown": markdown.Render,
	"reltime":  relativeTime,
	"temp":     func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"sub":      func(a, b int) int { return a - b },
	"isModel":  func(t domain.ChatTurn) bool { return t.Role == domain.RoleModel },
	"comma":    func(n int) string { return humanize.Comma(int64(n)) },
	"dollars":  func(n int) string { return "$" + humanize.Comma(int64(n)) },
}

// NewRenderer parses layout.html and partials.html together with each view's
// own file from fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "layout.html", "partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[domain.View]*template.Template)}
	for _, v := range domain.Views() {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(fsys, string(v)+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", v, err)
		}
		r.pages[v] = t
	}
	return r, nil
}

// Render writes the page for data.View.
func (r *Renderer) Render(w http.ResponseWriter, status int, data *pageData) {
	t, ok := r.pages[data.View]
	if !ok {
		http.Error(w, "unknown view", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		slog.Error("Failed to render view", "view", data.View, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write page", "view", data.View, "error", err)
	}
}

// pageData is everything a template may read.
type pageData struct {
	View      domain.View
	State     domain.AppState
	Scratch   Scratch
	Toasts    []notify.Toast
	Modal     *modalView
	AIEnabled bool
	Year      int

	CodeCost       int
	StarterCredits int
	ToastTTLMS     int64
	PreviewGraceMS int64

	Packages          []domain.CreditPackage
	ChatPersonas      []string
	ChatTones         []string
	GeneratorPersonas []string
	GeneratorTones    []string
	CodeTargets       []string

	Code *codeResult
}

// modalView is a modal resolved against current state.
type modalView struct {
	Kind    notify.ModalKind
	Message string
	Cost    int
	Prompt  *domain.SavedPrompt
}

// codeResult is the rendered output of the code builder.
type codeResult struct {
	IsHTML      bool
	DefaultTab  string
	Highlighted template.HTML
	Preview     preview.Result
}

func relativeTime(ts string) string {
	t, err := time.ParseInLocation(state.TimestampLayout, ts, time.Local)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func isHTMLTarget(language string) bool {
	return strings.EqualFold(language, "HTML")
}
