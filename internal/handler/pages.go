package handler

import (
	"net/http"
	"path/filepath"
)

// SurveyRedirectPath is where the retired survey page now lives.
const SurveyRedirectPath = "/settings"

// PageHandler serves the browser entry points of the single-page app.
type PageHandler struct {
	indexPath string
}

// NewPageHandler serves index.html from staticDir for every page route.
func NewPageHandler(staticDir string) *PageHandler {
	return &PageHandler{indexPath: filepath.Join(staticDir, "index.html")}
}

// Survey permanently forwards the old survey page to the settings page.
// It does not look at the session.
func (h *PageHandler) Survey(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, SurveyRedirectPath, http.StatusFound)
}

// App serves the app shell. Client-side routing takes it from there.
func (h *PageHandler) App(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, h.indexPath)
}
