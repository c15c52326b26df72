package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/site"
	"git.home.luguber.info/inful/postbuilder/internal/version"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string       `json:"status"`
	Version version.Info `json:"version"`
	Uptime  float64      `json:"uptime_seconds"`
}

// FailedPost names a post that failed in the last build.
type FailedPost struct {
	Slug  string `json:"slug"`
	Error string `json:"error"`
}

// BuildSummary describes a finished build.
type BuildSummary struct {
	BuildID    string         `json:"build_id"`
	Outcome    string         `json:"outcome"`
	Counts     map[string]int `json:"counts"`
	Failed     []FailedPost   `json:"failed,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Running   bool          `json:"running"`
	Reason    string        `json:"reason,omitempty"`
	Commit    string        `json:"commit,omitempty"`
	Finished  *time.Time    `json:"finished,omitempty"`
	LastBuild *BuildSummary `json:"last_build,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func summarize(r *site.Report) *BuildSummary {
	if r == nil {
		return nil
	}
	sum := &BuildSummary{
		BuildID:    r.BuildID,
		Outcome:    string(r.Outcome()),
		Counts:     make(map[string]int),
		DurationMS: r.Duration().Milliseconds(),
	}
	for outcome, n := range r.Counts() {
		sum.Counts[string(outcome)] = n
	}
	for _, f := range r.Failed() {
		fp := FailedPost{Slug: f.Slug}
		if f.Err != nil {
			fp.Error = f.Err.Error()
		}
		sum.Failed = append(sum.Failed, fp)
	}
	return sum
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Get(),
		Uptime:  time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.rebuilder.Status()
	resp := StatusResponse{
		Running:   st.Running,
		Reason:    st.Reason,
		Commit:    st.Commit,
		LastBuild: summarize(st.Report),
	}
	if !st.Finished.IsZero() {
		finished := st.Finished.UTC()
		resp.Finished = &finished
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

// handleRebuild runs a build synchronously. ?sync=true refreshes the content
// repository first.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	syncContent := false
	if v := r.URL.Query().Get("sync"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.adapter.WriteErrorResponse(w, r, derrors.ValidationError("invalid sync parameter").
				WithContext("sync", v).
				Build())
			return
		}
		syncContent = b
	}

	report, err := s.rebuilder.Run(r.Context(), "api", syncContent)
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, summarize(report))
}

// siteHandler serves the generated site. Unknown paths get 404.html with a
// 404 status, and directories without an index page are not listed.
type siteHandler struct {
	dir   string
	files http.Handler
}

func newSiteHandler(dir string) http.Handler {
	return &siteHandler{dir: dir, files: http.FileServer(http.Dir(dir))}
}

func (h *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.exists(r.URL.Path) {
		h.files.ServeHTTP(w, r)
		return
	}
	h.notFound(w)
}

func (h *siteHandler) exists(urlPath string) bool {
	rel := filepath.FromSlash(path.Clean("/" + urlPath))
	full := filepath.Join(h.dir, rel)
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err = os.Stat(filepath.Join(full, site.PageFile))
		return err == nil
	}
	return true
}

func (h *siteHandler) notFound(w http.ResponseWriter) {
	// #nosec G304 -- fixed file name inside the output directory.
	page, err := os.ReadFile(filepath.Join(h.dir, site.NotFoundFile))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(page)
}
