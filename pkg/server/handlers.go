package server

import (
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"strings"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/fetch"
	"github.com/cperrin88/grabvid/pkg/pipeline"
)

type pageData struct {
	URL     string
	Error   string
	Catalog *catalogView
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.FormValue("url"))
	if url == "" {
		s.render(w, http.StatusBadRequest, pageData{Error: "Please enter a URL"})
		return
	}

	catalog, err := s.pipeline.FetchVariants(r.Context(), url)
	if err != nil {
		s.render(w, statusFor(err), pageData{URL: url, Error: err.Error()})
		return
	}
	s.render(w, http.StatusOK, pageData{URL: url, Catalog: newCatalogView(catalog)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.FormValue("url"))
	formatID := strings.TrimSpace(r.FormValue("format_id"))

	dl, err := s.pipeline.StartDownload(r.Context(), url, formatID)
	if err != nil {
		s.render(w, statusFor(err), pageData{URL: url, Error: err.Error()})
		return
	}
	defer func() {
		if err := dl.Release(); err != nil {
			logger.Error("failed to release download", logger.Fields{"job_id": dl.Job.ID, "error": err.Error()})
		}
	}()

	f, err := dl.Open()
	if err != nil {
		logger.Error("failed to open staged file", logger.Fields{"job_id": dl.Job.ID, "error": err.Error()})
		s.render(w, http.StatusInternalServerError, pageData{URL: url, Error: "internal error: staged file is unreadable"})
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		s.render(w, http.StatusInternalServerError, pageData{URL: url, Error: "internal error: staged file is unreadable"})
		return
	}

	name := dl.Name()
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
	logger.Info("download served", logger.Fields{"job_id": dl.Job.ID, "file": name, "bytes": info.Size()})
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleAPIVariants(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.pipeline.FetchVariants(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		body := apiError{Error: err.Error()}
		var je *pipeline.JobError
		if stderrors.As(err, &je) {
			body.Kind = string(je.Kind)
		}
		writeJSON(w, statusFor(err), body)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

type healthResponse struct {
	Status         string `json:"status"`
	CachedCatalogs int    `json:"cached_catalogs"`
	ActiveJobs     int    `json:"active_jobs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		CachedCatalogs: s.pipeline.CachedCatalogs(),
		ActiveJobs:     s.pipeline.ActiveJobCount(),
	})
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var je *pipeline.JobError
	if !stderrors.As(err, &je) {
		return http.StatusInternalServerError
	}
	switch je.Kind {
	case pipeline.KindInvalidInput:
		return http.StatusBadRequest
	case pipeline.KindFetchFailed:
		if fetch.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case pipeline.KindDownloadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.Error("failed to render page", logger.Fields{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Error("failed to encode response", logger.Fields{"error": err.Error()})
	}
}
