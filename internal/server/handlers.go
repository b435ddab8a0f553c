package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/pagesearch/internal/extract"
	"github.com/hyperjump/pagesearch/internal/ingest"
	"github.com/hyperjump/pagesearch/internal/models"
	"github.com/hyperjump/pagesearch/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	query := models.SearchQuery{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
		query.K = k
	}
	s.search(w, r, &query)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &query)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	if err := query.Validate(s.config.Search.MaxK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("k", query.K))
	response, err := s.deps.Engine.Query(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// uploadName reduces a client-supplied file name to a safe base name.
func uploadName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("invalid file name %q", raw)
	}
	return name, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field \"pdf\"")
		return
	}
	defer file.Close()

	name, err := uploadName(header.Filename)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Formats != nil && !s.deps.Formats.Supports(name) {
		s.respondError(w, http.StatusBadRequest, "unsupported document format")
		return
	}

	dest := filepath.Join(s.config.Storage.DocumentsDir, name)
	if err := saveUpload(file, dest); err != nil {
		s.logger.Error("failed to store upload", zap.String("document", name), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	s.logger.Info("document uploaded", zap.String("document", name))

	// A watcher may pick up the same file; IngestIfAbsent keeps only one copy of its pages.
	res, fresh := s.deps.Pipeline.IngestIfAbsent(r.Context(), extract.Document{Name: name, Path: dest})
	if fresh == ingest.Stale {
		s.logger.Info("document replaced, re-indexing", zap.String("document", name))
		_, results, err := s.reindex(r.Context())
		if err != nil {
			s.logger.Error("upload: reindex failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		res = models.IngestResult{Document: name}
		for _, got := range results {
			if got.Document == name {
				res = got
			}
		}
	}
	if !res.OK() {
		s.respondError(w, http.StatusUnprocessableEntity, res.Err.Error())
		return
	}
	if err := s.deps.Gateway.Save(s.deps.Pipeline.Corpus()); err != nil {
		s.logger.Error("failed to save index", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to save index")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"document": name, "pages": res.Pages})
}

// saveUpload writes src to dest through a temp file in the same directory.
func saveUpload(src io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

type processAllResponse struct {
	Documents int               `json:"documents"`
	Pages     int               `json:"pages"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	total, results, err := s.reindex(r.Context())
	if err != nil {
		s.logger.Error("process_all: reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.deps.Gateway.Save(s.deps.Pipeline.Corpus()); err != nil {
		s.logger.Error("process_all: save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to save index")
		return
	}
	resp := processAllResponse{Documents: len(results), Pages: total}
	for _, res := range results {
		if res.OK() {
			continue
		}
		resp.Failed++
		if resp.Errors == nil {
			resp.Errors = make(map[string]string)
		}
		resp.Errors[res.Document] = res.Err.Error()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// reindex rebuilds the corpus from the documents directory.
func (s *Server) reindex(ctx context.Context) (int, []models.IngestResult, error) {
	docs, err := ingest.Discover(s.config.Storage.DocumentsDir, s.config.Watch.Patterns, s.config.Watch.Exclude)
	if err != nil {
		return 0, nil, fmt.Errorf("discover documents: %w", err)
	}
	return s.deps.Pipeline.ReindexAll(ctx, docs)
}

func (s *Server) handleServeDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	// chi routes on RawPath when the request path carries escapes.
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	// http.Dir confines the lookup to the documents directory.
	f, err := http.Dir(s.config.Storage.DocumentsDir).Open(path.Clean("/" + name))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Registry == nil {
		s.respondError(w, http.StatusNotImplemented, "document registry not enabled")
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	docs, err := s.deps.Registry.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.DocumentStatus{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	c := s.deps.Pipeline.Corpus()
	st := s.config.Storage

	var match func(string) bool
	if s.deps.Formats != nil {
		match = s.deps.Formats.Supports
	}
	onDisk, err := storage.CountFiles(st.DocumentsDir, match)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents_on_disk": onDisk,
		"vectors":           c.Count(),
		"records":           c.RecordCount(),
		"config": map[string]interface{}{
			"documents_dir":           st.DocumentsDir,
			"index_path":              st.IndexPath,
			"metadata_path":           st.MetadataPath,
			"index_type":              st.IndexType,
			"embedding_provider":      s.config.Embedding.Provider,
			"embedding_dimensions":    s.config.Embedding.Dimensions,
			"min_threshold":           s.config.Search.MinThresholdOrDefault(),
			"most_relevant_threshold": s.config.Search.MostRelevantThresholdOrDefault(),
			"default_k":               s.config.Search.DefaultK,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(st.IndexPath, st.MetadataPath, st.RegistryPath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	if s.deps.Registry != nil {
		if n, err := s.deps.Registry.Count(r.Context()); err == nil {
			resp["registered_documents"] = n
		}
		run, err := s.deps.Registry.LastRun(r.Context())
		switch {
		case err == nil:
			resp["last_run"] = run
		case !errors.Is(err, storage.ErrNotFound):
			s.logger.Warn("status: last run lookup failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
