package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kination/runtopo/internal/render"
	"github.com/kination/runtopo/internal/store"
)

// Response is the body of error and status replies
type Response struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Summary describes a stored topology without its graph
type Summary struct {
	Namespace   string    `json:"namespace"`
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	ComputedAt  time.Time `json:"computedAt"`
	Done        bool      `json:"done"`
	Nodes       int       `json:"nodes"`
	Unresolved  []string  `json:"unresolved,omitempty"`
}

// ListResponse is the body of the list endpoint
type ListResponse struct {
	Items []Summary `json:"items"`
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		write(rw, http.StatusServiceUnavailable, Response{Message: "store unavailable", Detail: err.Error()})
		return
	}
	write(rw, http.StatusOK, Response{Message: "ok"})
}

func (s *Server) handleList(rw http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		write(rw, http.StatusBadRequest, Response{Message: "invalid list options", Detail: err.Error()})
		return
	}

	entries, err := s.store.ListTopologies(r.Context(), chi.URLParam(r, "namespace"), opts)
	if err != nil {
		write(rw, http.StatusInternalServerError, Response{Message: "list topologies", Detail: err.Error()})
		return
	}

	resp := ListResponse{Items: make([]Summary, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, Summary{
			Namespace:   e.Namespace,
			Name:        e.Name,
			Fingerprint: formatFingerprint(e.Fingerprint),
			ComputedAt:  e.ComputedAt,
			Done:        e.Done,
			Nodes:       len(e.Topology.Nodes),
			Unresolved:  e.Unresolved,
		})
	}
	write(rw, http.StatusOK, resp)
}

func (s *Server) handleTopology(rw http.ResponseWriter, r *http.Request) {
	namespace, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")

	entry, err := s.store.GetTopology(r.Context(), namespace, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			write(rw, http.StatusNotFound, Response{Message: fmt.Sprintf("no topology for %s/%s", namespace, name)})
			return
		}
		write(rw, http.StatusInternalServerError, Response{Message: "get topology", Detail: err.Error()})
		return
	}

	rw.Header().Set("ETag", strconv.Quote(formatFingerprint(entry.Fingerprint)))

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		write(rw, http.StatusOK, entry.Topology)
	case "dot":
		out, err := render.DOT(name, entry.Topology)
		if err != nil {
			write(rw, http.StatusInternalServerError, Response{Message: "render topology", Detail: err.Error()})
			return
		}
		rw.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte(out))
	default:
		write(rw, http.StatusBadRequest, Response{Message: fmt.Sprintf("unsupported format %q", format)})
	}
}

func listOptions(r *http.Request) (store.ListOptions, error) {
	var opts store.ListOptions
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	return opts, nil
}

func formatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

func write(rw http.ResponseWriter, status int, response interface{}) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(response); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = rw.Write(buf.Bytes())
}
