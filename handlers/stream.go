package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"mediastream/internal/stream"
	"mediastream/models"
	"mediastream/services/library"
	"mediastream/utils"
)

type contentResolver interface {
	Resolve(name string) (absPath string, size int64, err error)
	List() []models.MediaEntry
	Neighbors(name string) (prev, next string)
}

var _ contentResolver = (*library.Service)(nil)

// StreamHandler serves media bytes with RFC 7233 range support, gated behind
// session-token validation.
type StreamHandler struct {
	Auth               authService
	Library            contentResolver
	FS                 afero.Fs
	ChunkSize          int64
	DefaultContentType string

	// streaming dedupes the per-client "now streaming" log line.
	mu        sync.Mutex
	streaming map[string]string
}

func NewStreamHandler(auth authService, lib contentResolver, fsys afero.Fs, chunkSize int64, defaultContentType string) *StreamHandler {
	if chunkSize <= 0 {
		chunkSize = stream.DefaultChunkSize
	}
	if defaultContentType == "" {
		defaultContentType = "video/mp4"
	}
	return &StreamHandler{
		Auth:               auth,
		Library:            lib,
		FS:                 fsys,
		ChunkSize:          chunkSize,
		DefaultContentType: defaultContentType,
		streaming:          make(map[string]string),
	}
}

// Listing returns the library contents, with previous/next navigation for
// the optional "around" entry.
func (h *StreamHandler) Listing(w http.ResponseWriter, r *http.Request) {
	if _, err := h.validate(r); err != nil {
		redirectToLogin(w, r, err)
		return
	}

	response := struct {
		Files    []models.MediaEntry `json:"files"`
		Previous string              `json:"previous,omitempty"`
		Next     string              `json:"next,omitempty"`
	}{Files: h.Library.List()}

	if around := r.URL.Query().Get("around"); around != "" {
		response.Previous, response.Next = h.Library.Neighbors(around)
	}

	writeJSON(w, http.StatusOK, response)
}

// ServeVideo streams the requested file. Responses carry the exact header
// set range-capable players depend on; invalid ranges get a 416 with
// "Content-Range: bytes */<size>".
func (h *StreamHandler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	client := clientHost(r)

	username, err := h.validate(r)
	if err != nil {
		redirectToLogin(w, r, err)
		return
	}

	name := r.URL.Query().Get("file")
	if name == "" {
		writeJSONError(w, http.StatusMisdirectedRequest, "Misdirected request, please route through the login page.")
		return
	}

	absPath, size, err := h.Library.Resolve(name)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			slog.Info("stream.not_found", "client", client, "file", name)
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("%q NOT FOUND", name))
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to resolve media")
		return
	}

	h.logStreamStart(client, username, name)

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", h.contentType(absPath))
	w.Header().Set("Content-Encoding", "identity")
	w.Header().Set("Access-Control-Expose-Headers", utils.ExposedHeaders)

	br := stream.ByteRange{Start: 0, End: size - 1}
	status := http.StatusOK

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		br, err = stream.ParseRange(rangeHeader, size)
		if err != nil {
			slog.Info("stream.range.invalid", "client", client, "file", name, "err", err)
			// RFC 7233: an unsatisfiable range names the current size.
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", br.ContentRange(size))
		status = http.StatusPartialContent
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", br.Len()))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}

	reader, err := stream.NewChunkReader(h.FS, absPath, br, h.ChunkSize)
	if err != nil {
		// Headers are already out; all we can do is drop the connection.
		slog.Error("stream.open_failed", "client", client, "file", name, "err", err)
		return
	}
	defer reader.Close()

	h.copyChunks(w, reader, client, name)
}

// copyChunks pumps chunks to the client, flushing between writes. A write
// error means the client went away; the read side is closed promptly either
// way. Partial deliveries are never retried.
func (h *StreamHandler) copyChunks(w http.ResponseWriter, reader io.Reader, client, name string) {
	buf := make([]byte, h.ChunkSize)
	flusher, _ := w.(http.Flusher)

	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				slog.Info("stream.client_closed", "client", client, "file", name, "err", writeErr)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				slog.Error("stream.read_failed", "client", client, "file", name, "err", readErr)
			}
			return
		}
	}
}

func (h *StreamHandler) validate(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return h.Auth.Validate("")
	}
	return h.Auth.Validate(cookie.Value)
}

// contentType resolves the Content-Type from the file extension, falling
// back to content sniffing and finally to the configured default.
func (h *StreamHandler) contentType(absPath string) string {
	if byExt := mime.TypeByExtension(filepath.Ext(absPath)); byExt != "" {
		return byExt
	}
	if f, err := h.FS.Open(absPath); err == nil {
		defer f.Close()
		if detected, err := mimetype.DetectReader(f); err == nil && detected.String() != "application/octet-stream" {
			return detected.String()
		}
	}
	return h.DefaultContentType
}

// logStreamStart logs one line per (client, file) transition instead of one
// per range request.
func (h *StreamHandler) logStreamStart(client, username, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streaming[client] == name {
		return
	}
	h.streaming[client] = name
	slog.Info("stream.started", "client", client, "username", username, "file", name)
}
