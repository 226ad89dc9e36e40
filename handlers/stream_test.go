package handlers_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mediastream/handlers"
	"mediastream/services/auth"
	"mediastream/services/library"
)

type credStore map[string]string

func (s credStore) PasswordHash(username string) (string, bool) {
	hash, ok := s[username]
	return hash, ok
}

type testEnv struct {
	auth    *handlers.AuthHandler
	stream  *handlers.StreamHandler
	authSvc *auth.Service
	media   []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	media := make([]byte, 5000)
	for i := range media {
		media[i] = byte(i % 251)
	}
	require.NoError(t, afero.WriteFile(fs, "/media/movie.mp4", media, 0o644))

	lib, err := library.NewService(fs, library.Config{Root: "/media", Formats: []string{".mp4"}})
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("correcthorse"), bcrypt.MinCost)
	require.NoError(t, err)
	authSvc, err := auth.NewService(credStore{"alice": string(hash)}, auth.Config{
		SessionDuration:  time.Hour,
		LockoutThreshold: 3,
	})
	require.NoError(t, err)

	return &testEnv{
		auth:    handlers.NewAuthHandler(authSvc),
		stream:  handlers.NewStreamHandler(authSvc, lib, fs, 1024, "video/mp4"),
		authSvc: authSvc,
		media:   media,
	}
}

func (e *testEnv) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	issued, err := e.authSvc.Issue("alice")
	require.NoError(t, err)
	return &http.Cookie{Name: handlers.SessionCookie, Value: issued.Token}
}

func videoRequest(cookie *http.Cookie, file, rangeHeader string) *http.Request {
	target := "/video"
	if file != "" {
		target += "?file=" + file
	}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.RemoteAddr = "10.1.2.3:54321"
	if cookie != nil {
		r.AddCookie(cookie)
	}
	if rangeHeader != "" {
		r.Header.Set("Range", rangeHeader)
	}
	return r
}

func TestServeVideoRequiresToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, videoRequest(nil, "movie.mp4", ""))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, handlers.LoginPath+"?reason=no-token", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	bad := &http.Cookie{Name: handlers.SessionCookie, Value: "garbage"}
	env.stream.ServeVideo(w, videoRequest(bad, "movie.mp4", ""))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, handlers.LoginPath+"?reason=invalid-token", w.Header().Get("Location"))
}

func TestServeVideoMisdirectedWithoutFile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, videoRequest(env.sessionCookie(t), "", ""))
	assert.Equal(t, http.StatusMisdirectedRequest, w.Code)
}

func TestServeVideoNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, videoRequest(env.sessionCookie(t), "missing.mp4", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeVideoFullFile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, videoRequest(env.sessionCookie(t), "movie.mp4", ""))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, "identity", resp.Header.Get("Content-Encoding"))
	assert.Equal(t, "5000", resp.Header.Get("Content-Length"))
	assert.Empty(t, resp.Header.Get("Content-Range"))
	assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "Content-Range")
	assert.Equal(t, env.media, body)
}

func TestServeVideoPartialContent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, videoRequest(env.sessionCookie(t), "movie.mp4", "bytes=1000-2999"))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 1000-2999/5000", resp.Header.Get("Content-Range"))
	assert.Equal(t, "2000", resp.Header.Get("Content-Length"))
	assert.Equal(t, env.media[1000:3000], body)
}

func TestServeVideoOpenEndedRange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, videoRequest(env.sessionCookie(t), "movie.mp4", "bytes=4500-"))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 4500-4999/5000", resp.Header.Get("Content-Range"))
	assert.Equal(t, env.media[4500:], body)
}

func TestServeVideoInvalidRange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, header := range []string{"bytes=200-100", "bytes=0-999999", "bytes=abc-def"} {
		w := httptest.NewRecorder()
		env.stream.ServeVideo(w, videoRequest(env.sessionCookie(t), "movie.mp4", header))

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode, "header %q", header)
		assert.Equal(t, "bytes */5000", resp.Header.Get("Content-Range"), "header %q", header)
		assert.Empty(t, body, "header %q", header)
	}
}

func TestServeVideoHead(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	r := videoRequest(env.sessionCookie(t), "movie.mp4", "bytes=0-999")
	r.Method = http.MethodHead
	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, r)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "1000", resp.Header.Get("Content-Length"))
	assert.Empty(t, body)
}

func TestServeVideoSupersededSessionRedirects(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	cookie := env.sessionCookie(t)
	env.authSvc.Logout("alice")

	w := httptest.NewRecorder()
	env.stream.ServeVideo(w, videoRequest(cookie, "movie.mp4", ""))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, handlers.LoginPath+"?reason=invalid-token", w.Header().Get("Location"))
}

func TestListing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/library", nil)
	r.RemoteAddr = "10.1.2.3:54321"
	r.AddCookie(env.sessionCookie(t))
	env.stream.Listing(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "movie.mp4")

	// Unauthenticated listing redirects.
	w = httptest.NewRecorder()
	env.stream.Listing(w, httptest.NewRequest(http.MethodGet, "/api/library", nil))
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRepeatRangeRequestsStreamSameFile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.sessionCookie(t)

	// Sequential range requests, as a seeking player issues them.
	var got []byte
	for start := 0; start < 5000; start += 1250 {
		end := start + 1249
		w := httptest.NewRecorder()
		env.stream.ServeVideo(w, videoRequest(cookie, "movie.mp4", fmt.Sprintf("bytes=%d-%d", start, end)))
		resp := w.Result()
		require.Equal(t, http.StatusPartialContent, resp.StatusCode)
		chunk, _ := io.ReadAll(resp.Body)
		got = append(got, chunk...)
	}
	assert.Equal(t, env.media, got, "reassembled ranges equal the file")
}
