package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/config"
	"github.com/dmitrijs2005/vidhub/internal/server/media"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUploader struct {
	mu   sync.Mutex
	fail bool
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	if localPath == "" {
		return nil, media.ErrNoFile
	}
	defer os.Remove(localPath)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("backend down")
	}
	key := "avatars/" + filepath.Base(localPath)
	return &media.Asset{URL: "http://cdn.local/media/" + key, Key: key}, nil
}

type testEnv struct {
	router   *gin.Engine
	repo     *accounts.MemoryRepository
	uploader *fakeUploader
	spoolDir string
}

func newTestEnv(t *testing.T, maxUploadBytes int64) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
	}
	repo := accounts.NewMemoryRepository()
	up := &fakeUploader{}
	sessions := services.NewSessionService(repo, cfg, nil)
	accountSvc := services.NewAccountService(repo, sessions, up, nil)

	dir := t.TempDir()
	spool, err := NewSpool(dir)
	require.NoError(t, err)

	h := NewHandler(accountSvc, sessions, spool, CookieSettings{
		Secure:     true,
		AccessTTL:  cfg.AccessTokenValidityDuration,
		RefreshTTL: cfg.RefreshTokenValidityDuration,
	})
	return &testEnv{
		router:   NewRouter(h, NewVerifier(sessions), maxUploadBytes, logging.Nop{}),
		repo:     repo,
		uploader: up,
		spoolDir: dir,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type upload struct {
	field, name string
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

func aliceForm() map[string]string {
	return map[string]string{
		"fullname": "Alice",
		"email":    "alice@x.com",
		"username": "alice",
		"password": "pw123",
	}
}

func (e *testEnv) registerAlice(t *testing.T) {
	t.Helper()
	rec := e.do(multipartRequest(t, http.MethodPost, "/api/v1/users/register", aliceForm(), upload{"avatar", "me.png"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

type session struct {
	access, refresh string
}

func (e *testEnv) login(t *testing.T, username, password string) session {
	t.Helper()
	rec := e.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": username, "password": password,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].(map[string]any)
	return session{access: data["accessToken"].(string), refresh: data["refreshToken"].(string)}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
