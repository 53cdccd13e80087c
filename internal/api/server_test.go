package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"
	"github.com/iabetor/newsroom/internal/news"
	"github.com/iabetor/newsroom/internal/newsroom"
	"github.com/iabetor/newsroom/internal/report"
	"github.com/iabetor/newsroom/internal/store"
)

const testPassword = "s3cret"

type fakeCollector struct{}

func (fakeCollector) Collect(ctx context.Context, sources []string) ([]news.Item, []news.SourceError) {
	items := []news.Item{{Title: "Fresh", Link: "https://t.example/fresh", Source: "Tech"}}
	return items, []news.SourceError{{Source: "https://down.example/rss", Err: errors.New("timeout")}}
}

func (fakeCollector) Validate(ctx context.Context, u string) (string, error) {
	if strings.Contains(u, "bad") {
		return "", errors.New("not a feed")
	}
	return "Tech", nil
}

type fakeReporter struct{}

func (fakeReporter) Compose(ctx context.Context, items []news.Item) report.Outcome {
	return report.Outcome{Text: "## Tech\n- Fresh", Status: report.StatusOK, Model: "gemini-2.5-flash"}
}

func newTestRouter(t *testing.T, password string) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := func() time.Time { return time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC) }
	svc := newsroom.New(st, fakeCollector{}, fakeReporter{}, newsroom.WithClock(now))
	return NewServer(svc, password), st
}

func do(r http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var admin = map[string]string{"X-Admin-Password": testPassword}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, "")
	w := do(r, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), `"status":"ok"`))
}

func TestListReportsCountsViews(t *testing.T) {
	r, st := newTestRouter(t, "")
	ctx := context.Background()
	archive := map[string]string{"2026-02-19 08:00": "old", "2026-02-20 12:00": "new"}
	if err := store.Save(ctx, st, newsroom.ArchivePath, archive, "seed"); err != nil {
		t.Fatal(err)
	}

	var res reportsResponse
	for i := 0; i < 2; i++ {
		w := do(r, "GET", "/api/reports", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		json.Unmarshal(w.Body.Bytes(), &res)
	}
	assert.Equal(t, []string{"2026-02-20 12:00", "2026-02-19 08:00"}, res.Reports)
	assert.Equal(t, 2, res.TotalViews)
}

func TestGetReport(t *testing.T) {
	r, st := newTestRouter(t, "")

	w := do(r, "GET", "/api/reports/latest", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	if err := store.Save(context.Background(), st, newsroom.ArchivePath, map[string]string{"2026-02-20 12:00": "## AI"}, "seed"); err != nil {
		t.Fatal(err)
	}

	w = do(r, "GET", "/api/report?key="+url.QueryEscape("2026-02-20 12:00"), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var entry newsroom.Entry
	json.Unmarshal(w.Body.Bytes(), &entry)
	assert.Equal(t, "## AI", entry.Report)

	w = do(r, "GET", "/api/reports/latest", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "GET", "/api/report?key=nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, "GET", "/api/report", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDisabledWithoutPassword(t *testing.T) {
	r, _ := newTestRouter(t, "")
	w := do(r, "GET", "/api/admin/feeds", "", map[string]string{"X-Admin-Password": ""})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAuth(t *testing.T) {
	r, _ := newTestRouter(t, testPassword)

	w := do(r, "GET", "/api/admin/feeds", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "GET", "/api/admin/feeds", "", map[string]string{"X-Admin-Password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "GET", "/api/admin/feeds", "", map[string]string{"Authorization": "Bearer " + testPassword})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "GET", "/api/admin/feeds", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminFeeds(t *testing.T) {
	r, _ := newTestRouter(t, testPassword)

	w := do(r, "POST", "/api/admin/feeds", `{"url":"https://t.example/rss"}`, admin)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), `"title":"Tech"`))

	w = do(r, "POST", "/api/admin/feeds", `{"url":"https://t.example/rss"}`, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, "POST", "/api/admin/feeds", `{"url":"https://bad.example/rss"}`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, "POST", "/api/admin/feeds", `{"url":"https://bad.example/rss","validate":false}`, admin)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, "POST", "/api/admin/feeds", `{}`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, "GET", "/api/admin/feeds", "", admin)
	var list struct {
		Feeds []string `json:"feeds"`
		Total int      `json:"total"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	assert.Equal(t, []string{"https://t.example/rss", "https://bad.example/rss"}, list.Feeds)
	assert.Equal(t, 2, list.Total)

	w = do(r, "DELETE", "/api/admin/feeds?url="+url.QueryEscape("https://t.example/rss"), "", admin)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, "DELETE", "/api/admin/feeds?url="+url.QueryEscape("https://t.example/rss"), "", admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, "DELETE", "/api/admin/feeds", "", admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRun(t *testing.T) {
	r, _ := newTestRouter(t, testPassword)

	w := do(r, "POST", "/api/admin/runs", "", admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	do(r, "POST", "/api/admin/feeds", `{"url":"https://t.example/rss","validate":false}`, admin)

	w = do(r, "POST", "/api/admin/runs", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)

	var res runResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "2026-02-20 12:00", res.Key)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, []string{"https://down.example/rss"}, res.FailedSources)
	assert.Equal(t, "## Tech\n- Fresh", res.Report)
	assert.NotEqual(t, "", res.ID)

	w = do(r, "GET", "/api/reports/latest", "", nil)
	assert.Equal(t, true, strings.Contains(w.Body.String(), "2026-02-20 12:00"))
}

func TestAdminStatsAndHistory(t *testing.T) {
	r, _ := newTestRouter(t, testPassword)

	do(r, "GET", "/api/reports", "", nil)
	w := do(r, "GET", "/api/admin/stats", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"total_views":1}`, w.Body.String())

	// 目录存储不保留修订历史
	w = do(r, "GET", "/api/admin/history", "", admin)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
