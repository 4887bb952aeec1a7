package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/satyagyan/internal/checker"
	"github.com/nao1215/satyagyan/internal/database"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/pipeline"
	"github.com/nao1215/satyagyan/internal/report"
)

// stepFunc is a pipeline step backed by a function.
type stepFunc struct {
	name string
	fn   func(r *model.FactCheckReport) error
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Do(_ context.Context, r *model.FactCheckReport) error { return s.fn(r) }

// newTestChecker returns a checker whose pipeline fails for content
// containing "fail" and otherwise finds the claim false.
func newTestChecker(store database.Store) *checker.Checker {
	factory := func(opts ...pipeline.Option) *pipeline.Pipeline {
		p := pipeline.New(opts...)
		p.AddSteps(
			stepFunc{name: pipeline.StepExtract, fn: func(r *model.FactCheckReport) error {
				r.Content = r.Input.Subject()
				return nil
			}},
			stepFunc{name: pipeline.StepVerification, fn: func(r *model.FactCheckReport) error {
				if strings.Contains(r.Content, "fail") {
					return errors.New("model unavailable")
				}
				r.Result = "SUMMARY: not supported\nVERDICT: FALSE"
				r.AddSource(model.Source{Title: "Evidence", URL: "https://evidence.example"})
				return nil
			}},
		)
		return p
	}
	opts := []checker.Option{checker.WithCache(false, 0)}
	if store != nil {
		opts = append(opts, checker.WithStore(store))
	}
	return checker.New(factory, opts...)
}

func newTestServer(t *testing.T, withStore bool) (*Server, database.Store) {
	t.Helper()

	var store database.Store
	opts := []Option{WithVersion("v0.0.1"), WithMaxUploadSize(1 << 20)}
	if withStore {
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		store = db
		opts = append(opts, WithStore(db))
	}
	return New(newTestChecker(store), opts...), store
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v: %q", err, rec.Body.String())
	}
	return resp
}

func TestCheckAPI(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, true)
	h := srv.Handler()

	t.Run("text claim", func(t *testing.T) {
		t.Parallel()

		rec := postJSON(t, h, `{"text":"The Great Wall is visible from space"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
		}
		var got model.FactCheckReport
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Verdict != model.VerdictFalse || got.Input.Kind != model.InputText {
			t.Errorf("unexpected report: verdict %q kind %q", got.Verdict, got.Input.Kind)
		}
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", `{}`, http.StatusBadRequest},
		{"malformed JSON", `{"text":`, http.StatusBadRequest},
		{"more than one input", `{"text":"a","url":"https://a.example"}`, http.StatusBadRequest},
		{"invalid url", `{"url":"not a url"}`, http.StatusBadRequest},
		{"invalid youtube url", `{"youtube_url":"https://vimeo.com/1"}`, http.StatusBadRequest},
		{"pipeline failure", `{"text":"please fail"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := postJSON(t, h, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.want, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}

	t.Run("pipeline failure names the stored report", func(t *testing.T) {
		t.Parallel()

		rec := postJSON(t, h, `{"text":"this will fail"}`)
		resp := decodeError(t, rec)
		if resp.ID == "" || !strings.Contains(resp.Error, "verification") {
			t.Errorf("unexpected error response: %+v", resp)
		}
	})

	t.Run("document upload", func(t *testing.T) {
		t.Parallel()

		body, ct := multipartBody(t, nil, "claim.txt", "Bats are blind.")
		req := httptest.NewRequest(http.MethodPost, "/api/check", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
		}
		var got model.FactCheckReport
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Input.Kind != model.InputDocument || got.Input.FileName != "claim.txt" {
			t.Errorf("unexpected input: %+v", got.Input)
		}
		if got.Content != "Bats are blind." {
			t.Errorf("Content = %q", got.Content)
		}
	})

	t.Run("unsupported upload", func(t *testing.T) {
		t.Parallel()

		body, ct := multipartBody(t, nil, "photo.png", "png")
		req := httptest.NewRequest(http.MethodPost, "/api/check", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestCheckForm(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, true)
	h := srv.Handler()

	t.Run("index page", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		for _, want := range []string{`name="mode"`, `name="youtube_url"`, `type="file"`, "v0.0.1"} {
			if !strings.Contains(rec.Body.String(), want) {
				t.Errorf("expected page to contain %q", want)
			}
		}
	})

	t.Run("url encoded submit renders the verdict", func(t *testing.T) {
		t.Parallel()

		form := url.Values{"mode": {"text"}, "text": {"Bulls hate red"}, "url": {"ignored"}}
		req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
		}
		body := rec.Body.String()
		for _, want := range []string{"verdict-false", "THE PROVIDED INFORMATION IS FALSE", "/report.txt", "https://evidence.example"} {
			if !strings.Contains(body, want) {
				t.Errorf("expected result page to contain %q", want)
			}
		}
	})

	t.Run("multipart document submit", func(t *testing.T) {
		t.Parallel()

		body, ct := multipartBody(t, map[string]string{"mode": "document"}, "notes.txt", "Goldfish remember for months.")
		req := httptest.NewRequest(http.MethodPost, "/check", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid input shows the form again", func(t *testing.T) {
		t.Parallel()

		form := url.Values{"mode": {"youtube"}, "youtube_url": {"https://example.com/video"}}
		req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "valid YouTube URL") {
			t.Errorf("expected validation message, got %q", rec.Body.String())
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		t.Parallel()

		form := url.Values{"mode": {"telepathy"}}
		req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHistoryRoutes(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t, true)
	h := srv.Handler()

	saved := model.NewFactCheckReport(model.NewTextInput("Lightning never strikes twice"))
	saved.Result = "VERDICT: FALSE"
	saved.Finalize()
	if err := store.SaveCheck(t.Context(), saved); err != nil {
		t.Fatal(err)
	}
	other := model.NewFactCheckReport(model.NewTextInput("Water boils at 100C at sea level"))
	other.Result = "VERDICT: TRUE"
	other.Finalize()
	if err := store.SaveCheck(t.Context(), other); err != nil {
		t.Fatal(err)
	}

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("list with verdict filter", func(t *testing.T) {
		rec := get("/api/checks?verdict=false&limit=10")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var rows []checkSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].ID != saved.ID {
			t.Errorf("unexpected rows: %+v", rows)
		}
	})

	t.Run("bad query parameters", func(t *testing.T) {
		if rec := get("/api/checks?limit=-1"); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=-1: status = %d", rec.Code)
		}
		if rec := get("/api/checks?verdict=maybe"); rec.Code != http.StatusBadRequest {
			t.Errorf("verdict=maybe: status = %d", rec.Code)
		}
	})

	t.Run("get one", func(t *testing.T) {
		rec := get("/api/checks/" + saved.ID)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Lightning never strikes twice") {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if rec := get("/api/checks/does-not-exist"); rec.Code != http.StatusNotFound {
			t.Errorf("unknown id: status = %d", rec.Code)
		}
	})

	t.Run("download report", func(t *testing.T) {
		rec := get("/api/checks/" + saved.ID + "/report.txt")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="`+report.DownloadFileName+`"` {
			t.Errorf("Content-Disposition = %q", cd)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("Content-Type = %q", ct)
		}
		if !strings.Contains(rec.Body.String(), model.VerdictFalse.Banner()) {
			t.Error("expected verdict banner in download")
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/checks/"+other.ID, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec := get("/api/checks/" + other.ID); rec.Code != http.StatusNotFound {
			t.Errorf("expected deleted check to be gone, got %d", rec.Code)
		}
	})
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/checks", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	postJSON(t, h, `{"text":"Sharks are mammals"}`)
	postJSON(t, h, `{"text":"please fail"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`satyagyan_checks_total{verdict="FALSE"}`,
		`satyagyan_check_errors_total{stage="verification"} 1`,
		`satyagyan_http_requests_total{code="200",method="POST",route="/api/check"} 1`,
		"satyagyan_check_duration_seconds_count",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}

func TestServeShutdown(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz") //nolint:noctx // test request
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
