package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diploma_generator/config"
	"diploma_generator/generator"
	"diploma_generator/publisher"
)

var testSections = []generator.SectionSpec{
	{Title: "ВСТУП", Instruction: "Опишіть актуальність."},
	{Title: "РОЗДІЛ 1", Instruction: "Огляд літератури."},
	{Title: "ВИСНОВКИ", Instruction: "Підсумуйте."},
}

type failingLLM struct {
	calls  atomic.Int32
	failAt int32
}

func (f *failingLLM) Complete(_ context.Context, _ generator.Prompt) (string, error) {
	if f.calls.Add(1) == f.failAt {
		return "", &generator.APIError{Status: http.StatusInternalServerError, Body: "boom"}
	}
	return "text", nil
}

type blockingLLM struct{}

func (blockingLLM) Complete(ctx context.Context, _ generator.Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type brokenPublisher struct{}

func (brokenPublisher) Publish(context.Context, *generator.Run) (string, error) {
	return "", fmt.Errorf("%w: disk full", publisher.ErrPersistence)
}

type testEnv struct {
	srv *httptest.Server
	dir string
}

type envOption func(*envSettings)

type envSettings struct {
	llm generator.LLMClient
	pub publisher.Publisher
	cfg config.ServerConfig
}

func withLLM(llm generator.LLMClient) envOption {
	return func(s *envSettings) { s.llm = llm }
}

func withPublisher(p publisher.Publisher) envOption {
	return func(s *envSettings) { s.pub = p }
}

func withTimeout(d time.Duration) envOption {
	return func(s *envSettings) { s.cfg.GenerateTimeout = d }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	settings := envSettings{
		llm: generator.MockLLM{},
		pub: publisher.NewFilePublisher(dir, false, logger),
		cfg: config.ServerConfig{GenerateTimeout: 5 * time.Second, MaxConcurrentRuns: 2},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	pipeline, err := generator.NewPipeline(settings.llm, logger, generator.WithSections(testSections))
	require.NoError(t, err)

	s, err := New(pipeline, settings.pub, settings.cfg, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, dir: dir}
}

func (e *testEnv) postJSON(t *testing.T, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+"/api/generate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestGenerateSuccess(t *testing.T) {
	env := newTestEnv(t)

	resp, out := env.postJSON(t, `{"topic":"Хмарні обчислення","specialty":"Інформатика","pages":40}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	content := out["content"].(string)
	assert.True(t, strings.HasPrefix(content, "ВСТУП\n\n"))
	assert.Contains(t, content, "Хмарні обчислення")

	path := out["filePath"].(string)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	runID := out["runId"].(string)
	resp, body := env.get(t, "/api/runs/"+runID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec struct {
		Run struct {
			State string `json:"state"`
			Total int    `json:"total"`
		} `json:"run"`
		Location string `json:"location"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &rec))
	assert.Equal(t, "completed", rec.Run.State)
	assert.Equal(t, len(testSections), rec.Run.Total)
	assert.Equal(t, path, rec.Location)

	resp, body = env.get(t, "/api/runs/"+runID+"/html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "<h2>ВИСНОВКИ</h2>")
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "too few pages", body: `{"topic":"T","specialty":"S","pages":5}`, message: "pages must be at least 10"},
		{name: "too many pages", body: `{"topic":"T","specialty":"S","pages":201}`, message: "pages must be at most 200"},
		{name: "blank topic", body: `{"topic":"   ","specialty":"S","pages":50}`, message: "topic is required"},
		{name: "missing specialty", body: `{"topic":"T","pages":50}`, message: "specialty is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := env.postJSON(t, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, out["details"], tc.message)
		})
	}

	resp, out := env.postJSON(t, `{"topic":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request body", out["error"])
}

func TestGenerateSectionFailure(t *testing.T) {
	env := newTestEnv(t, withLLM(&failingLLM{failAt: 2}))

	resp, out := env.postJSON(t, `{"topic":"T","specialty":"S","pages":50}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "generation failed", out["error"])
	assert.Equal(t, "РОЗДІЛ 1", out["section"])
	assert.NotContains(t, out["error"], "boom")

	resp, body := env.get(t, "/api/runs/"+out["runId"].(string))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"state":"failed"`)
	assert.NotContains(t, body, `"document"`)

	resp, _ = env.get(t, "/api/runs/"+out["runId"].(string)+"/html")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGenerateTimeout(t *testing.T) {
	env := newTestEnv(t, withLLM(blockingLLM{}), withTimeout(20*time.Millisecond))

	resp, out := env.postJSON(t, `{"topic":"T","specialty":"S","pages":50}`)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "ВСТУП", out["section"])
}

func TestGeneratePersistenceFailure(t *testing.T) {
	env := newTestEnv(t, withPublisher(brokenPublisher{}))

	resp, out := env.postJSON(t, `{"topic":"T","specialty":"S","pages":50}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "failed to save the document", out["error"])
}

func TestGenerateNoSlot(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipeline, err := generator.NewPipeline(generator.MockLLM{}, logger, generator.WithSections(testSections))
	require.NoError(t, err)
	s, err := New(pipeline, publisher.NewFilePublisher(t.TempDir(), false, logger),
		config.ServerConfig{GenerateTimeout: time.Second, MaxConcurrentRuns: 1}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/generate",
		strings.NewReader(`{"topic":"T","specialty":"S","pages":50}`)).WithContext(ctx)
	rec := httptest.NewRecorder()

	s.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	serr := &generator.SectionError{Index: 1, Title: "X", Err: &generator.APIError{Status: 500}}
	cancelled := &generator.SectionError{Index: 0, Title: "X", Err: fmt.Errorf("%w: %w", generator.ErrCancelled, context.Canceled)}

	assert.Equal(t, http.StatusBadGateway, statusFor(serr))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(cancelled))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(fmt.Errorf("%w: %w", errNoSlot, context.Canceled)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("%w: x", publisher.ErrPersistence)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("other")))
}

func TestRunLookupErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/api/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/api/runs/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFormPages(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<form method="post"`)

	post := func(values url.Values) (*http.Response, string) {
		resp, err := http.PostForm(env.srv.URL+"/", values)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(data)
	}

	resp, body = post(url.Values{"topic": {"Тема <b>"}, "specialty": {"Фізика"}, "pages": {"30"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Збережено")
	assert.Contains(t, body, "<h2>ВСТУП</h2>")
	assert.Contains(t, body, "Тема &lt;b&gt;")

	resp, body = post(url.Values{"topic": {"Тема"}, "specialty": {"Фізика"}, "pages": {"many"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "pages must be a whole number")

	resp, body = post(url.Values{"topic": {""}, "specialty": {"Фізика"}, "pages": {"30"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "topic is required")
	assert.Contains(t, body, `value="Фізика"`)
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	env.postJSON(t, `{"topic":"T","specialty":"S","pages":50}`)
	resp, body = env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "diploma_sections_generated_total")
}

func TestNewRejectsBadConfig(t *testing.T) {
	pub := publisher.NewFilePublisher(t.TempDir(), false, nil)
	pipeline, err := generator.NewPipeline(generator.MockLLM{}, nil)
	require.NoError(t, err)

	_, err = New(nil, pub, config.ServerConfig{GenerateTimeout: time.Second, MaxConcurrentRuns: 1}, nil)
	assert.Error(t, err)
	_, err = New(pipeline, pub, config.ServerConfig{GenerateTimeout: time.Second}, nil)
	assert.Error(t, err)
	_, err = New(pipeline, pub, config.ServerConfig{MaxConcurrentRuns: 1}, nil)
	assert.Error(t, err)
}
