package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerefrer/stacked-pdf-generator/internal/config"
	"github.com/jerefrer/stacked-pdf-generator/internal/dispatch"
	"github.com/jerefrer/stacked-pdf-generator/internal/doctor"
	"github.com/jerefrer/stacked-pdf-generator/internal/store"
)

type fakeQueue struct {
	payloads   [][]byte
	cancelled  []string
	enqueueErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, payload []byte) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) Cancel(ctx context.Context, jobID string) error {
	q.cancelled = append(q.cancelled, jobID)
	return nil
}

type memStore struct {
	data map[string]store.Status
}

func newMemStore() *memStore { return &memStore{data: map[string]store.Status{}} }

func (s *memStore) Set(ctx context.Context, jobID string, st store.Status) error {
	s.data[jobID] = st
	return nil
}

func (s *memStore) Get(ctx context.Context, jobID string) (store.Status, bool, error) {
	st, ok := s.data[jobID]
	return st, ok, nil
}

func newTestServer(t *testing.T, q *fakeQueue, st *memStore, cfg config.ServerConfig) *httptest.Server {
	t.Helper()
	srv := New(Dependencies{Queue: q, Status: st, Doctor: doctor.New(doctor.Options{}), Cfg: cfg})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func writeTestPDF(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\ncontent\n%%EOF\n"), 0o644))
	return path
}

func lastJob(t *testing.T, q *fakeQueue) dispatch.Job {
	t.Helper()
	require.NotEmpty(t, q.payloads)
	var job dispatch.Job
	require.NoError(t, json.Unmarshal(q.payloads[len(q.payloads)-1], &job))
	return job
}

func TestConvertAcceptsLooseTypes(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPDF(t, dir)
	q := &fakeQueue{}
	st := newMemStore()
	ts := newTestServer(t, q, st, config.ServerConfig{})

	body := `{
		"input": "` + input + `",
		"output": "` + filepath.Join(dir, "out.pdf") + `",
		"rows": "2",
		"columns": 3,
		"portrait": "no",
		"paper": "a3",
		"sheet_margins": "10 10 10 10"
	}`
	resp, err := http.Post(ts.URL+"/convert", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cr convertResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cr))
	assert.Equal(t, "ok", cr.Status)
	assert.NotEmpty(t, cr.JobID)

	job := lastJob(t, q)
	assert.Equal(t, cr.JobID, job.ID)
	assert.Equal(t, 2, job.Rows)
	assert.Equal(t, 3, job.Columns)
	assert.False(t, job.Portrait)
	assert.Equal(t, "a3", job.Paper)
	assert.Equal(t, "10 10 10 10", job.SheetMargins)
	assert.Equal(t, "api", job.Source)

	stored, ok, _ := st.Get(context.Background(), cr.JobID)
	require.True(t, ok)
	assert.Equal(t, store.StateQueued, stored.State)
	assert.Equal(t, input, stored.Metadata["input"])
}

func TestConvertRejectsInvalidJobs(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPDF(t, dir)
	q := &fakeQueue{}
	ts := newTestServer(t, q, newMemStore(), config.ServerConfig{})

	cases := []struct {
		name     string
		body     string
		wantCode int
		wantText string
	}{
		{
			name:     "no grid shape",
			body:     `{"input": "` + input + `", "output": "out.pdf"}`,
			wantCode: http.StatusBadRequest,
			wantText: "Either rows and columns or pages per sheet must be provided",
		},
		{
			name:     "missing input",
			body:     `{"output": "out.pdf", "rows": 2, "columns": 2}`,
			wantCode: http.StatusBadRequest,
			wantText: "Missing input PDF",
		},
		{
			name:     "non-numeric rows",
			body:     `{"input": "` + input + `", "output": "out.pdf", "rows": "two", "columns": 2}`,
			wantCode: http.StatusBadRequest,
			wantText: "rows:",
		},
		{
			name:     "broken json",
			body:     `{"input": `,
			wantCode: http.StatusBadRequest,
			wantText: "invalid json",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/convert", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.wantCode, resp.StatusCode)
			b, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(b), tc.wantText)
		})
	}

	assert.Empty(t, q.payloads, "invalid jobs must not be enqueued")
}

func TestConvertMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeQueue{}, newMemStore(), config.ServerConfig{})
	resp, err := http.Get(ts.URL + "/convert")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	uploadDir := filepath.Join(dir, "uploads")
	resultDir := filepath.Join(dir, "results")
	q := &fakeQueue{}
	st := newMemStore()
	ts := newTestServer(t, q, st, config.ServerConfig{UploadDir: uploadDir, ResultDir: resultDir, MaxUploadMB: 8})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "book.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4\nuploaded\n%%EOF\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("pages_per_sheet", "7"))
	require.NoError(t, mw.WriteField("portrait", "false"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cr convertResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cr))

	job := lastJob(t, q)
	assert.Equal(t, "upload", job.Source)
	assert.Equal(t, 7, job.PagesPerSheet)
	assert.False(t, job.Portrait)
	assert.True(t, strings.HasPrefix(job.Input, uploadDir), "input %q not under upload dir", job.Input)
	assert.True(t, strings.HasSuffix(job.Input, "_book.pdf"))
	assert.Equal(t, filepath.Join(resultDir, job.ID+".pdf"), job.Output)

	saved, err := os.ReadFile(job.Input)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\nuploaded\n%%EOF\n", string(saved))
}

func TestUploadWithoutFile(t *testing.T) {
	ts := newTestServer(t, &fakeQueue{}, newMemStore(), config.ServerConfig{UploadDir: t.TempDir()})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("rows", "2"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	st := newMemStore()
	require.NoError(t, st.Set(context.Background(), "job-1", store.Status{
		State:   store.StateFailed,
		Message: "pdfjam failed: boom",
	}))
	ts := newTestServer(t, &fakeQueue{}, st, config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/status/job-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, store.StateFailed, body["state"])
	assert.Equal(t, "pdfjam failed: boom", body["message"])

	missing, err := http.Get(ts.URL + "/status/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCancel(t *testing.T) {
	q := &fakeQueue{}
	st := newMemStore()
	require.NoError(t, st.Set(context.Background(), "job-q", store.Status{State: store.StateQueued}))
	require.NoError(t, st.Set(context.Background(), "job-done", store.Status{State: store.StateSuccess}))
	ts := newTestServer(t, q, st, config.ServerConfig{})

	resp, err := http.Post(ts.URL+"/cancel?job_id=job-q", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"job-q"}, q.cancelled)
	got, _, _ := st.Get(context.Background(), "job-q")
	assert.Equal(t, store.StateCancelled, got.State)

	// finished jobs cannot be cancelled
	resp2, err := http.Post(ts.URL+"/cancel?job_id=job-done", "", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)

	resp3, err := http.Post(ts.URL+"/cancel?job_id=ghost", "", nil)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	result := filepath.Join(dir, "result.pdf")
	require.NoError(t, os.WriteFile(result, []byte("%PDF-1.4 final"), 0o644))

	st := newMemStore()
	require.NoError(t, st.Set(context.Background(), "up", store.Status{
		State:    store.StateSuccess,
		Metadata: map[string]interface{}{"source": "upload", "output": result},
	}))
	require.NoError(t, st.Set(context.Background(), "api-job", store.Status{
		State:    store.StateSuccess,
		Metadata: map[string]interface{}{"source": "api", "output": result},
	}))
	require.NoError(t, st.Set(context.Background(), "pending", store.Status{State: store.StateProcessing}))
	ts := newTestServer(t, &fakeQueue{}, st, config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/download/up")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "result.pdf")
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "%PDF-1.4 final", string(b))

	notUpload, err := http.Get(ts.URL + "/download/api-job")
	require.NoError(t, err)
	defer notUpload.Body.Close()
	assert.Equal(t, http.StatusBadRequest, notUpload.StatusCode)

	pending, err := http.Get(ts.URL + "/download/pending")
	require.NoError(t, err)
	defer pending.Body.Close()
	assert.Equal(t, http.StatusAccepted, pending.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeQueue{}, newMemStore(), config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	// healthy only when the tools happen to be installed; shape matters here
	assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, resp.StatusCode)

	var sum doctor.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.NotEmpty(t, sum.Pdfjam.Message)
	assert.Nil(t, sum.Redis)
}
