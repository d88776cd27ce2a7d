package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/jobs"
	"github.com/dvloznov/statement-splitter/internal/jobs/inmemory"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
	"github.com/dvloznov/statement-splitter/internal/stream"
)

type mockProcessor struct {
	ProcessFunc func(ctx context.Context, doc *pipeline.Document, status func(string)) (*domain.CanonicalAccount, error)
}

func (m *mockProcessor) Process(ctx context.Context, doc *pipeline.Document, status func(string)) (*domain.CanonicalAccount, error) {
	return m.ProcessFunc(ctx, doc, status)
}

type mockPublisher struct {
	PublishFunc func(ctx context.Context, job *jobs.ExtractStatementJob) error

	published []*jobs.ExtractStatementJob
}

func (m *mockPublisher) PublishExtractStatement(ctx context.Context, job *jobs.ExtractStatementJob) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, job)
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func testAccount() *domain.CanonicalAccount {
	return &domain.CanonicalAccount{
		Name:          "Main Checking",
		NumberPartial: "1234",
		Currency:      "EUR",
		Transactions: []domain.Transaction{
			{Date: "2025-01-05", Description: "STORE", Amount: decimal.RequireFromString("-42.50"), Type: domain.TxnDebit},
		},
		Interchange: "OFXHEADER:100",
	}
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func readEvents(t *testing.T, body string) []stream.Event {
	t.Helper()
	var events []stream.Event
	for _, frame := range strings.Split(strings.TrimSpace(body), "\n\n") {
		payload := strings.TrimPrefix(frame, "data: ")
		var ev stream.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestExtract_Streams(t *testing.T) {
	proc := &mockProcessor{
		ProcessFunc: func(ctx context.Context, doc *pipeline.Document, status func(string)) (*domain.CanonicalAccount, error) {
			if doc.Kind != pipeline.KindPDF {
				t.Errorf("kind = %q, want pdf", doc.Kind)
			}
			status(pipeline.StatusReadingDocument)
			return testAccount(), nil
		},
	}
	router := NewRouter(NewExtractHandler(proc, 1<<20, zerolog.Nop()), NewJobsHandler(&mockPublisher{}, inmemory.NewStore(), 1<<20, zerolog.Nop()))

	body, ct := multipartBody(t, "statement.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	events := readEvents(t, rec.Body.String())
	var types []stream.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	want := []stream.EventType{stream.EventInit, stream.EventStatus, stream.EventChunk}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, types[i], want[i])
		}
	}
	if len(events[2].Accounts) != 1 || events[2].Accounts[0].QBOContent != "OFXHEADER:100" {
		t.Errorf("chunk payload = %+v", events[2].Accounts)
	}
}

func TestExtract_RejectsBadUploads(t *testing.T) {
	proc := &mockProcessor{
		ProcessFunc: func(context.Context, *pipeline.Document, func(string)) (*domain.CanonicalAccount, error) {
			t.Error("processor must not run")
			return nil, nil
		},
	}
	h := NewExtractHandler(proc, 1024, zerolog.Nop())

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     int
	}{
		{name: "unsupported type", filename: "statement.docx", data: []byte("x"), want: http.StatusBadRequest},
		{name: "empty file", filename: "statement.pdf", data: nil, want: http.StatusBadRequest},
		{name: "too large", filename: "statement.pdf", data: bytes.Repeat([]byte("x"), 4096), want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.filename, tt.data)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.Extract(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestExtract_MissingFile(t *testing.T) {
	h := NewExtractHandler(&mockProcessor{}, 0, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	h.Extract(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateJob(t *testing.T) {
	tests := []struct {
		name        string
		body        func(t *testing.T) (io.Reader, string)
		wantStatus  int
		wantGCSURI  string
		wantHasData bool
	}{
		{
			name: "multipart upload",
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "statement.png", []byte("png"))
			},
			wantStatus:  http.StatusAccepted,
			wantHasData: true,
		},
		{
			name: "gcs reference",
			body: func(t *testing.T) (io.Reader, string) {
				return strings.NewReader(`{"gcs_uri":"gs://inbox/2025/statement.pdf"}`), "application/json"
			},
			wantStatus: http.StatusAccepted,
			wantGCSURI: "gs://inbox/2025/statement.pdf",
		},
		{
			name: "bad gcs uri",
			body: func(t *testing.T) (io.Reader, string) {
				return strings.NewReader(`{"gcs_uri":"https://example.com/a.pdf"}`), "application/json"
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unsupported gcs object",
			body: func(t *testing.T) (io.Reader, string) {
				return strings.NewReader(`{"gcs_uri":"gs://inbox/statement.zip"}`), "application/json"
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			h := NewJobsHandler(pub, inmemory.NewStore(), 1<<20, zerolog.Nop())

			body, ct := tt.body(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.CreateJob(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				if len(pub.published) != 0 {
					t.Error("job was published")
				}
				return
			}
			if len(pub.published) != 1 {
				t.Fatalf("published %d jobs, want 1", len(pub.published))
			}
			job := pub.published[0]
			if job.GCSURI != tt.wantGCSURI {
				t.Errorf("GCSURI = %q, want %q", job.GCSURI, tt.wantGCSURI)
			}
			if (len(job.Data) > 0) != tt.wantHasData {
				t.Errorf("has data = %v, want %v", len(job.Data) > 0, tt.wantHasData)
			}
			if job.Filename != "statement.png" && job.Filename != "statement.pdf" {
				t.Errorf("Filename = %q", job.Filename)
			}
		})
	}
}

func TestCreateJob_WithRunningQueue(t *testing.T) {
	store := inmemory.NewStore()
	q := inmemory.NewQueue(inmemory.QueueConfig{Workers: 4}, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		j := job.(*jobs.ExtractStatementJob)
		j.Result = &jobs.ResultSummary{AccountName: "Main Checking"}
		return nil
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer q.Close()

	h := NewJobsHandler(q, store, 1<<20, zerolog.Nop())

	for i := 0; i < 50; i++ {
		body, ct := multipartBody(t, "statement.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.CreateJob(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad response: %v", err)
		}
		if resp["job_id"] == "" || resp["status"] != string(jobs.JobStatusPending) {
			t.Errorf("response = %v", resp)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := q.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestCreateJob_QueueClosed(t *testing.T) {
	pub := &mockPublisher{
		PublishFunc: func(context.Context, *jobs.ExtractStatementJob) error { return jobs.ErrQueueClosed },
	}
	h := NewJobsHandler(pub, inmemory.NewStore(), 0, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"gcs_uri":"gs://b/s.pdf"}`))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func seedStore(t *testing.T) *inmemory.Store {
	t.Helper()
	store := inmemory.NewStore()
	ctx := context.Background()

	done := &jobs.ExtractStatementJob{
		JobID:     "done",
		Filename:  "statement.pdf",
		Status:    jobs.JobStatusCompleted,
		CreatedAt: time.Now(),
		Account:   testAccount(),
	}
	pending := &jobs.ExtractStatementJob{
		JobID:     "pending",
		Filename:  "other.pdf",
		Status:    jobs.JobStatusPending,
		CreatedAt: time.Now(),
	}
	for _, j := range []*jobs.ExtractStatementJob{done, pending} {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}
	return store
}

func TestJobsEndpoints(t *testing.T) {
	store := seedStore(t)
	router := NewRouter(
		NewExtractHandler(&mockProcessor{}, 0, zerolog.Nop()),
		NewJobsHandler(&mockPublisher{}, store, 0, zerolog.Nop()),
	)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{name: "get job", path: "/api/v1/jobs/done", wantStatus: http.StatusOK, wantContain: `"job_id":"done"`},
		{name: "unknown job", path: "/api/v1/jobs/missing", wantStatus: http.StatusNotFound},
		{name: "list jobs", path: "/api/v1/jobs?status=pending", wantStatus: http.StatusOK, wantContain: `"count":1`},
		{name: "export qbo by default", path: "/api/v1/jobs/done/export", wantStatus: http.StatusOK, wantType: "application/vnd.intu.qbo", wantContain: "OFXHEADER:100"},
		{name: "export csv", path: "/api/v1/jobs/done/export?format=csv", wantStatus: http.StatusOK, wantType: "text/csv; charset=utf-8", wantContain: "2025-01-05,STORE,-42.50,debit"},
		{name: "export unknown format", path: "/api/v1/jobs/done/export?format=pdf", wantStatus: http.StatusBadRequest},
		{name: "export unfinished", path: "/api/v1/jobs/pending/export", wantStatus: http.StatusConflict},
		{name: "export unknown job", path: "/api/v1/jobs/missing/export", wantStatus: http.StatusNotFound},
		{name: "health", path: "/health", wantStatus: http.StatusOK, wantContain: "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantType != "" && rec.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", rec.Header().Get("Content-Type"), tt.wantType)
			}
			if tt.wantContain != "" && !strings.Contains(rec.Body.String(), tt.wantContain) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantContain)
			}
		})
	}
}

func TestExportJob_ContentDisposition(t *testing.T) {
	router := NewRouter(
		NewExtractHandler(&mockProcessor{}, 0, zerolog.Nop()),
		NewJobsHandler(&mockPublisher{}, seedStore(t), 0, zerolog.Nop()),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/done/export?format=xlsx", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := `attachment; filename="Main_Checking_1234.xlsx"`
	if got := rec.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %q, want %q", got, want)
	}
}
