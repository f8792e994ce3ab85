package kling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"server/internal/domain"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestCreateTaskEnvelopeReply(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"task_id":"abc","task_status":"submitted"}}`))
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv).CreateTask(context.Background(), CreateTaskRequest{
		Prompt:   "a calm lake",
		ImageURL: "https://cdn.example.com/in.png",
		Duration: 5,
		Mode:     "std",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.TaskID != "abc" || info.Status != "submitted" {
		t.Fatalf("info = %#v", info)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPath != "/v1/videos/image2video" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestCreateTaskBareReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task_id":"abc","status":"pending"}`))
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv).CreateTask(context.Background(), CreateTaskRequest{
		Prompt:   "x",
		ImageURL: "https://cdn.example.com/in.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.TaskID != "abc" || info.Status != "pending" {
		t.Fatalf("info = %#v", info)
	}
}

func TestCreateTaskRequiresImageURL(t *testing.T) {
	c, err := NewClient(Options{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.CreateTask(context.Background(), CreateTaskRequest{Prompt: "x"}); err == nil {
		t.Fatalf("expected error for missing image_url")
	}
}

func TestCreateTaskProviderErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":1102,"message":"insufficient balance","data":{}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).CreateTask(context.Background(), CreateTaskRequest{
		Prompt: "x", ImageURL: "https://cdn.example.com/in.png",
	})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *domain.ProviderError", err)
	}
	if perr.Code != 1102 || perr.Message != "insufficient balance" {
		t.Fatalf("provider error = %#v", perr)
	}
}

func TestCreateTaskUpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL, CreateTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.CreateTask(context.Background(), CreateTaskRequest{Prompt: "x", ImageURL: "https://x/in.png"})
	var terr *domain.UpstreamTimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *domain.UpstreamTimeoutError", err)
	}
}

func TestCreateTaskCallerCancellationIsNotTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.CreateTask(ctx, CreateTaskRequest{Prompt: "x", ImageURL: "https://x/in.png"})
		done <- err
	}()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestTaskStatusCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/videos/image2video/abc" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":{"task_id":"abc","task_status":"succeed","output":{"video_url":"https://cdn.example.com/out.mp4"}}}`))
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv).TaskStatus(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.VideoURL != "https://cdn.example.com/out.mp4" {
		t.Fatalf("video url = %q", info.VideoURL)
	}
	if !IsTerminalSuccess(info.Status) {
		t.Fatalf("status %q should be terminal success", info.Status)
	}
}

func TestTaskStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).TaskStatus(context.Background(), "abc")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("error = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskStatusFailureCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":{"task_id":"abc","task_status":"failed","task_status_msg":"content policy"}}`))
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv).TaskStatus(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsTerminalFailure(info.Status) || info.ErrorMessage != "content policy" {
		t.Fatalf("info = %#v", info)
	}
}

func TestDecodeTaskMissingTaskID(t *testing.T) {
	if _, err := decodeTask([]byte(`{"code":200,"data":{"task_status":"submitted"}}`)); !errors.Is(err, domain.ErrUnexpectedResponseShape) {
		t.Fatalf("expected ErrUnexpectedResponseShape, got %v", err)
	}
}

func TestStatusFamilies(t *testing.T) {
	for _, s := range []string{"succeed", "Succeeded", "COMPLETED", "done"} {
		if !IsTerminalSuccess(s) {
			t.Fatalf("%q should be terminal success", s)
		}
	}
	for _, s := range []string{"failed", "Error"} {
		if !IsTerminalFailure(s) {
			t.Fatalf("%q should be terminal failure", s)
		}
	}
	for _, s := range []string{"submitted", "processing", "pending", ""} {
		if IsTerminalSuccess(s) || IsTerminalFailure(s) {
			t.Fatalf("%q should be non-terminal", s)
		}
	}
}
