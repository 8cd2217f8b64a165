package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/client"
	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/logging"
	"github.com/makeasinger/musicgen/internal/model"
	"github.com/makeasinger/musicgen/internal/poller"
)

var calmRecords = []string{
	`{"taskId":"task-1","status":"PENDING"}`,
	`{"taskId":"task-1","status":"TEXT_SUCCESS"}`,
	`{"taskId":"task-1","status":"SUCCESS","response":{"sunoData":[{"id":"a1","title":"Calm","audioUrl":"https://cdn.example/a1.mp3","tags":"piano, ambient","duration":120.5}]}}`,
}

func fastPoll() *poller.Options {
	return &poller.Options{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		GrowthRate:      1.5,
		Progressive:     true,
		MaxAttempts:     10,
		ElapsedTick:     time.Millisecond,
	}
}

func TestProxyFlow_GenerateThroughServer(t *testing.T) {
	ta := setupApp(t, calmRecords...)
	baseURL := ta.serve(t)

	proxy := client.NewProxyClient(baseURL, generateToken(t), logging.Discard())
	gen := feature.NewGenerate(feature.Config{
		Backend: proxy,
		Store:   ta.tasks,
		Poll:    fastPoll(),
		Logger:  logging.Discard(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gen.Submit(ctx, model.GenerateParams{Prompt: "calm piano"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st, err := gen.Wait(ctx)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	if !st.IsSuccess {
		t.Fatalf("expected success, got status %s error %v", st.Status, st.Error)
	}
	if st.TaskID != "task-1" {
		t.Errorf("expected task-1, got %q", st.TaskID)
	}
	if st.Attempts != 3 {
		t.Errorf("expected 3 status checks, got %d", st.Attempts)
	}
	if len(st.Data) != 1 || st.Data[0].Title != "Calm" {
		t.Fatalf("unexpected tracks %+v", st.Data)
	}
	if st.Data[0].AudioURL != "https://cdn.example/a1.mp3" {
		t.Errorf("unexpected audio url %q", st.Data[0].AudioURL)
	}

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/tasks/task-1", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	rec := parseJSON(t, resp)
	if rec["status"] != "SUCCESS" || rec["feature"] != "music-generation" {
		t.Errorf("unexpected task record %v", rec)
	}
	if rec["attempts"] != float64(3) {
		t.Errorf("expected 3 attempts recorded, got %v", rec["attempts"])
	}
}

func TestProxyFlow_RemoteFailure(t *testing.T) {
	ta := setupApp(t,
		`{"taskId":"task-1","status":"PENDING"}`,
		`{"taskId":"task-1","status":"SENSITIVE_WORD_ERROR","errorMessage":"prompt rejected"}`,
	)
	baseURL := ta.serve(t)

	proxy := client.NewProxyClient(baseURL, generateToken(t), logging.Discard())
	lyrics := feature.NewLyrics(feature.Config{
		Backend: proxy,
		Store:   ta.tasks,
		Poll:    fastPoll(),
		Logger:  logging.Discard(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := lyrics.Submit(ctx, model.LyricsParams{Prompt: "rain"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st, err := lyrics.Wait(ctx)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	if !st.IsError || st.Error == nil {
		t.Fatalf("expected an error state, got %+v", st)
	}
	if st.Error.Kind != apierr.KindRemote || st.Error.Message != "prompt rejected" {
		t.Errorf("unexpected error %+v", st.Error)
	}
	if st.Error.Retryable() {
		t.Error("sensitive word errors must not be retryable")
	}

	rec, err := ta.tasks.Load(ctx, "task-1")
	if err != nil {
		t.Fatalf("failed task was not persisted: %v", err)
	}
	if rec.Error != "prompt rejected" {
		t.Errorf("unexpected persisted error %q", rec.Error)
	}
}

func TestProxyFlow_UnauthorizedClient(t *testing.T) {
	ta := setupApp(t, calmRecords...)
	baseURL := ta.serve(t)

	proxy := client.NewProxyClient(baseURL, "", logging.Discard())
	wav := feature.NewWav(feature.Config{Backend: proxy, Poll: fastPoll(), Logger: logging.Discard()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wav.Submit(ctx, model.WavParams{TaskID: "task-1", AudioID: "a1"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st, _ := wav.Wait(ctx)
	if !st.IsError || st.Error == nil {
		t.Fatalf("expected an error state, got %+v", st)
	}
	if ta.upstream.lastCreated() != nil {
		t.Error("unauthenticated calls must not reach upstream")
	}
}
