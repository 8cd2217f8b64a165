package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/logging"
	"github.com/makeasinger/musicgen/internal/model"
	"github.com/makeasinger/musicgen/internal/service"
	"github.com/makeasinger/musicgen/internal/websocket"
	"github.com/makeasinger/musicgen/internal/worker"
)

// startJob posts a job and returns its id.
func startJob(t *testing.T, ta *testApp, path, body string) string {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, path, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	data := parseJSON(t, resp)
	jobID, _ := data["jobId"].(string)
	if jobID == "" {
		t.Fatalf("expected jobId in response, got %v", data)
	}
	if data["status"] != "queued" {
		t.Errorf("expected status 'queued', got %v", data["status"])
	}
	return jobID
}

func TestJobs_StartAndStatus(t *testing.T) {
	ta := setupApp(t)
	requireJobs(t, ta)

	jobID := startJob(t, ta, "/api/jobs/generate", `{"prompt":"calm piano"}`)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/jobs/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	job := parseJSON(t, resp)
	if job["status"] != "queued" || job["feature"] != "music-generation" {
		t.Errorf("unexpected job %v", job)
	}
	if job["userId"] != "test-user-123" {
		t.Errorf("expected job owned by test-user-123, got %v", job["userId"])
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/jobs/"+jobID+"/result", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestJobs_StartValidation(t *testing.T) {
	ta := setupApp(t)
	requireJobs(t, ta)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty lyrics prompt", "/api/jobs/lyrics", `{"prompt":""}`},
		{"mp4 without audio", "/api/jobs/mp4", `{"taskId":"t1"}`},
		{"unknown feature", "/api/jobs/karaoke", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := doAuthRequest(t, ta.app, http.MethodPost, tt.path, tt.body)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, http.StatusBadRequest)

			body := parseJSON(t, resp)
			errObj, _ := body["error"].(map[string]interface{})
			if errObj["code"] != "VALIDATION_ERROR" {
				t.Errorf("expected VALIDATION_ERROR, got %v", body)
			}
		})
	}
}

func TestJobs_NotFound(t *testing.T) {
	ta := setupApp(t)
	requireJobs(t, ta)

	for _, path := range []string{"/api/jobs/nonexistent", "/api/jobs/nonexistent/result"} {
		resp, err := doAuthRequest(t, ta.app, http.MethodGet, path, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusNotFound)
	}
}

func TestJobs_Cancel(t *testing.T) {
	ta := setupApp(t)
	requireJobs(t, ta)

	jobID := startJob(t, ta, "/api/jobs/wav", `{"taskId":"t1","audioId":"a1"}`)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/jobs/"+jobID+"/cancel", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["success"] != true || body["status"] != "canceled" {
		t.Errorf("unexpected cancel response %v", body)
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/jobs/"+jobID+"/cancel", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestJobs_WorkerCompletesJob(t *testing.T) {
	ta := setupApp(t, calmRecords...)
	requireJobs(t, ta)

	jobID := startJob(t, ta, "/api/jobs/generate", `{"prompt":"calm piano"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub := websocket.NewHub(logging.Discard())
	go hub.Run(ctx)

	w := worker.NewTaskWorker(ta.jobs, service.NewArchiveService(nil, logging.Discard()), hub, feature.Config{
		Backend: ta.suno,
		Store:   ta.tasks,
		Poll:    fastPoll(),
		Logger:  logging.Discard(),
	}, logging.Discard())

	task, err := service.NewPollTask(model.JobPayload{
		JobID:   jobID,
		Feature: model.FeatureGenerate,
		Params:  json.RawMessage(`{"prompt":"calm piano"}`),
	})
	if err != nil {
		t.Fatalf("failed to build task: %v", err)
	}
	if err := w.ProcessTask(ctx, task); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/jobs/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	job := parseJSON(t, resp)
	if job["status"] != "succeeded" || job["taskId"] != "task-1" {
		t.Errorf("unexpected job %v", job)
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/jobs/"+jobID+"/result", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	var tracks []model.AudioTrack
	if err := json.Unmarshal([]byte(readBody(t, resp)), &tracks); err != nil {
		t.Fatalf("result is not a track list: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Title != "Calm" {
		t.Errorf("unexpected tracks %+v", tracks)
	}

	if _, err := ta.tasks.Load(ctx, "task-1"); err != nil {
		t.Errorf("expected the task to be persisted: %v", err)
	}
}
