package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/config"
	"github.com/makeasinger/musicgen/internal/extract"
	"github.com/makeasinger/musicgen/internal/logging"
	"github.com/makeasinger/musicgen/internal/model"
)

func newTestSuno(t *testing.T, handler http.HandlerFunc) *SunoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSunoClient(&config.SunoConfig{
		APIKey:      "key",
		BaseURL:     srv.URL + "/",
		CallbackURL: "https://example.com/cb",
	}, logging.Discard())
}

func TestSunoCreateTaskCompletesBody(t *testing.T) {
	var got map[string]interface{}
	c := newTestSuno(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Write([]byte(`{"code":200,"msg":"success","data":{"taskId":"t1"}}`))
	})

	id, err := c.CreateTask(context.Background(), model.FeatureGenerate, model.GenerateParams{Prompt: "calm piano"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != "t1" {
		t.Errorf("expected t1, got %s", id)
	}
	if got["callBackUrl"] != "https://example.com/cb" {
		t.Errorf("expected callback url to be filled, got %v", got["callBackUrl"])
	}
	if got["model"] != string(model.DefaultModel) {
		t.Errorf("expected default model, got %v", got["model"])
	}
	if got["prompt"] != "calm piano" || got["customMode"] != false {
		t.Errorf("unexpected body %v", got)
	}
}

func TestSunoCreateTaskKeepsCallerValues(t *testing.T) {
	var got map[string]interface{}
	c := newTestSuno(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/wav/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Write([]byte(`{"code":200,"msg":"success","data":{"taskId":"w1"}}`))
	})

	params := model.WavParams{TaskID: "t1", AudioID: "a1", CallBackURL: "https://mine.example/cb"}
	if _, err := c.CreateTask(context.Background(), model.FeatureWav, params); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if got["callBackUrl"] != "https://mine.example/cb" {
		t.Errorf("caller callback overwritten: %v", got["callBackUrl"])
	}
	if _, ok := got["model"]; ok {
		t.Errorf("conversions must not carry a model: %v", got)
	}
}

func TestSunoRemoteErrorCode(t *testing.T) {
	c := newTestSuno(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":429,"msg":"insufficient credits"}`))
	})

	_, err := c.CreateTask(context.Background(), model.FeatureLyrics, model.LyricsParams{Prompt: "x"})
	e, ok := apierr.As(err)
	if !ok || !e.IsRemote() || e.Code != 429 || e.Message != "insufficient credits" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSunoMissingTaskID(t *testing.T) {
	c := newTestSuno(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"msg":"success","data":{}}`))
	})
	_, err := c.CreateTask(context.Background(), model.FeatureMp4, model.Mp4Params{TaskID: "t", AudioID: "a"})
	if e, ok := apierr.As(err); !ok || !e.IsExtraction() {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestSunoNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	c := NewSunoClient(&config.SunoConfig{BaseURL: srv.URL}, logging.Discard())

	_, err := c.TaskStatus(context.Background(), model.FeatureGenerate, "t1")
	e, ok := apierr.As(err)
	if !ok || !e.IsNetwork() || e.Code != apierr.CodeNoResponse {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestSunoBadGatewayWithoutEnvelope(t *testing.T) {
	c := newTestSuno(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})
	_, err := c.TaskStatus(context.Background(), model.FeatureGenerate, "t1")
	e, ok := apierr.As(err)
	if !ok || !e.IsNetwork() || e.Code != http.StatusBadGateway {
		t.Fatalf("expected network error with status, got %v", err)
	}
}

func TestSunoTaskStatusNormalizesGeneration(t *testing.T) {
	c := newTestSuno(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/generate/record-info" || r.URL.Query().Get("taskId") != "t1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`{"code":200,"msg":"success","data":{
			"taskId":"t1",
			"status":"FIRST_SUCCESS",
			"response":{"taskId":"t1","sunoData":[{"id":"a1","streamAudioUrl":"http://x/s"}]}
		}}`))
	})

	st, err := c.TaskStatus(context.Background(), model.FeatureGenerate, "t1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if st.TaskID != "t1" || st.Status != "FIRST_SUCCESS" {
		t.Errorf("unexpected status %+v", st)
	}
	tracks := extract.PartialTracks(st.Result)
	if len(tracks) != 1 || tracks[0].AudioURL != "http://x/s" {
		t.Errorf("unexpected result %s", st.Result)
	}
}

func TestNormalizeRecordVariants(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		status string
		err    string
		result string
	}{
		{
			name:   "separation with successFlag",
			raw:    `{"taskId":"v1","successFlag":"SUCCESS","response":{"instrumentalUrl":"i","vocalUrl":"v"}}`,
			status: "SUCCESS",
			result: `{"instrumentalUrl":"i","vocalUrl":"v"}`,
		},
		{
			name:   "lyrics nested under data",
			raw:    `{"taskId":"l1","status":"SUCCESS","response":{"data":[{"text":"la"}]}}`,
			status: "SUCCESS",
			result: `[{"text":"la"}]`,
		},
		{
			name:   "failure message",
			raw:    `{"taskId":"w1","successFlag":"GENERATE_WAV_FAILED","errorMessage":"bad audio"}`,
			status: "GENERATE_WAV_FAILED",
			err:    "bad audio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := NormalizeRecord(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if st.Status != tt.status || st.Error != tt.err || string(st.Result) != tt.result {
				t.Errorf("unexpected status %+v (result %s)", st, st.Result)
			}
		})
	}
}
