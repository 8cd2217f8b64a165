package extract

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/model"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"comma string", "Rock, Happy", []string{"Rock", "Happy"}},
		{"json string", `["Rock","Happy"]`, []string{"Rock", "Happy"}},
		{"slice", []string{"Rock"}, []string{"Rock"}},
		{"decoded slice", []interface{}{"Rock", nil, " Pop "}, []string{"Rock", "Pop"}},
		{"empty string", "", []string{}},
		{"nil", nil, []string{}},
		{"whitespace string", "lofi chill  ambient", []string{"lofi", "chill", "ambient"}},
		{"empty tokens", "Rock,, ,Happy,", []string{"Rock", "Happy"}},
		{"malformed json", `['Rock', 'Happy',]`, []string{"Rock", "Happy"}},
		{"blank slice", []string{"", "  "}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.in)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		vocab  Vocabulary
		status string
		want   Phase
	}{
		{GenerateVocabulary, "PENDING", PhasePending},
		{GenerateVocabulary, "TEXT_SUCCESS", PhaseProgress},
		{GenerateVocabulary, "FIRST_SUCCESS", PhaseProgress},
		{GenerateVocabulary, "SUCCESS", PhaseSuccess},
		{GenerateVocabulary, "SENSITIVE_WORD_ERROR", PhaseFailure},
		{GenerateVocabulary, "GENERATE_AUDIO_FAILED", PhaseFailure},
		{GenerateVocabulary, "success", PhasePending},
		{GenerateVocabulary, "SOMETHING_NEW", PhasePending},
		{GenerateVocabulary, "", PhasePending},
		{ExtendVocabulary, "CALLBACK_EXCEPTION", PhaseFailure},
		{LyricsVocabulary, "ERROR", PhaseFailure},
		{LyricsVocabulary, "TEXT_SUCCESS", PhasePending},
		{VocalSeparationVocabulary, "success", PhaseSuccess},
		{VocalSeparationVocabulary, "SUCCESS", PhaseSuccess},
		{VocalSeparationVocabulary, "create_task_failed", PhaseFailure},
		{WavVocabulary, "GENERATE_WAV_FAILED", PhaseFailure},
		{WavVocabulary, "GENERATE_MP4_FAILED", PhasePending},
		{Mp4Vocabulary, "success", PhaseSuccess},
		{Mp4Vocabulary, "GENERATE_MP4_FAILED", PhaseFailure},
	}

	for _, tt := range tests {
		if got := tt.vocab.Classify(tt.status); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestVocabularyForCoversEveryFeature(t *testing.T) {
	for _, f := range model.Features {
		if VocabularyFor(f).Classify("SUCCESS") != PhaseSuccess {
			t.Errorf("%s: SUCCESS not recognized", f)
		}
	}
}

func TestProject(t *testing.T) {
	view := Project(GenerateVocabulary, &model.TaskStatus{TaskID: "t1", Status: "TEXT_SUCCESS"})
	if view.Phase != PhaseProgress || !view.TextGenerated || view.FirstGenerated {
		t.Errorf("unexpected view for TEXT_SUCCESS: %+v", view)
	}

	view = Project(GenerateVocabulary, &model.TaskStatus{TaskID: "t1", Status: "FIRST_SUCCESS"})
	if !view.TextGenerated || !view.FirstGenerated {
		t.Errorf("unexpected view for FIRST_SUCCESS: %+v", view)
	}

	view = Project(GenerateVocabulary, &model.TaskStatus{Status: "SENSITIVE_WORD_ERROR", Error: "blocked"})
	if view.Phase != PhaseFailure || view.Error != "blocked" {
		t.Errorf("unexpected view for failure: %+v", view)
	}

	if view := Project(GenerateVocabulary, nil); view.Phase != PhasePending {
		t.Errorf("nil status should be pending, got %s", view.Phase)
	}
}

func TestTracksAliasPreference(t *testing.T) {
	raw := json.RawMessage(`{"sunoData":[{
		"id": "a1",
		"title": "Calm",
		"stream_audio_url": "http://x/stream",
		"source_audio_url": "http://x/source",
		"audioUrl": "http://x/direct",
		"sourceImageUrl": "http://x/img",
		"tags": "piano, calm",
		"duration": 120.5,
		"modelName": "chirp-v4"
	}]}`)

	tracks, err := Tracks(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	got := tracks[0]
	if got.AudioURL != "http://x/direct" {
		t.Errorf("expected direct URL, got %s", got.AudioURL)
	}
	if got.StreamURL != "http://x/stream" {
		t.Errorf("unexpected stream URL %s", got.StreamURL)
	}
	if got.ImageURL != "http://x/img" {
		t.Errorf("unexpected image URL %s", got.ImageURL)
	}
	if !reflect.DeepEqual(got.Tags, []string{"piano", "calm"}) {
		t.Errorf("unexpected tags %v", got.Tags)
	}
	if got.Duration != 120.5 || got.ModelName != "chirp-v4" || got.Title != "Calm" {
		t.Errorf("unexpected track %+v", got)
	}
}

func TestTracksFallsBackToSourceThenStream(t *testing.T) {
	tracks, err := Tracks(json.RawMessage(`[
		{"id":"a","source_audio_url":"http://x/source","stream_audio_url":"http://x/stream"},
		{"id":"b","streamAudioUrl":"http://x/stream"}
	]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracks[0].AudioURL != "http://x/source" {
		t.Errorf("expected source URL, got %s", tracks[0].AudioURL)
	}
	if tracks[1].AudioURL != "http://x/stream" {
		t.Errorf("expected stream URL, got %s", tracks[1].AudioURL)
	}
	if tracks[1].Tags == nil || len(tracks[1].Tags) != 0 {
		t.Errorf("missing tags should be empty, got %#v", tracks[1].Tags)
	}
}

func TestTracksMissingMandatoryFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"no id", `[{"audio_url":"http://x/a.mp3"}]`, "id"},
		{"no audio", `[{"id":"a1","image_url":"http://x/i.png"}]`, "audioUrl"},
		{"empty list", `[]`, "result"},
		{"no payload", ``, "result"},
		{"garbage", `{not json`, "result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tracks(json.RawMessage(tt.raw))
			e, ok := apierr.As(err)
			if !ok || !e.IsExtraction() {
				t.Fatalf("expected extraction error, got %v", err)
			}
			details, _ := e.Details.(map[string]string)
			if details["field"] != tt.field {
				t.Errorf("expected field %s, got %v", tt.field, e.Details)
			}
		})
	}
}

func TestPartialTracksSkipsUnusableItems(t *testing.T) {
	tracks := PartialTracks(json.RawMessage(`[{"id":"a1","stream_audio_url":"http://x/s"},{"id":"a2"}]`))
	if len(tracks) != 1 || tracks[0].ID != "a1" {
		t.Errorf("unexpected partial tracks %+v", tracks)
	}
}

func TestLyricsVariants(t *testing.T) {
	variants, err := LyricsVariants(json.RawMessage(`{"data":[
		{"text":"la la","title":"One","status":"complete"},
		{"text":"","title":"Empty","status":"failed","errorMessage":"nope"}
	]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(variants) != 1 || variants[0].Title != "One" || variants[0].Text != "la la" {
		t.Errorf("unexpected variants %+v", variants)
	}

	if _, err := LyricsVariants(json.RawMessage(`[{"title":"x"}]`)); err == nil {
		t.Error("expected extraction error without text")
	}
}

func TestConversionExtractors(t *testing.T) {
	sep, err := Separation(json.RawMessage(`{"originUrl":"o","instrumental_url":"i","vocalUrl":"v"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sep != (model.SeparationResult{OriginalURL: "o", InstrumentalURL: "i", VocalURL: "v"}) {
		t.Errorf("unexpected separation %+v", sep)
	}
	if _, err := Separation(json.RawMessage(`{"originUrl":"o","vocalUrl":"v"}`)); err == nil {
		t.Error("expected error without instrumental stem")
	}

	wav, err := WavURL(json.RawMessage(`{"audio_wav_url":"w"}`))
	if err != nil || wav.WavURL != "w" {
		t.Errorf("unexpected wav %+v, %v", wav, err)
	}
	if _, err := WavURL(json.RawMessage(`{}`)); err == nil {
		t.Error("expected error without wav URL")
	}

	mp4, err := VideoURL(json.RawMessage(`[{"video_url":"m"}]`))
	if err != nil || mp4.VideoURL != "m" {
		t.Errorf("unexpected mp4 %+v, %v", mp4, err)
	}
}
