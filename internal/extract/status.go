package extract

import (
	"strings"

	"github.com/makeasinger/musicgen/internal/model"
)

// Phase is the meaning of a remote status for one feature.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseProgress Phase = "progress"
	PhaseSuccess  Phase = "success"
	PhaseFailure  Phase = "failure"
)

// IsTerminal reports whether polling should stop.
func (p Phase) IsTerminal() bool {
	return p == PhaseSuccess || p == PhaseFailure
}

// Remote status literals. They come from the upstream contract and must be
// kept verbatim.
const (
	StatusPending            = "PENDING"
	StatusTextSuccess        = "TEXT_SUCCESS"
	StatusFirstSuccess       = "FIRST_SUCCESS"
	StatusSuccess            = "SUCCESS"
	StatusError              = "ERROR"
	StatusCreateTaskFailed   = "CREATE_TASK_FAILED"
	StatusGenerateAudioFail  = "GENERATE_AUDIO_FAILED"
	StatusGenerateLyricsFail = "GENERATE_LYRICS_FAILED"
	StatusGenerateWavFail    = "GENERATE_WAV_FAILED"
	StatusGenerateMp4Fail    = "GENERATE_MP4_FAILED"
	StatusCallbackException  = "CALLBACK_EXCEPTION"
	StatusSensitiveWord      = "SENSITIVE_WORD_ERROR"
)

// Vocabulary is the set of status literals one feature recognizes. Any
// status outside the sets is pending.
type Vocabulary struct {
	Success  []string
	Progress []string
	Failure  []string
	// CaseInsensitive matches literals regardless of case.
	CaseInsensitive bool
}

// Classify maps a remote status onto a Phase.
func (v Vocabulary) Classify(status string) Phase {
	status = strings.TrimSpace(status)
	switch {
	case v.match(v.Success, status):
		return PhaseSuccess
	case v.match(v.Failure, status):
		return PhaseFailure
	case v.match(v.Progress, status):
		return PhaseProgress
	}
	return PhasePending
}

// IsTerminal reports whether status ends polling.
func (v Vocabulary) IsTerminal(status string) bool {
	return v.Classify(status).IsTerminal()
}

func (v Vocabulary) match(set []string, status string) bool {
	for _, s := range set {
		if s == status || (v.CaseInsensitive && strings.EqualFold(s, status)) {
			return true
		}
	}
	return false
}

var generationFailures = []string{
	StatusCreateTaskFailed, StatusGenerateAudioFail, StatusCallbackException, StatusSensitiveWord,
}

// Vocabularies per feature.
var (
	GenerateVocabulary = Vocabulary{
		Success:  []string{StatusSuccess},
		Progress: []string{StatusTextSuccess, StatusFirstSuccess},
		Failure:  generationFailures,
	}
	ExtendVocabulary = Vocabulary{
		Success:  []string{StatusSuccess},
		Progress: []string{StatusTextSuccess, StatusFirstSuccess},
		Failure:  generationFailures,
	}
	LyricsVocabulary = Vocabulary{
		Success: []string{StatusSuccess},
		Failure: []string{
			StatusError, StatusCreateTaskFailed, StatusGenerateLyricsFail,
			StatusCallbackException, StatusSensitiveWord,
		},
	}
	VocalSeparationVocabulary = Vocabulary{
		Success:         []string{StatusSuccess},
		Failure:         []string{StatusCreateTaskFailed, StatusCallbackException, StatusSensitiveWord},
		CaseInsensitive: true,
	}
	WavVocabulary = Vocabulary{
		Success: []string{StatusSuccess},
		Failure: []string{StatusCreateTaskFailed, StatusGenerateWavFail, StatusCallbackException, StatusSensitiveWord},
	}
	Mp4Vocabulary = Vocabulary{
		Success:         []string{StatusSuccess},
		Failure:         []string{StatusCreateTaskFailed, StatusGenerateMp4Fail, StatusCallbackException, StatusSensitiveWord},
		CaseInsensitive: true,
	}
)

// VocabularyFor returns the vocabulary of a feature.
func VocabularyFor(f model.Feature) Vocabulary {
	switch f {
	case model.FeatureGenerate:
		return GenerateVocabulary
	case model.FeatureExtend:
		return ExtendVocabulary
	case model.FeatureLyrics:
		return LyricsVocabulary
	case model.FeatureVocalSeparation:
		return VocalSeparationVocabulary
	case model.FeatureWav:
		return WavVocabulary
	case model.FeatureMp4:
		return Mp4Vocabulary
	}
	return Vocabulary{}
}

// View is the uniform projection of a remote status.
type View struct {
	TaskID string
	Status string
	Phase  Phase
	// Error is the remote failure message, empty unless Phase is failure.
	Error          string
	TextGenerated  bool
	FirstGenerated bool
}

// Project classifies a normalized task status with vocab.
func Project(vocab Vocabulary, st *model.TaskStatus) View {
	if st == nil {
		return View{Phase: PhasePending}
	}
	view := View{
		TaskID: st.TaskID,
		Status: st.Status,
		Phase:  vocab.Classify(st.Status),
	}

	switch view.Phase {
	case PhaseSuccess:
		view.TextGenerated = true
		view.FirstGenerated = true
	case PhaseProgress:
		view.TextGenerated = vocab.match([]string{StatusTextSuccess, StatusFirstSuccess}, st.Status)
		view.FirstGenerated = vocab.match([]string{StatusFirstSuccess}, st.Status)
	case PhaseFailure:
		view.Error = st.Error
	}
	return view
}

// Progress converts a view into the progress signals exposed to callers.
func (v View) Progress() model.Progress {
	return model.Progress{
		Status:         v.Status,
		TextGenerated:  v.TextGenerated,
		FirstGenerated: v.FirstGenerated,
	}
}
