package model

// GenerateParams represents a music generation request.
// Conditional rules (custom mode, instrumental) are enforced by the
// generation adapter on top of these tags
type GenerateParams struct {
	Prompt              string       `json:"prompt,omitempty"`
	Style               string       `json:"style,omitempty"`
	Title               string       `json:"title,omitempty"`
	CustomMode          bool         `json:"customMode"`
	Instrumental        bool         `json:"instrumental"`
	Model               ModelVersion `json:"model,omitempty" validate:"omitempty,oneof=V3_5 V4 V4_5 V4_5PLUS V5"`
	NegativeTags        string       `json:"negativeTags,omitempty" validate:"omitempty,max=200"`
	VocalGender         string       `json:"vocalGender,omitempty" validate:"omitempty,oneof=m f"`
	StyleWeight         *float64     `json:"styleWeight,omitempty" validate:"omitempty,min=0,max=1"`
	WeirdnessConstraint *float64     `json:"weirdnessConstraint,omitempty" validate:"omitempty,min=0,max=1"`
	AudioWeight         *float64     `json:"audioWeight,omitempty" validate:"omitempty,min=0,max=1"`
	CallBackURL         string       `json:"callBackUrl,omitempty" validate:"omitempty,url"`
}

// LyricsParams represents a lyrics generation request
type LyricsParams struct {
	Prompt      string `json:"prompt" validate:"required,max=200"`
	CallBackURL string `json:"callBackUrl,omitempty" validate:"omitempty,url"`
}

// ExtendParams represents a request to continue an existing track.
// With DefaultParamFlag set, Prompt, Style, Title and ContinueAt override
// the source track's parameters and are all required
type ExtendParams struct {
	AudioID          string       `json:"audioId" validate:"required"`
	DefaultParamFlag bool         `json:"defaultParamFlag"`
	Prompt           string       `json:"prompt,omitempty"`
	Style            string       `json:"style,omitempty"`
	Title            string       `json:"title,omitempty"`
	ContinueAt       float64      `json:"continueAt,omitempty" validate:"min=0"`
	Model            ModelVersion `json:"model,omitempty" validate:"omitempty,oneof=V3_5 V4 V4_5 V4_5PLUS V5"`
	NegativeTags     string       `json:"negativeTags,omitempty" validate:"omitempty,max=200"`
	CallBackURL      string       `json:"callBackUrl,omitempty" validate:"omitempty,url"`
}

// VocalSeparationParams represents a vocal/instrumental split request
type VocalSeparationParams struct {
	TaskID      string `json:"taskId" validate:"required"`
	AudioID     string `json:"audioId" validate:"required"`
	CallBackURL string `json:"callBackUrl,omitempty" validate:"omitempty,url"`
}

// WavParams represents a WAV conversion request
type WavParams struct {
	TaskID      string `json:"taskId" validate:"required"`
	AudioID     string `json:"audioId" validate:"required"`
	CallBackURL string `json:"callBackUrl,omitempty" validate:"omitempty,url"`
}

// Mp4Params represents a music video request
type Mp4Params struct {
	TaskID      string `json:"taskId" validate:"required"`
	AudioID     string `json:"audioId" validate:"required"`
	Author      string `json:"author,omitempty" validate:"omitempty,max=50"`
	DomainName  string `json:"domainName,omitempty" validate:"omitempty,max=50"`
	CallBackURL string `json:"callBackUrl,omitempty" validate:"omitempty,url"`
}
