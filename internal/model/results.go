package model

// AudioTrack is one generated or extended song
type AudioTrack struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	AudioURL   string   `json:"audioUrl"`
	StreamURL  string   `json:"streamUrl,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	Tags       []string `json:"tags"`
	Duration   float64  `json:"duration"`
	ModelName  string   `json:"modelName,omitempty"`
	Prompt     string   `json:"prompt,omitempty"`
	CreateTime string   `json:"createTime,omitempty"`
}

// LyricsVariant is one lyrics draft
type LyricsVariant struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	Status       string `json:"status,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SeparationResult holds the stems of a vocal separation
type SeparationResult struct {
	OriginalURL     string `json:"originalUrl"`
	InstrumentalURL string `json:"instrumentalUrl"`
	VocalURL        string `json:"vocalUrl"`
}

// WavResult holds a WAV conversion output
type WavResult struct {
	WavURL string `json:"wavUrl"`
}

// Mp4Result holds a music video output
type Mp4Result struct {
	VideoURL string `json:"videoUrl"`
}

// Progress carries the progressive-disclosure signals of a running task
type Progress struct {
	Status         string `json:"status,omitempty"`
	TextGenerated  bool   `json:"textGenerated"`
	FirstGenerated bool   `json:"firstGenerated"`
}
