package model

// Feature identifies the kind of remote task
type Feature string

const (
	FeatureGenerate        Feature = "music-generation"
	FeatureLyrics          Feature = "lyrics"
	FeatureVocalSeparation Feature = "vocal-separation"
	FeatureExtend          Feature = "extension"
	FeatureWav             Feature = "wav-conversion"
	FeatureMp4             Feature = "mp4-generation"
)

var Features = []Feature{
	FeatureGenerate, FeatureLyrics, FeatureVocalSeparation,
	FeatureExtend, FeatureWav, FeatureMp4,
}

// featureSlugs are the short names used in routes and on the command line
var featureSlugs = map[Feature]string{
	FeatureGenerate:        "generate",
	FeatureLyrics:          "lyrics",
	FeatureVocalSeparation: "vocal-separation",
	FeatureExtend:          "extend",
	FeatureWav:             "wav",
	FeatureMp4:             "mp4",
}

// Slug returns the short route name of the feature
func (f Feature) Slug() string {
	if s, ok := featureSlugs[f]; ok {
		return s
	}
	return string(f)
}

// ParseFeature accepts either the feature name or its slug
func ParseFeature(s string) (Feature, bool) {
	for _, f := range Features {
		if string(f) == s || f.Slug() == s {
			return f, true
		}
	}
	return "", false
}

// ModelVersion is the upstream generation model
type ModelVersion string

const (
	ModelV3_5     ModelVersion = "V3_5"
	ModelV4       ModelVersion = "V4"
	ModelV4_5     ModelVersion = "V4_5"
	ModelV4_5Plus ModelVersion = "V4_5PLUS"
	ModelV5       ModelVersion = "V5"
)

// DefaultModel is used when a request names no model
const DefaultModel = ModelV4_5

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// IsTerminal reports whether the job will not change anymore
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusCanceled
}
