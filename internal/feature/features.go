package feature

import (
	"encoding/json"

	"github.com/makeasinger/musicgen/internal/extract"
	"github.com/makeasinger/musicgen/internal/model"
)

// Growth cadences, in attempts between two interval increases.
const (
	generationGrowthEvery = 3
	conversionGrowthEvery = 5
)

type (
	GenerateAdapter        = Adapter[model.GenerateParams, []model.AudioTrack]
	LyricsAdapter          = Adapter[model.LyricsParams, []model.LyricsVariant]
	ExtendAdapter          = Adapter[model.ExtendParams, []model.AudioTrack]
	VocalSeparationAdapter = Adapter[model.VocalSeparationParams, model.SeparationResult]
	WavAdapter             = Adapter[model.WavParams, model.WavResult]
	Mp4Adapter             = Adapter[model.Mp4Params, model.Mp4Result]
)

// NewGenerate creates a music generation adapter.
func NewGenerate(cfg Config) *GenerateAdapter {
	return newAdapter(cfg, spec[model.GenerateParams, []model.AudioTrack]{
		feature:     model.FeatureGenerate,
		vocab:       extract.GenerateVocabulary,
		growthEvery: generationGrowthEvery,
		body:        func(p model.GenerateParams) interface{} { return generateBody(p) },
		extract:     extract.Tracks,
		partial:     partialTracks,
	})
}

// NewLyrics creates a lyrics adapter.
func NewLyrics(cfg Config) *LyricsAdapter {
	return newAdapter(cfg, spec[model.LyricsParams, []model.LyricsVariant]{
		feature:     model.FeatureLyrics,
		vocab:       extract.LyricsVocabulary,
		growthEvery: generationGrowthEvery,
		body:        passBody[model.LyricsParams],
		extract:     extract.LyricsVariants,
	})
}

// NewExtend creates an extension adapter.
func NewExtend(cfg Config) *ExtendAdapter {
	return newAdapter(cfg, spec[model.ExtendParams, []model.AudioTrack]{
		feature:     model.FeatureExtend,
		vocab:       extract.ExtendVocabulary,
		growthEvery: generationGrowthEvery,
		body:        passBody[model.ExtendParams],
		extract:     extract.Tracks,
		partial:     partialTracks,
	})
}

// NewVocalSeparation creates a vocal separation adapter.
func NewVocalSeparation(cfg Config) *VocalSeparationAdapter {
	return newAdapter(cfg, spec[model.VocalSeparationParams, model.SeparationResult]{
		feature:     model.FeatureVocalSeparation,
		vocab:       extract.VocalSeparationVocabulary,
		growthEvery: conversionGrowthEvery,
		body:        passBody[model.VocalSeparationParams],
		extract:     extract.Separation,
	})
}

// NewWav creates a WAV conversion adapter.
func NewWav(cfg Config) *WavAdapter {
	return newAdapter(cfg, spec[model.WavParams, model.WavResult]{
		feature:     model.FeatureWav,
		vocab:       extract.WavVocabulary,
		growthEvery: conversionGrowthEvery,
		body:        passBody[model.WavParams],
		extract:     extract.WavURL,
	})
}

// NewMp4 creates an MP4 generation adapter.
func NewMp4(cfg Config) *Mp4Adapter {
	return newAdapter(cfg, spec[model.Mp4Params, model.Mp4Result]{
		feature:     model.FeatureMp4,
		vocab:       extract.Mp4Vocabulary,
		growthEvery: conversionGrowthEvery,
		body:        passBody[model.Mp4Params],
		extract:     extract.VideoURL,
	})
}

func partialTracks(raw json.RawMessage) ([]model.AudioTrack, bool) {
	tracks := extract.PartialTracks(raw)
	return tracks, len(tracks) > 0
}
