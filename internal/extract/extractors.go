package extract

import (
	"encoding/json"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/model"
)

// Track builds an AudioTrack from one item. Only the id and the primary
// audio URL are mandatory.
func Track(obj Object) (model.AudioTrack, error) {
	id, ok := obj.String(IDAliases...)
	if !ok {
		return model.AudioTrack{}, apierr.Extraction("id")
	}
	audioURL, ok := obj.String(AudioURLAliases...)
	if !ok {
		return model.AudioTrack{}, apierr.Extraction("audioUrl")
	}
	return partialTrack(obj, id, audioURL), nil
}

func partialTrack(obj Object, id, audioURL string) model.AudioTrack {
	track := model.AudioTrack{ID: id, AudioURL: audioURL}
	track.Title, _ = obj.String(TitleAliases...)
	track.StreamURL, _ = obj.String(StreamURLAliases...)
	track.ImageURL, _ = obj.String(ImageURLAliases...)
	track.ModelName, _ = obj.String(ModelNameAliases...)
	track.Prompt, _ = obj.String(PromptAliases...)
	track.CreateTime, _ = obj.String(CreateTimeAliases...)
	track.Duration, _ = obj.Float(DurationAliases...)
	tags, _ := obj.Value(TagsAliases...)
	track.Tags = ParseTags(tags)
	return track
}

// Tracks extracts the songs of a finished generation or extension task.
// An empty list is an extraction error.
func Tracks(raw json.RawMessage) ([]model.AudioTrack, error) {
	v, err := Decode(raw)
	if err != nil {
		return nil, apierr.Extraction("result")
	}
	items := Objects(v)
	if len(items) == 0 {
		return nil, apierr.Extraction("result")
	}

	tracks := make([]model.AudioTrack, 0, len(items))
	for _, item := range items {
		track, err := Track(item)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// PartialTracks returns the items of a task that is still running which
// already carry an id and some playable URL. It never fails; unusable
// items are skipped.
func PartialTracks(raw json.RawMessage) []model.AudioTrack {
	v, err := Decode(raw)
	if err != nil {
		return nil
	}
	var tracks []model.AudioTrack
	for _, item := range Objects(v) {
		id, ok := item.String(IDAliases...)
		if !ok {
			continue
		}
		audioURL, ok := item.String(AudioURLAliases...)
		if !ok {
			continue
		}
		tracks = append(tracks, partialTrack(item, id, audioURL))
	}
	return tracks
}

// LyricsVariants extracts the drafts of a finished lyrics task. Variants
// without text are dropped; at least one must remain.
func LyricsVariants(raw json.RawMessage) ([]model.LyricsVariant, error) {
	v, err := Decode(raw)
	if err != nil {
		return nil, apierr.Extraction("result")
	}

	variants := []model.LyricsVariant{}
	for _, item := range Objects(v) {
		text, ok := item.String(LyricsTextAliases...)
		if !ok {
			continue
		}
		variant := model.LyricsVariant{Text: text}
		variant.Title, _ = item.String(TitleAliases...)
		variant.Status, _ = item.String(StatusAliases...)
		variant.ErrorMessage, _ = item.String(LyricsErrorAliases...)
		variants = append(variants, variant)
	}
	if len(variants) == 0 {
		return nil, apierr.Extraction("text")
	}
	return variants, nil
}

// Separation extracts the stems of a vocal separation. The instrumental
// and vocal stems are mandatory.
func Separation(raw json.RawMessage) (model.SeparationResult, error) {
	obj, err := single(raw)
	if err != nil {
		return model.SeparationResult{}, err
	}

	var res model.SeparationResult
	var ok bool
	if res.InstrumentalURL, ok = obj.String(InstrumentalURLAliases...); !ok {
		return model.SeparationResult{}, apierr.Extraction("instrumentalUrl")
	}
	if res.VocalURL, ok = obj.String(VocalURLAliases...); !ok {
		return model.SeparationResult{}, apierr.Extraction("vocalUrl")
	}
	res.OriginalURL, _ = obj.String(OriginalURLAliases...)
	return res, nil
}

// WavURL extracts the output of a WAV conversion.
func WavURL(raw json.RawMessage) (model.WavResult, error) {
	obj, err := single(raw)
	if err != nil {
		return model.WavResult{}, err
	}
	url, ok := obj.String(WavURLAliases...)
	if !ok {
		return model.WavResult{}, apierr.Extraction("wavUrl")
	}
	return model.WavResult{WavURL: url}, nil
}

// VideoURL extracts the output of an MP4 generation.
func VideoURL(raw json.RawMessage) (model.Mp4Result, error) {
	obj, err := single(raw)
	if err != nil {
		return model.Mp4Result{}, err
	}
	url, ok := obj.String(VideoURLAliases...)
	if !ok {
		return model.Mp4Result{}, apierr.Extraction("videoUrl")
	}
	return model.Mp4Result{VideoURL: url}, nil
}

func single(raw json.RawMessage) (Object, error) {
	v, err := Decode(raw)
	if err != nil {
		return nil, apierr.Extraction("result")
	}
	obj, ok := SingleObject(v)
	if !ok {
		return nil, apierr.Extraction("result")
	}
	return obj, nil
}
