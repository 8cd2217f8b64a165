// Package extract turns upstream task payloads into feature results.
//
// The upstream API names the same concept in several ways (audio_url,
// audioUrl, source_audio_url, ...). Every field is therefore read through an
// ordered alias list: the first alias holding a usable value wins.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Alias lists, in preference order.
var (
	// AudioURLAliases prefers the direct URL, then the source URL, then the
	// stream URL.
	AudioURLAliases = []string{
		"audio_url", "audioUrl",
		"source_audio_url", "sourceAudioUrl",
		"stream_audio_url", "streamAudioUrl",
		"source_stream_audio_url", "sourceStreamAudioUrl",
	}
	StreamURLAliases = []string{
		"stream_audio_url", "streamAudioUrl",
		"source_stream_audio_url", "sourceStreamAudioUrl",
	}
	ImageURLAliases   = []string{"image_url", "imageUrl", "source_image_url", "sourceImageUrl"}
	IDAliases         = []string{"id", "audio_id", "audioId"}
	TitleAliases      = []string{"title"}
	ModelNameAliases  = []string{"model_name", "modelName"}
	DurationAliases   = []string{"duration"}
	TagsAliases       = []string{"tags"}
	PromptAliases     = []string{"prompt"}
	CreateTimeAliases = []string{"createTime", "create_time", "created_at"}

	LyricsTextAliases  = []string{"text", "lyrics"}
	LyricsErrorAliases = []string{"errorMessage", "error_message"}
	StatusAliases      = []string{"status", "successFlag", "success_flag"}

	OriginalURLAliases     = []string{"originUrl", "originalUrl", "origin_url", "original_url"}
	InstrumentalURLAliases = []string{"instrumentalUrl", "instrumental_url"}
	VocalURLAliases        = []string{"vocalUrl", "vocal_url"}
	WavURLAliases          = []string{"audioWavUrl", "audio_wav_url", "wavUrl", "wav_url"}
	VideoURLAliases        = []string{"videoUrl", "video_url"}

	// ListAliases are the wrapper keys under which item lists may be nested.
	ListAliases = []string{"sunoData", "suno_data", "data"}
)

// Object is a decoded JSON object.
type Object map[string]interface{}

// String returns the first non-empty string value among aliases. Numbers
// are formatted so numeric ids still resolve.
func (o Object) String(aliases ...string) (string, bool) {
	for _, key := range aliases {
		switch v := o[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case json.Number:
			return v.String(), true
		}
	}
	return "", false
}

// Float returns the first numeric value among aliases. Numeric strings are
// accepted.
func (o Object) Float(aliases ...string) (float64, bool) {
	for _, key := range aliases {
		switch v := o[key].(type) {
		case float64:
			return v, true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Value returns the first present, non-null value among aliases.
func (o Object) Value(aliases ...string) (interface{}, bool) {
	for _, key := range aliases {
		if v, ok := o[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Decode parses a raw payload into a generic value.
func Decode(raw []byte) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return v, nil
}

// Objects returns the item objects of a payload: a list as-is, a list
// nested under one of ListAliases, or a single object.
func Objects(v interface{}) []Object {
	switch t := v.(type) {
	case []interface{}:
		items := make([]Object, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				items = append(items, Object(m))
			}
		}
		return items
	case map[string]interface{}:
		obj := Object(t)
		if nested, ok := obj.Value(ListAliases...); ok {
			if _, isList := nested.([]interface{}); isList {
				return Objects(nested)
			}
		}
		return []Object{obj}
	}
	return nil
}

// SingleObject returns the object of a payload that describes one item. A
// list yields its first element.
func SingleObject(v interface{}) (Object, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return Object(t), true
	case []interface{}:
		items := Objects(t)
		if len(items) > 0 {
			return items[0], true
		}
	}
	return nil, false
}
