package feature

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/model"
)

// Generation length limits, counted in characters.
const (
	MaxSimplePromptLen = 400
	MaxCustomPromptLen = 3000
	MaxTitleLen        = 80
	MaxStyleLen        = 200
)

// NewValidator returns a validator that knows the conditional rules of
// every feature. Field names in errors are the JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(generateRules, model.GenerateParams{})
	v.RegisterStructValidation(extendRules, model.ExtendParams{})
	return v
}

var defaultValidator = NewValidator()

func generateRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.GenerateParams)

	if !p.CustomMode {
		requireText(sl, p.Prompt, "prompt", "Prompt", MaxSimplePromptLen)
		return
	}
	requireText(sl, p.Title, "title", "Title", MaxTitleLen)
	requireText(sl, p.Style, "style", "Style", MaxStyleLen)
	if !p.Instrumental {
		requireText(sl, p.Prompt, "prompt", "Prompt", MaxCustomPromptLen)
	}
}

func extendRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.ExtendParams)
	if !p.DefaultParamFlag {
		return
	}
	requireText(sl, p.Prompt, "prompt", "Prompt", MaxCustomPromptLen)
	requireText(sl, p.Style, "style", "Style", MaxStyleLen)
	requireText(sl, p.Title, "title", "Title", MaxTitleLen)
	if p.ContinueAt <= 0 {
		sl.ReportError(p.ContinueAt, "continueAt", "ContinueAt", "gt", "0")
	}
}

func requireText(sl validator.StructLevel, value, field, structField string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		sl.ReportError(value, field, structField, "required", "")
	case utf8.RuneCountInString(value) > max:
		sl.ReportError(value, field, structField, "max", fmt.Sprint(max))
	}
}

// Validate checks params with v and returns an *apierr.Error listing the
// failed fields.
func Validate(v *validator.Validate, params interface{}) error {
	if v == nil {
		v = defaultValidator
	}
	err := v.Struct(params)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Validation(map[string]string{"body": err.Error()})
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = e.Tag()
	}
	return apierr.Validation(fields)
}

// Prepare decodes a raw creation body for feature f, validates it and
// returns the body to send upstream. Only validation errors are returned.
func Prepare(v *validator.Validate, f model.Feature, raw []byte) (interface{}, error) {
	switch f {
	case model.FeatureGenerate:
		return prepareRaw(v, raw, generateBody)
	case model.FeatureLyrics:
		return prepareRaw(v, raw, passBody[model.LyricsParams])
	case model.FeatureExtend:
		return prepareRaw(v, raw, passBody[model.ExtendParams])
	case model.FeatureVocalSeparation:
		return prepareRaw(v, raw, passBody[model.VocalSeparationParams])
	case model.FeatureWav:
		return prepareRaw(v, raw, passBody[model.WavParams])
	case model.FeatureMp4:
		return prepareRaw(v, raw, passBody[model.Mp4Params])
	}
	return nil, apierr.Validation(map[string]string{"feature": "oneof"})
}

func prepareRaw[P any](v *validator.Validate, raw []byte, body func(P) interface{}) (interface{}, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apierr.Validation(map[string]string{"body": "json"})
	}
	if err := Validate(v, p); err != nil {
		return nil, err
	}
	return body(p), nil
}

// generateBody drops the prompt of a custom instrumental request.
func generateBody(p model.GenerateParams) interface{} {
	if p.CustomMode && p.Instrumental {
		p.Prompt = ""
	}
	return p
}

func passBody[P any](p P) interface{} {
	return p
}
