package commands

import (
	"github.com/spf13/cobra"

	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/model"
)

var generateParams model.GenerateParams

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate songs from a prompt",
	Long: `Generate songs from a prompt.

In simple mode only --prompt is used (at most 400 characters). With
--custom, --title and --style are required and --prompt holds the lyrics
unless --instrumental is set.

Examples:
  sunoctl generate --prompt "calm piano"
  sunoctl generate --custom --instrumental --title Calm --style ambient`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadParams(&generateParams); err != nil {
			return err
		}
		cfg, err := adapterConfig()
		if err != nil {
			return err
		}
		return follow(cmd, feature.NewGenerate(cfg), generateParams)
	},
}

var lyricsParams model.LyricsParams

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "Generate lyrics drafts",
	Long: `Generate lyrics drafts from a prompt of at most 200 characters.

Examples:
  sunoctl lyrics --prompt "a song about rain"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadParams(&lyricsParams); err != nil {
			return err
		}
		cfg, err := adapterConfig()
		if err != nil {
			return err
		}
		return follow(cmd, feature.NewLyrics(cfg), lyricsParams)
	},
}

var extendParams model.ExtendParams

var extendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Continue an existing track",
	Long: `Continue an existing track.

With --custom the extension uses --prompt, --style, --title and
--continue-at (seconds) instead of the source track's parameters.

Examples:
  sunoctl extend --audio-id a1
  sunoctl extend --audio-id a1 --custom --prompt "..." --style pop --title Calm --continue-at 60`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadParams(&extendParams); err != nil {
			return err
		}
		cfg, err := adapterConfig()
		if err != nil {
			return err
		}
		return follow(cmd, feature.NewExtend(cfg), extendParams)
	},
}

var separateParams model.VocalSeparationParams

var separateCmd = &cobra.Command{
	Use:   "separate",
	Short: "Split a track into vocal and instrumental stems",
	Long: `Split a generated track into vocal and instrumental stems.

Examples:
  sunoctl separate --task-id t1 --audio-id a1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadParams(&separateParams); err != nil {
			return err
		}
		cfg, err := adapterConfig()
		if err != nil {
			return err
		}
		return follow(cmd, feature.NewVocalSeparation(cfg), separateParams)
	},
}

var wavParams model.WavParams

var wavCmd = &cobra.Command{
	Use:   "wav",
	Short: "Convert a track to WAV",
	Long: `Convert a generated track to WAV.

Examples:
  sunoctl wav --task-id t1 --audio-id a1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadParams(&wavParams); err != nil {
			return err
		}
		cfg, err := adapterConfig()
		if err != nil {
			return err
		}
		return follow(cmd, feature.NewWav(cfg), wavParams)
	},
}

var mp4Params model.Mp4Params

var mp4Cmd = &cobra.Command{
	Use:   "mp4",
	Short: "Render a music video",
	Long: `Render a music video for a generated track.

Examples:
  sunoctl mp4 --task-id t1 --audio-id a1 --author "Me"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadParams(&mp4Params); err != nil {
			return err
		}
		cfg, err := adapterConfig()
		if err != nil {
			return err
		}
		return follow(cmd, feature.NewMp4(cfg), mp4Params)
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateParams.Prompt, "prompt", "", "song description, or lyrics in custom mode")
	f.StringVar(&generateParams.Style, "style", "", "music style (custom mode)")
	f.StringVar(&generateParams.Title, "title", "", "song title (custom mode)")
	f.BoolVar(&generateParams.CustomMode, "custom", false, "custom mode")
	f.BoolVar(&generateParams.Instrumental, "instrumental", false, "no vocals")
	f.StringVar((*string)(&generateParams.Model), "model", "", "model version (V3_5, V4, V4_5, V4_5PLUS, V5)")
	f.StringVar(&generateParams.NegativeTags, "negative-tags", "", "styles to avoid")
	f.StringVar(&generateParams.VocalGender, "vocal-gender", "", "vocal gender (m or f)")

	lyricsCmd.Flags().StringVar(&lyricsParams.Prompt, "prompt", "", "lyrics description")

	f = extendCmd.Flags()
	f.StringVar(&extendParams.AudioID, "audio-id", "", "id of the track to extend")
	f.BoolVar(&extendParams.DefaultParamFlag, "custom", false, "use custom parameters")
	f.StringVar(&extendParams.Prompt, "prompt", "", "extension lyrics or description")
	f.StringVar(&extendParams.Style, "style", "", "music style")
	f.StringVar(&extendParams.Title, "title", "", "track title")
	f.Float64Var(&extendParams.ContinueAt, "continue-at", 0, "position in seconds to continue from")
	f.StringVar((*string)(&extendParams.Model), "model", "", "model version")

	for _, c := range []struct {
		cmd     *cobra.Command
		taskID  *string
		audioID *string
	}{
		{separateCmd, &separateParams.TaskID, &separateParams.AudioID},
		{wavCmd, &wavParams.TaskID, &wavParams.AudioID},
		{mp4Cmd, &mp4Params.TaskID, &mp4Params.AudioID},
	} {
		c.cmd.Flags().StringVar(c.taskID, "task-id", "", "id of the generation task")
		c.cmd.Flags().StringVar(c.audioID, "audio-id", "", "id of the track")
	}
	mp4Cmd.Flags().StringVar(&mp4Params.Author, "author", "", "author shown in the video")
	mp4Cmd.Flags().StringVar(&mp4Params.DomainName, "domain", "", "domain shown in the video")
}
