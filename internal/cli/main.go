package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "reelcut",
		Short:         "Cut short-form highlight reels from a video file or URL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	pf := root.PersistentFlags()
	pf.String("out", "", "Output directory (default from config, else \"out\")")
	pf.String("config", "", "Config file (default ./reelcut.yaml or ~/.reelcut/config.yaml)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (env REELCUT_LOG_LEVEL)")
	pf.Int("frames", 0, "Still frames per highlight and canvas")
	pf.StringSlice("keywords", nil, "Comma-separated scoring keywords (replaces the configured list)")

	// Hidden tuning flag (internal)
	pf.String("cache", "", "Scratch directory for audio and transcripts")
	_ = pf.MarkHidden("cache")

	root.AddCommand(newHighlightsCmd(), newMotionCmd(), newShortsCmd())
	return root
}

func newHighlightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "highlights <input>",
		Short: "Render the best transcript segments in landscape and portrait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHighlights(cmd, args[0])
		},
	}
	cmd.Flags().Int("clips", 0, "Number of highlights")
	cmd.Flags().Float64("max", 0, "Trim highlights longer than this many seconds (0 keeps full segments)")
	cmd.Flags().Bool("no-subtitles", false, "Do not burn subtitles into clips")
	cmd.Flags().Bool("merge", false, "Also join the clips of each format into one reel")
	return cmd
}

func newMotionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "motion <input>",
		Short: "Build reels from segments with sustained on-screen motion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMotion(cmd, args[0])
		},
	}
}

func newShortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shorts <input>",
		Short: "Pack highlights into YouTube Shorts and Instagram clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShorts(cmd, args[0])
		},
	}
	cmd.Flags().StringSlice("platforms", nil, "Platforms to build (default all configured)")
	cmd.Flags().Int("clips", 0, "Clips per platform (default from config)")
	cmd.Flags().Bool("no-subtitles", false, "Do not burn subtitles into clips")
	return cmd
}

func describe(err error) string {
	if errors.Is(err, highlights.ErrInsufficientMaterial) {
		return fmt.Sprintf("nothing to cut: the video has no segments worth a highlight (%v)", err)
	}
	return err.Error()
}
