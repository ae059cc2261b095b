package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Harvest still frames, OCR text and quiz questions from videos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	pf := root.PersistentFlags()
	pf.String("frames", "", "Frames output root (HARVEST_FRAMES_DIR)")
	pf.Int("interval", 0, "Seconds between sampled frames (HARVEST_INTERVAL)")
	pf.Int("workers", 0, "Concurrent frame decoders (HARVEST_WORKERS)")
	pf.String("ocr", "", "OCR backend: tesseract, vision or none (OCR_BACKEND)")
	pf.String("ledger", "", "SQLite frame ledger path (HARVEST_LEDGER)")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file on exit (HARVEST_METRICS_FILE)")
	pf.String("log-level", "", "debug, info, warn or error (HARVEST_LOG_LEVEL)")

	runCmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Download a video, sample frames, OCR them and merge questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0])
		},
	}
	runCmd.Flags().String("name", "", "Video name (defaults to the video title)")
	runCmd.Flags().String("downloads", "", "Download folder (HARVEST_DOWNLOADS_DIR)")
	runCmd.Flags().String("questions", "", "Question folder to merge (HARVEST_QUESTIONS_DIR)")
	runCmd.Flags().String("out", "", "Merged question file (HARVEST_MERGED_FILE)")
	runCmd.Flags().Bool("no-merge", false, "Skip the merge stage")

	framesCmd := &cobra.Command{
		Use:   "frames <video>",
		Short: "Sample frames from a local video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrames(cmd, args[0])
		},
	}

	ocrCmd := &cobra.Command{
		Use:   "ocr <dir>",
		Short: "Run OCR over every image in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOCR(cmd, args[0])
		},
	}

	mergeCmd := &cobra.Command{
		Use:   "merge [dir]",
		Short: "Merge question JSON files into one sorted file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runMerge(cmd, dir)
		},
	}
	mergeCmd.Flags().String("out", "", "Merged question file (HARVEST_MERGED_FILE)")

	ledgerCmd := &cobra.Command{
		Use:   "ledger <video-name>",
		Short: "Show recorded frame outcomes for a video folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(cmd, args[0])
		},
	}

	root.AddCommand(runCmd, framesCmd, ocrCmd, mergeCmd, ledgerCmd)
	return root
}
