package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"go.uber.org/zap"

	"quiz-pipeline/internal/adapter"
	"quiz-pipeline/internal/adapter/langdetect"
	"quiz-pipeline/internal/adapter/source"
	"quiz-pipeline/internal/config"
	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/logger"
	"quiz-pipeline/internal/service"
)

type runOptions struct {
	input     string
	output    string
	questions int
	maxTokens int
	beams     int
	verbose   bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quizgen",
		Short:        "Generate summaries and quiz questions from lesson texts",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newDetectCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the quiz pipeline on a text or PDF file",
		Long: `Reads the input, normalizes it to English, summarizes it and generates
questions about the summary. The result is printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input file path or URL")
	flags.StringVarP(&opts.output, "output", "o", "", "write the result to this file instead of stdout")
	flags.IntVar(&opts.questions, "questions", domain.DefaultMaxQuestions, "maximum number of questions")
	flags.IntVar(&opts.maxTokens, "max-tokens", domain.DefaultMaxSummaryTokens, "maximum summary length in tokens")
	flags.IntVar(&opts.beams, "beams", domain.DefaultBeamWidth, "beam width of the summarizer")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runPipeline(ctx context.Context, opts *runOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !opts.verbose {
		cfg.Logger.Level = "error"
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return err
	}
	log := logger.Get()
	defer logger.Sync()

	models, err := adapter.NewModels(cfg, log)
	if err != nil {
		return err
	}
	defer models.Close()

	pipeline, err := service.NewPipeline(models, source.NewAFSLoader(afs.New(), log), cfg.Pipeline, log)
	if err != nil {
		return err
	}

	result, err := pipeline.RunSource(ctx, opts.input, domain.RunOptions{
		MaxQuestions:     opts.questions,
		MaxSummaryTokens: opts.maxTokens,
		BeamWidth:        opts.beams,
	})
	if err != nil {
		return err
	}

	out := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
		log.Info("Writing result", zap.String("path", opts.output))
	}
	return writeResult(out, result)
}

func writeResult(w io.Writer, result *domain.PipelineResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

func newDetectCmd() *cobra.Command {
	var minDistance float64
	cmd := &cobra.Command{
		Use:   "detect <path>",
		Short: "Print the ISO 639-1 code of a file's language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			text, err := source.NewAFSLoader(afs.New(), zap.NewNop()).Load(ctx, args[0])
			if err != nil {
				return err
			}
			lang, err := langdetect.NewLinguaDetector(minDistance).Detect(text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), lang)
			return err
		},
	}
	cmd.Flags().Float64Var(&minDistance, "min-distance", 0, "minimum relative distance between the top two languages")
	return cmd
}
