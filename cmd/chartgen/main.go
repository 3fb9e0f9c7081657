// Command chartgen is the offline Chart Generator CLI of spec.md §6: it
// decodes mono PCM, runs internal/chartgen.Generate, and writes one chart
// file per requested difficulty plus an optional metadata file and
// checksum manifest. Adapted from the teacher's cmd/engine bootstrap
// idiom (structured slog logger, flag-based args, process exit codes on
// failure) applied to a single-shot CLI instead of a long-running server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/chartgen"
	"github.com/cartomix/rhythmengine/internal/fixtures"
)

var allDifficulties = []chart.Difficulty{
	chart.DifficultyEasy, chart.DifficultyNormal, chart.DifficultyHard, chart.DifficultyExpert,
}

func main() {
	difficultyFlag := flag.String("difficulty", "", "difficulty to generate: easy, normal, hard, expert")
	allFlag := flag.Bool("all-difficulties", false, "generate a chart for every difficulty")
	output := flag.String("output", "", "output chart file path (single difficulty only)")
	outputDir := flag.String("output-dir", "", "output directory (required with --all-difficulties)")
	bpmOverride := flag.Float64("bpm", 0, "override BPM estimation with a fixed value")
	sensitivity := flag.Float64("sensitivity", chartgen.DefaultOptions().Sensitivity, "onset detection sensitivity")
	minIntervalMs := flag.Float64("min-interval", chartgen.DefaultOptions().MinIntervalMs, "minimum onset interval in milliseconds")
	emitMetadata := flag.Bool("metadata", false, "emit a metadata file alongside each chart")
	title := flag.String("title", "", "song title recorded in metadata")
	artist := flag.String("artist", "", "song artist recorded in metadata")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() < 1 {
		logger.Error("missing input audio path")
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	difficulties, err := resolveDifficulties(*difficultyFlag, *allFlag)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if len(difficulties) > 1 && *outputDir == "" {
		logger.Error("--output-dir is required with --all-difficulties")
		os.Exit(1)
	}
	if len(difficulties) == 1 && *output == "" && *outputDir == "" {
		logger.Error("--output or --output-dir is required")
		os.Exit(1)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		logger.Error("failed to open input audio", "path", inputPath, "error", err)
		os.Exit(1)
	}
	samples, sampleRate, err := fixtures.ReadWAV(f)
	f.Close()
	if err != nil {
		logger.Error("failed to decode input audio", "path", inputPath, "error", err)
		os.Exit(1)
	}

	opts := chartgen.DefaultOptions()
	opts.BPMOverride = *bpmOverride
	opts.Sensitivity = *sensitivity
	opts.MinIntervalMs = *minIntervalMs

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	var writtenFiles []string

	for _, difficulty := range difficulties {
		logger.Debug("generating chart", "difficulty", difficulty, "input", inputPath)

		c, err := chartgen.Generate(samples, sampleRate, difficulty, opts)
		if err != nil {
			logger.Error("chart generation failed", "difficulty", difficulty, "error", err)
			os.Exit(1)
		}

		outPath := *output
		if outPath == "" {
			outPath = filepath.Join(*outputDir, fmt.Sprintf("%s.%s.chart", baseName, difficulty))
		}

		if err := os.WriteFile(outPath, []byte(chart.Marshal(c)), 0644); err != nil {
			logger.Error("failed to write chart", "path", outPath, "error", err)
			os.Exit(1)
		}
		writtenFiles = append(writtenFiles, filepath.Base(outPath))
		logger.Info("wrote chart", "path", outPath, "rating", c.Rating, "notes", len(c.Notes))

		if *emitMetadata {
			meta := &chart.Metadata{Title: *title, Artist: *artist, PreviewDurationMs: chart.DefaultPreviewDurationMs}
			metaPath := outPath + ".meta"
			if err := os.WriteFile(metaPath, []byte(chart.MarshalMetadata(meta)), 0644); err != nil {
				logger.Error("failed to write metadata", "path", metaPath, "error", err)
				os.Exit(1)
			}
			writtenFiles = append(writtenFiles, filepath.Base(metaPath))
		}
	}

	manifestDir := *outputDir
	if manifestDir == "" {
		manifestDir = filepath.Dir(*output)
	}
	manifestPath := filepath.Join(manifestDir, baseName+".checksums.txt")
	if err := chart.WriteChecksumManifest(manifestPath, manifestDir, writtenFiles); err != nil {
		logger.Error("failed to write checksum manifest", "error", err)
		os.Exit(1)
	}
}

func resolveDifficulties(flagValue string, all bool) ([]chart.Difficulty, error) {
	if all {
		return allDifficulties, nil
	}
	switch strings.ToLower(flagValue) {
	case "easy":
		return []chart.Difficulty{chart.DifficultyEasy}, nil
	case "normal":
		return []chart.Difficulty{chart.DifficultyNormal}, nil
	case "hard":
		return []chart.Difficulty{chart.DifficultyHard}, nil
	case "expert":
		return []chart.Difficulty{chart.DifficultyExpert}, nil
	case "":
		return nil, fmt.Errorf("--difficulty or --all-difficulties is required")
	default:
		return nil, fmt.Errorf("unknown difficulty %q", flagValue)
	}
}
