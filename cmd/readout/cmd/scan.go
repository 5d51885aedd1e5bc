package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/readout/internal/capture"
	"github.com/MeKo-Tech/readout/internal/config"
	"github.com/MeKo-Tech/readout/internal/engine"
	"github.com/MeKo-Tech/readout/internal/preprocess"
	"github.com/MeKo-Tech/readout/internal/scan"
	"github.com/MeKo-Tech/readout/internal/utils"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
)

// scanResult is the serializable outcome of a one-shot scan.
type scanResult struct {
	File     string         `json:"file" yaml:"file"`
	Reading  scan.Reading   `json:"reading" yaml:"reading"`
	Attempts []scan.Attempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// scanCmd runs one recognition tick against a single image file.
var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "Read a numeric value from a single display image",
	Long: `Run one full recognition pass over an image file: crop the
display region, enhance it through every preprocessing pipeline, run
every engine configuration, and print the consensus reading.

Examples:
  readout scan display.jpg
  readout scan display.png --crop 0.2,0.3,0.6,0.4 --format json
  readout scan display.png --attempts --debug-dir out/`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if f, _ := cmd.Flags().GetString("format"); f != "" {
			cfg.Output.Format = f
		}

		region, err := cropFlagRegion(cmd, cfg)
		if err != nil {
			return err
		}
		rng, err := rangeFlagValue(cmd, cfg)
		if err != nil {
			return err
		}

		frame, err := utils.LoadImage(args[0])
		if err != nil {
			return err
		}
		buf := capture.Extract(frame, region)
		if buf == nil {
			return errors.New("crop region does not overlap the image")
		}

		eng, err := engine.New(cfg.Engine.Backend, engine.SevenSegConfig{
			ModelPath:  cfg.Engine.ModelPath,
			NumThreads: cfg.Engine.NumThreads,
			InputSize:  cfg.Engine.InputSize,
		})
		if err != nil {
			return err
		}
		defer func() { _ = eng.Close() }()

		pipelines := preprocess.DefaultPipelines()
		if dir, _ := cmd.Flags().GetString("debug-dir"); dir != "" {
			for _, p := range pipelines {
				name := fmt.Sprintf("%s_%s.png", strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])), p.Name())
				if err := utils.SaveImage(p.Apply(buf), filepath.Join(dir, name)); err != nil {
					return err
				}
			}
		}

		runner := scan.NewRunner(eng, pipelines, engine.DefaultParams())
		attempts := runner.Run(cmd.Context(), buf, rng)
		reading := scan.Consensus(attempts)

		result := scanResult{File: args[0], Reading: reading}
		if withAttempts, _ := cmd.Flags().GetBool("attempts"); withAttempts {
			result.Attempts = attempts
		}

		out, cleanup, err := outputWriter(cmd, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return renderResult(out, result, cfg)
	},
}

func init() {
	scanCmd.Flags().String("crop", "", "fractional crop region as x,y,width,height (default from config)")
	scanCmd.Flags().String("range", "", "plausible value range as min,max (default temperature range)")
	scanCmd.Flags().StringP("format", "f", "", "output format (text, json, yaml)")
	scanCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	scanCmd.Flags().Bool("attempts", false, "include every per-attempt record in the output")
	scanCmd.Flags().String("debug-dir", "", "write each pipeline's enhanced buffer as PNG into this directory")
	rootCmd.AddCommand(scanCmd)
}

// cropFlagRegion parses --crop or falls back to the configured region.
func cropFlagRegion(cmd *cobra.Command, cfg *config.Config) (capture.CropRegion, error) {
	raw, _ := cmd.Flags().GetString("crop")
	if raw == "" {
		return cfg.CropRegion(), nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return capture.CropRegion{}, fmt.Errorf("invalid crop %q: want x,y,width,height", raw)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return capture.CropRegion{}, fmt.Errorf("invalid crop %q: %w", raw, err)
		}
		vals[i] = v
	}
	region := capture.CropRegion{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if err := region.Validate(); err != nil {
		return capture.CropRegion{}, err
	}
	return region, nil
}

// rangeFlagValue parses --range or falls back to the temperature range.
func rangeFlagValue(cmd *cobra.Command, cfg *config.Config) (scan.ValueRange, error) {
	raw, _ := cmd.Flags().GetString("range")
	if raw == "" {
		return scan.ValueRange{Min: cfg.Ranges.Temperature.Min, Max: cfg.Ranges.Temperature.Max}, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return scan.ValueRange{}, fmt.Errorf("invalid range %q: want min,max", raw)
	}
	minV, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return scan.ValueRange{}, fmt.Errorf("invalid range %q: %w", raw, err)
	}
	maxV, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return scan.ValueRange{}, fmt.Errorf("invalid range %q: %w", raw, err)
	}
	if minV >= maxV {
		return scan.ValueRange{}, fmt.Errorf("range [%g,%g] is empty", minV, maxV)
	}
	return scan.ValueRange{Min: minV, Max: maxV}, nil
}

// outputWriter resolves the output destination from flag or config.
func outputWriter(cmd *cobra.Command, cfg *config.Config) (io.Writer, func(), error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		path = cfg.Output.File
	}
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func renderResult(w io.Writer, result scanResult, cfg *config.Config) error {
	format := cfg.Output.Format
	switch format {
	case outputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case outputFormatYAML:
		return yaml.NewEncoder(w).Encode(result)
	case outputFormatText, "":
		return renderText(w, result, cfg.Output.ConfidencePrecision)
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}

func renderText(w io.Writer, result scanResult, precision int) error {
	r := result.Reading
	if !r.Detected {
		_, err := fmt.Fprintln(w, "no detection: position crop area over the number")
		return err
	}
	_, err := fmt.Fprintf(w, "%s (confidence %.*f, %d/%d agree, %s/%s)\n",
		r.Text, precision, r.Confidence, r.AgreementCount, r.TotalValid, r.BestPipeline, r.BestConfig)
	if err != nil {
		return err
	}
	for _, a := range result.Attempts {
		_, err = fmt.Fprintf(w, "  %-24s %-16s %-8q conf=%.*f valid=%t\n",
			a.Pipeline, a.Config, a.RawText, precision, a.Confidence, a.Valid)
		if err != nil {
			return err
		}
	}
	return nil
}
