package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/readout/internal/capture"
	"github.com/MeKo-Tech/readout/internal/engine"
	"github.com/MeKo-Tech/readout/internal/preprocess"
	"github.com/MeKo-Tech/readout/internal/scan"
	"github.com/MeKo-Tech/readout/internal/session"
	"github.com/MeKo-Tech/readout/internal/utils"
)

// sessionResult is the serializable outcome of a full scan workflow.
type sessionResult struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Humidity    float64 `json:"humidity" yaml:"humidity"`
	Ticks       int     `json:"ticks" yaml:"ticks"`
}

// fileFrames feeds frame files to the session in order, holding the
// last frame once the sequence is exhausted.
type fileFrames struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
}

func (f *fileFrames) Frame() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	frame := f.frames[f.next]
	if f.next < len(f.frames)-1 {
		f.next++
	}
	return frame
}

// sessionCmd drives the temperature-then-humidity workflow over a
// sequence of frame images.
var sessionCmd = &cobra.Command{
	Use:   "session [images...]",
	Short: "Run the temperature/humidity confirmation workflow over frame images",
	Long: `Feed a sequence of frame images through the scan session state
machine. Each tick reads the current frame; a candidate reading whose
confidence clears the confirm threshold is confirmed automatically,
advancing from temperature to humidity to done.

Examples:
  readout session frames/*.png
  readout session temp.png humidity.png --format json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if f, _ := cmd.Flags().GetString("format"); f != "" {
			cfg.Output.Format = f
		}
		maxTicks, _ := cmd.Flags().GetInt("max-ticks")

		frames := &fileFrames{}
		for _, path := range args {
			img, err := utils.LoadImage(path)
			if err != nil {
				return err
			}
			frames.frames = append(frames.frames, img)
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

		runner := scan.NewRunner(eng, preprocess.DefaultPipelines(), engine.DefaultParams())
		sess := session.New(cfg.SessionConfig(), runner, frames, capture.StaticCrop(cfg.CropRegion()), func(kind session.Kind, value float64) {
			fmt.Fprintf(cmd.ErrOrStderr(), "confirmed %s: %g\n", kind, value)
		})
		sess.Start(cmd.Context())
		defer sess.Stop()

		ticks := 0
		for sess.Phase() != session.PhaseDone {
			if ticks >= maxTicks {
				return fmt.Errorf("no confirmable reading after %d ticks", maxTicks)
			}
			if sess.Trigger(cmd.Context()) {
				ticks++
				sess.Confirm()
			}
			time.Sleep(10 * time.Millisecond)
		}

		temperature, humidity := sess.Confirmed()
		result := sessionResult{Temperature: temperature, Humidity: humidity, Ticks: ticks}

		out, cleanup, err := outputWriter(cmd, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return renderSession(out, result, cfg.Output.Format)
	},
}

func init() {
	sessionCmd.Flags().StringP("format", "f", "", "output format (text, json, yaml)")
	sessionCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	sessionCmd.Flags().Int("max-ticks", 60, "abort after this many recognition ticks")
	rootCmd.AddCommand(sessionCmd)
}

func renderSession(w io.Writer, result sessionResult, format string) error {
	switch format {
	case outputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case outputFormatYAML:
		return yaml.NewEncoder(w).Encode(result)
	case outputFormatText, "":
		_, err := fmt.Fprintf(w, "temperature: %g\nhumidity: %g\n", result.Temperature, result.Humidity)
		return err
	default:
		return errors.New("unknown output format: " + format)
	}
}
