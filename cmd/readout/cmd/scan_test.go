package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/capture"
	"github.com/MeKo-Tech/readout/internal/testutil"
	"github.com/MeKo-Tech/readout/internal/utils"
)

// writeDisplayFrame renders a display frame whose crop region matches
// the native glyph size, so no resampling distorts the strokes.
func writeDisplayFrame(t *testing.T, text string) string {
	t.Helper()
	region := capture.CropRegion{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	reading := testutil.RenderReading(text)
	frame := testutil.RenderFrame(text,
		reading.Bounds().Dx()*2, reading.Bounds().Dy()*2, region)

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, utils.SaveImage(frame, path))
	return path
}

func TestScanCommandJSON(t *testing.T) {
	path := writeDisplayFrame(t, "23")

	output, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"scan", path,
		"--crop", "0.25,0.25,0.5,0.5",
		"--format", "json",
		"--attempts",
	})
	require.NoError(t, err)

	var result scanResult
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, path, result.File)
	assert.True(t, result.Reading.Detected)
	assert.InDelta(t, 23, result.Reading.Value, 1e-9)
	assert.Len(t, result.Attempts, 9)

	// Reset flags so later executions do not inherit them.
	require.NoError(t, scanCmd.Flags().Set("crop", ""))
	require.NoError(t, scanCmd.Flags().Set("format", ""))
	require.NoError(t, scanCmd.Flags().Set("attempts", "false"))
}

func TestScanCommandNoDetection(t *testing.T) {
	// A blank frame carries no display at all.
	frame := testutil.RenderFrame("", 200, 200, capture.DefaultCropRegion())
	path := filepath.Join(t.TempDir(), "blank.png")
	require.NoError(t, utils.SaveImage(frame, path))

	output, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"scan", path, "--format", "text",
	})
	require.NoError(t, err)
	assert.Contains(t, output, "no detection")
}

func TestScanCommandMissingFile(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"scan", filepath.Join(t.TempDir(), "missing.png"),
	})
	assert.Error(t, err)
}

func TestScanCommandInvalidCropFlag(t *testing.T) {
	path := writeDisplayFrame(t, "5")
	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"scan", path, "--crop", "0.1,0.2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want x,y,width,height")

	// Reset for later executions.
	require.NoError(t, scanCmd.Flags().Set("crop", ""))
}

func TestScanCommandInvalidRangeFlag(t *testing.T) {
	path := writeDisplayFrame(t, "5")
	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"scan", path, "--range", "100,0",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	require.NoError(t, scanCmd.Flags().Set("range", ""))
}

func TestScanCommandDebugDir(t *testing.T) {
	path := writeDisplayFrame(t, "7")
	debugDir := t.TempDir()

	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"scan", path,
		"--crop", "0.25,0.25,0.5,0.5",
		"--debug-dir", debugDir,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(debugDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "one enhanced buffer per pipeline")

	require.NoError(t, scanCmd.Flags().Set("crop", ""))
	require.NoError(t, scanCmd.Flags().Set("debug-dir", ""))
}

func TestScanCommandOutputFile(t *testing.T) {
	path := writeDisplayFrame(t, "42")
	outPath := filepath.Join(t.TempDir(), "result.json")

	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"scan", path,
		"--crop", "0.25,0.25,0.5,0.5",
		"--format", "json",
		"--output", outPath,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var result scanResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.Reading.Detected)

	require.NoError(t, scanCmd.Flags().Set("crop", ""))
	require.NoError(t, scanCmd.Flags().Set("output", ""))
}
