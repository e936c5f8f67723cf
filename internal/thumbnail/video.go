package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"namewise/internal/errors"
)

// FrameExtractor pulls a single frame out of a video with ffmpeg.
type FrameExtractor struct {
	FFmpegPath string
	Offset     time.Duration
	Options    Options
}

// NewFrameExtractor creates an extractor using the given ffmpeg binary
func NewFrameExtractor(ffmpegPath string, offset time.Duration, opts Options) *FrameExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FrameExtractor{FFmpegPath: ffmpegPath, Offset: offset, Options: opts}
}

// Available reports whether the ffmpeg binary can be found
func (f *FrameExtractor) Available() bool {
	_, err := exec.LookPath(f.FFmpegPath)
	return err == nil
}

// Args builds the ffmpeg argument list that writes one MJPEG frame to stdout.
func (f *FrameExtractor) Args(path string) []string {
	return []string{
		f.FFmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatOffset(f.Offset),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}
}

// Frame extracts the frame at the configured offset and thumbnails it. Videos
// shorter than the offset are retried from the first frame.
func (f *FrameExtractor) Frame(ctx context.Context, path string) (Thumbnail, error) {
	out, stderr, err := f.run(ctx, path, f.Offset)
	if err == nil && len(out) == 0 && f.Offset > 0 {
		out, stderr, err = f.run(ctx, path, 0)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return Thumbnail{}, errors.NewAnalysisError("ffmpeg frame extraction failed", path, errors.AnalysisUnsupported, err)
	}
	if len(out) == 0 {
		return Thumbnail{}, errors.NewAnalysisError("ffmpeg produced no frame", path, errors.AnalysisUnsupported, nil)
	}

	thumb, err := Image(bytes.NewReader(out), f.Options)
	if err != nil {
		return Thumbnail{}, errors.NewAnalysisError("cannot decode video frame", path, errors.AnalysisUnsupported, err)
	}
	return thumb, nil
}

func (f *FrameExtractor) run(ctx context.Context, path string, offset time.Duration) ([]byte, string, error) {
	ex := *f
	ex.Offset = offset
	args := ex.Args(path)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return stdout.Bytes(), stderrBuf.String(), err
}

// formatOffset renders d as seconds with millisecond precision, e.g. "1.500".
func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.3f", d.Seconds())
}
