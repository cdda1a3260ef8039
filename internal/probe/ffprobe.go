// Package probe inspects media files with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Report is the decoded ffprobe output for one file.
type Report struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Runner executes binary with args and returns its stdout.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// ExecRunner runs the binary as a subprocess. The process is killed when
// ctx is done.
func ExecRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// Args returns the ffprobe arguments used to inspect path.
func Args(path string) []string {
	return []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
}

// Inspect runs ffprobe against path and returns the raw JSON and its decoded form.
func Inspect(ctx context.Context, run Runner, binary, path string) (Report, []byte, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Report{}, nil, errors.New("ffprobe inspect: empty path")
	}
	if run == nil {
		run = ExecRunner
	}

	raw, err := run(ctx, binary, Args(path)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Report{}, nil, fmt.Errorf("ffprobe inspect: %w", ctxErr)
		}
		return Report{}, nil, fmt.Errorf("ffprobe inspect: %w", err)
	}
	rep, err := Decode(raw)
	if err != nil {
		return Report{}, nil, err
	}
	return rep, raw, nil
}

// Decode parses ffprobe JSON output.
func Decode(raw []byte) (Report, error) {
	var rep Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return Report{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return rep, nil
}

// VideoStreamCount returns the number of video streams.
func (r Report) VideoStreamCount() int { return r.countType("video") }

// AudioStreamCount returns the number of audio streams.
func (r Report) AudioStreamCount() int { return r.countType("audio") }

func (r Report) countType(kind string) int {
	n := 0
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, kind) {
			n++
		}
	}
	return n
}

// VideoStream returns the first video stream, if any.
func (r Report) VideoStream() (Stream, bool) {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "video") {
			return s, true
		}
	}
	return Stream{}, false
}

// Duration returns the container duration, or 0 when unavailable.
func (r Report) Duration() time.Duration {
	secs := parseFloat(r.Format.Duration)
	if math.IsNaN(secs) || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// SizeBytes returns the reported container size, or 0 when unavailable.
func (r Report) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0.
func (r Report) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

// Summary renders a one-line description, e.g.
// "1920x1080 h264, 2 audio, 1m30s, 12 MB".
func (r Report) Summary() string {
	var parts []string
	if v, ok := r.VideoStream(); ok {
		if v.Width > 0 && v.Height > 0 {
			parts = append(parts, fmt.Sprintf("%dx%d %s", v.Width, v.Height, v.CodecName))
		} else if v.CodecName != "" {
			parts = append(parts, v.CodecName)
		}
	} else {
		parts = append(parts, "no video")
	}
	if n := r.AudioStreamCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d audio", n))
	}
	if d := r.Duration(); d > 0 {
		parts = append(parts, d.Round(time.Second).String())
	}
	if size := r.SizeBytes(); size > 0 {
		parts = append(parts, humanize.Bytes(uint64(size)))
	}
	return strings.Join(parts, ", ")
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
