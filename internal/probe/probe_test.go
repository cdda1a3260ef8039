package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/mx/internal/store"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2, "sample_rate": "48000"},
    {"index": 2, "codec_name": "ac3", "codec_type": "audio", "channels": 6}
  ],
  "format": {
    "filename": "/videos/a.mp4",
    "nb_streams": 3,
    "duration": "90.48",
    "size": "12000000",
    "bit_rate": "1061007",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2"
  }
}`

func fakeRunner(out string, err error, calls *atomic.Int32) Runner {
	return func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if calls != nil {
			calls.Add(1)
		}
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecode(t *testing.T) {
	rep, err := Decode([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rep.VideoStreamCount() != 1 || rep.AudioStreamCount() != 2 {
		t.Errorf("stream counts: video=%d audio=%d", rep.VideoStreamCount(), rep.AudioStreamCount())
	}
	if rep.SizeBytes() != 12000000 {
		t.Errorf("size = %d", rep.SizeBytes())
	}
	if rep.BitRate() != 1061007 {
		t.Errorf("bitrate = %d", rep.BitRate())
	}
	if got := rep.Duration().Round(time.Millisecond); got != 90480*time.Millisecond {
		t.Errorf("duration = %v", got)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil || !strings.Contains(err.Error(), "ffprobe parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestReportMissingFields(t *testing.T) {
	rep := Report{Format: Format{Duration: "N/A", Size: "", BitRate: "-5"}}
	if rep.Duration() != 0 || rep.SizeBytes() != 0 || rep.BitRate() != 0 {
		t.Errorf("unavailable fields should be zero: %v %d %d", rep.Duration(), rep.SizeBytes(), rep.BitRate())
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		rep  Report
		want string
	}{
		{
			name: "full",
			rep:  mustDecode(t, sampleJSON),
			want: "1920x1080 h264, 2 audio, 1m30s, 12 MB",
		},
		{
			name: "audio only",
			rep: Report{
				Streams: []Stream{{CodecType: "audio", CodecName: "mp3"}},
				Format:  Format{Duration: "5"},
			},
			want: "no video, 1 audio, 5s",
		},
		{
			name: "codec without dimensions",
			rep:  Report{Streams: []Stream{{CodecType: "video", CodecName: "mjpeg"}}},
			want: "mjpeg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rep.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func mustDecode(t *testing.T, s string) Report {
	t.Helper()
	rep, err := Decode([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return rep
}

func TestInspectPassesArgs(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	run := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary, gotArgs = binary, args
		return []byte(sampleJSON), nil
	}

	_, raw, err := Inspect(context.Background(), run, "  ", "/videos/a b.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if gotBinary != "ffprobe" {
		t.Errorf("blank binary should default to ffprobe, got %q", gotBinary)
	}
	if gotArgs[len(gotArgs)-2] != "--" || gotArgs[len(gotArgs)-1] != "/videos/a b.mp4" {
		t.Errorf("path must follow --, got %v", gotArgs)
	}
	if string(raw) != sampleJSON {
		t.Error("raw output should be returned unchanged")
	}
}

func TestInspectEmptyPath(t *testing.T) {
	if _, _, err := Inspect(context.Background(), fakeRunner(sampleJSON, nil, nil), "ffprobe", " "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestInspectRunnerError(t *testing.T) {
	runErr := errors.New("exit status 1: Invalid data found when processing input")
	_, _, err := Inspect(context.Background(), fakeRunner("", runErr, nil), "ffprobe", "/x.mp4")
	if !errors.Is(err, runErr) {
		t.Errorf("expected wrapped runner error, got %v", err)
	}
}

func TestInspectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Inspect(ctx, fakeRunner("", errors.New("signal: killed"), nil), "ffprobe", "/x.mp4")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	var calls atomic.Int32
	a := &Analyzer{Run: fakeRunner(sampleJSON, nil, &calls)}
	if _, err := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "gone.mp4")); err == nil {
		t.Error("expected stat error")
	}
	if calls.Load() != 0 {
		t.Error("ffprobe must not run for a missing file")
	}
}

func TestAnalyzeReturnsReport(t *testing.T) {
	path := writeFile(t, "a.mp4", "data")
	a := &Analyzer{Run: fakeRunner(sampleJSON, nil, nil)}

	out, err := a.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	rep, ok := out.(Report)
	if !ok {
		t.Fatalf("expected Report, got %T", out)
	}
	if rep.VideoStreamCount() != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestAnalyzeCacheHitSkipsProbe(t *testing.T) {
	cache, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	cache.Purge()

	path := writeFile(t, "a.mp4", "data")
	var calls atomic.Int32
	a := &Analyzer{Run: fakeRunner(sampleJSON, nil, &calls), Cache: cache}

	if _, err := a.Inspect(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	rep, err := a.Inspect(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 ffprobe run, got %d", calls.Load())
	}
	if rep.AudioStreamCount() != 2 {
		t.Error("cached report should decode to the same result")
	}
}

func TestAnalyzeCacheMissOnChange(t *testing.T) {
	cache, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	cache.Purge()

	path := writeFile(t, "a.mp4", "data")
	var calls atomic.Int32
	a := &Analyzer{Run: fakeRunner(sampleJSON, nil, &calls), Cache: cache}
	a.Inspect(context.Background(), path)

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	a.Inspect(context.Background(), path)

	if err := os.WriteFile(path, []byte("longer data"), 0o644); err != nil {
		t.Fatal(err)
	}
	a.Inspect(context.Background(), path)

	if calls.Load() != 3 {
		t.Errorf("expected a fresh probe after each change, got %d runs", calls.Load())
	}
}

func TestAnalyzeFailureNotCached(t *testing.T) {
	cache, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	cache.Purge()

	path := writeFile(t, "a.mp4", "data")
	a := &Analyzer{Run: fakeRunner("", errors.New("boom"), nil), Cache: cache}
	if _, err := a.Inspect(context.Background(), path); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := cache.Count(); n != 0 {
		t.Errorf("failed probes must not be cached, got %d rows", n)
	}
}
