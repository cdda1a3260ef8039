package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

const stubReport = `{"streams":[{"index":0,"codec_name":"h264","codec_type":"video","width":1280,"height":720}],"format":{"duration":"12.0","size":"4096"}}`

type fixture struct {
	home  string
	media string
	extra string
}

// buildMX compiles ./cmd/mx into a temp dir and returns the binary path.
func buildMX(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not on PATH")
	}
	bin := filepath.Join(t.TempDir(), "mx")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", bin, "./cmd/mx")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return bin
}

// newFixture lays out a HOME with ~/.mx/config.toml pointing at a stub
// ffprobe, a media dir with two clips and one extra clip outside it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		home:  filepath.Join(dir, "home"),
		media: filepath.Join(dir, "media"),
		extra: filepath.Join(dir, "loose", "clip.mov"),
	}

	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\necho '" + stubReport + "'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cfgDir := filepath.Join(f.home, ".mx")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := "[probe]\nffprobe = \"" + stub + "\"\nper_second = 0\ncache = false\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{
		filepath.Join(f.media, "one.mp4"),
		filepath.Join(f.media, "two.mkv"),
		f.extra,
	} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

// bracketedPaste wraps s the way a terminal delivers a drag-and-drop.
func bracketedPaste(s string) string {
	return "\x1b[200~" + s + "\x1b[201~"
}
