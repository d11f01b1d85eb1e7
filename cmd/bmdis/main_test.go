package main

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/accelkit/bmdis/internal/logger"
	"github.com/accelkit/bmdis/pkg/bmodel"
)

// resetFlags restores the flag globals between tests; commands in this
// package share them, so these tests do not run in parallel.
func resetFlags() {
	formatFlag = "mlir"
	contextLines = 3
	logLevel = "error"
	logFormat = "json"
}

func testLogger() logger.Logger {
	return logger.JSON(io.Discard, slog.LevelError)
}

// tiuEnd builds a BM1684X sys.end command with the given id.
func tiuEnd(cmdID uint16) []byte {
	cmd := make([]byte, 16)
	cmd[0] = 15
	binary.LittleEndian.PutUint16(cmd[1:3], cmdID)
	return cmd
}

// tiuAdd builds a BM1684X arith.add command; length is the only varying
// payload these tests need.
func tiuAdd(length uint32) []byte {
	cmd := make([]byte, 16)
	cmd[0] = 2
	binary.LittleEndian.PutUint32(cmd[12:16], length)
	return cmd
}

func writeModel(t *testing.T, path string, tiuBufs ...[]byte) {
	t.Helper()

	subnets := make([]bmodel.SubNet, len(tiuBufs))
	for i, buf := range tiuBufs {
		subnets[i] = bmodel.SubNet{
			ID:        uint32(i),
			CmdGroups: []bmodel.CmdGroup{{TIU: buf}},
		}
	}
	nets := []bmodel.Net{{Parameters: []bmodel.Parameter{{SubNets: subnets}}}}
	if err := bmodel.WriteFile(path, "BM1684X", nets); err != nil {
		t.Fatalf("write model: %v", err)
	}
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	os.Stdout = old
	_ = w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	_ = r.Close()
	return string(data), fnErr
}

func TestCompareIdentical(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bmodel")
	b := filepath.Join(dir, "b.bmodel")
	writeModel(t, a, append(tiuAdd(4), tiuEnd(1)...))
	writeModel(t, b, append(tiuAdd(4), tiuEnd(1)...))

	out, err := captureStdout(t, func() error {
		return compare(testLogger(), a, b)
	})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(out, "are the same!") {
		t.Fatalf("missing identity message: %q", out)
	}
}

func TestCompareDifferent(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bmodel")
	b := filepath.Join(dir, "b.bmodel")
	writeModel(t, a, append(tiuAdd(4), tiuEnd(1)...))
	writeModel(t, b, append(tiuAdd(8), tiuEnd(1)...))

	out, err := captureStdout(t, func() error {
		return compare(testLogger(), a, b)
	})
	if !errors.Is(err, errDiffer) {
		t.Fatalf("got %v want %v", err, errDiffer)
	}
	if !strings.Contains(out, "func.func @graph000() {") {
		t.Fatalf("missing function wrapper: %q", out)
	}
	if !strings.Contains(out, "--- "+a) || !strings.Contains(out, "+++ "+b) {
		t.Fatalf("missing file headers: %q", out)
	}
	if !strings.Contains(out, "-   ") || !strings.Contains(out, "+   ") {
		t.Fatalf("missing change lines: %q", out)
	}
	if strings.Contains(out, "are the same!") {
		t.Fatalf("identity message on differing containers: %q", out)
	}
}

func TestCompareSubgraphCountMismatch(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bmodel")
	b := filepath.Join(dir, "b.bmodel")
	writeModel(t, a, tiuEnd(1))
	writeModel(t, b, tiuEnd(1), tiuEnd(2))

	_, err := captureStdout(t, func() error {
		return compare(testLogger(), a, b)
	})
	if err == nil || !strings.Contains(err.Error(), "subgraph count mismatch") {
		t.Fatalf("got %v, want subgraph count mismatch", err)
	}
}

func TestDecodeOneModuleForm(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "m.bmodel")
	writeModel(t, path, append(tiuAdd(4), tiuEnd(1)...))

	out, err := captureStdout(t, func() error {
		return decodeOne(testLogger(), path)
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, `module attributes {chip = "BM1684X"} {`) {
		t.Fatalf("missing module header: %q", out)
	}
	if !strings.Contains(out, `"tiu.arith.add"`) {
		t.Fatalf("missing instruction: %q", out)
	}
}

func TestDecodeOneRegForm(t *testing.T) {
	resetFlags()
	formatFlag = "reg"
	path := filepath.Join(t.TempDir(), "m.bmodel")
	writeModel(t, path, tiuEnd(7))

	out, err := captureStdout(t, func() error {
		return decodeOne(testLogger(), path)
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, `"tiu"`) || !strings.Contains(out, `"tsk_typ":15`) {
		t.Fatalf("missing register dump: %q", out)
	}
	if !strings.Contains(out, `"cmd_id":7`) {
		t.Fatalf("missing command id: %q", out)
	}
}

func TestDecodeOneBinForm(t *testing.T) {
	resetFlags()
	formatFlag = "bin"
	path := filepath.Join(t.TempDir(), "m.bmodel")
	writeModel(t, path, tiuEnd(1))

	if _, err := captureStdout(t, func() error {
		return decodeOne(testLogger(), path)
	}); err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, err := os.ReadFile(path + ".0.tiu.bin")
	if err != nil {
		t.Fatalf("read exported buffer: %v", err)
	}
	if len(got) != 16 || got[0] != 15 {
		t.Fatalf("unexpected exported buffer: %v", got)
	}
}

func TestDecodeOneBitsRejected(t *testing.T) {
	resetFlags()
	formatFlag = "bits"

	err := decodeOne(testLogger(), "whatever.bmodel")
	if err == nil || !strings.Contains(err.Error(), "bits mode is not implemented") {
		t.Fatalf("got %v, want bits rejection", err)
	}
}

func TestRunArgValidation(t *testing.T) {
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "no bmodel",
			args: []string{"bmdis"},
			want: "no bmodel given",
		},
		{
			name: "too many bmodels",
			args: []string{"bmdis", "a", "b", "c"},
			want: "too many bmodels: got 3, at most 2",
		},
		{
			name: "unknown format",
			args: []string{"bmdis", "--format", "yaml", "a"},
			want: `unknown format "yaml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			err := newApp().Run(context.Background(), tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRunEndToEndDiffExit(t *testing.T) {
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	a := filepath.Join(dir, "a.bmodel")
	b := filepath.Join(dir, "b.bmodel")
	writeModel(t, a, tiuAdd(4))
	writeModel(t, b, tiuAdd(8))

	_, err := captureStdout(t, func() error {
		return newApp().Run(context.Background(),
			[]string{"bmdis", "--log-level", "error", "--log-format", "json", a, b})
	})
	if !errors.Is(err, errDiffer) {
		t.Fatalf("got %v want %v", err, errDiffer)
	}
}

func TestConfigFileDefaults(t *testing.T) {
	resetFlags()

	cfgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	cfgDir := filepath.Join(cfgHome, "bmdis")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	cfgData := "format: bin\ncontext_lines: 5\nlog_level: error\nlog_format: json\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfgData), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := loadConfig()
	if cfg.Format != "bin" || cfg.LogLevel != "error" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ContextLines == nil || *cfg.ContextLines != 5 {
		t.Fatalf("context_lines not parsed: %+v", cfg.ContextLines)
	}

	// The config file default applies when the flag is absent: the run
	// below exports binaries instead of printing module text.
	path := filepath.Join(t.TempDir(), "m.bmodel")
	writeModel(t, path, tiuEnd(1))

	if _, err := captureStdout(t, func() error {
		return newApp().Run(context.Background(), []string{"bmdis", path})
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(path + ".0.tiu.bin"); err != nil {
		t.Fatalf("expected exported buffer: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := loadConfig()
	if cfg != (Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}
