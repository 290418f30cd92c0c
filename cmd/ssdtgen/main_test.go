package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinyrange/cpupm/internal/acpi"
	"gopkg.in/yaml.v3"
)

const sandyBridgeYAML = `
model: i5-2500K
tdp: 95
cores: 4
threads: 4
minBusRatio: 16
maxBusRatio: 34
turboRatios: [38, 38, 37, 37]
`

func writeDescriptor(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

func generateTable(t *testing.T, args ...string) (string, *acpi.Info) {
	t.Helper()
	dir := t.TempDir()
	desc := writeDescriptor(t, dir, "cpu.yaml", sandyBridgeYAML)
	out := filepath.Join(dir, "out")

	var stdout bytes.Buffer
	args = append([]string{"generate", "-descriptor", desc, "-out", out}, args...)
	if err := run(context.Background(), args, &stdout); err != nil {
		t.Fatalf("generate: %v", err)
	}

	path := filepath.Join(out, "ssdt_pr.aml")
	if got := strings.TrimSpace(stdout.String()); got != path {
		t.Fatalf("generate printed %q, want %q", got, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	info, err := acpi.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return path, info
}

func TestGenerateFromDescriptor(t *testing.T) {
	_, info := generateTable(t)

	if info.Length != 791 {
		t.Fatalf("length = %d, want 791", info.Length)
	}
	if !info.SMBusDevice {
		t.Fatalf("expected SMBus device")
	}
	if got := strings.Join(info.Processors, ","); got != "CPU0,CPU1,CPU2,CPU3" {
		t.Fatalf("processors = %s", got)
	}
	if len(info.PStates) != 16 || info.RedirectedCPUs != 3 {
		t.Fatalf("pstates = %d, redirected = %d", len(info.PStates), info.RedirectedCPUs)
	}
}

func TestGenerateFlagOverrides(t *testing.T) {
	_, info := generateTable(t, "-features", "pstates", "-label", "P00", "-max-pstates", "8")

	if info.SMBusDevice || len(info.Processors) != 0 {
		t.Fatalf("unexpected blocks: smbus=%v processors=%v", info.SMBusDevice, info.Processors)
	}
	if len(info.PStates) != 8 {
		t.Fatalf("pstates = %d, want 8", len(info.PStates))
	}
	if last := info.PStates[len(info.PStates)-1]; last.Ratio != 16<<8 {
		t.Fatalf("last state ratio = 0x%04x, want the minimum ratio", last.Ratio)
	}
}

func TestGenerateConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeDescriptor(t, dir, "config.yaml", "features: [processors]\nprocessorLabel: P00\n")

	_, info := generateTable(t, "-config", cfg)
	if got := strings.Join(info.Processors, ","); got != "P000,P001,P002,P003" {
		t.Fatalf("processors = %s", got)
	}
	if len(info.PStates) != 0 {
		t.Fatalf("pstates emitted with P-states disabled")
	}
}

func TestGenerateRejectsBadLabel(t *testing.T) {
	dir := t.TempDir()
	desc := writeDescriptor(t, dir, "cpu.yaml", sandyBridgeYAML)

	err := run(context.Background(), []string{"generate", "-descriptor", desc, "-out", dir, "-label", "cpu"}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for lowercase label")
	}
}

func TestDumpYAML(t *testing.T) {
	path, _ := generateTable(t)

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"dump", "-yaml", path}, &stdout); err != nil {
		t.Fatalf("dump: %v", err)
	}

	var report dumpReport
	if err := yaml.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("parse dump output: %v", err)
	}
	if report.Length != 791 || report.OEMID != "APPLE" || report.TableID != "CpuPm" {
		t.Fatalf("unexpected header: %+v", report)
	}
	if len(report.PStates) != 16 {
		t.Fatalf("pstates = %d, want 16", len(report.PStates))
	}
	if first := report.PStates[0]; first.Frequency != 3800 || first.Ratio != 38 {
		t.Fatalf("first state = %+v", first)
	}
	if last := report.PStates[15]; last.Frequency != 1600 || last.Ratio != 16 {
		t.Fatalf("last state = %+v", last)
	}
}

func TestDumpText(t *testing.T) {
	path, _ := generateTable(t)

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"dump", "-color", "never", path}, &stdout); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := stdout.String()
	if strings.Contains(out, "\x1b") {
		t.Fatalf("escape sequences with -color never:\n%s", out)
	}
	for _, want := range []string{"APPLE/CpuPm", "CPU0 CPU1 CPU2 CPU3", "16 states", " 3800  95000     38", " 1600  36029     16"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump output missing %q:\n%s", want, out)
		}
	}
}

func TestDumpRejectsCorruptTable(t *testing.T) {
	path, _ := generateTable(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := run(context.Background(), []string{"dump", path}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected checksum error")
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	good1 := writeDescriptor(t, dir, "a.yaml", sandyBridgeYAML)
	good2 := writeDescriptor(t, dir, "b.yaml", strings.Replace(sandyBridgeYAML, "threads: 4", "threads: 8", 1))
	bad := writeDescriptor(t, dir, "c.yaml", "cores: 0\n")
	out := filepath.Join(dir, "out")

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"batch", "-quiet", "-j", "2", "-out", out, good1, good2, bad}, &stdout)
	if err == nil || !strings.Contains(err.Error(), "1 of 3") {
		t.Fatalf("batch error = %v, want one failure", err)
	}

	for _, name := range []string{"a", "b"} {
		data, err := os.ReadFile(filepath.Join(out, name, "ssdt_pr.aml"))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if err := acpi.Verify(data); err != nil {
			t.Fatalf("verify %s: %v", name, err)
		}
	}
	if lines := strings.Count(stdout.String(), "\n"); lines != 2 {
		t.Fatalf("printed %d paths, want 2", lines)
	}
}

func TestBatchRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "other"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	a := writeDescriptor(t, dir, "cpu.yaml", sandyBridgeYAML)
	b := writeDescriptor(t, dir, filepath.Join("other", "cpu.yml"), sandyBridgeYAML)
	out := filepath.Join(dir, "out")

	err := run(context.Background(), []string{"batch", "-quiet", "-out", out, a, b}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), `"cpu"`) {
		t.Fatalf("batch error = %v, want duplicate name", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output written despite duplicate names: %v", err)
	}

	names, err := batchOutputNames([]string{"a/x.yaml", "b/y.yaml"})
	if err != nil || names[0] != "x" || names[1] != "y" {
		t.Fatalf("batchOutputNames = %v, %v", names, err)
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error")
	}
	if err := run(context.Background(), nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without a command")
	}
}
