package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/tinyrange/cpupm/internal/acpi"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type dumpReport struct {
	Length         int          `yaml:"length"`
	Checksum       string       `yaml:"checksum"`
	OEMID          string       `yaml:"oemID"`
	TableID        string       `yaml:"tableID"`
	SMBusDevice    bool         `yaml:"smbusDevice"`
	Processors     []string     `yaml:"processors,omitempty"`
	Cores          int          `yaml:"cores,omitempty"`
	RedirectedCPUs int          `yaml:"redirectedCPUs,omitempty"`
	PStates        []dumpPState `yaml:"pstates,omitempty"`
}

type dumpPState struct {
	Frequency uint16 `yaml:"mhz"`
	Power     uint32 `yaml:"mw"`
	Ratio     uint8  `yaml:"ratio"`
}

func newDumpReport(info *acpi.Info) dumpReport {
	r := dumpReport{
		Length:         info.Length,
		Checksum:       fmt.Sprintf("0x%02x", info.Checksum),
		OEMID:          strings.TrimSpace(info.OEMID),
		TableID:        info.TableID,
		SMBusDevice:    info.SMBusDevice,
		Processors:     info.Processors,
		Cores:          info.Cores,
		RedirectedCPUs: info.RedirectedCPUs,
	}
	for _, p := range info.PStates {
		r.PStates = append(r.PStates, dumpPState{Frequency: p.Frequency, Power: p.Power, Ratio: uint8(p.Ratio >> 8)})
	}
	return r
}

func runDump(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	asYAML := fs.Bool("yaml", false, "Print the decoded table as YAML")
	color := fs.String("color", "auto", "Highlight headings: auto, always or never")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ssdtgen dump [flags] <table.aml>")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}
	info, err := acpi.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", fs.Arg(0), err)
	}
	report := newDumpReport(info)

	if *asYAML {
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(&report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	}

	var styled bool
	switch *color {
	case "always":
		styled = true
	case "never":
		styled = false
	case "auto":
		styled = isTerminal(stdout)
	default:
		return fmt.Errorf("invalid -color value %q", *color)
	}

	writeReport(stdout, report, styled)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeReport(w io.Writer, r dumpReport, styled bool) {
	heading := func(s string) string {
		if !styled {
			return s
		}
		return ansi.Style{}.Bold().Styled(s)
	}

	fmt.Fprintf(w, "%s %s/%s, %d bytes, checksum %s\n", heading("SSDT"), r.OEMID, r.TableID, r.Length, r.Checksum)
	if r.SMBusDevice {
		fmt.Fprintf(w, "%s \\_SB.PCI0.SBUS.BUS0.DVL0\n", heading("SMBus"))
	}
	if len(r.Processors) > 0 {
		fmt.Fprintf(w, "%s %s\n", heading("Processors"), strings.Join(r.Processors, " "))
	}
	if len(r.PStates) == 0 {
		return
	}

	fmt.Fprintf(w, "%s %d cores, %d states, %d redirected CPUs\n",
		heading("P-states"), r.Cores, len(r.PStates), r.RedirectedCPUs)

	rows := [][]string{{"#", "MHz", "mW", "Ratio"}}
	for i, p := range r.PStates {
		rows = append(rows, []string{
			fmt.Sprint(i),
			fmt.Sprint(p.Frequency),
			fmt.Sprint(p.Power),
			fmt.Sprint(p.Ratio),
		})
	}
	writeTable(w, rows, heading)
}

// writeTable right-aligns each column to its widest cell. The first row is
// the header.
func writeTable(w io.Writer, rows [][]string, heading func(string) string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], ansi.StringWidth(cell))
		}
	}

	for n, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(strings.Repeat(" ", widths[i]-ansi.StringWidth(cell)))
			sb.WriteString(cell)
		}
		line := sb.String()
		if n == 0 {
			line = heading(line)
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
}
