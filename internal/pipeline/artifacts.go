// Package pipeline writes report bundles to an output directory.
// Every bundle carries a manifest with the seed, a replay command and a
// SHA256 of each written file, so a run can be reproduced and checked later.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"trade-montecarlo-lab/internal/reporting"
)

// GeneratorVersion is recorded in every manifest.
const GeneratorVersion = "1.0.0"

// Bundle file names.
const (
	ManifestFile       = "manifest.json"
	SimulationReportMD = "REPORT.md"
	SummaryCSV         = "summary.csv"
	PathsCSV           = "paths.csv"
	SimulationJSON     = "report.json"
	SweepReportMD      = "SWEEP.md"
	SweepCSV           = "sweep.csv"
	SweepJSON          = "sweep.json"
)

// Bundle kinds.
const (
	KindSimulation = "simulation"
	KindSweep      = "sweep"
)

// Manifest describes a written bundle.
type Manifest struct {
	Kind             string      `json:"kind"`
	ID               string      `json:"id"`
	Seed             uint64      `json:"seed"`
	GeneratedAt      time.Time   `json:"generated_at"`
	GeneratorVersion string      `json:"generator_version"`
	ReplayCommand    string      `json:"replay_command"`
	Files            []FileEntry `json:"files"`
}

// FileEntry is one written file and its content hash.
type FileEntry struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Bytes  int    `json:"bytes"`
}

// Writer writes bundles under outputDir.
type Writer struct {
	outputDir string
	clock     func() time.Time
}

// NewWriter creates a new bundle writer.
func NewWriter(outputDir string) *Writer {
	return &Writer{
		outputDir: outputDir,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (w *Writer) WithClock(clock func() time.Time) *Writer {
	w.clock = clock
	return w
}

// WriteSimulation writes the Markdown report, summary and paths CSVs, JSON report and manifest.
func (w *Writer) WriteSimulation(r *reporting.Report) (*Manifest, error) {
	jsonReport, err := reporting.RenderJSON(r)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Kind:          KindSimulation,
		ID:            r.RunID,
		Seed:          r.Seed,
		ReplayCommand: simulationReplayCommand(r),
	}
	files := []namedContent{
		{SimulationReportMD, reporting.RenderMarkdown(r)},
		{SummaryCSV, reporting.RenderSummaryCSV(r)},
		{PathsCSV, reporting.RenderPathsCSV(r)},
		{SimulationJSON, jsonReport},
	}
	return m, w.write(m, files)
}

// WriteSweep writes the Markdown grid, grid CSV, JSON report and manifest.
func (w *Writer) WriteSweep(r *reporting.SweepReport) (*Manifest, error) {
	jsonReport, err := reporting.RenderJSON(r)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Kind:          KindSweep,
		ID:            r.SweepID,
		Seed:          r.Seed,
		ReplayCommand: sweepReplayCommand(r),
	}
	files := []namedContent{
		{SweepReportMD, reporting.RenderSweepMarkdown(r)},
		{SweepCSV, reporting.RenderSweepCSV(r)},
		{SweepJSON, jsonReport},
	}
	return m, w.write(m, files)
}

type namedContent struct {
	name    string
	content string
}

func (w *Writer) write(m *Manifest, files []namedContent) error {
	// Ensure output directory exists
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return errors.Wrapf(err, "create %s", w.outputDir)
	}

	m.GeneratedAt = w.clock()
	m.GeneratorVersion = GeneratorVersion

	for _, f := range files {
		path := filepath.Join(w.outputDir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
		m.Files = append(m.Files, FileEntry{
			Name:   f.name,
			SHA256: hashContent(f.content),
			Bytes:  len(f.content),
		})
	}

	manifest, err := reporting.RenderJSON(m)
	if err != nil {
		return err
	}
	path := filepath.Join(w.outputDir, ManifestFile)
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// simulationReplayCommand returns the command line that reproduces the run.
func simulationReplayCommand(r *reporting.Report) string {
	p := r.Params
	return fmt.Sprintf("montecarlo --seed %d simulate --balance %s %s --rr %s %s --trades %d --sims %d --liquidation %s",
		r.Seed,
		formatFloat(p.StartingBalance),
		fractionFlag("winrate", "win-probability", p.WinProbability),
		formatFloat(p.RewardRiskRatio),
		fractionFlag("risk", "risk-fraction", p.RiskFraction),
		p.TradeCount,
		p.SimulationCount,
		formatFloat(p.LiquidationPct),
	)
}

// sweepReplayCommand returns the command line that reproduces the sweep.
func sweepReplayCommand(r *reporting.SweepReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("montecarlo --seed %d sweep --balance %s --rr %s",
		r.Seed, formatFloat(r.StartingBalance), formatFloat(r.RewardRiskRatio)))
	for _, risk := range r.Grid.RiskPcts {
		sb.WriteString(" --risks " + formatFloat(risk))
	}
	for _, wr := range r.Grid.WinratePcts {
		sb.WriteString(" --winrates " + formatFloat(wr))
	}
	sb.WriteString(fmt.Sprintf(" --trials %d --trades %d", r.Grid.TrialsPerCell, r.Grid.TradesPerCell))
	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// fractionFlag renders f as the shortest percent flag that the command line
// divides back to exactly f, so 0.55 becomes "--winrate 55". Fractions no
// percent reproduces fall back to the fraction-valued flag.
func fractionFlag(pctName, fractionName string, f float64) string {
	for prec := 1; prec <= 17; prec++ {
		s := strconv.FormatFloat(f*100, 'g', prec, 64)
		if v, err := strconv.ParseFloat(s, 64); err == nil && v/100 == f {
			return "--" + pctName + " " + s
		}
	}
	return "--" + fractionName + " " + formatFloat(f)
}
