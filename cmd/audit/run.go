package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/client"
	"github.com/parmira/forensic/internal/config"
	"github.com/parmira/forensic/session"
	"github.com/parmira/forensic/sim"
)

func runAudit(cmd *cobra.Command, args []string) error {
	var (
		telemetry, source string
		drone             *sim.Drone
		err               error
	)
	if simulate {
		if len(args) > 0 {
			return fmt.Errorf("--simulate does not take a telemetry file")
		}
		telemetry, drone, err = simulateFlight(hackNames, simSeed)
		source = "simulation"
	} else {
		telemetry, source, err = readTelemetry(cmd.InOrStdin(), args)
	}
	if err != nil {
		return err
	}

	cfg, err := loadConfig(noEvidence)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	ctx := cmd.Context()
	gw, err := client.New(ctx, cfg.Client(nil))
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	defer func() {
		if cerr := gw.Close(); cerr != nil {
			logger.Warn("failed to close providers", "error", cerr)
		}
	}()

	logger.Info("auditing telemetry", "source", source)
	snap, err := session.New(gw, session.WithLogger(logger)).Run(ctx, telemetry)
	if report := snap.Report(); report != nil {
		if perr := printReport(cmd.OutOrStdout(), report); perr != nil {
			return perr
		}
		if drone != nil && report.Anomalous() {
			before, after := remediate(drone, report.SimulationReset, remediationFrames)
			logger.Info("ground truth restored",
				"spawn", report.SimulationReset.SpawnAt,
				"distance_before", before,
				"distance_after", after,
			)
		}
	}
	written, werr := writeEvidence(outputDir, snap)
	for _, path := range written {
		logger.Info("evidence written", "path", path)
	}
	if err != nil {
		return err
	}
	return werr
}

// loadConfig reads the environment, dropping the image backend when
// evidence rendering is disabled so its credentials are not required.
func loadConfig(skipEvidence bool) (*config.Config, error) {
	var opts []config.Option
	if skipEvidence {
		opts = append(opts, config.WithImageProvider(string(client.ProviderNone)))
	}
	return config.Load(opts...)
}

// Simulated flights fly nominally for two seconds, then under attack for
// three, sampling once per second at 60 frames per second.
const (
	nominalFrames     = 120
	attackFrames      = 180
	sampleEvery       = 60
	remediationFrames = 600
)

// simulateFlight records a simulated flight under the named attacks.
func simulateFlight(names []string, seed uint64) (string, *sim.Drone, error) {
	hacks, err := sim.ParseHacks(names)
	if err != nil {
		return "", nil, err
	}
	d := sim.New(sim.WithSeed(seed))
	text, err := sim.Encode(sim.Flight(d, nominalFrames, attackFrames, sampleEvery, hacks...))
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode simulated telemetry: %w", err)
	}
	return text, d, nil
}

// remediate applies reset to d, flies it for frames frames and returns the
// distance to target right after the reset and at the end.
func remediate(d *sim.Drone, reset forensic.SimulationReset, frames int) (before, after float64) {
	d.Apply(reset)
	before = d.DistanceToTarget()
	d.Capture(frames, sampleEvery)
	return before, d.DistanceToTarget()
}

// readTelemetry returns the telemetry text and a label for its source.
func readTelemetry(stdin io.Reader, args []string) (string, string, error) {
	if len(args) == 0 {
		return forensic.SampleTelemetry, "sample", nil
	}
	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read telemetry: %w", err)
	}
	return string(data), args[0], nil
}

func printReport(w io.Writer, report *forensic.ForensicReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeEvidence saves the plot and reconstruction held by snap into dir and
// returns the paths written.
func writeEvidence(dir string, snap session.Snapshot) ([]string, error) {
	images := []struct {
		name string
		img  *forensic.Image
	}{
		{"plot", snap.Plot()},
		{"reconstruction", snap.Reconstruction()},
	}

	var written []string
	for _, entry := range images {
		if entry.img == nil || len(entry.img.Data) == 0 {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(dir, entry.name+entry.img.Extension())
		if err := os.WriteFile(path, entry.img.Data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", entry.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
