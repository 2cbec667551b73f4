// Command audit runs one forensic audit from the command line.
//
// Telemetry is read from the file argument, or from stdin when the argument
// is "-". With no argument the built-in sample capture is audited. The
// report is printed as JSON and any images are written to the output
// directory. Provider configuration uses the same environment variables as
// cmd/serve.
//
// With --simulate the telemetry comes from a simulated flight under the
// attacks named by --hack. When the audit finds an anomaly, the report's
// simulation reset is applied to the simulated drone and the recovery is
// logged.
//
// Usage:
//
//	go run ./cmd/audit flight-0412.json
//	cat flight-0412.json | go run ./cmd/audit - -o evidence/
//	go run ./cmd/audit --simulate --hack gain_attack,volt_drop --no-evidence
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/parmira/forensic/sim"
)

var (
	outputDir  string
	noEvidence bool
	simulate   bool
	hackNames  []string
	simSeed    uint64
)

var rootCmd = &cobra.Command{
	Use:   "audit [telemetry-file|-]",
	Short: "Run a Parmira forensic audit over drone telemetry",
	Long: `Sends blackbox telemetry for forensic analysis and prints the resulting
report as JSON. The diagnostic plot and the evidence reconstruction, when
produced, are written to the output directory.

Without a file argument the built-in four-record sample capture is used,
unless --simulate asks for a simulated flight.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runAudit,
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "evidence", "directory for plot and reconstruction images")
	rootCmd.Flags().BoolVar(&noEvidence, "no-evidence", false, "skip rendering the reconstruction image")
	rootCmd.Flags().BoolVar(&simulate, "simulate", false, "audit a simulated flight instead of a capture")
	rootCmd.Flags().StringSliceVar(&hackNames, "hack", []string{string(sim.HackGainInversion)}, "attacks injected into the simulated flight")
	rootCmd.Flags().Uint64Var(&simSeed, "seed", 1, "seed for simulated attack noise")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
