package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	app "github.com/valter-silva-au/diagbus/internal"
	"github.com/valter-silva-au/diagbus/internal/diagnosis"
)

// ProbeStatus is the payload published by diag probe.
type ProbeStatus struct {
	Message string `json:"message"`
	Host    string `json:"host"`
	PID     int    `json:"pid"`
}

// ProbeChannel is the channel diag probe publishes on.
const ProbeChannel diagnosis.ChannelID[ProbeStatus] = "diag.probe"

var (
	probeConfig  string
	probeMessage string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Publish a probe status to check the recording setup",
	Long: `Load the diagnosis configuration, publish one status on the diag.probe
channel and report where it was recorded.

The configuration file is taken from --config, the DIAG_CONFIG environment
variable, or the nearest diag.yaml in the current directory tree. DIAG_*
environment variables override file values, e.g. DIAG_RECORDING_ENABLED=true.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := probeConfig
		if path == "" {
			path = app.ResolveConfigPath()
		}

		a, err := app.NewApp(path, Logger)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		out := cmd.OutOrStdout()
		if !a.Config.Enabled {
			fmt.Fprintln(out, "Recording is disabled (set recording.enabled: true). Nothing published.")
			return nil
		}

		delivered := 0
		diagnosis.RegisterMonitor[ProbeStatus](a.Diagnosis, ProbeChannel, diagnosis.MonitorFunc[ProbeStatus](func(s diagnosis.Status[ProbeStatus]) {
			delivered++
			fmt.Fprintf(out, "Delivered #%d on %s at %s: %s\n", s.Sequence, s.Channel, s.Time.Format(time.RFC3339), s.Payload.Message)
		}))

		host, _ := os.Hostname()
		diagnosis.Channel(a.Diagnosis, ProbeChannel).Publish(ProbeStatus{
			Message: probeMessage,
			Host:    host,
			PID:     os.Getpid(),
		})

		if delivered == 0 {
			return fmt.Errorf("probe was not delivered; recording %s could not be opened (see log)", a.Config.RecordingFile)
		}
		if err := a.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Recorded to %s (session %s, compressed=%v)\n", a.Config.RecordingFile, a.Diagnosis.Session(), a.Config.Compress)
		return nil
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeConfig, "config", "", "Path to the diagnosis configuration file")
	probeCmd.Flags().StringVar(&probeMessage, "message", "probe", "Message carried by the probe status")
	rootCmd.AddCommand(probeCmd)
}
