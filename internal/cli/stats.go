package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/diagbus/internal/analysis"
	"github.com/valter-silva-au/diagbus/internal/recording"
)

var (
	statsJSON    bool
	statsSession string
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

var statsCmd = &cobra.Command{
	Use:   "stats <recording>",
	Short: "Summarize a recording per channel",
	Long: `Summarize a recording: number of records, the sessions that wrote them,
and per channel the record count with the first and last timestamp.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := analysis.SummarizeFile(args[0], recording.Filter{Session: statsSession})
		if err != nil {
			return fmt.Errorf("summarizing %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if statsJSON {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting summary as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		printSummary(out, args[0], summary)
		return nil
	},
}

func printSummary(out io.Writer, path string, s *analysis.Summary) {
	fmt.Fprintln(out, headerStyle.Render("Recording "+path))
	fmt.Fprintf(out, "  %-18s %d\n", "Records:", s.RecordCount)
	fmt.Fprintf(out, "  %-18s %d\n", "Sessions:", len(s.Sessions))
	if s.OldestRecord != nil {
		fmt.Fprintf(out, "  %-18s %s\n", "Oldest record:", s.OldestRecord.Format(time.RFC3339))
	}
	if s.NewestRecord != nil {
		fmt.Fprintf(out, "  %-18s %s\n", "Newest record:", s.NewestRecord.Format(time.RFC3339))
	}

	if len(s.Channels) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("  %-28s %8s  %-20s  %-20s", "CHANNEL", "RECORDS", "FIRST", "LAST")))
	for _, cs := range s.Channels {
		fmt.Fprintf(out, "  %-28s %8d  %-20s  %-20s\n",
			cs.Channel, cs.Count, cs.First.Format(time.RFC3339), cs.Last.Format(time.RFC3339))
	}
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output summary as JSON")
	statsCmd.Flags().StringVar(&statsSession, "session", "", "Only records of this session")
	rootCmd.AddCommand(statsCmd)
}
