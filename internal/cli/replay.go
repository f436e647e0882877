package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/diagbus/internal/recording"
	"github.com/valter-silva-au/diagbus/pkg/models"
)

var (
	replayChannel string
	replaySession string
	replaySince   string
	replayUntil   string
	replayJSON    bool
	replayYAML    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Print the records of a recording in publish order",
	Long: `Print the records of a recording in the order they were appended.

Compressed recordings are detected automatically. Use --channel, --session,
--since and --until to narrow the output. --since and --until accept either
an RFC3339 timestamp or a relative duration such as 24h or 7d.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayJSON && replayYAML {
			return fmt.Errorf("--json and --yaml are mutually exclusive")
		}
		filter, err := buildFilter(replayChannel, replaySession, replaySince, replayUntil)
		if err != nil {
			return err
		}

		records, err := recording.Replay(args[0], filter)
		if err != nil {
			return fmt.Errorf("replaying %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		switch {
		case replayJSON:
			return writeJSONLines(out, records)
		case replayYAML:
			return writeYAML(out, records)
		default:
			writeText(out, records)
			return nil
		}
	},
}

// yamlRecord is a LoggedRecord with its payload decoded for display.
type yamlRecord struct {
	models.LoggedRecord `yaml:",inline"`
	Payload             any `yaml:"payload"`
}

func writeYAML(out io.Writer, records []models.LoggedRecord) error {
	docs := make([]yamlRecord, 0, len(records))
	for _, rec := range records {
		var payload any
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			payload = string(rec.Payload)
		}
		docs = append(docs, yamlRecord{LoggedRecord: rec, Payload: payload})
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("formatting records as YAML: %w", err)
	}
	return enc.Close()
}

func writeJSONLines(out io.Writer, records []models.LoggedRecord) error {
	enc := json.NewEncoder(out)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("formatting record as JSON: %w", err)
		}
	}
	return nil
}

func writeText(out io.Writer, records []models.LoggedRecord) {
	for _, rec := range records {
		fmt.Fprintf(out, "%s  #%-6d %-24s %s\n",
			rec.Time.Format(time.RFC3339Nano), rec.Sequence, rec.Channel, string(rec.Payload))
		for _, frame := range rec.Stack {
			fmt.Fprintf(out, "    at %s\n", frame)
		}
	}
}

func buildFilter(channel, session, since, until string) (recording.Filter, error) {
	filter := recording.Filter{Channel: channel, Session: session}
	if since != "" {
		t, err := parseTimeBound(since)
		if err != nil {
			return filter, fmt.Errorf("parsing --since: %w", err)
		}
		filter.Since = &t
	}
	if until != "" {
		t, err := parseTimeBound(until)
		if err != nil {
			return filter, fmt.Errorf("parsing --until: %w", err)
		}
		filter.Until = &t
	}
	return filter, nil
}

// parseTimeBound accepts an RFC3339 timestamp or a duration like "7d" or
// "24h" counted back from now.
func parseTimeBound(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	now := time.Now().UTC()
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("unsupported time format %q (use RFC3339 or e.g. 7d, 24h)", s)
}

func init() {
	replayCmd.Flags().StringVar(&replayChannel, "channel", "", "Only records of this channel")
	replayCmd.Flags().StringVar(&replaySession, "session", "", "Only records of this session")
	replayCmd.Flags().StringVar(&replaySince, "since", "", "Only records at or after this time")
	replayCmd.Flags().StringVar(&replayUntil, "until", "", "Only records at or before this time")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Output records as JSON lines")
	replayCmd.Flags().BoolVar(&replayYAML, "yaml", false, "Output records as YAML")
	rootCmd.AddCommand(replayCmd)
}
