package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/fsbroker/cmd/fsbrokerctl/cmdutil"
	"github.com/marmos91/fsbroker/internal/cli/health"
	"github.com/marmos91/fsbroker/internal/cli/output"
	"github.com/marmos91/fsbroker/internal/cli/timeutil"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show broker status",
	Long: `Ping the broker over its wire protocol and, when the operator API is
reachable, report backend readiness and uptime.

Examples:
  fsbrokerctl status
  fsbrokerctl status --addr broker:9400 --api http://broker:9401
  fsbrokerctl status -o json`,
	RunE: runStatus,
}

// BrokerStatus is the status report.
type BrokerStatus struct {
	Broker            string `json:"broker" yaml:"broker"`
	Reachable         bool   `json:"reachable" yaml:"reachable"`
	RoundTrip         string `json:"round_trip,omitempty" yaml:"round_trip,omitempty"`
	API               string `json:"api,omitempty" yaml:"api,omitempty"`
	Status            string `json:"status,omitempty" yaml:"status,omitempty"`
	Backend           string `json:"backend,omitempty" yaml:"backend,omitempty"`
	ActiveConnections int32  `json:"active_connections,omitempty" yaml:"active_connections,omitempty"`
	StartedAt         string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime            string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error             string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdutil.Context()
	defer cancel()

	status := BrokerStatus{Broker: cmdutil.Flags.Addr}
	pingBroker(ctx, &status)
	if cmdutil.Flags.APIURL != "" {
		queryAPI(ctx, &status)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(status)
	}
	return printStatusTable(cmd.OutOrStdout(), status)
}

func pingBroker(ctx context.Context, status *BrokerStatus) {
	c, err := cmdutil.Dial(ctx)
	if err != nil {
		status.Error = err.Error()
		return
	}
	defer func() { _ = c.Close() }()

	start := time.Now()
	if err := c.Status(ctx); err != nil {
		status.Error = err.Error()
		return
	}
	status.Reachable = true
	status.RoundTrip = time.Since(start).Round(time.Microsecond).String()
}

func queryAPI(ctx context.Context, status *BrokerStatus) {
	status.API = cmdutil.Flags.APIURL
	client := &http.Client{Timeout: 5 * time.Second}

	live, _, err := health.Get[health.Liveness](ctx, client, status.API, "/health")
	if err != nil {
		status.Status = "unreachable"
		return
	}
	status.StartedAt = live.Data.StartedAt
	status.Uptime = live.Data.Uptime

	ready, _, err := health.Get[health.Readiness](ctx, client, status.API, "/health/ready")
	if err != nil {
		status.Status = "unknown"
		return
	}
	status.Status = ready.Status
	status.Backend = ready.Data.Backend
	status.ActiveConnections = ready.Data.ActiveConnections
	if ready.Error != "" && status.Error == "" {
		status.Error = ready.Error
	}
}

func printStatusTable(w io.Writer, s BrokerStatus) error {
	reach := "unreachable"
	if s.Reachable {
		reach = "ok (" + s.RoundTrip + ")"
	}
	pairs := [][2]string{
		{"Broker", s.Broker},
		{"Protocol", reach},
	}
	if s.API != "" {
		pairs = append(pairs, [2]string{"API", s.API}, [2]string{"Status", s.Status})
	}
	if s.Backend != "" {
		pairs = append(pairs,
			[2]string{"Backend", s.Backend},
			[2]string{"Connections", fmt.Sprint(s.ActiveConnections)})
	}
	if s.StartedAt != "" {
		pairs = append(pairs, [2]string{"Started", timeutil.FormatTime(s.StartedAt)})
	}
	if s.Uptime != "" {
		pairs = append(pairs, [2]string{"Uptime", timeutil.FormatUptime(s.Uptime)})
	}
	if s.Error != "" {
		pairs = append(pairs, [2]string{"Error", s.Error})
	}
	return output.KeyValue(w, pairs)
}
