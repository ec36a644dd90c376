// Package cmdutil provides shared utilities for fsbrokerctl commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/fsbroker/internal/cli/output"
	"github.com/marmos91/fsbroker/pkg/client"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Addr    string
	APIURL  string
	Output  string
	NoColor bool
	Timeout time.Duration
}

// Dial connects to the broker named by --addr.
func Dial(ctx context.Context) (*client.Client, error) {
	if Flags.Addr == "" {
		return nil, fmt.Errorf("no broker address. Use --addr host:port or FSBROKER_ADDR")
	}
	return client.Dial(ctx, Flags.Addr, client.Options{DialTimeout: Flags.Timeout})
}

// Context returns a context bounded by --timeout. Zero means no bound.
func Context() (context.Context, context.CancelFunc) {
	if Flags.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), Flags.Timeout)
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data as JSON or YAML, or as a table using renderer.
// For tables, emptyMsg is printed instead when isEmpty is set.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, renderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	if format == output.FormatTable {
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, renderer)
	}
	return output.NewPrinter(w, format, false).Print(data)
}

// Printer returns a printer honouring --output and --no-color.
func Printer(w io.Writer) (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format, !Flags.NoColor), nil
}
