package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/fsbroker/cmd/fsbrokerctl/cmdutil"
	"github.com/marmos91/fsbroker/internal/bytesize"
	"github.com/marmos91/fsbroker/internal/cli/output"
)

var (
	chunkSize string
	overwrite bool
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a remote file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunk, err := parseChunk()
		if err != nil {
			return err
		}

		ctx, cancel := cmdutil.Context()
		defer cancel()

		c, err := cmdutil.Dial(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		_, err = c.ReadFile(ctx, args[0], cmd.OutOrStdout(), chunk)
		return err
	},
}

var putCmd = &cobra.Command{
	Use:   "put <local|-> <path>",
	Short: "Upload a local file (or stdin) to the broker",
	Long: `Upload a local file to path on the broker. Use - to read stdin.

Examples:
  fsbrokerctl put ./report.csv /reports/2026/report.csv
  tar c dir | fsbrokerctl put - /backups/dir.tar --overwrite`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunk, err := parseChunk()
		if err != nil {
			return err
		}

		var src io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			src = f
		}

		ctx, cancel := cmdutil.Context()
		defer cancel()

		c, err := cmdutil.Dial(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		n, err := c.WriteFile(ctx, args[1], src, overwrite, chunk)
		if err != nil {
			return err
		}

		p, err := cmdutil.Printer(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		p.Success(fmt.Sprintf("Wrote %s to %s", bytesize.ByteSize(n), args[1]))
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show the size of a remote file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdutil.Context()
		defer cancel()

		c, err := cmdutil.Dial(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		n, err := c.Length(ctx, args[0])
		if err != nil {
			return err
		}

		info := struct {
			Path string `json:"path" yaml:"path"`
			Size int64  `json:"size" yaml:"size"`
		}{args[0], n}

		format, err := cmdutil.GetOutputFormatParsed()
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(info)
		}
		return output.KeyValue(cmd.OutOrStdout(), [][2]string{
			{"Path", info.Path},
			{"Size", fmt.Sprintf("%d (%s)", n, bytesize.ByteSize(n))},
		})
	},
}

func parseChunk() (int32, error) {
	n, err := bytesize.Parse(chunkSize)
	if err != nil {
		return 0, fmt.Errorf("invalid --chunk: %w", err)
	}
	if n <= 0 || n > bytesize.ByteSize(1<<30) {
		return 0, fmt.Errorf("invalid --chunk %s: must be between 1 and 1Gi", chunkSize)
	}
	return int32(n), nil
}

func init() {
	for _, c := range []*cobra.Command{catCmd, putCmd} {
		c.Flags().StringVar(&chunkSize, "chunk", "256Ki", "Transfer size per request")
	}
	putCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
}
