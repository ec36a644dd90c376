package commands

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/fsbroker/cmd/fsbrokerctl/cmdutil"
	"github.com/marmos91/fsbroker/internal/cli/health"
	"github.com/marmos91/fsbroker/internal/cli/timeutil"
	"github.com/marmos91/fsbroker/pkg/openfile"
)

var handlesOwner string

var handlesCmd = &cobra.Command{
	Use:   "handles [id]",
	Short: "List open handles on the broker",
	Long: `List the broker's open file handles through the operator API, or show
one handle by id.

Examples:
  fsbrokerctl handles
  fsbrokerctl handles --owner 10.0.0.7:51234
  fsbrokerctl handles 42 -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHandles,
}

func init() {
	handlesCmd.Flags().StringVar(&handlesOwner, "owner", "", "Only show handles owned by this client address")
}

// HandleList renders handles as a table.
type HandleList []openfile.Info

// Headers implements output.TableRenderer.
func (l HandleList) Headers() []string {
	return []string{"ID", "Mode", "Offset", "Owner", "Age", "Path"}
}

// Rows implements output.TableRenderer.
func (l HandleList) Rows() [][]string {
	now := time.Now()
	rows := make([][]string, 0, len(l))
	for _, h := range l {
		rows = append(rows, []string{
			strconv.Itoa(int(h.ID)),
			h.Mode,
			strconv.FormatInt(h.Offset, 10),
			h.Owner,
			timeutil.FormatAge(h.Created, now),
			h.Path,
		})
	}
	return rows
}

func runHandles(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdutil.Context()
	defer cancel()

	var list HandleList
	if len(args) == 1 {
		h, err := fetchHandle(ctx, args[0])
		if err != nil {
			return err
		}
		list = HandleList{*h}
	} else {
		var err error
		if list, err = fetchHandles(ctx, handlesOwner); err != nil {
			return err
		}
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), list, len(list) == 0, "No open handles.", list)
}

func fetchHandles(ctx context.Context, owner string) (HandleList, error) {
	path := "/api/v1/handles"
	if owner != "" {
		path += "?owner=" + url.QueryEscape(owner)
	}
	env, code, err := health.Get[HandleList](ctx, nil, cmdutil.Flags.APIURL, path)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("list handles: %s", env.Error)
	}
	return env.Data, nil
}

func fetchHandle(ctx context.Context, id string) (*openfile.Info, error) {
	env, code, err := health.Get[openfile.Info](ctx, nil, cmdutil.Flags.APIURL, "/api/v1/handles/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("handle %s: %s", id, env.Error)
	}
	return &env.Data, nil
}
