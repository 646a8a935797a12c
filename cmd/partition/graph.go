package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/partition/internal/config"
	perrors "github.com/vango-dev/partition/internal/errors"
	"github.com/vango-dev/partition/pkg/devtools"
	"github.com/vango-dev/partition/pkg/store"
)

func graphCmd() *cobra.Command {
	var (
		configPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the declared parts and their dependents",
		Long: `Build the parts declared in the config and print every part
with its path, default action type and dependents.

Examples:
  partition graph
  partition graph --format=json
  partition graph --config=app.yaml --format=yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			pt, err := partitionConfig(cfg)
			if err != nil {
				return err
			}
			return writeGraph(cmd.OutOrStdout(), pt, format)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default ./partition.yaml or $PARTITION_CONFIG)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json or yaml")

	return cmd
}

func describeAll(pt *store.Partitioner) []devtools.PartInfo {
	parts := pt.Graph().Parts()
	infos := make([]devtools.PartInfo, 0, len(parts))
	for _, p := range parts {
		infos = append(infos, devtools.Describe(p, pt))
	}
	return infos
}

func writeGraph(w io.Writer, pt *store.Partitioner, format string) error {
	infos := describeAll(pt)

	switch format {
	case "table", "":
		_, err := fmt.Fprintln(w, graphTable(infos))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	default:
		return perrors.New("P081").
			WithDetail(fmt.Sprintf("%q is not a supported format", format)).
			WithSuggestion("Use --format=table, --format=json or --format=yaml")
	}
}

func graphTable(infos []devtools.PartInfo) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("ID", "KIND", "PATH", "ACTION", "DEPENDENTS")

	for _, info := range infos {
		path := strings.Join(info.Path, ".")
		if path == "" {
			path = info.Name
		}
		t.Row(
			strconv.FormatUint(info.ID, 10),
			info.Kind,
			path,
			info.ActionType,
			joinIDs(info.Dependents),
		)
	}
	return t.String()
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}
