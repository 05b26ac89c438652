package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/render"
)

// Output formats of the render command.
const (
	formatTerminal = "terminal"
	formatCSV      = "csv"
	formatJSON     = "json"
)

func (a *app) renderCmd() *cobra.Command {
	var (
		format  string
		filters []string
		top     int
		panel   string
		records int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run the dashboard once and print it",
		Long: `Run the dashboard once for a selection and print it.

Filters use the same keys as the web page, one --filter per value:

  salesdash render --filter region=Sudeste --filter seller="Ana Souza"

With --panel only that panel is printed; csv output then holds its data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := selectionQuery(filters, top)
			if err != nil {
				return err
			}
			sel := dashboard.ParseSelection(q, a.cfg.Dashboard)

			src, release, err := a.openSource(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			ds, err := src.Load(cmd.Context())
			if err != nil {
				return err
			}
			d, err := dashboard.Build(ds, sel, a.cfg.Dashboard, dashboard.WithLogger(a.logger))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if panel != "" {
				res, ok := d.Panel(panel)
				if !ok {
					return fmt.Errorf("unknown panel %q", panel)
				}
				switch format {
				case formatCSV:
					return render.WriteResultCSV(out, res)
				case formatJSON:
					return render.WriteJSON(out, res, true)
				case formatTerminal:
					fmt.Fprintln(out, res.Title)
					switch {
					case res.ChartConfig != nil:
						fmt.Fprint(out, render.BarsText(res.ChartConfig, render.DefaultTerminalOptions().BarWidth))
					case res.TableData != nil:
						fmt.Fprintln(out, render.TableText(res.TableData, records))
					case res.Metric != nil:
						fmt.Fprintln(out, res.Metric.Value)
					}
					return nil
				}
				return fmt.Errorf("unknown format %q", format)
			}

			switch format {
			case formatTerminal:
				opts := render.DefaultTerminalOptions()
				opts.MaxRecords = records
				return render.Terminal(out, d, opts)
			case formatCSV:
				return render.WriteTableCSV(out, d.Records)
			case formatJSON:
				return render.WriteJSON(out, d, true)
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTerminal, "Output format: terminal, csv or json")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as key=value, repeatable")
	cmd.Flags().IntVar(&top, "top", 0, "Entries in the top-N rankings")
	cmd.Flags().StringVar(&panel, "panel", "", "Print only this panel")
	cmd.Flags().IntVar(&records, "records", render.DefaultTerminalOptions().MaxRecords, "Records shown in terminal output")
	return cmd
}

// selectionQuery turns --filter and --top flags into the query the web
// page would send.
func selectionQuery(filters []string, top int) (url.Values, error) {
	q := url.Values{}
	for _, f := range filters {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", f)
		}
		q.Add(key, value)
	}
	if top != 0 {
		q.Set(dashboard.TopNKey, strconv.Itoa(top))
	}
	return q, nil
}
