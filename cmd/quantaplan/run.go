package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/quantaplan/internal/demo"
	"github.com/dshills/quantaplan/internal/log"
)

func newRunCmd(c *cli) *cobra.Command {
	var backward bool
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "bind and execute a sample plan",
		Long: `
Executes the named scenario and prints its rows, or its value for scalar
plans, followed by execution counters. Browse scenarios print one page of
browse.page_size rows.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer log.Latency(time.Now(), "run "+args[0])
			ctx := cmd.Context()
			s, p, err := c.env.Bind(ctx, args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			var res *demo.Result
			if s.Browse {
				res, err = c.env.Page(ctx, p, backward)
			} else {
				res, err = c.env.Run(ctx, p)
			}
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&backward, "backward", false, "page browse scenarios from the last row")
	return cmd
}

func printResult(cmd *cobra.Command, res *demo.Result) {
	w := cmd.OutOrStdout()
	t := newTable(w, res.Columns...)
	if res.Value != nil {
		t.Append([]string{res.Value.String()})
	}
	for _, r := range res.Rows {
		row := make([]string, len(r.Values))
		for i, v := range r.Values {
			row[i] = v.String()
		}
		t.Append(row)
	}
	t.Render()

	st := res.Stats
	if res.Value == nil {
		fmt.Fprintf(w, "(%s rows) ", humanize.Comma(int64(len(res.Rows))))
	}
	fmt.Fprintf(w, "nodes %s, read %s, seeks %s, scans %s, filters %s, %s\n",
		humanize.Comma(st.NodesExecuted), humanize.Comma(st.RowsRead),
		humanize.Comma(st.Seeks), humanize.Comma(st.Scans), humanize.Comma(st.Filters), res.Elapsed)
}
