package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"samarth-go/internal/models"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	askRewrite bool
	askJSON    bool
	askAnswer  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question and print the result table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askAnswer {
			cfg.Answer.Enabled = true
		}
		engine, err := loadEngine(cmd.Context())
		if err != nil {
			return err
		}

		question := strings.Join(args, " ")
		resp, err := engine.Ask(cmd.Context(), question, askRewrite)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(resp), "encode response")
		}
		renderAsk(out, resp)
		return nil
	},
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the loaded datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine(cmd.Context())
		if err != nil {
			return err
		}
		var descs []models.DatasetDescriptor
		for _, ds := range engine.Registry.Datasets() {
			descs = append(descs, ds.Descriptor)
		}
		renderDatasets(cmd.OutOrStdout(), descs)
		return nil
	},
}

func renderAsk(out io.Writer, resp models.AskResponse) {
	fmt.Fprintf(out, "Question: %s\n", resp.Intent.Raw)
	fmt.Fprintf(out, "Action:   %s\n", describeIntent(resp.Intent))
	fmt.Fprintf(out, "Verdict:  %s", resp.Verdict.Status)
	if len(resp.Verdict.Reasons) > 0 {
		reasons := make([]string, 0, len(resp.Verdict.Reasons))
		for _, r := range resp.Verdict.Reasons {
			reasons = append(reasons, string(r))
		}
		fmt.Fprintf(out, " (%s)", strings.Join(reasons, ", "))
	}
	fmt.Fprintln(out)

	for i, rw := range resp.Verdict.Rewrites {
		fmt.Fprintf(out, "  rewrite %d: %q\n             %s\n", i+1, rw.Question, rw.Rationale)
	}

	if resp.Result == nil {
		if !resp.Verdict.Feasible() && len(resp.Verdict.Rewrites) > 0 {
			fmt.Fprintln(out, "\nRe-run with --rewrite to answer the first suggestion.")
		}
		return
	}

	fmt.Fprintln(out)
	if resp.Result.Empty() {
		fmt.Fprintln(out, "No matching records.")
	} else {
		renderRows(out, resp.Result.Rows)
	}

	if stats := resp.Result.CorrelationStats; stats != nil {
		fmt.Fprintf(out, "\nPearson r = %.3f over %d matched locations\n", stats.Coefficient, stats.SampleSize)
	}
	if len(resp.Result.Buckets) > 0 {
		fmt.Fprintf(out, "\nBuckets: low=%d moderate=%d high=%d\n",
			int(resp.Result.Aggregates["low"]), int(resp.Result.Aggregates["moderate"]), int(resp.Result.Aggregates["high"]))
	}
	for _, n := range resp.Result.Notes {
		fmt.Fprintf(out, "note: %s\n", n)
	}
	if resp.Answer != "" {
		fmt.Fprintf(out, "\n%s\n", resp.Answer)
	}

	if len(resp.Citations) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, c := range resp.Citations {
			fmt.Fprintln(out, c)
		}
	}
	if resp.ChartFamily != "" {
		fmt.Fprintf(out, "\nSuggested chart: %s\n", resp.ChartFamily)
	}
}

func renderRows(out io.Writer, rows []models.Row) {
	withSecondary := false
	for _, r := range rows {
		if r.Secondary != nil {
			withSecondary = true
			break
		}
	}

	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	header := []string{"#", "Label", "Dataset", "Metric", "Value", "Points"}
	if withSecondary {
		header = append(header, "Rainfall")
	}
	table.SetHeader(header)

	for i, r := range rows {
		line := []string{
			strconv.Itoa(i + 1),
			r.Label,
			r.Dataset,
			r.Metric,
			strconv.FormatFloat(r.Value, 'f', 2, 64),
			strconv.Itoa(r.Count),
		}
		if withSecondary {
			sec := ""
			if r.Secondary != nil {
				sec = strconv.FormatFloat(*r.Secondary, 'f', 2, 64)
			}
			line = append(line, sec)
		}
		table.Append(line)
	}
	table.Render()
}

func renderDatasets(out io.Writer, descs []models.DatasetDescriptor) {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader([]string{"Dataset", "Kind", "Granularity", "Years", "Crop", "Records", "Null %"})
	for _, d := range descs {
		table.Append([]string{
			d.ID,
			string(d.Kind),
			string(d.Granularity),
			d.Temporal.String(),
			d.CropType,
			strconv.Itoa(d.Records),
			strconv.FormatFloat(d.NullPct, 'f', 1, 64),
		})
	}
	table.Render()
}

func describeIntent(in models.Intent) string {
	parts := []string{string(in.Action)}
	if in.Direction != "" && (in.Action == models.ActionRank || in.Action == models.ActionIdentify) {
		parts[0] += "(" + string(in.Direction) + ")"
	}
	if in.TopN != nil {
		parts = append(parts, "top="+strconv.Itoa(*in.TopN))
	}
	if len(in.Crops) > 0 {
		parts = append(parts, "crops="+strings.Join(in.Crops, ","))
	}
	if len(in.Locations) > 0 {
		parts = append(parts, "locations="+strings.Join(in.Locations, ","))
	}
	if in.YearRange != nil {
		parts = append(parts, "years="+in.YearRange.String())
	} else if in.RelativeYears > 0 {
		parts = append(parts, fmt.Sprintf("last %d years", in.RelativeYears))
	}
	return strings.Join(parts, " ")
}

func init() {
	askCmd.Flags().BoolVar(&askRewrite, "rewrite", false, "answer the first rewrite when the question is infeasible")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	askCmd.Flags().BoolVar(&askAnswer, "answer", false, "narrate the result through the configured Ollama model")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(datasetsCmd)
}
