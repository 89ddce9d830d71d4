package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/models"
	"fusion-portal-backend/pkg/seed"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// defaultFormat 终端输出表格，管道输出 JSON
func defaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "json"
}

func resolveFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = defaultFormat()
	}
	switch format {
	case "table", "json":
		return format, nil
	}
	return "", fmt.Errorf("invalid --format value %q", format)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printFeed(w io.Writer, res feed.Result, format string, showIDs bool) error {
	format, err := resolveFormat(format)
	if err != nil {
		return err
	}
	if format == "json" {
		return printJSON(w, map[string]interface{}{
			"items":     res.Items,
			"counts":    res.Counts,
			"total":     res.Total,
			"page":      res.Page.Number,
			"page_size": res.Page.Size,
		})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "TYPE\tTITLE\tWHEN\tLIKES\tVIEWS"
	if showIDs {
		header = "ID\t" + header
	}
	fmt.Fprintln(tw, header)
	for i := range res.Items {
		item := &res.Items[i]
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s",
			item.ContentType,
			truncate(item.DisplayTitle(), 48),
			when(item.EffectiveTime()),
			humanize.Comma(int64(item.LikeCount)),
			humanize.Comma(int64(item.ViewCount)),
		)
		if showIDs {
			row = item.ID + "\t" + row
		}
		fmt.Fprintln(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s of %s matching (page %d, %d per page)\n",
		humanize.Comma(int64(len(res.Items))), humanize.Comma(int64(res.Total)), res.Page.Number, res.Page.Size)
	fmt.Fprintln(w, formatCounts(res.Counts))
	return nil
}

func printReport(w io.Writer, report *seed.Report, format string) error {
	format, err := resolveFormat(format)
	if err != nil {
		return err
	}
	if format == "json" {
		content := map[string]int{}
		for t, n := range report.Content {
			content[string(t)] = n
		}
		return printJSON(w, map[string]interface{}{
			"spaces":    report.Spaces,
			"content":   content,
			"skipped":   report.Skipped,
			"per_space": report.PerSpace,
		})
	}

	fmt.Fprintf(w, "Imported %s spaces\n", humanize.Comma(int64(report.Spaces)))
	for _, t := range models.ContentVariants {
		fmt.Fprintf(w, "  %-10s %s\n", t, humanize.Comma(int64(report.Content[t])))
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d unsupported items: %s\n", len(report.Skipped), strings.Join(report.Skipped, ", "))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSPACE\tNAME\tCOUNTS")
	for _, s := range report.PerSpace {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, formatCounts(s.Counts))
	}
	return tw.Flush()
}

// formatCounts prints total first, then the remaining keys alphabetically
func formatCounts(c feed.Counts) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		if k != feed.CountTotal {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := []string{fmt.Sprintf("total=%d", c[feed.CountTotal])}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c[k]))
	}
	return strings.Join(parts, " ")
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
