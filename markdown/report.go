// Package markdown renders run summaries as Markdown reports.
package markdown

import (
	"io"
	"strconv"
	"time"

	"github.com/fwojciec/webgrab"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// ReportName is the report's file name inside the output directory.
const ReportName = "report.md"

// WriteSummary writes a Markdown report of s to w.
func WriteSummary(w io.Writer, s *webgrab.Summary) error {
	if s == nil {
		return webgrab.Errorf(webgrab.EINVALID, "summary required")
	}

	md := markdown.NewMarkdown(w)
	writeHeader(md, s)
	writeCounts(md, s)
	writeFailures(md, s)
	return md.Build()
}

func writeHeader(md *markdown.Markdown, s *webgrab.Summary) {
	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + s.Seed + "`"},
			{"Run ID", "`" + s.RunID + "`"},
			{"Started", s.Started.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
			{"Pages Visited", strconv.Itoa(s.VisitedCount)},
			{"Failed URLs", strconv.Itoa(s.FailedCount)},
		},
	})
	md.PlainText("")
}

func writeCounts(md *markdown.Markdown, s *webgrab.Summary) {
	md.H2("Resources")
	md.PlainText("")

	rows := make([][]string, 0, len(webgrab.ResourceTypes)+1)
	for _, t := range webgrab.ResourceTypes {
		rows = append(rows, []string{string(t), strconv.Itoa(s.Counts[t])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(s.Counts.Total()) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Saved"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Counts.Total() == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Saved Resources"),
		piechart.WithShowData(true),
	)
	for _, t := range webgrab.ResourceTypes {
		if n := s.Counts[t]; n > 0 {
			chart.LabelAndIntValue(string(t), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeFailures(md *markdown.Markdown, s *webgrab.Summary) {
	md.H2("Failed URLs")
	md.PlainText("")

	if len(s.FailedURLs) == 0 {
		md.Tip("Every visited URL was saved.")
		md.PlainText("")
		return
	}

	md.Warningf("%d URL(s) failed. Re-run with --retry-failed to try them again.", len(s.FailedURLs))
	md.PlainText("")
	md.BulletList(s.FailedURLs...)
	md.PlainText("")
}
