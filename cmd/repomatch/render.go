package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"repomatch/internal/model"
	"repomatch/internal/recommend"
	"repomatch/internal/util"
)

const maxDescription = 60

func renderResult(w io.Writer, res *recommend.Result) {
	fmt.Fprintf(w, "Similar to %s's repositories\n", res.Username)
	if len(res.Similar) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		t := newTable(w, []string{"#", "Repository", "Language", "Stars", "Score", "Description"})
		for i, r := range res.Similar {
			t.Append([]string{
				strconv.Itoa(i + 1), r.FullName, r.Language,
				humanize.Comma(int64(r.Stars)), strconv.FormatFloat(r.Score, 'f', 3, 64), truncate(r.Description),
			})
		}
		t.Render()
	}

	fmt.Fprintf(w, "\nPopular in %s's languages\n", res.Username)
	if len(res.ByLanguage) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	t := newTable(w, []string{"Language", "Repository", "Stars", "URL"})
	for _, r := range res.ByLanguage {
		t.Append([]string{languageLabel(r), r.FullName, humanize.Comma(int64(r.Stars)), r.URL})
	}
	t.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	return t
}

func languageLabel(r model.RepoSummary) string {
	if r.Language == "" {
		return "(none)"
	}
	return r.Language
}

func truncate(s string) string {
	s = util.NormalizeWhitespace(s)
	rs := []rune(s)
	if len(rs) <= maxDescription {
		return s
	}
	return string(rs[:maxDescription-1]) + "…"
}
