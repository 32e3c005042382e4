package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/trezcool/alama/core/marksheet"
)

func printSheet(w io.Writer, sh marksheet.Sheet) {
	fmt.Fprintf(w, "class %s, subject %s, exam %s, out of %g\n",
		sh.Selection.ClassID, orDash(sh.Selection.SubjectID), orDash(string(sh.Selection.ExamType)), sh.TotalMarks)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTUDENT\tOBTAINED\tPERCENT\tRESULT\tREMARKS")
	for _, r := range sh.Rows {
		result := "-"
		if r.HasPercent {
			result = "fail"
			if r.Pass {
				result = "pass"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Student.ID, r.Student.Name, orDash(r.Edit.Obtained), formatPct(r.Percentage, r.HasPercent), result, r.Edit.Remarks)
	}
	_ = tw.Flush()
}

func printReport(w io.Writer, rep marksheet.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tEXAM\tMARKS\tPERCENT\tGRADE\tTIER\tREMARKS")
	for _, r := range rep.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%g/%g\t%s\t%s\t%s\t%s\n",
			r.SubjectID, r.ExamType, r.MarksObtained, r.TotalMarks, formatPct(r.Percentage, r.HasPercent), orDash(r.Grade), r.Tier, r.Remarks)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d result(s), average %s, best %s, worst %s\n",
		rep.Stats.Count,
		formatPct(rep.Stats.Average, rep.Stats.Count > 0),
		formatPct(rep.Stats.Max, rep.Stats.Count > 0),
		formatPct(rep.Stats.Min, rep.Stats.Count > 0))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
