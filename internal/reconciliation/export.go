package reconciliation

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var csvHeader = []string{
	"installment_id", "sale_id", "seq", "due_date",
	"client_name", "sale_kind", "scheduled", "paid", "remaining", "status",
}

// WriteCSV renders the view as CSV with a totals footer.
func WriteCSV(w io.Writer, view *View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range view.Results {
		record := []string{
			strconv.FormatInt(row.InstallmentID, 10),
			strconv.FormatInt(row.SaleID, 10),
			strconv.Itoa(row.Seq),
			row.DueDate,
			row.ClientName,
			row.SaleKind,
			row.Scheduled.StringFixed(2),
			row.Paid.StringFixed(2),
			row.Remaining.StringFixed(2),
			string(row.Status),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	printer := message.NewPrinter(language.English)
	footer := []string{
		"totals", "", "", "",
		printer.Sprintf("%d rows", view.Totals.Rows),
		"",
		formatAmount(printer, view.Totals.ScheduledSum),
		formatAmount(printer, view.Totals.PaidSum),
		formatAmount(printer, view.Totals.RemainingSum),
		"",
	}
	if err := cw.Write(footer); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// formatAmount renders a decimal with grouping separators for report output.
func formatAmount(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return p.Sprintf("%.2f", f)
}

var pdfTemplate = template.Must(template.New("reconciliation").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; font-size: 12px; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; }
td.num { text-align: right; }
tfoot td { font-weight: bold; }
</style>
</head>
<body>
<h1>Installment status</h1>
<p>{{.Totals.Rows}} installments (pending {{.Totals.Pending}}, partial {{.Totals.Partial}}, paid {{.Totals.Paid}})</p>
<table>
<thead>
<tr><th>Installment</th><th>Sale</th><th>Client</th><th>Due</th><th>Scheduled</th><th>Paid</th><th>Remaining</th><th>Status</th></tr>
</thead>
<tbody>
{{range .Results}}
<tr>
<td>#{{.InstallmentID}} ({{.Seq}})</td>
<td>#{{.SaleID}}</td>
<td>{{.ClientName}}</td>
<td>{{.DueDate}}</td>
<td class="num">{{.Scheduled.StringFixed 2}}</td>
<td class="num">{{.Paid.StringFixed 2}}</td>
<td class="num">{{.Remaining.StringFixed 2}}</td>
<td>{{.Status}}</td>
</tr>
{{end}}
</tbody>
<tfoot>
<tr><td colspan="4">Totals</td>
<td class="num">{{.Totals.ScheduledSum.StringFixed 2}}</td>
<td class="num">{{.Totals.PaidSum.StringFixed 2}}</td>
<td class="num">{{.Totals.RemainingSum.StringFixed 2}}</td>
<td></td></tr>
</tfoot>
</table>
</body>
</html>`))

// RenderHTML produces the printable report sent to the PDF converter.
func RenderHTML(view *View) (string, error) {
	var sb strings.Builder
	if err := pdfTemplate.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("reconciliation: render report: %w", err)
	}
	return sb.String(), nil
}
