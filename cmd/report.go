package cmd

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/avoronkov/pdnaudit/internal/checks"
	"github.com/avoronkov/pdnaudit/internal/engine"
	"github.com/avoronkov/pdnaudit/internal/penalty"
	"github.com/avoronkov/pdnaudit/internal/score"
	"github.com/avoronkov/pdnaudit/internal/shared/constants"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
	"github.com/avoronkov/pdnaudit/internal/storage/jsonstore"
)

const htmlTemplatePath = "templates/report.html.tmpl"

//go:embed templates/report.html.tmpl
var reportTemplateFS embed.FS

var htmlTemplateFuncs = template.FuncMap{
	"join":          strings.Join,
	"formatTime":    formatReportTime,
	"rubles":        formatRubles,
	"statusClass":   statusClass,
	"statusLabel":   statusLabel,
	"severityLabel": severityLabel,
}

var htmlReportTemplate = template.Must(
	template.New("report.html.tmpl").Funcs(htmlTemplateFuncs).ParseFS(reportTemplateFS, htmlTemplatePath),
)

var (
	reportFormat string
	reportOutput string
	reportVerify bool
	reportDelete bool
)

var reportCmd = &cobra.Command{
	Use:   "report [audit-id]",
	Short: "Render a saved audit report (console, html, pdf or json)",
	Long: `Render a saved report by its audit id. Without an id the saved reports
are listed. --verify checks the report file against its sha256 sidecar
instead of rendering.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportsDir, err := getReportsDir()
		if err != nil {
			return err
		}
		store, err := jsonstore.NewAuditStore(reportsDir)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return listReports(cmd, store)
		}
		id := args[0]

		if reportVerify {
			ok, err := store.Verify(cmd.Context(), id)
			if err != nil {
				return mapStoreErr(err, id)
			}
			if !ok {
				fmt.Printf("%s report %s does not match its integrity hash\n", colorError("TAMPERED:"), id)
				return fmt.Errorf("integrity check failed for %s", id)
			}
			fmt.Printf("%s report %s matches its integrity hash\n", colorSuccess("OK:"), id)
			return nil
		}

		if reportDelete {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return mapStoreErr(err, id)
			}
			fmt.Printf("%s %s\n", colorSuccess("Deleted:"), id)
			return nil
		}

		rep, err := store.FindByID(cmd.Context(), id)
		if err != nil {
			return mapStoreErr(err, id)
		}

		format := strings.ToLower(reportFormat)
		switch format {
		case "console":
			renderConsoleReport(os.Stdout, rep)
			return nil
		case "json":
			data, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return err
			}
			return writeReportFile(id, "json", append(data, '\n'))
		case "html":
			content, err := generateHTMLReport(rep)
			if err != nil {
				return fmt.Errorf("failed to generate HTML report: %w", err)
			}
			return writeReportFile(id, "html", []byte(content))
		case "pdf":
			content, err := generatePDFReportBytes(rep)
			if err != nil {
				return fmt.Errorf("failed to generate PDF report: %w", err)
			}
			return writeReportFile(id, "pdf", content)
		default:
			return fmt.Errorf("invalid format: %s (must be console, json, html, or pdf)", reportFormat)
		}
	},
}

func mapStoreErr(err error, id string) error {
	if errors.Is(err, sharederrors.ErrAuditNotFound) {
		return &AuditNotFoundError{ID: id}
	}
	return err
}

func listReports(cmd *cobra.Command, store *jsonstore.AuditStore) error {
	reports, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println("No saved reports yet. Run: pdnaudit audit <url>")
		return nil
	}
	for _, rep := range reports {
		fmt.Printf("  %s  %s  [%3d] %s  %s\n",
			rep.ID, rep.StartedAt.Local().Format("2006-01-02 15:04"),
			rep.Summary.Score, formatSeverity(rep.Summary.Severity), rep.Target)
	}
	return nil
}

func writeReportFile(id, ext string, content []byte) error {
	path := reportOutput
	if path == "" {
		path = fmt.Sprintf("%s.%s", id, ext)
	}
	if err := os.WriteFile(path, content, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report generated: %s\n", path)
	return nil
}

// Liable-person categories in the order reports present them.
var subjectOrder = []penalty.Subject{
	penalty.SubjectCitizen,
	penalty.SubjectSelfEmployed,
	penalty.SubjectOfficial,
	penalty.SubjectIndividualEntrepreneur,
	penalty.SubjectLegalEntity,
}

func subjectLabel(s penalty.Subject) string {
	switch s {
	case penalty.SubjectCitizen:
		return "Гражданин"
	case penalty.SubjectSelfEmployed:
		return "Самозанятый"
	case penalty.SubjectOfficial:
		return "Должностное лицо"
	case penalty.SubjectIndividualEntrepreneur:
		return "Индивидуальный предприниматель"
	case penalty.SubjectLegalEntity:
		return "Юридическое лицо"
	default:
		return string(s)
	}
}

func renderConsoleReport(w io.Writer, rep *engine.Report) {
	border := strings.Repeat("-", 54)
	fmt.Fprintln(w, colorInfo(border))
	fmt.Fprintf(w, "%s %s\n", colorInfo("Target:"), rep.Target)
	fmt.Fprintf(w, "%s %s\n", colorInfo("Audit id:"), rep.ID)
	if rep.Operator != "" {
		fmt.Fprintf(w, "%s %s\n", colorInfo("Operator:"), rep.Operator)
	}
	fmt.Fprintf(w, "%s %s\n", colorInfo("Audited at:"), formatReportTime(rep.StartedAt))
	fmt.Fprintf(w, "%s %s (%s, confidence: %s)\n",
		colorInfo("Site type:"), rep.SiteMeta.Name, rep.Site.Type, rep.Site.Confidence)
	fmt.Fprintf(w, "%s %d/100  risk: %s\n",
		colorInfo("Score:"), rep.Summary.Score, formatSeverity(rep.Summary.Severity))
	fmt.Fprintf(w, "%s %d ok, %d warn, %d fail, %d n/a, %d unavailable\n",
		colorInfo("Checks:"),
		rep.Summary.OK, rep.Summary.Warn, rep.Summary.Fail, rep.Summary.NA, rep.Summary.Unavailable)

	fmt.Fprintln(w)
	for _, res := range rep.Checks {
		fmt.Fprintf(w, "  [%s] %s\n", formatCheckStatus(res.Status), res.Title)
		for _, ev := range res.Evidence {
			fmt.Fprintf(w, "        %s\n", colorMuted(ev))
		}
	}

	if rep.Penalties.UniqueViolations > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %d violation group(s)\n",
			colorInfo("Potential fines (ст. 13.11 КоАП РФ):"), rep.Penalties.UniqueViolations)
		for _, it := range rep.Penalties.Items {
			fmt.Fprintf(w, "  - %s\n", it.Title)
		}
		for _, subj := range subjectOrder {
			amt, ok := rep.Penalties.Subjects[subj]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %s: %s\n", subjectLabel(subj), formatRubles(amt.Min, amt.Max))
		}
	}

	if len(rep.Limitations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, colorWarn("Limitations:"))
		for _, l := range rep.Limitations {
			fmt.Fprintf(w, "  - %s\n", l)
		}
	}
	fmt.Fprintln(w, colorInfo(border))
}

// reportTemplateData feeds the HTML template: the report itself plus
// fields that are awkward to compute in template syntax.
type reportTemplateData struct {
	Report      *engine.Report
	GeneratedAt string
	Subjects    []subjectRow
}

type subjectRow struct {
	Label string
	Min   int
	Max   int
}

func buildTemplateData(rep *engine.Report) reportTemplateData {
	data := reportTemplateData{
		Report:      rep,
		GeneratedAt: formatReportTime(time.Now()),
	}
	for _, subj := range subjectOrder {
		if amt, ok := rep.Penalties.Subjects[subj]; ok {
			data.Subjects = append(data.Subjects, subjectRow{Label: subjectLabel(subj), Min: amt.Min, Max: amt.Max})
		}
	}
	return data
}

func generateHTMLReport(rep *engine.Report) (string, error) {
	var sb strings.Builder
	if err := htmlReportTemplate.Execute(&sb, buildTemplateData(rep)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatReportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02.01.2006 15:04")
}

func statusClass(status checks.Status) string {
	switch status {
	case checks.StatusOK:
		return "status-ok"
	case checks.StatusWarn:
		return "status-warn"
	case checks.StatusFail:
		return "status-fail"
	case checks.StatusUnavailable:
		return "status-unavailable"
	default:
		return "status-na"
	}
}

func statusLabel(status checks.Status) string {
	switch status {
	case checks.StatusOK:
		return "Пройдено"
	case checks.StatusWarn:
		return "Предупреждение"
	case checks.StatusFail:
		return "Нарушение"
	case checks.StatusUnavailable:
		return "Нет данных"
	default:
		return "Неприменимо"
	}
}

func severityLabel(sev score.Severity) string {
	switch sev {
	case score.SeverityLow:
		return "Низкий"
	case score.SeverityMedium:
		return "Средний"
	case score.SeverityHigh:
		return "Высокий"
	default:
		return string(sev)
	}
}

func generatePDFReportBytes(rep *engine.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Personal Data Compliance Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Target: %s", latinize(rep.Target)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Audit id: %s", rep.ID), "", 1, "", false, 0, "")
	if rep.Operator != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Operator: %s", latinize(rep.Operator)), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Audited: %s", formatReportTime(rep.StartedAt)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Site type: %s (%s)", latinize(rep.SiteMeta.Name), rep.Site.Type), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Summary section
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Score: %d/100 | Risk: %s", rep.Summary.Score, rep.Summary.Severity), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Checks: %d ok | %d warn | %d fail | %d n/a | %d unavailable",
		rep.Summary.OK, rep.Summary.Warn, rep.Summary.Fail, rep.Summary.NA, rep.Summary.Unavailable), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Checks section
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Checks", "", 1, "", false, 0, "")
	for _, res := range rep.Checks {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("[%s] %s", strings.ToUpper(string(res.Status)), latinize(res.Title)), "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for _, ev := range res.Evidence {
			pdf.MultiCell(0, 4, "  "+latinize(ev), "", "", false)
		}
		if res.LegalReference != "" {
			pdf.CellFormat(0, 4, "  "+latinize(res.LegalReference), "", 1, "", false, 0, "")
		}
	}
	pdf.Ln(3)

	// Penalties section
	if rep.Penalties.UniqueViolations > 0 {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Potential Fines (Art. 13.11 Administrative Code)", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, it := range rep.Penalties.Items {
			pdf.MultiCell(0, 5, "- "+latinize(it.Title), "", "", false)
		}
		pdf.Ln(2)
		for _, subj := range subjectOrder {
			amt, ok := rep.Penalties.Subjects[subj]
			if !ok {
				continue
			}
			pdf.CellFormat(0, 5, fmt.Sprintf("%s: %s", latinize(subjectLabel(subj)), latinize(formatRubles(amt.Min, amt.Max))), "", 1, "", false, 0, "")
		}
		pdf.Ln(3)
	}

	// Limitations
	if len(rep.Limitations) > 0 {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Limitations", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "I", 9)
		for _, l := range rep.Limitations {
			pdf.MultiCell(0, 5, "- "+latinize(l), "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// translitTable romanizes Cyrillic for the PDF renderer: the built-in PDF
// core fonts cover only Latin glyphs.
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "E",
	'Ж': "Zh", 'З': "Z", 'И': "I", 'Й': "Y", 'К': "K", 'Л': "L", 'М': "M",
	'Н': "N", 'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U",
	'Ф': "F", 'Х': "Kh", 'Ц': "Ts", 'Ч': "Ch", 'Ш': "Sh", 'Щ': "Shch",
	'Ъ': "", 'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "Yu", 'Я': "Ya",
	'«': "\"", '»': "\"", '–': "-", '—': "-", '₽': "RUB", '№': "No.",
}

func latinize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r < 128:
			sb.WriteRune(r)
		default:
			if rep, ok := translitTable[r]; ok {
				sb.WriteString(rep)
			} else {
				sb.WriteByte('?')
			}
		}
	}
	return sb.String()
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "console", "output format: console, json, html or pdf")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "output file path (default <audit-id>.<format>)")
	reportCmd.Flags().BoolVar(&reportVerify, "verify", false, "verify the report against its sha256 sidecar")
	reportCmd.Flags().BoolVar(&reportDelete, "delete", false, "delete the saved report")
}
