// Package consent validates personal-data consent documents against the
// statutory content requirements for consent texts (152-FZ art. 9).
package consent

import (
	"strings"

	"github.com/avoronkov/pdnaudit/internal/inn"
)

// Mode distinguishes plain web consent from the written form, which carries
// additional mandatory elements about the data subject.
type Mode string

const (
	ModeSimple  Mode = "simple"
	ModeWritten Mode = "written"
)

// Metadata is the structured description of a consent document, supplied by
// the caller alongside an audit request. The validator never parses free text.
type Metadata struct {
	Mode Mode `json:"mode"`

	OperatorName        string   `json:"operator_name"`
	OperatorAddress     string   `json:"operator_address"`
	Purposes            []string `json:"purposes"`
	DataCategories      []string `json:"data_categories"`
	Actions             []string `json:"actions"`
	StoragePeriod       string   `json:"storage_period"`
	WithdrawalProcedure string   `json:"withdrawal_procedure"`

	// Written-form fields.
	SubjectName      string `json:"subject_name,omitempty"`
	SubjectDocument  string `json:"subject_document,omitempty"`
	SignaturePresent bool   `json:"signature_present,omitempty"`

	// Best-practice fields.
	OperatorINN           string   `json:"operator_inn,omitempty"`
	OperatorContact       string   `json:"operator_contact,omitempty"`
	TerminationConditions string   `json:"termination_conditions,omitempty"`
	ThirdParties          []string `json:"third_parties,omitempty"`
	ThirdPartyPurposes    []string `json:"third_party_purposes,omitempty"`
}

// Severity of a single consent issue.
const (
	SeverityFail = "fail"
	SeverityWarn = "warn"
)

// Issue describes one defect of the consent document.
type Issue struct {
	Field    string `json:"field"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Report is the validation outcome. Valid means no fail-severity issues.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

type mandatoryField struct {
	field   string
	message string
	missing func(*Metadata) bool
}

// The seven statutory elements every consent must state, plus the three
// written-form additions. Order here fixes issue order in the report.
var mandatoryFields = []mandatoryField{
	{"operator_name", "operator name is missing", func(m *Metadata) bool { return blank(m.OperatorName) }},
	{"operator_address", "operator address is missing", func(m *Metadata) bool { return blank(m.OperatorAddress) }},
	{"purposes", "processing purposes are missing", func(m *Metadata) bool { return allBlank(m.Purposes) }},
	{"data_categories", "personal data categories are missing", func(m *Metadata) bool { return allBlank(m.DataCategories) }},
	{"actions", "processing actions are missing", func(m *Metadata) bool { return allBlank(m.Actions) }},
	{"storage_period", "storage period is missing", func(m *Metadata) bool { return blank(m.StoragePeriod) }},
	{"withdrawal_procedure", "consent withdrawal procedure is missing", func(m *Metadata) bool { return blank(m.WithdrawalProcedure) }},
}

var writtenFields = []mandatoryField{
	{"subject_name", "subject full name is required for written consent", func(m *Metadata) bool { return blank(m.SubjectName) }},
	{"subject_document", "subject identifying document is required for written consent", func(m *Metadata) bool { return blank(m.SubjectDocument) }},
	{"signature_present", "signature is required for written consent", func(m *Metadata) bool { return !m.SignaturePresent }},
}

// Validate checks a consent document description. Each missing mandatory
// field yields exactly one fail issue; best-practice gaps yield warn issues.
func Validate(m *Metadata) Report {
	report := Report{Valid: true}
	if m == nil {
		report.Valid = false
		report.Issues = append(report.Issues, Issue{
			Field:    "document",
			Severity: SeverityFail,
			Message:  "no consent document supplied",
		})
		return report
	}

	for _, f := range mandatoryFields {
		if f.missing(m) {
			report.Issues = append(report.Issues, Issue{Field: f.field, Severity: SeverityFail, Message: f.message})
		}
	}

	if m.Mode == ModeWritten {
		for _, f := range writtenFields {
			if f.missing(m) {
				report.Issues = append(report.Issues, Issue{Field: f.field, Severity: SeverityFail, Message: f.message})
			}
		}
	}

	report.Issues = append(report.Issues, bestPracticeIssues(m)...)

	for _, issue := range report.Issues {
		if issue.Severity == SeverityFail {
			report.Valid = false
			break
		}
	}
	return report
}

func bestPracticeIssues(m *Metadata) []Issue {
	var issues []Issue

	if blank(m.OperatorINN) {
		issues = append(issues, Issue{
			Field:    "operator_inn",
			Severity: SeverityWarn,
			Message:  "operator INN not stated; subjects cannot verify the operator",
		})
	} else if ok, reason := inn.Validate(strings.TrimSpace(m.OperatorINN)); !ok {
		issues = append(issues, Issue{
			Field:    "operator_inn",
			Severity: SeverityWarn,
			Message:  "operator INN does not validate: " + reason,
		})
	}

	if blank(m.OperatorContact) {
		issues = append(issues, Issue{
			Field:    "operator_contact",
			Severity: SeverityWarn,
			Message:  "no operator contact channel for privacy requests",
		})
	}

	if blank(m.TerminationConditions) {
		issues = append(issues, Issue{
			Field:    "termination_conditions",
			Severity: SeverityWarn,
			Message:  "conditions for terminating processing are not stated",
		})
	}

	if !allBlank(m.ThirdParties) && allBlank(m.ThirdPartyPurposes) {
		issues = append(issues, Issue{
			Field:    "third_parties",
			Severity: SeverityWarn,
			Message:  "third parties are listed without transfer purposes",
		})
	}

	return issues
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func allBlank(values []string) bool {
	for _, v := range values {
		if !blank(v) {
			return false
		}
	}
	return true
}
