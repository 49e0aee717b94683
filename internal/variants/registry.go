// Package variants holds the static configuration of the four supported site/workflow variants.
package variants

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/assessment-scraper/internal/types"
)

// Family groups variants that share a site, credentials and workflow shape.
type Family string

// Variant families
const (
	FamilyHRCockpit       Family = "hr_cockpit"
	FamilyProfilingValues Family = "profiling_values"
)

// LoginSelectors locate the login form fields.
type LoginSelectors struct {
	User     string
	Password string
	Submit   string
	// LoggedIn becomes visible once the login succeeded.
	LoggedIn string
}

// Credentials names the environment variables holding the login for a variant.
type Credentials struct {
	UserVar     string
	PasswordVar string
}

// CSVExport configures the HR report-generation form used for the CSV export step.
type CSVExport struct {
	// ListPath is replaced by ReportPath in the current URL to reach the report form.
	ListPath    string
	ReportPath  string
	UIDCell     int
	UIDFilter   string
	CSVCheckbox string
	Submit      string
}

// Selectors holds the page locations the workflows depend on.
// Values starting with "/" or "(" are XPath expressions, everything else is CSS.
// The Row* fields are XPath fragments evaluated inside the row matching the code.
type Selectors struct {
	Listing         string
	SearchFilter    string
	SearchSubmit    string
	RowDownload     string
	RowReportIcon   string
	RowDetailLink   string
	ReportPanel     string
	ReportButtons   string
	DetailContainer string
	ScoreTable      string
	MetadataTable   string
}

// Variant is the immutable configuration of one workflow variant.
type Variant struct {
	ID                types.CodeType
	Family            Family
	Name              string
	StartURL          string
	Login             LoginSelectors
	NavLabels         []string
	FileTypes         []string
	IncludesCSVExport bool
	Credentials       Credentials
	Selectors         Selectors
	CSV               CSVExport
}

// UnknownVariantError indicates a code type that is not one of the supported variants.
type UnknownVariantError struct {
	CodeType string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown code type %q (valid: %s)", e.CodeType, strings.Join(ListValidCodes(), ", "))
}

// ExpectedTargets is the number of download or extraction targets the variant usually yields.
// It feeds the provisional step total before the real targets are discovered.
func (v Variant) ExpectedTargets() int {
	switch v.ID {
	case types.CodeTypeProfilingValuesSoll:
		return 1
	}
	n := len(v.FileTypes)
	if v.IncludesCSVExport {
		n++
	}
	return n
}

// FileTypeLabel returns the artifact name for the i-th (zero based) download.
// It falls back to "Report-N" once the configured list is exhausted.
func (v Variant) FileTypeLabel(i int) string {
	if i >= 0 && i < len(v.FileTypes) {
		return v.FileTypes[i]
	}
	return fmt.Sprintf("Report-%d", i+1)
}

const (
	hrCockpitURL       = "https://www.hr-cockpit.de/login"
	profilingValuesURL = "https://www.profilingvalues.de/login"
)

var hrLogin = LoginSelectors{
	User:     `input[name="username"]`,
	Password: `input[name="password"]`,
	Submit:   `button[type="submit"]`,
	LoggedIn: `#mainmenu`,
}

var profilingLogin = LoginSelectors{
	User:     `#loginName`,
	Password: `#loginPassword`,
	Submit:   `input[type="submit"][name="login"]`,
	LoggedIn: `#navigation`,
}

var hrSelectors = Selectors{
	Listing:     `table.resultlist`,
	RowDownload: `//a[normalize-space(.)="DE"]`,
}

var hrCredentials = Credentials{UserVar: "HR_COCKPIT_USER", PasswordVar: "HR_COCKPIT_PASSWORD"}

var profilingCredentials = Credentials{UserVar: "PROFILING_VALUES_USER", PasswordVar: "PROFILING_VALUES_PASSWORD"}

var registry = map[types.CodeType]Variant{
	types.CodeTypeHRCockpit: {
		ID:        types.CodeTypeHRCockpit,
		Family:    FamilyHRCockpit,
		Name:      "HR Cockpit",
		StartURL:  hrCockpitURL,
		Login:     hrLogin,
		NavLabels: []string{"Auswertungen", "Potenzialanalyse", "Teilnehmerliste"},
		FileTypes: []string{"Standard-Report", "Kompakt-Report", "Entwicklungs-Report"},
		// The CSV export is served by a popup window of the report generator.
		IncludesCSVExport: true,
		Credentials:       hrCredentials,
		Selectors:         hrSelectors,
		CSV: CSVExport{
			ListPath:    "/participants/list",
			ReportPath:  "/reports/generate",
			UIDCell:     1,
			UIDFilter:   `input[name="filter_uid"]`,
			CSVCheckbox: `input[type="checkbox"][name="output_csv"]`,
			Submit:      `#generateReport`,
		},
	},
	types.CodeTypeHRCockpitSoll: {
		ID:          types.CodeTypeHRCockpitSoll,
		Family:      FamilyHRCockpit,
		Name:        "HR Cockpit Soll-Profil",
		StartURL:    hrCockpitURL,
		Login:       hrLogin,
		NavLabels:   []string{"Auswertungen", "Soll-Profile", "Profilliste"},
		FileTypes:   []string{"Soll-Profil-Report", "Soll-Ist-Vergleich"},
		Credentials: hrCredentials,
		Selectors:   hrSelectors,
	},
	types.CodeTypeProfilingValues: {
		ID:          types.CodeTypeProfilingValues,
		Family:      FamilyProfilingValues,
		Name:        "Profiling Values",
		StartURL:    profilingValuesURL,
		Login:       profilingLogin,
		FileTypes:   []string{"PDF-Report", "JSON-Report", "CSV-Report"},
		Credentials: profilingCredentials,
		Selectors: Selectors{
			Listing:       `table.results`,
			SearchFilter:  `input[name="search"]`,
			SearchSubmit:  `#searchSubmit`,
			RowReportIcon: `//img[@title="PDF-Report"]`,
			ReportPanel:   `#reportPanel`,
			ReportButtons: `#reportPanel input[type="submit"]`,
		},
	},
	types.CodeTypeProfilingValuesSoll: {
		ID:          types.CodeTypeProfilingValuesSoll,
		Family:      FamilyProfilingValues,
		Name:        "Profiling Values Soll-Profil",
		StartURL:    profilingValuesURL,
		Login:       profilingLogin,
		NavLabels:   []string{"PAT-Verwaltung"},
		Credentials: profilingCredentials,
		Selectors: Selectors{
			Listing:         `table.patlist`,
			SearchFilter:    `input[name="patFilter"]`,
			SearchSubmit:    `#patFilterSubmit`,
			RowDetailLink:   `//a[contains(@class, "details")]`,
			DetailContainer: `#patDetail`,
			ScoreTable:      `#patDetail table.scores`,
			MetadataTable:   `#patDetail table.info`,
		},
	},
}

// Lookup returns the variant configured for codeType.
func Lookup(codeType types.CodeType) (Variant, error) {
	v, ok := registry[codeType]
	if !ok {
		return Variant{}, &UnknownVariantError{CodeType: string(codeType)}
	}
	v.NavLabels = append([]string(nil), v.NavLabels...)
	v.FileTypes = append([]string(nil), v.FileTypes...)
	return v, nil
}

// ListValidCodes returns the recognised code types, sorted.
func ListValidCodes() []string {
	codes := make([]string, 0, len(registry))
	for id := range registry {
		codes = append(codes, string(id))
	}
	sort.Strings(codes)
	return codes
}

// All returns every variant ordered by code type.
func All() []Variant {
	out := make([]Variant, 0, len(registry))
	for _, code := range ListValidCodes() {
		v, _ := Lookup(types.CodeType(code))
		out = append(out, v)
	}
	return out
}
