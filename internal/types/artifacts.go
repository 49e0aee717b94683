package types

// ArtifactKind distinguishes the two shapes a ReportArtifact can take.
type ArtifactKind string

// Artifact kinds
const (
	ArtifactKindFile   ArtifactKind = "file"
	ArtifactKindInline ArtifactKind = "inline"
)

// ReportArtifact is one downloaded file stored in the blob store.
type ReportArtifact struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ScoreRange holds the min/max/mid scores of one half of a profile row.
// A nil bound means the cell text was not numeric.
type ScoreRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
	Mid *int `json:"mid"`
}

// ScoreRow is one logical record of the profile table: a capability ("koennen")
// row paired with the preference ("wollen") row that follows it.
type ScoreRow struct {
	Definition string     `json:"definition"`
	Koennen    ScoreRange `json:"koennen"`
	Wollen     ScoreRange `json:"wollen"`
}

// InlineData is the structured record extracted from an HTML detail page.
type InlineData struct {
	Metadata map[string]string `json:"metadata"`
	Data     []ScoreRow        `json:"data"`
}

// Metadata field names produced by the detail-page extraction
const (
	MetaKey       = "key"
	MetaCreated   = "created"
	MetaCreatedBy = "created_by"
	MetaPATType   = "pat_type"
	MetaCompany   = "company"
	MetaIndustry  = "industry"
	MetaFunction  = "function"
	MetaModified  = "modified"
)

// ResultRecord is the output of a successful run. Reports is set for the file-producing
// variants, Metadata and Data for the inline-data variant.
type ResultRecord struct {
	Code     string            `json:"code"`
	CodeType CodeType          `json:"code_type"`
	RunID    string            `json:"run_id,omitempty"`
	Reports  []ReportArtifact  `json:"reports,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Data     []ScoreRow        `json:"data,omitempty"`
}

// AddReport appends a file artifact to the record.
func (r *ResultRecord) AddReport(a ReportArtifact) {
	r.Reports = append(r.Reports, a)
}

// SetInline stores an inline data artifact on the record.
func (r *ResultRecord) SetInline(d *InlineData) {
	r.Metadata = d.Metadata
	r.Data = d.Data
}

// Kind reports which artifact shape the record carries.
func (r *ResultRecord) Kind() ArtifactKind {
	if r.Metadata != nil || r.Data != nil {
		return ArtifactKindInline
	}
	return ArtifactKindFile
}

// ErrorRecord is persisted instead of a ResultRecord when a run fails.
type ErrorRecord struct {
	Code     string   `json:"code"`
	CodeType CodeType `json:"code_type"`
	RunID    string   `json:"run_id,omitempty"`
	Kind     string   `json:"kind"`
	Error    string   `json:"error"`
}
