// Package extraction parses loaded page HTML into the structured records stored for a run.
package extraction

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/assessment-scraper/internal/types"
)

// createdDelimiter separates the creation timestamp from the creator in the "Erstellt" cell.
const createdDelimiter = "von"

// metadataLabels maps the German cell labels of the detail view to metadata field names.
var metadataLabels = []struct {
	Label string
	Field string
}{
	{"Schlüssel", types.MetaKey},
	{"Erstellt", types.MetaCreated},
	{"PAT-Typ", types.MetaPATType},
	{"Firma", types.MetaCompany},
	{"Branche", types.MetaIndustry},
	{"Funktion", types.MetaFunction},
	{"Geändert", types.MetaModified},
}

// ParseError represents a failure to parse page HTML
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// DetailSelectors locate the two tables of a profile detail view.
type DetailSelectors struct {
	Metadata string
	Scores   string
}

// ParseDetail extracts the metadata and score rows from a detail page.
// An empty Metadata selector searches the whole document for labelled cells.
func ParseDetail(html string, sel DetailSelectors, logger *slog.Logger) (*types.InlineData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Message: "failed to parse HTML", Cause: err}
	}

	metaScope := doc.Selection
	if sel.Metadata != "" {
		if s := doc.Find(sel.Metadata); s.Length() > 0 {
			metaScope = s
		}
	}

	table := doc.Find(sel.Scores).First()
	if table.Length() == 0 {
		return nil, &ParseError{Message: fmt.Sprintf("score table %q not found", sel.Scores)}
	}

	return &types.InlineData{
		Metadata: ExtractMetadata(metaScope),
		Data:     ExtractScoreRows(table, logger),
	}, nil
}

// ExtractMetadata reads the labelled cells of scope. Each label's value is the text of the
// cell following the first cell containing the label; missing labels yield empty strings.
func ExtractMetadata(scope *goquery.Selection) map[string]string {
	meta := make(map[string]string, len(metadataLabels)+1)
	for _, ml := range metadataLabels {
		value := labelledValue(scope, ml.Label)
		if ml.Field == types.MetaCreated {
			created, by := splitCreated(value)
			meta[types.MetaCreated] = created
			meta[types.MetaCreatedBy] = by
			continue
		}
		meta[ml.Field] = value
	}
	return meta
}

func labelledValue(scope *goquery.Selection, label string) string {
	var value string
	scope.Find("td, th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if !strings.Contains(cell.Text(), label) {
			return true
		}
		value = strings.TrimSpace(cell.NextFiltered("td, th").Text())
		return false
	})
	return value
}

// splitCreated splits "2024-01-01 von Jane Doe" into the timestamp and the creator.
func splitCreated(text string) (string, string) {
	before, after, found := strings.Cut(text, createdDelimiter)
	if !found {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// ExtractScoreRows walks the rows of table after the header, two at a time. The first row of
// each pair holds the capability scores, the second the preference scores; columns 3 to 5
// hold min, max and mid. A trailing unpaired row is ignored.
func ExtractScoreRows(table *goquery.Selection, logger *slog.Logger) []types.ScoreRow {
	rows := table.Find("tr")
	if rows.Length() < 2 {
		return []types.ScoreRow{}
	}
	rows = rows.Slice(1, rows.Length())

	out := make([]types.ScoreRow, 0, rows.Length()/2)
	for i := 0; i+1 < rows.Length(); i += 2 {
		koennen := rows.Eq(i).Find("td, th")
		wollen := rows.Eq(i + 1).Find("td, th")

		definition := strings.TrimSpace(koennen.Eq(0).Text())
		row := types.ScoreRow{
			Definition: definition,
			Koennen:    scoreRange(koennen, definition, "koennen", logger),
			Wollen:     scoreRange(wollen, definition, "wollen", logger),
		}
		out = append(out, row)
	}
	return out
}

func scoreRange(cells *goquery.Selection, definition, half string, logger *slog.Logger) types.ScoreRange {
	return types.ScoreRange{
		Min: parseScore(cells, 2, definition, half, logger),
		Max: parseScore(cells, 3, definition, half, logger),
		Mid: parseScore(cells, 4, definition, half, logger),
	}
}

// parseScore returns nil for cells whose text is not an integer.
func parseScore(cells *goquery.Selection, col int, definition, half string, logger *slog.Logger) *int {
	text := strings.TrimSpace(cells.Eq(col).Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		if logger != nil {
			logger.Warn("non-numeric score cell",
				slog.String("definition", definition),
				slog.String("half", half),
				slog.Int("column", col+1),
				slog.String("text", text))
		}
		return nil
	}
	return &n
}
