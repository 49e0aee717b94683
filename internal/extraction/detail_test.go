package extraction

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/assessment-scraper/internal/types"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func intPtr(n int) *int { return &n }

const metadataHTML = `<table class="info">
<tr><td>Schlüssel:</td><td> PAT-4711 </td></tr>
<tr><td>Erstellt:</td><td>2024-01-01 von Jane Doe</td></tr>
<tr><td>PAT-Typ:</td><td>Vertrieb</td></tr>
<tr><td>Firma:</td><td>Muster GmbH</td></tr>
<tr><td>Branche:</td><td>Handel</td></tr>
<tr><td>Funktion:</td><td>Key Account</td></tr>
<tr><td>Geändert:</td><td>2024-02-03</td></tr>
</table>`

func TestExtractMetadata(t *testing.T) {
	doc := mustDoc(t, metadataHTML)
	meta := ExtractMetadata(doc.Selection)

	assert.Equal(t, "PAT-4711", meta[types.MetaKey])
	assert.Equal(t, "2024-01-01", meta[types.MetaCreated])
	assert.Equal(t, "Jane Doe", meta[types.MetaCreatedBy])
	assert.Equal(t, "Vertrieb", meta[types.MetaPATType])
	assert.Equal(t, "Muster GmbH", meta[types.MetaCompany])
	assert.Equal(t, "Handel", meta[types.MetaIndustry])
	assert.Equal(t, "Key Account", meta[types.MetaFunction])
	assert.Equal(t, "2024-02-03", meta[types.MetaModified])
}

func TestExtractMetadata_MissingLabelsAreEmpty(t *testing.T) {
	doc := mustDoc(t, `<table><tr><td>Firma</td><td>ACME</td></tr></table>`)
	meta := ExtractMetadata(doc.Selection)

	assert.Equal(t, "ACME", meta[types.MetaCompany])
	for _, field := range []string{types.MetaKey, types.MetaCreated, types.MetaCreatedBy, types.MetaPATType, types.MetaIndustry, types.MetaFunction, types.MetaModified} {
		value, ok := meta[field]
		assert.True(t, ok, field)
		assert.Empty(t, value, field)
	}
}

func TestSplitCreated(t *testing.T) {
	tests := []struct {
		in        string
		created   string
		createdBy string
	}{
		{"2024-01-01 von Jane Doe", "2024-01-01", "Jane Doe"},
		{"  01.02.2023 12:00  von   Max Mustermann ", "01.02.2023 12:00", "Max Mustermann"},
		{"2024-01-01", "2024-01-01", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			created, by := splitCreated(tt.in)
			assert.Equal(t, tt.created, created)
			assert.Equal(t, tt.createdBy, by)
		})
	}
}

func TestExtractScoreRows(t *testing.T) {
	doc := mustDoc(t, `<table>
<tr><th>Definition</th><th>Typ</th><th>Min</th><th>Max</th><th>Mitte</th></tr>
<tr><td> Skill A </td><td>koennen</td><td>1</td><td>5</td><td>3</td></tr>
<tr><td>_</td><td>wollen</td><td>2</td><td>4</td><td>3</td></tr>
</table>`)

	rows := ExtractScoreRows(doc.Find("table"), nil)
	require.Len(t, rows, 1)
	assert.Equal(t, types.ScoreRow{
		Definition: "Skill A",
		Koennen:    types.ScoreRange{Min: intPtr(1), Max: intPtr(5), Mid: intPtr(3)},
		Wollen:     types.ScoreRange{Min: intPtr(2), Max: intPtr(4), Mid: intPtr(3)},
	}, rows[0])
}

func TestExtractScoreRows_MultiplePairsAndTrailingRow(t *testing.T) {
	doc := mustDoc(t, `<table>
<tr><th>h</th></tr>
<tr><td>A</td><td></td><td>1</td><td>2</td><td>3</td></tr>
<tr><td></td><td></td><td>4</td><td>5</td><td>6</td></tr>
<tr><td>B</td><td></td><td>7</td><td>8</td><td>9</td></tr>
<tr><td></td><td></td><td>10</td><td>11</td><td>12</td></tr>
<tr><td>C</td><td></td><td>1</td><td>1</td><td>1</td></tr>
</table>`)

	rows := ExtractScoreRows(doc.Find("table"), nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Definition)
	assert.Equal(t, "B", rows[1].Definition)
	assert.Equal(t, 12, *rows[1].Wollen.Mid)
}

func TestExtractScoreRows_NonNumericCellIsNil(t *testing.T) {
	doc := mustDoc(t, `<table>
<tr><th>h</th></tr>
<tr><td>A</td><td></td><td>n/a</td><td>5</td><td>3</td></tr>
<tr><td></td><td></td><td>2</td><td></td><td>3</td></tr>
</table>`)

	rows := ExtractScoreRows(doc.Find("table"), nil)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Koennen.Min)
	assert.Equal(t, 5, *rows[0].Koennen.Max)
	assert.Nil(t, rows[0].Wollen.Max)
}

func TestExtractScoreRows_HeaderOnly(t *testing.T) {
	doc := mustDoc(t, `<table><tr><th>h</th></tr></table>`)
	assert.Empty(t, ExtractScoreRows(doc.Find("table"), nil))

	empty := mustDoc(t, `<table></table>`)
	assert.Empty(t, ExtractScoreRows(empty.Find("table"), nil))
}

func TestParseDetail(t *testing.T) {
	html := `<html><body><div id="patDetail">` + metadataHTML + `
<table class="scores">
<tr><th>Definition</th><th></th><th>Min</th><th>Max</th><th>Mitte</th></tr>
<tr><td>Skill A</td><td></td><td>1</td><td>5</td><td>3</td></tr>
<tr><td>_</td><td></td><td>2</td><td>4</td><td>3</td></tr>
</table></div></body></html>`

	data, err := ParseDetail(html, DetailSelectors{
		Metadata: "#patDetail table.info",
		Scores:   "#patDetail table.scores",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", data.Metadata[types.MetaCreatedBy])
	require.Len(t, data.Data, 1)
	assert.Equal(t, "Skill A", data.Data[0].Definition)
}

func TestParseDetail_MissingTable(t *testing.T) {
	_, err := ParseDetail(`<html><body></body></html>`, DetailSelectors{Scores: "table.scores"}, nil)
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}
