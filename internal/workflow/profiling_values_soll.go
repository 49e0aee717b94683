package workflow

import (
	"context"
	"log/slog"

	"github.com/jonathan/assessment-scraper/internal/extraction"
	"github.com/jonathan/assessment-scraper/internal/types"
)

// profilingValuesSoll serves PROFILING_VALUES_SOLL: the detail view of the matched PAT is
// parsed into metadata and score rows instead of downloading files.
type profilingValuesSoll struct{}

func (profilingValuesSoll) Run(ctx context.Context, x *Execution) (*types.ResultRecord, error) {
	if err := x.login(ctx); err != nil {
		return nil, err
	}
	if err := x.navigate(ctx); err != nil {
		return nil, err
	}
	row, err := x.locate(ctx)
	if err != nil {
		return nil, err
	}

	sel := x.run.Variant.Selectors
	if err := x.page.Click(ctx, row+sel.RowDetailLink); err != nil {
		return nil, err
	}
	if err := x.page.WaitVisible(ctx, sel.DetailContainer, 0); err != nil {
		return nil, err
	}
	if err := x.discovered(1); err != nil {
		return nil, err
	}

	html, err := x.page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	data, err := extraction.ParseDetail(html, extraction.DetailSelectors{
		Metadata: sel.MetadataTable,
		Scores:   sel.ScoreTable,
	}, x.logger)
	if err != nil {
		return nil, err
	}

	rec := x.newRecord()
	rec.SetInline(data)
	x.logger.Info("detail extracted",
		slog.Int("metadata_fields", len(data.Metadata)),
		slog.Int("rows", len(data.Data)))
	x.step(ctx, "extract", "Extracted profile data")

	return rec, nil
}
