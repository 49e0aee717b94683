package workflow

import (
	"context"
	"log/slog"

	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/types"
)

// JSONReportLabel is the report button whose output arrives as a JSON response
// rather than a file download.
const JSONReportLabel = "JSON-Report"

// profilingValues serves PROFILING_VALUES: the row's report icon opens a panel of report
// buttons, each producing one artifact.
type profilingValues struct{}

func (profilingValues) Run(ctx context.Context, x *Execution) (*types.ResultRecord, error) {
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
	if err := x.page.Click(ctx, row+sel.RowReportIcon); err != nil {
		return nil, err
	}
	if err := x.page.WaitVisible(ctx, sel.ReportPanel, 0); err != nil {
		return nil, err
	}

	labels, err := x.page.Labels(ctx, sel.ReportButtons)
	if err != nil {
		return nil, err
	}
	if err := x.discovered(len(labels)); err != nil {
		return nil, err
	}

	rec := x.newRecord()
	for i, label := range labels {
		name := label
		if name == "" {
			name = x.run.Variant.FileTypeLabel(i)
		}
		trigger := func(ctx context.Context) error {
			return x.page.ClickNth(ctx, sel.ReportButtons, i)
		}

		if label == JSONReportLabel {
			err := x.collect(ctx, rec, name, x.settings.ReportAttempts,
				func(ctx context.Context) (*browser.Download, error) {
					return x.page.CaptureJSONResponse(ctx, trigger)
				})
			if err != nil {
				return nil, err
			}
			continue
		}

		err := x.collect(ctx, rec, name, x.settings.ReportAttempts,
			func(ctx context.Context) (*browser.Download, error) {
				return x.page.CaptureDownload(ctx, trigger)
			})
		if err != nil {
			return nil, err
		}

		x.logger.Debug("pausing between downloads", slog.Duration("delay", x.settings.InterDownloadDelay))
		if err := pause(ctx, x.settings.InterDownloadDelay); err != nil {
			return nil, err
		}
	}

	return rec, nil
}
