package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/types"
)

// CSVArtifactName names the artifact produced by the CSV export.
const CSVArtifactName = "Evaluate-daten"

// hrCockpit serves HR_COCKPIT and HR_COCKPIT_SOLL: every "DE" link of the matched row is a
// report download, optionally followed by the CSV export of the report generator.
type hrCockpit struct{}

func (hrCockpit) Run(ctx context.Context, x *Execution) (*types.ResultRecord, error) {
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

	v := x.run.Variant
	links := row + v.Selectors.RowDownload
	n, err := x.page.Count(ctx, links)
	if err != nil {
		return nil, err
	}

	targets := n
	if v.IncludesCSVExport {
		targets++
	}
	if err := x.discovered(targets); err != nil {
		return nil, err
	}

	rec := x.newRecord()
	for i := 0; i < n; i++ {
		err := x.collect(ctx, rec, v.FileTypeLabel(i), x.settings.FileAttempts,
			func(ctx context.Context) (*browser.Download, error) {
				return x.page.CaptureDownload(ctx, func(ctx context.Context) error {
					return x.page.ClickNth(ctx, links, i)
				})
			})
		if err != nil {
			return nil, err
		}
	}

	if v.IncludesCSVExport {
		if err := exportCSV(ctx, x, rec, row); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// exportCSV opens the report generator for the row's participant and downloads the CSV
// it offers in a popup window.
func exportCSV(ctx context.Context, x *Execution, rec *types.ResultRecord, row string) error {
	csv := x.run.Variant.CSV

	uid, err := x.page.Text(ctx, cellXPath(row, csv.UIDCell))
	if err == nil && uid == "" {
		err = fmt.Errorf("empty participant id in column %d", csv.UIDCell+1)
	}
	if err != nil {
		return x.skipCSV(ctx, err)
	}

	listURL, err := x.page.CurrentURL(ctx)
	if err != nil {
		return x.skipCSV(ctx, err)
	}
	if !strings.Contains(listURL, csv.ListPath) {
		return x.skipCSV(ctx, fmt.Errorf("current URL %s does not contain %s", listURL, csv.ListPath))
	}
	reportURL := strings.Replace(listURL, csv.ListPath, csv.ReportPath, 1)

	x.logger.Debug("exporting CSV",
		slog.String("uid", uid),
		slog.String("url", reportURL))

	return x.collect(ctx, rec, CSVArtifactName, x.settings.FileAttempts,
		func(ctx context.Context) (*browser.Download, error) {
			if err := x.page.Navigate(ctx, reportURL); err != nil {
				return nil, err
			}
			if err := x.page.WaitVisible(ctx, csv.UIDFilter, 0); err != nil {
				return nil, err
			}
			if err := x.page.Fill(ctx, csv.UIDFilter, uid); err != nil {
				return nil, err
			}
			if err := x.page.Click(ctx, csv.CSVCheckbox); err != nil {
				return nil, err
			}
			return x.page.CapturePopupDownload(ctx, func(ctx context.Context) error {
				return x.page.Click(ctx, csv.Submit)
			})
		})
}

func (x *Execution) skipCSV(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	x.logger.Warn("artifact skipped",
		slog.String("artifact", CSVArtifactName),
		slog.String("kind", Kind(err)),
		slog.String("error", err.Error()))
	x.step(ctx, "extract", fmt.Sprintf("Skipped %s", CSVArtifactName))
	return nil
}
