package workflow

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/assessment-scraper/internal/types"
	"github.com/jonathan/assessment-scraper/internal/variants"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() Settings {
	return Settings{FileAttempts: 3, ReportAttempts: 5}
}

func allCredentials() mapCredentials {
	return mapCredentials{
		"HR_COCKPIT_USER":           "hr-user",
		"HR_COCKPIT_PASSWORD":       "hr-pass",
		"PROFILING_VALUES_USER":     "pv-user",
		"PROFILING_VALUES_PASSWORD": "pv-pass",
	}
}

// harness wires a Runner to in-memory collaborators.
type harness struct {
	variant  variants.Variant
	page     *fakePage
	blobs    *memoryBlobs
	results  *memoryResults
	progress *recordingProgress
	creds    mapCredentials
	settings Settings
}

// newHarness prepares a site where login, navigation, the listing and the row for code
// all appear. Tests add the variant-specific targets on top.
func newHarness(t *testing.T, codeType types.CodeType, code string) *harness {
	t.Helper()
	v, err := variants.Lookup(codeType)
	require.NoError(t, err)

	page := newFakePage()
	page.show(v.Login.User, v.Login.LoggedIn, v.Selectors.Listing, rowXPath(code))
	for _, label := range v.NavLabels {
		page.show(linkXPath(label))
	}
	if v.Selectors.SearchFilter != "" {
		page.show(v.Selectors.SearchFilter)
	}

	return &harness{
		variant:  v,
		page:     page,
		blobs:    newMemoryBlobs(),
		results:  &memoryResults{},
		progress: &recordingProgress{},
		creds:    allCredentials(),
		settings: testSettings(),
	}
}

func (h *harness) runner() *Runner {
	return NewRunner(Dependencies{
		Page:        h.page,
		Blobs:       h.blobs,
		Results:     h.results,
		Credentials: h.creds,
		Progress:    h.progress,
		Settings:    h.settings,
		Logger:      discardLogger(),
	})
}

func reportNames(rec *types.ResultRecord) []string {
	names := make([]string, 0, len(rec.Reports))
	for _, r := range rec.Reports {
		names = append(names, r.Name)
	}
	return names
}
