// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

func TestRecorders(t *testing.T) {
	m := New()
	m.RecordPages("arxiv.org", 3)
	m.RecordPages("arxiv.org", 0)
	m.RecordDownload("arxiv.org", types.OutcomeSucceeded)
	m.RecordDownload("arxiv.org", types.OutcomeSucceeded)
	m.RecordDownload("arxiv.org", types.OutcomeBlocked)
	m.RecordSkip("nih.gov", types.SkipMirrorFailed)
	m.RecordKeyword("nih.gov", "completed")
	m.RecordPrune(4)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PagesFetched.WithLabelValues("arxiv.org")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Downloads.WithLabelValues("arxiv.org", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downloads.WithLabelValues("arxiv.org", "blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped.WithLabelValues("nih.gov", "mirror-failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Keywords.WithLabelValues("nih.gov", "completed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.PruneDeleted))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordPages("s", 1)
	m.RecordDownload("s", types.OutcomeFailed)
	m.RecordKeyword("s", "failed")
	assert.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordDownload("biorxiv.org", types.OutcomeSkippedDuplicate)
	path := filepath.Join(t.TempDir(), "harvest.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `harvest_downloads_total{outcome="skipped-duplicate",site="biorxiv.org"} 1`)
}
