package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/", "200"))
	RecordHTTPRequest("GET", "/", 200, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/", "200")))

	before = testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordHTTPRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecordUpstreamRequest(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("search", "error"))
	RecordUpstreamRequest("search", 0, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("search", "error")))

	before = testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("details", "401"))
	RecordUpstreamRequest("details", 401, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("details", "401")))
}

func TestRecordRanking(t *testing.T) {
	RecordRanking(3, nil)
	assert.Equal(t, float64(3), testutil.ToFloat64(RankedMovies))

	before := testutil.ToFloat64(RankingRecomputations.WithLabelValues("error"))
	RecordRanking(0, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(RankingRecomputations.WithLabelValues("error")))
	assert.Equal(t, float64(3), testutil.ToFloat64(RankedMovies))
}
