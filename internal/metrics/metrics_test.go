package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveModel(t *testing.T) {
	ObserveModel("gemini", "test-model", 300*time.Millisecond, nil)
	ObserveModel("gemini", "test-model", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(ModelRequests.WithLabelValues("gemini", "test-model", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ModelRequests.WithLabelValues("gemini", "test-model", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(ModelLatency))
}
