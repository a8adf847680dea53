package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePass(t *testing.T) {
	before := testutil.ToFloat64(PassTotal.WithLabelValues("unit", "error"))
	ObservePass("unit", time.Now(), errors.New("boom"))
	ObservePass("unit", time.Now(), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(PassTotal.WithLabelValues("unit", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(PassTotal.WithLabelValues("unit", "success")))
}
