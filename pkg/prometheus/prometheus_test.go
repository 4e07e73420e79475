package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	handler, err := NewHandler()
	require.NoError(t, err)

	common.PromCounters[common.SpinTotal].WithLabelValues("standard", "entry").Inc()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `lottery_spins_total{outcome="entry",tier="standard"}`)
	require.Contains(t, string(body), "go_goroutines")
}

func TestRegister_Twice(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, Register(registry))
	require.Error(t, Register(registry))
}
