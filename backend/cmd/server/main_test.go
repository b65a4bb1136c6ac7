package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontology-store/backend/internal/metrics"
	"ontology-store/backend/pkg/config"
)

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	storeMetrics, err := metrics.NewStoreMetrics(reg)
	require.NoError(t, err)
	storeMetrics.Observe("create", metrics.OutcomeSuccess, time.Now())

	srv := httptest.NewServer(newMetricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ontology_store_operations_total{operation="create",outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewDriver(t *testing.T) {
	cfg := &config.Config{
		Neo4jURI:            "bolt://localhost:7687",
		Neo4jUser:           "neo4j",
		Neo4jPassword:       "password",
		Neo4jMaxPoolSize:    10,
		Neo4jConnectTimeout: time.Second,
	}

	// creating a driver does not dial
	driver, err := newDriver(cfg)
	require.NoError(t, err)
	assert.NotNil(t, driver)
	defer driver.Close(context.Background())

	cfg.Neo4jURI = "not a uri"
	_, err = newDriver(cfg)
	assert.Error(t, err)
}
