// Copyright 2026 Palantir Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
	"goji.io"
	"goji.io/pat"

	"github.com/palantir/go-metrics-datadog/appmetrics"
	"github.com/palantir/go-metrics-datadog/datadog"
	"github.com/palantir/go-metrics-datadog/hostmetrics"
	"github.com/palantir/go-metrics-datadog/logging"
)

type MessageHandler struct {
	Message string
}

func (h *MessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	// Logging example
	logger.Info().Str("user-agent", r.Header.Get("User-Agent")).Msg("Received request")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = jsoniter.NewEncoder(w).Encode(map[string]string{
		"message": h.Message,
	})
}

// type assertion
var _ http.Handler = &MessageHandler{}

type ServerMetrics struct {
	Requests appmetrics.Tagged[metrics.Timer] `metric:"example.requests"`
}

// timed records the duration of each request in a timer tagged with the route
func timed(m *ServerMetrics, route string, h http.Handler) http.Handler {
	timer := m.Requests.Tag("route:" + route)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer timer.UpdateSince(time.Now())
		h.ServeHTTP(w, r)
	})
}

func withLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	}
}

func main() {
	// Load your configuration from a file
	config, err := ReadConfig("example/config.yml")
	if err != nil {
		panic(err)
	}
	config.Datadog.SetValuesFromEnv("EXAMPLE_")

	// Configure a root logger for everything to use
	logger, err := logging.ConfigureDefaultLogger(config.Logging)
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	registry := metrics.NewRegistry()

	serverMetrics := appmetrics.New[ServerMetrics]()
	if err := appmetrics.Register(registry, serverMetrics); err != nil {
		panic(err)
	}

	// Collect host CPU and memory usage alongside the server metrics
	host, err := hostmetrics.Register(registry, hostmetrics.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	go host.Start(ctx, config.Datadog.Interval)

	// Start a goroutine to report metrics to Datadog
	if _, err := datadog.StartReporter(ctx, registry, config.Datadog, datadog.WithLogger(logger)); err != nil {
		panic(err)
	}

	// Register your routes
	mux := goji.NewMux()
	mux.Use(withLogger(logger))
	mux.Handle(pat.Get("/api/message"), timed(serverMetrics, "message", &MessageHandler{Message: config.App.Message}))

	server := &http.Server{
		Addr:    config.Server.Address,
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	logger.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Server stopped")
	}
}
