// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// newRegistry creates a registry with the Go runtime and process collectors
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// linkMetrics counts what crosses the link
type linkMetrics struct {
	Frames       *prometheus.CounterVec // labels: result=valid|checksum|framing
	Commands     *prometheus.CounterVec // labels: cmd
	Events       *prometheus.CounterVec // labels: kind
	SkippedBytes prometheus.Counter
	LastFrame    prometheus.Gauge
}

func newLinkMetrics(reg prometheus.Registerer) *linkMetrics {
	m := &linkMetrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dfplayer_frames_total",
			Help: "Frames decoded from the module, by result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dfplayer_commands_total",
			Help: "Valid frames received, by command.",
		}, []string{"cmd"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dfplayer_events_total",
			Help: "Unsolicited module events, by kind.",
		}, []string{"kind"}),
		SkippedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dfplayer_skipped_bytes_total",
			Help: "Bytes discarded while resynchronizing.",
		}),
		LastFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dfplayer_last_frame_timestamp_seconds",
			Help: "Unix time of the last valid frame.",
		}),
	}
	reg.MustRegister(m.Frames, m.Commands, m.Events, m.SkippedBytes, m.LastFrame)
	return m
}

// observe records one decoder result
func (m *linkMetrics) observe(frame *dfplayer.Frame, err error, at time.Time) {
	switch {
	case err != nil && errors.Is(err, dfplayer.ErrChecksum):
		m.Frames.WithLabelValues("checksum").Inc()
	case err != nil:
		m.Frames.WithLabelValues("framing").Inc()
	case frame != nil:
		m.Frames.WithLabelValues("valid").Inc()
		m.Commands.WithLabelValues(dfplayer.FormatCommand(frame.Command)).Inc()
		m.LastFrame.Set(float64(at.UnixNano()) / 1e9)
		if e := dfplayer.ClassifyFrame(*frame); e.Kind != dfplayer.EventUnknown && e.Kind != dfplayer.EventStrayReply {
			m.Events.WithLabelValues(e.Kind.String()).Inc()
		}
	}
}

// serveMetrics exposes reg on addr until ctx is done
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
}
