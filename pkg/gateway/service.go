// Package gateway supervises the channel adapters and exposes the status
// HTTP surface.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/losparviero/telesh/pkg/bus"
	"github.com/losparviero/telesh/pkg/channel"
	"github.com/losparviero/telesh/pkg/config"
)

const defaultStatusHost = "0.0.0.0"

const eventBufferSize = 64

// Service runs the channel adapters against the relay handler and serves
// healthz/readyz with relay throughput counters.
type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	events   *bus.EventBus
	handler  channel.Handler
	channels []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	channelStates map[string]channelState
	counters      map[bus.EventType]uint64
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type relayCounters struct {
	Received  uint64 `json:"received"`
	Delivered uint64 `json:"delivered"`
	Rejected  uint64 `json:"rejected"`
	Failed    uint64 `json:"failed"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Channels      map[string]channelState `json:"channels"`
	Relay         relayCounters           `json:"relay"`
}

func NewService(cfg *config.Config, adapters []channel.Adapter, handler channel.Handler, events *bus.EventBus, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if events == nil {
		return nil, errors.New("event bus is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		events:        events,
		handler:       handler,
		channels:      adapters,
		channelStates: channelStates,
		counters:      make(map[bus.EventType]uint64),
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	serverErrors := make(chan error, 1)
	go s.runStatusServer(ctx, serverErrors)

	// Subscribe before any adapter can publish so no event is missed.
	events, unsubscribe := s.events.Subscribe(ctx, eventBufferSize)
	defer unsubscribe()
	go s.consumeEvents(events)

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.handler)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

// consumeEvents feeds relay lifecycle events into the status counters.
func (s *Service) consumeEvents(events <-chan bus.Event) {
	for event := range events {
		s.recordEvent(event.Type)
	}
}

func (s *Service) recordEvent(eventType bus.EventType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[eventType]++
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultStatusHost
	}

	addr := host + ":" + strconv.Itoa(s.cfg.Gateway.StatusPort())
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Channels:      channels,
		Relay: relayCounters{
			Received:  s.counters[bus.EventRelayReceived],
			Delivered: s.counters[bus.EventRelayDelivered],
			Rejected:  s.counters[bus.EventRelayRejected],
			Failed:    s.counters[bus.EventRelayFailed],
		},
	}
}

// isReady requires at least one channel adapter still polling updates.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
