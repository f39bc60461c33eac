// Package httpserver is the order gateway: a thin JSON boundary that
// validates requests, assigns order IDs, and forwards events to the
// matching fabric. It holds no matching state of its own.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"fenrir/domain/orderbook"
	"fenrir/engine"
)

type Server struct {
	fabric *engine.Fabric
	router *mux.Router
	hub    *Hub
	http   *http.Server
	log    *zap.Logger

	// nextID assigns gateway-side order IDs when the client sends none.
	// The high bit keeps them out of the client ID space.
	nextID atomic.Uint64
}

func NewServer(fabric *engine.Fabric, log *zap.Logger) *Server {
	s := &Server{
		fabric: fabric,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.nextID.Store(1 << 63)
	s.setupRoutes()
	return s
}

// Hub exposes the WebSocket hub so the publisher can sink into it.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	s.router.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      c.Handler(s.router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("gateway listening", zap.String("addr", addr))
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ev := engine.Event{
		Symbol:  req.Symbol,
		OrderID: req.OrderID,
		Owner:   req.Owner,
		Price:   req.Price,
		Qty:     req.Qty,
	}
	switch req.Side {
	case "buy":
		ev.Side = orderbook.Bid
	case "sell":
		ev.Side = orderbook.Ask
	default:
		respondError(w, http.StatusBadRequest, "invalid side", "want buy or sell")
		return
	}
	switch req.Type {
	case "limit", "":
		ev.Kind = engine.KindNewLimit
	case "market":
		ev.Kind = engine.KindNewMarket
		ev.Price = 0
	default:
		respondError(w, http.StatusBadRequest, "invalid type", "want limit or market")
		return
	}
	if ev.OrderID == 0 {
		ev.OrderID = s.nextID.Add(1)
	}

	if err := s.fabric.Submit(ev); err != nil {
		s.respondSubmitError(w, err)
		return
	}
	respondJSON(w, SubmitOrderResponse{Status: "accepted", OrderID: ev.OrderID})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.OrderID == 0 {
		respondError(w, http.StatusBadRequest, "missing orderId", "")
		return
	}

	ev := engine.Event{
		Symbol:  req.Symbol,
		OrderID: req.OrderID,
		Kind:    engine.KindCancel,
	}
	if err := s.fabric.Submit(ev); err != nil {
		s.respondSubmitError(w, err)
		return
	}
	respondJSON(w, map[string]any{"status": "accepted", "orderId": req.OrderID})
}

func (s *Server) respondSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownInstrument):
		respondError(w, http.StatusNotFound, "unknown instrument", err.Error())
	case errors.Is(err, engine.ErrInvalidOrder):
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
	case errors.Is(err, engine.ErrQueueFull), errors.Is(err, engine.ErrHalted):
		// Backpressure and halted shards both read as "try elsewhere".
		respondError(w, http.StatusServiceUnavailable, "shard unavailable", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "submit failed", err.Error())
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.fabric.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, st := range s.fabric.Stats() {
		if st.Halted {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"status": "degraded", "haltedShard": st.Shard})
			return
		}
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
