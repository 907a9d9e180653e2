// Package api serves read-only pair listings and swap quotes over HTTP,
// as REST-style routes and as a JSON-RPC 2.0 service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/config"
	"github.com/kaym0/UniswapV2-Rework/internal/engine"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// Reader is the engine surface the API reads. *engine.Engine satisfies it.
type Reader interface {
	Addresses() engine.Addresses
	Tokens() []model.TokenMeta
	Pairs() []model.Pair
	Pair(tokenA, tokenB common.Address) (model.Pair, bool)
	GetAmountsOut(amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error)
	GetAmountsIn(amountOut *uint256.Int, path []common.Address) ([]*uint256.Int, error)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type quoteBody struct {
	Path    []string `json:"path"`
	Amounts []string `json:"amounts"`
}

type handler struct {
	reader Reader
	logger *zap.Logger
}

// NewHandler builds the API router. Metrics are served from gatherer at
// /metrics when it is non-nil.
func NewHandler(reader Reader, gatherer prometheus.Gatherer, logger *zap.Logger) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{reader: reader, logger: logger}

	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json")
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")
	if err := rpcServer.RegisterService(&Service{reader: reader}, "toknswap"); err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc("/addresses", h.addresses).Methods(http.MethodGet)
	r.HandleFunc("/tokens", h.tokens).Methods(http.MethodGet)
	r.HandleFunc("/pairs", h.pairs).Methods(http.MethodGet)
	r.HandleFunc("/pairs/{tokenA}/{tokenB}", h.pair).Methods(http.MethodGet)
	r.HandleFunc("/quote/out", h.quoteOut).Methods(http.MethodGet)
	r.HandleFunc("/quote/in", h.quoteIn).Methods(http.MethodGet)
	r.Handle("/rpc", rpcServer).Methods(http.MethodPost)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r, nil
}

// Serve runs the API on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("api request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) addresses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.Addresses())
}

func (h *handler) tokens(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.Tokens())
}

func (h *handler) pairs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.Pairs())
}

func (h *handler) pair(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenA, err := config.ParseAddress(vars["tokenA"])
	if err != nil {
		writeError(w, errors.Join(amm.ErrValidation, err))
		return
	}
	tokenB, err := config.ParseAddress(vars["tokenB"])
	if err != nil {
		writeError(w, errors.Join(amm.ErrValidation, err))
		return
	}
	pair, ok := h.reader.Pair(tokenA, tokenB)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "pair not found", Kind: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *handler) quoteOut(w http.ResponseWriter, r *http.Request) {
	h.quote(w, r, h.reader.GetAmountsOut)
}

func (h *handler) quoteIn(w http.ResponseWriter, r *http.Request) {
	h.quote(w, r, h.reader.GetAmountsIn)
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request, fn func(*uint256.Int, []common.Address) ([]*uint256.Int, error)) {
	q := r.URL.Query()
	amount, err := config.ParseAmount(q.Get("amount"))
	if err != nil {
		writeError(w, errors.Join(amm.ErrValidation, err))
		return
	}
	path, err := config.ParsePath(q.Get("path"))
	if err != nil {
		writeError(w, errors.Join(amm.ErrValidation, err))
		return
	}
	amounts, err := fn(amount, path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteBody{Path: hexPath(path), Amounts: decimals(amounts)})
}

func statusFor(err error) int {
	switch amm.Kind(err) {
	case "validation", "overflow":
		return http.StatusBadRequest
	case "insufficient_liquidity":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error(), Kind: amm.Kind(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func hexPath(path []common.Address) []string {
	out := make([]string, len(path))
	for i, addr := range path {
		out[i] = addr.Hex()
	}
	return out
}

func decimals(amounts []*uint256.Int) []string {
	out := make([]string, len(amounts))
	for i, v := range amounts {
		out[i] = v.Dec()
	}
	return out
}
