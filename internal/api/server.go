package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"investlab/internal/compound"
	"investlab/internal/config"
	"investlab/internal/invest"
	"investlab/internal/ledger"
	"investlab/internal/market"
	"investlab/internal/wallet"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

var ErrDuplicateIdempotency = errors.New("duplicate idempotency key")

const (
	defaultWindow = 30

	// maxIdempotencyKeys bounds how many successful order keys are
	// remembered; the oldest are forgotten first.
	maxIdempotencyKeys = 10_000
)

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	system *invest.System
	cash   *wallet.Account
	keys   *idempotencyKeys
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, system *invest.System, cash *wallet.Account) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		system: system,
		cash:   cash,
		keys:   newIdempotencyKeys(maxIdempotencyKeys),
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/instruments", s.handleInstrumentsList)
		r.Get("/instruments/{symbol}", s.handleInstrumentDetail)
		r.Post("/orders", s.handleOrder)
		r.Get("/transactions", s.handleTransactions)
		r.Post("/tick", s.handleTick)
		r.Post("/reset", s.handleReset)
		r.Get("/compound", s.handleCompound)
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Dashboard())
}

func (s *Server) handleInstrumentsList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"instruments": s.system.Quotes()})
}

func (s *Server) handleInstrumentDetail(w http.ResponseWriter, r *http.Request) {
	window := defaultWindow
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "window must be a non-negative integer")
			return
		}
		window = n
	}
	out, err := s.system.Instrument(chi.URLParam(r, "symbol"), window)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Symbol string `json:"symbol"`
		Side   string `json:"side"`
		Shares int64  `json:"shares"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Orders without a client key are never deduplicated and leave nothing behind.
	key, keyed := idempotencyKey(r)
	if keyed && !s.keys.claim(key) {
		writeDomainError(w, fmt.Errorf("%w: %s", ErrDuplicateIdempotency, key))
		return
	}
	release := func() {
		if keyed {
			s.keys.release(key)
		}
	}

	var (
		result invest.TradeResult
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(in.Side)) {
	case "buy":
		result, err = s.system.Buy(in.Symbol, in.Shares)
	case "sell":
		result, err = s.system.Sell(in.Symbol, in.Shares)
	case "sell_all":
		result, err = s.system.SellAll(in.Symbol)
	default:
		release()
		writeError(w, http.StatusBadRequest, "side must be buy, sell or sell_all")
		return
	}
	if err != nil {
		// Failed orders leave no trace, so the key may be retried.
		release()
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransactions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"transactions": s.system.Transactions()})
}

func (s *Server) handleTick(w http.ResponseWriter, _ *http.Request) {
	tick := s.system.Tick()
	writeJSON(w, http.StatusOK, map[string]any{"tick": tick})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.system.Reset()
	if s.cash != nil {
		s.cash.Set(decimal.NewFromFloat(s.cfg.StartingCash))
	}
	s.keys.clear()
	writeJSON(w, http.StatusOK, s.system.Dashboard())
}

type compoundQuote struct {
	Principal        float64  `json:"principal"`
	Rate             float64  `json:"rate"`
	CompoundsPerYear int      `json:"compounds_per_year"`
	Years            float64  `json:"years"`
	FutureValue      float64  `json:"future_value"`
	SimpleValue      float64  `json:"simple_value"`
	InterestEarned   float64  `json:"interest_earned"`
	Advantage        float64  `json:"compounding_advantage"`
	YearsToDouble    *float64 `json:"years_to_double"`
}

func (s *Server) handleCompound(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	principal, err := queryFloat(q.Get("principal"), 0)
	if err != nil || principal < 0 {
		writeError(w, http.StatusBadRequest, "principal must be a non-negative number")
		return
	}
	rate, err := queryFloat(q.Get("rate"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rate must be a number")
		return
	}
	years, err := queryFloat(q.Get("years"), 1)
	if err != nil || years < 0 {
		writeError(w, http.StatusBadRequest, "years must be a non-negative number")
		return
	}
	periods := 1
	if raw := strings.TrimSpace(q.Get("periods")); raw != "" {
		periods, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "periods must be an integer")
			return
		}
	}

	out := compoundQuote{
		Principal:        principal,
		Rate:             rate,
		CompoundsPerYear: periods,
		Years:            years,
		FutureValue:      compound.FutureValue(principal, rate, periods, years),
		SimpleValue:      compound.SimpleValue(principal, rate, years),
		InterestEarned:   compound.TotalInterestEarned(principal, rate, periods, years),
		Advantage:        compound.CompoundingAdvantage(principal, rate, periods, years),
	}
	// JSON has no infinity; a rate that never doubles is reported as null.
	if v := compound.YearsToDouble(rate); !math.IsInf(v, 0) {
		out.YearsToDouble = &v
	}
	writeJSON(w, http.StatusOK, out)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateIdempotency):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, invest.ErrInsufficientFunds), errors.Is(err, ledger.ErrInsufficientShares):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInvalidQuantity), errors.Is(err, ledger.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, market.ErrInvalidSymbol):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, market.ErrUnknownInstrument), errors.Is(err, ledger.ErrNoPosition):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) (string, bool) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	return key, key != ""
}

func queryFloat(raw string, fallback float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %s", raw)
	}
	return v, nil
}

// idempotencyKeys remembers up to limit order keys that produced a trade,
// forgetting the oldest claim first.
type idempotencyKeys struct {
	mu    sync.Mutex
	limit int
	next  uint64
	seen  map[string]uint64
	order []claimedKey
}

// claimedKey ties an order entry to the claim that created it, so a released
// and reclaimed key is not evicted by its stale entry.
type claimedKey struct {
	key string
	gen uint64
}

func newIdempotencyKeys(limit int) *idempotencyKeys {
	if limit < 1 {
		limit = 1
	}
	return &idempotencyKeys{limit: limit, seen: make(map[string]uint64)}
}

func (k *idempotencyKeys) claim(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.seen[key]; ok {
		return false
	}
	k.next++
	k.seen[key] = k.next
	k.order = append(k.order, claimedKey{key: key, gen: k.next})
	for len(k.seen) > k.limit {
		k.evictOldestLocked()
	}
	if len(k.order) > 2*k.limit {
		k.compactLocked()
	}
	return true
}

func (k *idempotencyKeys) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.seen, key)
}

func (k *idempotencyKeys) clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.seen = make(map[string]uint64)
	k.order = nil
}

func (k *idempotencyKeys) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.seen)
}

func (k *idempotencyKeys) evictOldestLocked() {
	for len(k.order) > 0 {
		head := k.order[0]
		k.order = k.order[1:]
		if gen, ok := k.seen[head.key]; ok && gen == head.gen {
			delete(k.seen, head.key)
			return
		}
	}
}

// compactLocked drops order entries left behind by released keys.
func (k *idempotencyKeys) compactLocked() {
	live := make([]claimedKey, 0, len(k.seen))
	for _, c := range k.order {
		if gen, ok := k.seen[c.key]; ok && gen == c.gen {
			live = append(live, c)
		}
	}
	k.order = live
}
