package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"optexec/internal/marketdata"
	"optexec/internal/middleware"
)

// OrderBookRequest is the displayed depth on each side of the book
type OrderBookRequest struct {
	BidVolume float64 `json:"bid_volume" validate:"gte=0"`
	AskVolume float64 `json:"ask_volume" validate:"gte=0"`
}

// LiquidityRequest is the body of POST /api/market/liquidity. Missing trades or
// a missing book are sampled from the market feed.
type LiquidityRequest struct {
	Trades    []float64         `json:"trades,omitempty" validate:"omitempty,max=100000,dive,gte=0"`
	OrderBook *OrderBookRequest `json:"order_book,omitempty"`
}

// MarketHandler serves market data and hidden liquidity
type MarketHandler struct {
	executions ExecutionService
	liquidity  LiquidityService
	validator  *middleware.Validator
	errors     ErrorResponder
	logger     *slog.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(executions ExecutionService, liquidity LiquidityService, validator *middleware.Validator, errors ErrorResponder, logger *slog.Logger) *MarketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketHandler{
		executions: executions,
		liquidity:  liquidity,
		validator:  validator,
		errors:     errors,
		logger:     logger.With(slog.String("handler", "market")),
	}
}

// Routes returns the market routes, mounted under /api/market
func (h *MarketHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/conditions", h.Conditions)
	r.Post("/liquidity", h.Liquidity)
	return r
}

// Conditions handles GET /api/market/conditions
func (h *MarketHandler) Conditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := h.executions.MarketConditions(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, conditions)
}

// Liquidity handles POST /api/market/liquidity. An empty body samples both inputs.
func (h *MarketHandler) Liquidity(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if r.ContentLength != 0 {
		if err := h.validator.Decode(r, &req); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
	}

	var book *marketdata.OrderBook
	if req.OrderBook != nil {
		book = &marketdata.OrderBook{BidVolume: req.OrderBook.BidVolume, AskVolume: req.OrderBook.AskVolume}
	}

	out, err := h.liquidity.Estimate(r.Context(), req.Trades, book)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "liquidity estimated",
		slog.Int("trades", out.TradeCount),
		slog.Bool("book_supplied", book != nil))

	render.JSON(w, r, out)
}
