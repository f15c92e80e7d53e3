package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/shelfboard/internal/platform/httpx"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

// Handler exposes report and movement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	formatter *Formatter
	validator *httpx.Validator
	now       func() time.Time
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, formatter *Formatter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if formatter == nil {
		formatter = NewFormatter("en")
	}
	return &Handler{logger: logger, service: service, formatter: formatter, validator: httpx.NewValidator(), now: time.Now}
}

// MountRoutes registers report routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/shelves/{code}/report", h.summary)
	r.Get("/shelves/{code}/report.csv", h.summaryCSV)
	r.Post("/shelves/{code}/movements", h.recordMovement)
}

type displayRow struct {
	RowNumber int           `json:"row_number"`
	Totals    DisplayTotals `json:"totals"`
}

type summaryResponse struct {
	Summary
	Display struct {
		Rows   []displayRow  `json:"rows"`
		Totals DisplayTotals `json:"totals"`
	} `json:"display"`
}

type movementRequest struct {
	ProductCode string          `json:"product_code" validate:"required,max=64"`
	Kind        string          `json:"kind" validate:"required,oneof=SALE WITHDRAW RESTOCK"`
	Qty         int64           `json:"qty" validate:"gte=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	OccurredAt  *time.Time      `json:"occurred_at"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	period, err := h.parsePeriod(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.ShelfSummary(r.Context(), chi.URLParam(r, "code"), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := summaryResponse{Summary: summary}
	resp.Display.Rows = make([]displayRow, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		resp.Display.Rows = append(resp.Display.Rows, displayRow{RowNumber: row.RowNumber, Totals: h.formatter.Totals(row.Totals)})
	}
	resp.Display.Totals = h.formatter.Totals(summary.Totals)
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) summaryCSV(w http.ResponseWriter, r *http.Request) {
	period, err := h.parsePeriod(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.ShelfSummary(r.Context(), chi.URLParam(r, "code"), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filename := fmt.Sprintf("shelf_%s_%s.csv", summary.ShelfCode, period.From.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := WriteSummaryCSV(w, summary); err != nil {
		h.logger.Error("report csv export", slog.String("shelf", summary.ShelfCode), slog.Any("error", err))
	}
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := MovementInput{
		ShelfCode:   chi.URLParam(r, "code"),
		ProductCode: req.ProductCode,
		Kind:        MovementKind(req.Kind),
		Qty:         req.Qty,
		UnitPrice:   req.UnitPrice,
		UnitCost:    req.UnitCost,
		Actor:       shared.ActorFromContext(r.Context()),
	}
	if req.OccurredAt != nil {
		input.OccurredAt = *req.OccurredAt
	}
	m, err := h.service.RecordMovement(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

// parsePeriod reads ?from=YYYY-MM-DD&to=YYYY-MM-DD; to is inclusive. Missing
// bounds default to month to date.
func (h *Handler) parsePeriod(r *http.Request) (Period, error) {
	period := MonthToDate(h.now())
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return Period{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidPeriod)
		}
		period.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return Period{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidPeriod)
		}
		period.To = to.AddDate(0, 0, 1)
	}
	if !period.To.After(period.From) {
		return Period{}, ErrInvalidPeriod
	}
	return period, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("reports request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}
