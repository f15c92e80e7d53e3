package shelves

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/shelfboard/internal/platform/httpx"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

// Handler exposes shelf, slot and edit session endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *Sessions
	validator *httpx.Validator
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *Sessions) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, sessions: sessions, validator: httpx.NewValidator()}
}

// MountRoutes registers the shelf routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/shelves", h.list)
	r.Post("/shelves", h.create)
	r.Get("/shelves/{code}", h.show)
	r.Put("/shelves/{code}", h.update)
	r.Delete("/shelves/{code}", h.remove)
	r.Get("/shelves/{code}/layout", h.layout)
	r.Post("/shelves/{code}/slots", h.assign)
	r.Delete("/shelves/{code}/slots/{product}", h.unassign)
	r.Post("/shelves/{code}/sessions", h.openSession)

	r.Get("/sessions/{id}", h.showSession)
	r.Post("/sessions/{id}/moves", h.move)
	r.Post("/sessions/{id}/save", h.saveSession)
	r.Delete("/sessions/{id}", h.cancelSession)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	items, pagination, err := h.service.ListShelves(r.Context(), ListFilter{
		Search:  q.Get("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Pagination: pagination})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createShelfRequest
	if !h.decode(w, r, &req) {
		return
	}
	shelf, err := h.service.CreateShelf(r.Context(), Shelf{
		Code:     req.Code,
		Name:     req.Name,
		Location: req.Location,
		Rows:     req.Rows,
	}, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shelf)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	shelf, err := h.service.GetShelf(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shelf)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateShelfRequest
	if !h.decode(w, r, &req) {
		return
	}
	shelf, err := h.service.UpdateShelf(r.Context(), Shelf{
		Code:     chi.URLParam(r, "code"),
		Name:     req.Name,
		Location: req.Location,
		Rows:     req.Rows,
	}, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shelf)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteShelf(r.Context(), chi.URLParam(r, "code"), shared.ActorFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) layout(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetLayout(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !h.decode(w, r, &req) {
		return
	}
	slot, err := h.service.AssignProduct(r.Context(), AssignInput{
		ShelfCode:   chi.URLParam(r, "code"),
		ProductCode: req.ProductCode,
		RowNumber:   req.RowNumber,
		Actor:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, slot)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveProduct(r.Context(), chi.URLParam(r, "code"), chi.URLParam(r, "product"), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.OpenSession(r.Context(), chi.URLParam(r, "code"), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) showSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.sessions.Move(r.Context(), chi.URLParam(r, "id"), req.resolver())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.SaveSession(r.Context(), chi.URLParam(r, "id"), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) cancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	original, err := h.sessions.CancelSession(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cancelResponse{SessionID: id, Original: original})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("shelves request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}
