package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/waiter/internal/admission"
	"github.com/vladislavdragonenkov/waiter/internal/domain"
	"github.com/vladislavdragonenkov/waiter/internal/service/order"
)

// OrderHandler обслуживает HTTP-операции над заказами.
type OrderHandler struct {
	svc    *order.Service
	logger *log.Entry
}

// NewOrderHandler конструирует обработчик заказов.
func NewOrderHandler(svc *order.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.New().WithField("component", "rest")
	}
	return &OrderHandler{
		svc:    svc,
		logger: logger,
	}
}

// NewRouter собирает маршруты REST API.
func NewRouter(svc *order.Service, logger *log.Entry) *mux.Router {
	handler := NewOrderHandler(svc, logger)

	router := mux.NewRouter()
	router.HandleFunc("/order", handler.CreateOrder).Methods(http.MethodPost)
	router.HandleFunc("/order/{id}", handler.GetOrder).Methods(http.MethodGet)
	router.HandleFunc("/order/{id}/state", handler.UpdateState).Methods(http.MethodPut)
	return router
}

// orderItemRequest — позиция заказа во входящем запросе.
type orderItemRequest struct {
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
}

// createOrderRequest — тело запроса на создание заказа.
type createOrderRequest struct {
	Customer string             `json:"customer"`
	Items    []orderItemRequest `json:"items"`
}

// updateStateRequest — тело запроса на смену состояния.
type updateStateRequest struct {
	State string `json:"state"`
}

// orderItemResponse — позиция заказа в ответе.
type orderItemResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
}

// orderResponse — представление заказа в ответах API.
type orderResponse struct {
	ID         string              `json:"id"`
	Customer   string              `json:"customer"`
	State      string              `json:"state"`
	Currency   string              `json:"currency"`
	TotalMinor int64               `json:"total_minor"`
	Waiter     string              `json:"waiter"`
	Items      []orderItemResponse `json:"items"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:         item.ID,
			Name:       item.Name,
			PriceMinor: item.PriceMinor,
		})
	}
	return orderResponse{
		ID:         o.ID,
		Customer:   o.Customer,
		State:      o.State.String(),
		Currency:   o.Currency,
		TotalMinor: o.TotalMinor,
		Waiter:     o.Waiter,
		Items:      items,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

// CreateOrder обрабатывает POST /order.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			Name:       item.Name,
			PriceMinor: item.PriceMinor,
		})
	}

	created, err := h.svc.CreateOrder(r.Context(), req.Customer, items)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

// GetOrder обрабатывает GET /order/{id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	found, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(found))
}

// UpdateState обрабатывает PUT /order/{id}/state.
func (h *OrderHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	state, err := domain.ParseOrderState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid state", err.Error())
		return
	}

	current, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	updated, err := h.svc.UpdateState(r.Context(), &current, state)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !updated {
		writeError(w, http.StatusConflict, "invalid state transition",
			"requested state must be later than the current one")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(current))
}

// writeDomainError транслирует доменные ошибки в HTTP-статусы.
// Отказ admission control отличим от бизнес-ошибок: это 429, а не 4xx валидации.
func (h *OrderHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admission.ErrRejected):
		writeError(w, http.StatusTooManyRequests, "too many requests", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found", err.Error())
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
	default:
		h.logger.WithError(err).Error("internal error while handling order request")
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}
