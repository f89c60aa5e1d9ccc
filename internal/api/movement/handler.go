package movement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
	"semestock/internal/pkg/middleware"
)

// MovementService define o contrato que o Handler espera do livro de
// movimentações.
type MovementService interface {
	Record(ctx context.Context, m domain.Movement) (domain.Movement, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Movement, error)
	ListByLocation(ctx context.Context, locationID string) ([]domain.Movement, error)
}

// Handler agrupa os métodos de Handler do livro de movimentações.
type Handler struct {
	Service MovementService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc MovementService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// recordRequest é o payload de um ajuste manual no livro.
type recordRequest struct {
	ProductID    string  `json:"product_id"`
	ToLocationID *string `json:"to_location_id,omitempty"`
	Quantity     int     `json:"quantity"`
	WeightKg     float64 `json:"weight_kg"`
	Reason       string  `json:"reason"`
	Notes        string  `json:"notes,omitempty"`
}

// RecordMovementHandler lida com a requisição POST /v1/movements.
// Entradas avulsas são sempre do tipo AJUSTE: os demais tipos só nascem
// das operações compostas de produto e retirada.
// @Summary Registra um ajuste manual no livro de movimentações
// @Tags movements
// @Accept json
// @Produce json
// @Param movement body recordRequest true "Dados do ajuste"
// @Success 201 {object} domain.Movement "Ajuste registrado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Produto não encontrado"
// @Security ApiKeyAuth
// @Router /movements [post]
func (h *Handler) RecordMovementHandler(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(r.Context())
	created, err := h.Service.Record(r.Context(), domain.Movement{
		ProductID:    req.ProductID,
		Type:         domain.MovementAjuste,
		ToLocationID: req.ToLocationID,
		Quantity:     req.Quantity,
		WeightKg:     req.WeightKg,
		UserID:       claims.UserID,
		Reason:       req.Reason,
		Notes:        req.Notes,
	})
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, created, nil, http.StatusCreated)
}

// ListByProductHandler lida com a requisição GET /v1/products/{id}/movements.
// @Summary Histórico ordenado de movimentações de um lote
// @Tags movements
// @Produce json
// @Param id path string true "ID do lote"
// @Success 200 {array} domain.Movement "Histórico do lote"
// @Router /products/{id}/movements [get]
func (h *Handler) ListByProductHandler(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Service.ListByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, movements, nil, http.StatusOK)
}

// ListByLocationHandler lida com a requisição GET /v1/locations/{id}/movements.
// @Summary Histórico ordenado dos eventos que tocaram uma localização
// @Tags movements
// @Produce json
// @Param id path string true "ID da localização"
// @Success 200 {array} domain.Movement "Histórico da localização"
// @Router /locations/{id}/movements [get]
func (h *Handler) ListByLocationHandler(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Service.ListByLocation(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, movements, nil, http.StatusOK)
}
