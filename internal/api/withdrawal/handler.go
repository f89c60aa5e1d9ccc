package withdrawal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
	"semestock/internal/pkg/middleware"
	"semestock/internal/service/withdrawalservice"
)

// WithdrawalService define o contrato que o Handler espera do fluxo de
// retirada em dois atores.
type WithdrawalService interface {
	Request(ctx context.Context, input withdrawalservice.RequestInput) (domain.WithdrawalRequest, error)
	Confirm(ctx context.Context, requestID, confirmedBy, notes string) (domain.WithdrawalRequest, error)
	Cancel(ctx context.Context, requestID, canceledBy, reason string) (domain.WithdrawalRequest, error)
	GetByID(ctx context.Context, id string) (domain.WithdrawalRequest, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.WithdrawalRequest, error)
}

// Handler agrupa os métodos de Handler de solicitações de retirada.
// A separação de atores (quem solicita não resolve a própria solicitação)
// é garantida aqui, na camada de orquestração — o núcleo apenas registra
// as identidades.
type Handler struct {
	Service WithdrawalService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc WithdrawalService, log logger.Logger) *Handler {
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

// checkActorSeparation busca a solicitação e verifica a separação de atores:
// o solicitante não pode confirmar nem cancelar a própria solicitação.
func (h *Handler) checkActorSeparation(r *http.Request, requestID string) error {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		return apperror.NewUnauthorizedError("Autorização necessária. Token não processado.")
	}

	request, err := h.Service.GetByID(r.Context(), requestID)
	if err != nil {
		return err
	}
	if request.RequestedBy == claims.UserID {
		return apperror.NewUnauthorizedError("O solicitante não pode resolver a própria solicitação de retirada.")
	}
	return nil
}

// requestWithdrawalRequest é o payload de abertura de solicitação.
type requestWithdrawalRequest struct {
	ProductID string `json:"product_id"`
	Kind      string `json:"kind"`
	Quantity  int    `json:"quantity,omitempty"`
	Reason    string `json:"reason"`
}

// resolveRequest é o payload de confirmação/cancelamento.
type resolveRequest struct {
	Notes  string `json:"notes,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// RequestWithdrawalHandler lida com a requisição POST /v1/withdrawals.
// @Summary Abre uma solicitação de retirada (TOTAL ou PARCIAL)
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param withdrawal body requestWithdrawalRequest true "Dados da solicitação"
// @Success 201 {object} domain.WithdrawalRequest "Solicitação aberta (PENDENTE)"
// @Failure 409 {object} domain.ErrorResponse "Já existe solicitação pendente"
// @Failure 422 {object} domain.ErrorResponse "Produto não está LOCADO"
// @Security ApiKeyAuth
// @Router /withdrawals [post]
func (h *Handler) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	var req requestWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(r.Context())
	created, err := h.Service.Request(r.Context(), withdrawalservice.RequestInput{
		ProductID:   req.ProductID,
		Kind:        domain.WithdrawalKind(req.Kind),
		Quantity:    req.Quantity,
		RequestedBy: claims.UserID,
		Reason:      req.Reason,
	})
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, created, nil, http.StatusCreated)
}

// ConfirmWithdrawalHandler lida com a requisição POST /v1/withdrawals/{id}/confirm.
// @Summary Confirma uma solicitação de retirada pendente
// @Description O confirmador deve ser um ator distinto do solicitante.
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param id path string true "ID da solicitação"
// @Param resolution body resolveRequest true "Observações da confirmação"
// @Success 200 {object} domain.WithdrawalRequest "Solicitação confirmada"
// @Failure 401 {object} domain.ErrorResponse "Solicitante tentando resolver a própria solicitação"
// @Failure 409 {object} domain.ErrorResponse "Solicitação já resolvida"
// @Security ApiKeyAuth
// @Router /withdrawals/{id}/confirm [post]
func (h *Handler) ConfirmWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	if err := h.checkActorSeparation(r, requestID); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(r.Context())
	resolved, err := h.Service.Confirm(r.Context(), requestID, claims.UserID, req.Notes)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, resolved, nil, http.StatusOK)
}

// CancelWithdrawalHandler lida com a requisição POST /v1/withdrawals/{id}/cancel.
// @Summary Cancela uma solicitação de retirada pendente
// @Description Reverte o produto para LOCADO; a localização permanece alocada.
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param id path string true "ID da solicitação"
// @Param resolution body resolveRequest true "Motivo do cancelamento"
// @Success 200 {object} domain.WithdrawalRequest "Solicitação cancelada"
// @Failure 409 {object} domain.ErrorResponse "Solicitação já resolvida"
// @Security ApiKeyAuth
// @Router /withdrawals/{id}/cancel [post]
func (h *Handler) CancelWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	if err := h.checkActorSeparation(r, requestID); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(r.Context())
	resolved, err := h.Service.Cancel(r.Context(), requestID, claims.UserID, req.Reason)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, resolved, nil, http.StatusOK)
}

// GetWithdrawalByIDHandler lida com a requisição GET /v1/withdrawals/{id}.
// @Summary Obtém uma solicitação de retirada por ID
// @Tags withdrawals
// @Produce json
// @Param id path string true "ID da solicitação"
// @Success 200 {object} domain.WithdrawalRequest "Solicitação encontrada"
// @Failure 404 {object} domain.ErrorResponse "Solicitação não encontrada"
// @Security ApiKeyAuth
// @Router /withdrawals/{id} [get]
func (h *Handler) GetWithdrawalByIDHandler(w http.ResponseWriter, r *http.Request) {
	request, err := h.Service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, request, nil, http.StatusOK)
}

// ListByProductHandler lida com a requisição GET /v1/products/{id}/withdrawals.
// @Summary Lista as solicitações de retirada de um lote
// @Tags withdrawals
// @Produce json
// @Param id path string true "ID do lote"
// @Success 200 {array} domain.WithdrawalRequest "Solicitações do lote"
// @Security ApiKeyAuth
// @Router /products/{id}/withdrawals [get]
func (h *Handler) ListByProductHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Service.ListByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, requests, nil, http.StatusOK)
}
