package product

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
	"semestock/internal/pkg/middleware"
	"semestock/internal/service/productservice"
)

// ProductService define o contrato que o Handler espera da máquina de
// estados do produto.
type ProductService interface {
	Create(ctx context.Context, input productservice.CreateProductInput) (domain.Product, error)
	Allocate(ctx context.Context, productID, locationID, userID string) (domain.Product, error)
	Move(ctx context.Context, productID, newLocationID, userID, reason string) (domain.Product, error)
	SplitMove(ctx context.Context, productID string, quantity int, newLocationID, userID, reason string) (domain.Product, domain.Product, error)
	SplitExit(ctx context.Context, productID string, quantity int, userID, reason string) (domain.Product, error)
	AddStock(ctx context.Context, productID string, quantity int, userID, reason string) (domain.Product, error)
	Remove(ctx context.Context, productID, userID, reason string) (domain.Product, error)
	GetByID(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
}

// Handler agrupa os métodos de Handler de produtos.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
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

// actorID extrai a identidade do usuário autenticado (anexada pelo AuthMiddleware).
func actorID(r *http.Request) string {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.UserID
}

// createProductRequest é o payload de cadastro de um lote.
type createProductRequest struct {
	Name            string     `json:"name"`
	Lot             string     `json:"lot"`
	SeedTypeID      string     `json:"seed_type_id"`
	Quantity        int        `json:"quantity"`
	StorageUnit     string     `json:"storage_unit"`
	WeightPerUnitKg float64    `json:"weight_per_unit_kg"`
	LocationID      *string    `json:"location_id,omitempty"`
	ClientID        *string    `json:"client_id,omitempty"`
	EntryDate       time.Time  `json:"entry_date"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	Notes           string     `json:"notes"`
}

// quantityRequest é o payload das operações quantitativas (split/add).
type quantityRequest struct {
	Quantity   int    `json:"quantity"`
	LocationID string `json:"location_id,omitempty"`
	Reason     string `json:"reason"`
}

// moveRequest é o payload da movimentação integral.
type moveRequest struct {
	LocationID string `json:"location_id"`
	Reason     string `json:"reason"`
}

// CreateProductHandler lida com a requisição POST /v1/products.
// @Summary Cadastra um lote de sementes
// @Description Cadastra um lote; com location_id informado a alocação acontece na criação.
// @Tags products
// @Accept json
// @Produce json
// @Param product body createProductRequest true "Dados do lote"
// @Success 201 {object} domain.Product "Lote cadastrado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Localização ocupada"
// @Failure 422 {object} domain.ErrorResponse "Capacidade excedida"
// @Security ApiKeyAuth
// @Router /products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	created, err := h.Service.Create(r.Context(), productservice.CreateProductInput{
		Name:            req.Name,
		Lot:             req.Lot,
		SeedTypeID:      req.SeedTypeID,
		Quantity:        req.Quantity,
		StorageUnit:     domain.StorageUnit(req.StorageUnit),
		WeightPerUnitKg: req.WeightPerUnitKg,
		LocationID:      req.LocationID,
		ClientID:        req.ClientID,
		EntryDate:       req.EntryDate,
		ExpirationDate:  req.ExpirationDate,
		Notes:           req.Notes,
		UserID:          actorID(r),
	})
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, created, nil, http.StatusCreated)
}

// GetProductByIDHandler lida com a requisição GET /v1/products/{id}.
// @Summary Obtém um lote por ID
// @Tags products
// @Produce json
// @Param id path string true "ID do lote"
// @Success 200 {object} domain.Product "Lote encontrado"
// @Failure 404 {object} domain.ErrorResponse "Lote não encontrado"
// @Security ApiKeyAuth
// @Router /products/{id} [get]
func (h *Handler) GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, product, nil, http.StatusOK)
}

// ListProductsHandler lida com a requisição GET /v1/products.
// @Summary Lista lotes com filtros e paginação
// @Tags products
// @Produce json
// @Param name query string false "Filtro por nome (parcial)"
// @Param lot query string false "Filtro por lote"
// @Param status query string false "Filtro por status"
// @Param chamber_id query string false "Filtro por câmara"
// @Param page query int false "Página"
// @Param limit query int false "Tamanho da página"
// @Success 200 {array} domain.Product "Lista de lotes"
// @Security ApiKeyAuth
// @Router /products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	products, err := h.Service.List(r.Context(), domain.ProductFilter{
		Page:      page,
		Limit:     limit,
		Name:      q.Get("name"),
		Lot:       q.Get("lot"),
		Status:    domain.ProductStatus(q.Get("status")),
		ChamberID: q.Get("chamber_id"),
	})
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, products, nil, http.StatusOK)
}

// AllocateProductHandler lida com a requisição POST /v1/products/{id}/allocate.
// @Summary Aloca um lote em uma localização
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do lote"
// @Param allocation body moveRequest true "Localização de destino"
// @Success 200 {object} domain.Product "Lote alocado"
// @Failure 409 {object} domain.ErrorResponse "Localização ocupada"
// @Failure 422 {object} domain.ErrorResponse "Capacidade excedida ou transição inválida"
// @Security ApiKeyAuth
// @Router /products/{id}/allocate [post]
func (h *Handler) AllocateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	product, err := h.Service.Allocate(r.Context(), r.PathValue("id"), req.LocationID, actorID(r))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, product, nil, http.StatusOK)
}

// MoveProductHandler lida com a requisição POST /v1/products/{id}/move.
// @Summary Transfere um lote para outra localização
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do lote"
// @Param move body moveRequest true "Destino e motivo"
// @Success 200 {object} domain.Product "Lote transferido"
// @Failure 409 {object} domain.ErrorResponse "Destino ocupado"
// @Failure 422 {object} domain.ErrorResponse "Capacidade excedida"
// @Security ApiKeyAuth
// @Router /products/{id}/move [post]
func (h *Handler) MoveProductHandler(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	product, err := h.Service.Move(r.Context(), r.PathValue("id"), req.LocationID, actorID(r), req.Reason)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, product, nil, http.StatusOK)
}

// SplitMoveProductHandler lida com a requisição POST /v1/products/{id}/split-move.
// @Summary Move parte da quantidade para outra localização
// @Description O lote original retém o restante; um novo lote nasce LOCADO no destino.
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do lote"
// @Param split body quantityRequest true "Quantidade, destino e motivo"
// @Success 200 {object} map[string]domain.Product "Lotes original e derivado"
// @Failure 422 {object} domain.ErrorResponse "Capacidade excedida"
// @Security ApiKeyAuth
// @Router /products/{id}/split-move [post]
func (h *Handler) SplitMoveProductHandler(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	original, split, err := h.Service.SplitMove(r.Context(), r.PathValue("id"), req.Quantity, req.LocationID, actorID(r), req.Reason)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, map[string]domain.Product{"original": original, "split": split}, nil, http.StatusOK)
}

// SplitExitProductHandler lida com a requisição POST /v1/products/{id}/split-exit.
// @Summary Dá baixa parcial em um lote
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do lote"
// @Param exit body quantityRequest true "Quantidade e motivo"
// @Success 200 {object} domain.Product "Lote atualizado"
// @Security ApiKeyAuth
// @Router /products/{id}/split-exit [post]
func (h *Handler) SplitExitProductHandler(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	product, err := h.Service.SplitExit(r.Context(), r.PathValue("id"), req.Quantity, actorID(r), req.Reason)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, product, nil, http.StatusOK)
}

// AddStockHandler lida com a requisição POST /v1/products/{id}/add-stock.
// @Summary Adiciona quantidade a um lote locado
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do lote"
// @Param add body quantityRequest true "Quantidade e motivo"
// @Success 200 {object} domain.Product "Lote atualizado"
// @Failure 422 {object} domain.ErrorResponse "Capacidade excedida"
// @Security ApiKeyAuth
// @Router /products/{id}/add-stock [post]
func (h *Handler) AddStockHandler(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	product, err := h.Service.AddStock(r.Context(), r.PathValue("id"), req.Quantity, actorID(r), req.Reason)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, product, nil, http.StatusOK)
}

// RemoveProductHandler lida com a requisição DELETE /v1/products/{id}.
// @Summary Remove um lote do estoque (soft delete)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do lote"
// @Param removal body moveRequest true "Motivo da remoção"
// @Success 200 {object} domain.Product "Lote removido (REMOVIDO)"
// @Failure 422 {object} domain.ErrorResponse "Transição inválida"
// @Security ApiKeyAuth
// @Router /products/{id} [delete]
func (h *Handler) RemoveProductHandler(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	product, err := h.Service.Remove(r.Context(), r.PathValue("id"), actorID(r), req.Reason)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, product, nil, http.StatusOK)
}
