package chamber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
)

// ChamberService define o contrato que o Handler espera da administração de
// câmaras e localizações.
type ChamberService interface {
	CreateChamber(ctx context.Context, chamber domain.Chamber, policy domain.CapacityPolicy) (domain.Chamber, error)
	BulkProvision(ctx context.Context, chamberID string, dims domain.ChamberDimensions, policy domain.CapacityPolicy, overwrite bool) (int, error)
	GetChamber(ctx context.Context, id string) (domain.Chamber, error)
	ListChambers(ctx context.Context) ([]domain.Chamber, error)
	UpdateChamber(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error)
	ListLocations(ctx context.Context, chamberID string) ([]domain.Location, error)
}

// Handler agrupa os métodos de Handler de câmaras.
type Handler struct {
	Service ChamberService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ChamberService, log logger.Logger) *Handler {
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

// createChamberRequest é o payload de criação de uma câmara.
type createChamberRequest struct {
	Name              string                   `json:"name"`
	Dimensions        domain.ChamberDimensions `json:"dimensions"`
	TargetTemperature float64                  `json:"target_temperature"`
	TargetHumidity    float64                  `json:"target_humidity"`
	CapacityPolicy    domain.CapacityPolicy    `json:"capacity_policy"`
}

// provisionRequest é o payload do (re)provisionamento de localizações.
type provisionRequest struct {
	Dimensions     domain.ChamberDimensions `json:"dimensions"`
	CapacityPolicy domain.CapacityPolicy    `json:"capacity_policy"`
	Overwrite      bool                     `json:"overwrite"`
}

// CreateChamberHandler lida com a requisição POST /v1/chambers.
// @Summary Cria uma câmara e provisiona suas localizações
// @Tags chambers
// @Accept json
// @Produce json
// @Param chamber body createChamberRequest true "Dados da câmara e política de capacidade"
// @Success 201 {object} domain.Chamber "Câmara criada"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Security ApiKeyAuth
// @Router /chambers [post]
func (h *Handler) CreateChamberHandler(w http.ResponseWriter, r *http.Request) {
	var req createChamberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateChamber(r.Context(), domain.Chamber{
		Name:              req.Name,
		Dimensions:        req.Dimensions,
		TargetTemperature: req.TargetTemperature,
		TargetHumidity:    req.TargetHumidity,
	}, req.CapacityPolicy)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, created, nil, http.StatusCreated)
}

// GetChamberByIDHandler lida com a requisição GET /v1/chambers/{id}.
// @Summary Obtém uma câmara por ID
// @Tags chambers
// @Produce json
// @Param id path string true "ID da câmara"
// @Success 200 {object} domain.Chamber "Câmara encontrada"
// @Failure 404 {object} domain.ErrorResponse "Câmara não encontrada"
// @Router /chambers/{id} [get]
func (h *Handler) GetChamberByIDHandler(w http.ResponseWriter, r *http.Request) {
	chamber, err := h.Service.GetChamber(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, chamber, nil, http.StatusOK)
}

// ListChambersHandler lida com a requisição GET /v1/chambers.
// @Summary Lista todas as câmaras
// @Tags chambers
// @Produce json
// @Success 200 {array} domain.Chamber "Lista de câmaras"
// @Router /chambers [get]
func (h *Handler) ListChambersHandler(w http.ResponseWriter, r *http.Request) {
	chambers, err := h.Service.ListChambers(r.Context())
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, chambers, nil, http.StatusOK)
}

// UpdateChamberHandler lida com a requisição PUT /v1/chambers/{id}.
// @Summary Atualiza nome, status e alvos ambientais de uma câmara
// @Tags chambers
// @Accept json
// @Produce json
// @Param id path string true "ID da câmara"
// @Param chamber body domain.Chamber true "Dados da câmara"
// @Success 200 {object} domain.Chamber "Câmara atualizada"
// @Failure 404 {object} domain.ErrorResponse "Câmara não encontrada"
// @Security ApiKeyAuth
// @Router /chambers/{id} [put]
func (h *Handler) UpdateChamberHandler(w http.ResponseWriter, r *http.Request) {
	var chamber domain.Chamber
	if err := json.NewDecoder(r.Body).Decode(&chamber); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}
	chamber.ID = r.PathValue("id")

	updated, err := h.Service.UpdateChamber(r.Context(), chamber)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, updated, nil, http.StatusOK)
}

// ProvisionLocationsHandler lida com a requisição POST /v1/chambers/{id}/locations.
// @Summary (Re)gera as localizações de uma câmara
// @Description Produto cartesiano dos 4 eixos; overwrite exige câmara sem localizações ocupadas.
// @Tags chambers
// @Accept json
// @Produce json
// @Param id path string true "ID da câmara"
// @Param provision body provisionRequest true "Dimensões, política de capacidade e overwrite"
// @Success 200 {object} map[string]int "Total de localizações provisionadas"
// @Failure 409 {object} domain.ErrorResponse "Localizações existentes ou ocupadas"
// @Security ApiKeyAuth
// @Router /chambers/{id}/locations [post]
func (h *Handler) ProvisionLocationsHandler(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	total, err := h.Service.BulkProvision(r.Context(), r.PathValue("id"), req.Dimensions, req.CapacityPolicy, req.Overwrite)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, map[string]int{"provisioned": total}, nil, http.StatusOK)
}

// ListLocationsHandler lida com a requisição GET /v1/chambers/{id}/locations.
// @Summary Lista as localizações de uma câmara ordenadas pelos eixos
// @Tags chambers
// @Produce json
// @Param id path string true "ID da câmara"
// @Success 200 {array} domain.Location "Localizações da câmara"
// @Failure 404 {object} domain.ErrorResponse "Câmara não encontrada"
// @Router /chambers/{id}/locations [get]
func (h *Handler) ListLocationsHandler(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Service.ListLocations(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, locations, nil, http.StatusOK)
}
