package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
)

// LocationService define o contrato de leitura de localizações.
type LocationService interface {
	GetLocation(ctx context.Context, id string) (domain.Location, error)
}

// Handler agrupa os métodos de Handler de localizações (somente leitura:
// ocupação e peso só mudam através das operações de produto).
type Handler struct {
	Service LocationService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc LocationService, log logger.Logger) *Handler {
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

// GetLocationByIDHandler lida com a requisição GET /v1/locations/{id}.
// @Summary Obtém uma localização por ID
// @Tags locations
// @Produce json
// @Param id path string true "ID da localização"
// @Success 200 {object} domain.Location "Localização encontrada"
// @Failure 404 {object} domain.ErrorResponse "Localização não encontrada"
// @Router /locations/{id} [get]
func (h *Handler) GetLocationByIDHandler(w http.ResponseWriter, r *http.Request) {
	loc, err := h.Service.GetLocation(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, loc, nil, http.StatusOK)
}
