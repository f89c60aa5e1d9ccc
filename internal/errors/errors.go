package errors

import (
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do SemeStock.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria estável do erro (e.g., "VALIDATION_ERROR", "CAPACITY_EXCEEDED")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de regra de negócio sobre dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito de estado de negócio
// (localização já ocupada, solicitação de retirada pendente duplicada, etc.).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// CapacityError representa uma tentativa de exceder a capacidade máxima (kg)
// de uma localização, ou de deixá-la com peso negativo.
type CapacityError struct {
	LocationID  string
	CapacityKg  float64
	RequestedKg float64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Capacidade excedida na localização %s: solicitado %.1f kg, capacidade %.1f kg.",
		e.LocationID, e.RequestedKg, e.CapacityKg)
}
func (e *CapacityError) Category() string { return "CAPACITY_EXCEEDED" }
func (e *CapacityError) HTTPStatus() int  { return http.StatusUnprocessableEntity } // 422
func (e *CapacityError) Unwrap() error    { return nil }

// NewCapacityError cria um erro de capacidade com o contexto da localização.
func NewCapacityError(locationID string, capacityKg, requestedKg float64) AppError {
	return &CapacityError{LocationID: locationID, CapacityKg: capacityKg, RequestedKg: requestedKg}
}

// InvalidTransitionError representa uma transição de status não prevista na
// tabela de transições do produto. Carrega o estado atual e o solicitado.
type InvalidTransitionError struct {
	ProductID string
	From      string
	To        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Transição de status inválida para o produto %s: %s → %s.", e.ProductID, e.From, e.To)
}
func (e *InvalidTransitionError) Category() string { return "INVALID_TRANSITION" }
func (e *InvalidTransitionError) HTTPStatus() int  { return http.StatusUnprocessableEntity } // 422
func (e *InvalidTransitionError) Unwrap() error    { return nil }

// NewInvalidTransitionError cria um erro de transição inválida nomeando os dois estados.
func NewInvalidTransitionError(productID, from, to string) AppError {
	return &InvalidTransitionError{ProductID: productID, From: from, To: to}
}

// InvalidStateError representa uma operação sobre um registro em estado
// terminal ou incompatível (e.g., confirmar uma retirada já resolvida).
type InvalidStateError struct {
	ID      string
	Current string
	Msg     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("Estado inválido para a operação: %s (registro %s, estado atual %s).", e.Msg, e.ID, e.Current)
}
func (e *InvalidStateError) Category() string { return "INVALID_STATE" }
func (e *InvalidStateError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *InvalidStateError) Unwrap() error    { return nil }

// NewInvalidStateError cria um erro de estado inválido com o contexto do registro.
func NewInvalidStateError(id, current, msg string) AppError {
	return &InvalidStateError{ID: id, Current: current, Msg: msg}
}

// UnauthorizedError representa falha de autenticação ou de permissão.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autorização.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
// As categorias são estáveis e enumeráveis: a camada de apresentação renderiza
// mensagens sem inspecionar os tipos internos.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := err.(AppError); ok {
		// O erro é tipado (ValidationError, CapacityError, etc.)
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado (e.g., erro simples de pacote Go que não implementa AppError)
	// Tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
