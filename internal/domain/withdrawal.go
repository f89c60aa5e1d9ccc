package domain

import "time"

// WithdrawalKind indica se a retirada cobre todo o lote ou parte dele.
type WithdrawalKind string

const (
	WithdrawalTotal   WithdrawalKind = "TOTAL"
	WithdrawalParcial WithdrawalKind = "PARCIAL"
)

// WithdrawalStatus representa o estado da solicitação de retirada.
// PENDENTE é o estado inicial; CONFIRMADO e CANCELADO são finais.
type WithdrawalStatus string

const (
	WithdrawalPendente   WithdrawalStatus = "PENDENTE"
	WithdrawalConfirmado WithdrawalStatus = "CONFIRMADO"
	WithdrawalCancelado  WithdrawalStatus = "CANCELADO"
)

// IsTerminal indica se a solicitação já foi resolvida.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalConfirmado || s == WithdrawalCancelado
}

// WithdrawalRequest é a solicitação de retirada de um produto, mediada por
// dois atores: quem solicita e quem confirma (ou cancela). A separação de
// papéis é garantida pela camada de orquestração; o núcleo apenas registra
// as identidades.
type WithdrawalRequest struct {
	ID          string           `json:"id"`
	ProductID   string           `json:"product_id"`
	Kind        WithdrawalKind   `json:"kind"`
	Quantity    int              `json:"quantity"`
	Status      WithdrawalStatus `json:"status"`
	RequestedBy string           `json:"requested_by"`
	ResolvedBy  *string          `json:"resolved_by,omitempty"` // confirmador ou cancelador
	Reason      string           `json:"reason"`
	Notes       string           `json:"notes,omitempty"`
	RequestedAt time.Time        `json:"requested_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
