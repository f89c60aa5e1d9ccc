package domain

import "time"

// MovementType classifica o evento registrado no livro de movimentações.
type MovementType string

const (
	MovementEntrada       MovementType = "ENTRADA"
	MovementSaida         MovementType = "SAIDA"
	MovementTransferencia MovementType = "TRANSFERENCIA"
	MovementAjuste        MovementType = "AJUSTE"
)

// Movement é um registro imutável do livro de movimentações — a única fonte
// de verdade histórica do estoque. Nunca é atualizado nem deletado.
//
// Presença de localizações por tipo:
//   - TRANSFERENCIA exige origem e destino;
//   - ENTRADA exige apenas destino;
//   - SAIDA exige apenas origem;
//   - AJUSTE proíbe origem e aceita destino opcional.
type Movement struct {
	ID             string       `json:"id"`
	ProductID      string       `json:"product_id"`
	Type           MovementType `json:"type"`
	FromLocationID *string      `json:"from_location_id,omitempty"`
	ToLocationID   *string      `json:"to_location_id,omitempty"`
	Quantity       int          `json:"quantity"`
	WeightKg       float64      `json:"weight_kg"`
	UserID         string       `json:"user_id"`
	Reason         string       `json:"reason"`
	Notes          string       `json:"notes,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
	// Sequence é monotônico por produto e desempata eventos com o mesmo timestamp.
	Sequence int64 `json:"sequence"`
}
