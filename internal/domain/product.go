package domain

import (
	"time"
)

// ProductStatus representa o estado de um lote de sementes dentro do ciclo de vida
// de armazenamento (máquina de estados do produto).
type ProductStatus string

const (
	// StatusCadastrado: produto registrado, ainda sem localização definida.
	StatusCadastrado ProductStatus = "CADASTRADO"
	// StatusAguardandoLocacao: produto registrado aguardando alocação em uma localização.
	StatusAguardandoLocacao ProductStatus = "AGUARDANDO_LOCACAO"
	// StatusLocado: produto vinculado a uma localização física na câmara.
	StatusLocado ProductStatus = "LOCADO"
	// StatusAguardandoRetirada: existe uma solicitação de retirada pendente.
	StatusAguardandoRetirada ProductStatus = "AGUARDANDO_RETIRADA"
	// StatusRetirado: retirada confirmada. Estado terminal.
	StatusRetirado ProductStatus = "RETIRADO"
	// StatusRemovido: removido do estoque (soft delete). Estado terminal.
	StatusRemovido ProductStatus = "REMOVIDO"
)

// IsTerminal indica se o status é final (produto nunca é deletado fisicamente).
func (s ProductStatus) IsTerminal() bool {
	return s == StatusRetirado || s == StatusRemovido
}

// StorageUnit é o tipo de embalagem do lote.
type StorageUnit string

const (
	UnitSaco StorageUnit = "SACO"
	UnitBag  StorageUnit = "BAG"
)

// Product representa um lote de sementes armazenado (a Entidade central do sistema).
// TotalWeightKg é sempre derivado (Quantity × WeightPerUnitKg) e recalculado
// a cada mutação; nunca é aceito como entrada.
type Product struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Lot             string        `json:"lot"` // identificador do lote de recebimento
	SeedTypeID      string        `json:"seed_type_id"`
	Quantity        int           `json:"quantity"`
	StorageUnit     StorageUnit   `json:"storage_unit"`
	WeightPerUnitKg float64       `json:"weight_per_unit_kg"`
	TotalWeightKg   float64       `json:"total_weight_kg"`
	LocationID      *string       `json:"location_id,omitempty"`
	ClientID        *string       `json:"client_id,omitempty"`
	EntryDate       time.Time     `json:"entry_date"`
	ExpirationDate  *time.Time    `json:"expiration_date,omitempty"`
	Status          ProductStatus `json:"status"`
	Notes           string        `json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// RecomputeTotalWeight recalcula o peso total derivado.
func (p *Product) RecomputeTotalWeight() {
	p.TotalWeightKg = float64(p.Quantity) * p.WeightPerUnitKg
}

// ProductFilter define os parâmetros de busca e paginação da listagem de produtos.
type ProductFilter struct {
	Page      int
	Limit     int
	Name      string
	Lot       string
	Status    ProductStatus
	ChamberID string
}

// TransitionTable mapeia cada status para os destinos permitidos.
// É dado estático do processo: carregada uma única vez na inicialização
// e injetada na máquina de estados, nunca consultada como global mutável.
type TransitionTable map[ProductStatus][]ProductStatus

// DefaultTransitions retorna a tabela de transições do ciclo de vida do produto.
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		StatusCadastrado:         {StatusAguardandoLocacao, StatusLocado, StatusRemovido},
		StatusAguardandoLocacao:  {StatusLocado, StatusRemovido},
		StatusLocado:             {StatusAguardandoRetirada, StatusRemovido},
		StatusAguardandoRetirada: {StatusRetirado, StatusLocado}, // LOCADO = cancelamento da retirada
	}
}

// Allowed verifica se a transição from → to está prevista na tabela.
func (t TransitionTable) Allowed(from, to ProductStatus) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}
