// Package repository define os contratos de persistência compartilhados
// entre os serviços do núcleo e as implementações SQL dos subpacotes.
// WithTx devolve uma visão do store escopada à transação da operação
// composta em andamento (tx == nil indica modo degradado, sem transação).
package repository

import (
	"context"
	"database/sql"

	"semestock/internal/domain"
)

// ProductStore é o contrato de persistência dos lotes de sementes.
type ProductStore interface {
	WithTx(tx *sql.Tx) ProductStore
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindByIDForUpdate(ctx context.Context, id string) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
}

// LocationStore é o contrato de persistência das localizações.
type LocationStore interface {
	WithTx(tx *sql.Tx) LocationStore
	FindByID(ctx context.Context, id string) (domain.Location, error)
	FindByIDForUpdate(ctx context.Context, id string) (domain.Location, error)
	FindPairForUpdate(ctx context.Context, idA, idB string) (map[string]domain.Location, error)
	UpdateOccupancy(ctx context.Context, id string, occupied bool, weightKg float64) (domain.Location, error)
	BulkInsert(ctx context.Context, locations []domain.Location) error
	ListByChamber(ctx context.Context, chamberID string) ([]domain.Location, error)
	CountByChamber(ctx context.Context, chamberID string) (int, error)
	CountOccupiedByChamber(ctx context.Context, chamberID string) (int, error)
	DeleteByChamber(ctx context.Context, chamberID string) error
}

// ChamberStore é o contrato de persistência das câmaras.
type ChamberStore interface {
	WithTx(tx *sql.Tx) ChamberStore
	Insert(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error)
	FindByID(ctx context.Context, id string) (domain.Chamber, error)
	FindAll(ctx context.Context) ([]domain.Chamber, error)
	Update(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error)
}

// MovementStore é o contrato de persistência do livro de movimentações
// (append-only: sem Update nem Delete).
type MovementStore interface {
	WithTx(tx *sql.Tx) MovementStore
	NextSequence(ctx context.Context, productID string) (int64, error)
	Insert(ctx context.Context, m domain.Movement) (domain.Movement, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Movement, error)
	ListByLocation(ctx context.Context, locationID string) ([]domain.Movement, error)
}

// WithdrawalStore é o contrato de persistência das solicitações de retirada.
type WithdrawalStore interface {
	WithTx(tx *sql.Tx) WithdrawalStore
	Insert(ctx context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error)
	FindByID(ctx context.Context, id string) (domain.WithdrawalRequest, error)
	FindByIDForUpdate(ctx context.Context, id string) (domain.WithdrawalRequest, error)
	HasPendingForProduct(ctx context.Context, productID string) (bool, error)
	Update(ctx context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.WithdrawalRequest, error)
}

// UserStore é o contrato de persistência dos usuários.
type UserStore interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}
