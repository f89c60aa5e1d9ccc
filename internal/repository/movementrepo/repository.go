package movementrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"semestock/internal/domain"
	"semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// MovementRepository implementa a persistência do livro de movimentações.
// O livro é append-only: este repositório não possui Update nem Delete.
type MovementRepository struct {
	DB        *sql.DB
	q         database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewMovementRepository cria e retorna uma nova instância do Repositório de Movimentações.
func NewMovementRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *MovementRepository {
	return &MovementRepository{
		DB:        db,
		q:         db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia do repositório cujas queries rodam dentro da transação.
func (r *MovementRepository) WithTx(tx *sql.Tx) repository.MovementStore {
	if tx == nil {
		return r
	}
	clone := *r
	clone.q = tx
	return &clone
}

const movementColumns = `id, product_id, type, from_location_id, to_location_id, quantity, weight_kg, user_id, reason, notes, ts, sequence`

func scanMovement(row interface{ Scan(...any) error }) (domain.Movement, error) {
	var m domain.Movement
	err := row.Scan(
		&m.ID, &m.ProductID, &m.Type, &m.FromLocationID, &m.ToLocationID,
		&m.Quantity, &m.WeightKg, &m.UserID, &m.Reason, &m.Notes,
		&m.Timestamp, &m.Sequence,
	)
	return m, err
}

// NextSequence calcula o próximo número de sequência do fluxo do produto.
// Deve ser chamado dentro da transação que bloqueou a linha do produto
// (FOR UPDATE): o bloqueio serializa o fluxo e garante monotonicidade estrita.
func (r *MovementRepository) NextSequence(ctx context.Context, productID string) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var next int64
	query := `SELECT COALESCE(MAX(sequence), 0) + 1 FROM movements WHERE product_id = $1`
	if err := r.q.QueryRowContext(ctxTimeout, query, productID).Scan(&next); err != nil {
		r.logger.Error("Falha ao calcular sequência da movimentação no DB.", err)
		return 0, errors.NewDBError("Falha ao calcular sequência da movimentação", err)
	}
	return next, nil
}

// Insert grava uma nova entrada no livro de movimentações.
func (r *MovementRepository) Insert(ctx context.Context, m domain.Movement) (domain.Movement, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	query := `
        INSERT INTO movements (` + movementColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING ` + movementColumns

	created, err := scanMovement(r.q.QueryRowContext(ctxTimeout, query,
		m.ID, m.ProductID, m.Type, m.FromLocationID, m.ToLocationID,
		m.Quantity, m.WeightKg, m.UserID, m.Reason, m.Notes,
		m.Timestamp, m.Sequence,
	))
	if err != nil {
		r.logger.Error("Falha ao gravar movimentação no DB.", err)
		return domain.Movement{}, errors.NewDBError("Falha ao gravar movimentação", err)
	}
	return created, nil
}

// ListByProduct retorna o histórico ordenado de um produto
// (timestamp ascendente, sequência como desempate).
func (r *MovementRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Movement, error) {
	query := `
        SELECT ` + movementColumns + `
        FROM movements
        WHERE product_id = $1
        ORDER BY ts, sequence`
	return r.list(ctx, query, productID)
}

// ListByLocation retorna o histórico ordenado de uma localização
// (eventos que a tenham como origem ou destino).
func (r *MovementRepository) ListByLocation(ctx context.Context, locationID string) ([]domain.Movement, error) {
	query := `
        SELECT ` + movementColumns + `
        FROM movements
        WHERE from_location_id = $1 OR to_location_id = $1
        ORDER BY ts, sequence`
	return r.list(ctx, query, locationID)
}

func (r *MovementRepository) list(ctx context.Context, query string, arg any) ([]domain.Movement, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.q.QueryContext(ctxTimeout, query, arg)
	if err != nil {
		r.logger.Error("Falha ao listar movimentações no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar movimentações", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear movimentações do DB", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de movimentações", err)
	}
	return movements, nil
}
