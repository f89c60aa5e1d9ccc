package withdrawalrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"semestock/internal/domain"
	"semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// WithdrawalRepository implementa a persistência das solicitações de retirada.
type WithdrawalRepository struct {
	DB        *sql.DB
	q         database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewWithdrawalRepository cria e retorna uma nova instância do Repositório de Retiradas.
func NewWithdrawalRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *WithdrawalRepository {
	return &WithdrawalRepository{
		DB:        db,
		q:         db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia do repositório cujas queries rodam dentro da transação.
func (r *WithdrawalRepository) WithTx(tx *sql.Tx) repository.WithdrawalStore {
	if tx == nil {
		return r
	}
	clone := *r
	clone.q = tx
	return &clone
}

const withdrawalColumns = `id, product_id, kind, quantity, status, requested_by, resolved_by, reason, notes, requested_at, resolved_at, created_at, updated_at`

func scanWithdrawal(row interface{ Scan(...any) error }) (domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	err := row.Scan(
		&w.ID, &w.ProductID, &w.Kind, &w.Quantity, &w.Status,
		&w.RequestedBy, &w.ResolvedBy, &w.Reason, &w.Notes,
		&w.RequestedAt, &w.ResolvedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	return w, err
}

// Insert persiste uma nova solicitação de retirada.
func (r *WithdrawalRepository) Insert(ctx context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	if w.RequestedAt.IsZero() {
		w.RequestedAt = now
	}

	query := `
        INSERT INTO withdrawal_requests (` + withdrawalColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING ` + withdrawalColumns

	created, err := scanWithdrawal(r.q.QueryRowContext(ctxTimeout, query,
		w.ID, w.ProductID, w.Kind, w.Quantity, w.Status,
		w.RequestedBy, w.ResolvedBy, w.Reason, w.Notes,
		w.RequestedAt, w.ResolvedAt, w.CreatedAt, w.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir solicitação de retirada no DB.", err)
		return domain.WithdrawalRequest{}, mapInsertError(err)
	}
	return created, nil
}

// mapInsertError traduz a violação do índice parcial (no máximo uma
// solicitação PENDENTE por produto) em ConflictError. É a última barreira da
// corrida de aberturas concorrentes quando o bloqueio da linha do produto não
// serializou as transações (modo degradado).
func mapInsertError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" && pqErr.Constraint == "idx_withdrawal_pending_per_product" {
		return errors.NewConflictError("O produto já possui uma solicitação de retirada pendente.")
	}
	return errors.NewDBError("Falha ao criar solicitação de retirada", err)
}

// FindByID busca uma solicitação pelo ID.
func (r *WithdrawalRepository) FindByID(ctx context.Context, id string) (domain.WithdrawalRequest, error) {
	return r.findByID(ctx, id, false)
}

// FindByIDForUpdate busca uma solicitação bloqueando a linha na transação.
func (r *WithdrawalRepository) FindByIDForUpdate(ctx context.Context, id string) (domain.WithdrawalRequest, error) {
	return r.findByID(ctx, id, true)
}

func (r *WithdrawalRepository) findByID(ctx context.Context, id string, forUpdate bool) (domain.WithdrawalRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	w, err := scanWithdrawal(r.q.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.WithdrawalRequest{}, errors.NewNotFoundError(fmt.Sprintf("Solicitação de retirada com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar solicitação de retirada no DB.", err)
		return domain.WithdrawalRequest{}, errors.NewDBError("Falha ao buscar solicitação de retirada", err)
	}
	return w, nil
}

// HasPendingForProduct verifica se já existe solicitação PENDENTE para o produto
// (no máximo uma solicitação em aberto por produto).
func (r *WithdrawalRepository) HasPendingForProduct(ctx context.Context, productID string) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var count int
	query := `SELECT COUNT(*) FROM withdrawal_requests WHERE product_id = $1 AND status = $2`
	if err := r.q.QueryRowContext(ctxTimeout, query, productID, domain.WithdrawalPendente).Scan(&count); err != nil {
		r.logger.Error("Falha ao verificar solicitações pendentes no DB.", err)
		return false, errors.NewDBError("Falha ao verificar solicitações pendentes", err)
	}
	return count > 0, nil
}

// Update persiste a resolução de uma solicitação (confirmação ou cancelamento).
func (r *WithdrawalRepository) Update(ctx context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	w.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE withdrawal_requests
        SET status = $1, resolved_by = $2, notes = $3, reason = $4, resolved_at = $5, updated_at = $6
        WHERE id = $7
        RETURNING ` + withdrawalColumns

	updated, err := scanWithdrawal(r.q.QueryRowContext(ctxTimeout, query,
		w.Status, w.ResolvedBy, w.Notes, w.Reason, w.ResolvedAt, w.UpdatedAt, w.ID,
	))
	if err == sql.ErrNoRows {
		return domain.WithdrawalRequest{}, errors.NewNotFoundError(fmt.Sprintf("Solicitação de retirada com ID %s não encontrada para atualização.", w.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar solicitação de retirada no DB.", err)
		return domain.WithdrawalRequest{}, errors.NewDBError("Falha ao atualizar solicitação de retirada", err)
	}
	return updated, nil
}

// ListByProduct retorna as solicitações de um produto, da mais recente para a mais antiga.
func (r *WithdrawalRepository) ListByProduct(ctx context.Context, productID string) ([]domain.WithdrawalRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + withdrawalColumns + `
        FROM withdrawal_requests
        WHERE product_id = $1
        ORDER BY requested_at DESC`

	rows, err := r.q.QueryContext(ctxTimeout, query, productID)
	if err != nil {
		r.logger.Error("Falha ao listar solicitações de retirada no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar solicitações de retirada", err)
	}
	defer rows.Close()

	var requests []domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear solicitações do DB", err)
		}
		requests = append(requests, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de solicitações", err)
	}
	return requests, nil
}
