package database

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
)

// Querier é o subconjunto de *sql.DB e *sql.Tx que os repositórios usam.
// Permite que o mesmo código de acesso a dados rode dentro ou fora de uma
// transação (WithTx nos repositórios).
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager executa operações compostas como uma unidade atômica.
// Toda operação que acopla mudança de estado + registro no livro de
// movimentações passa por Atomic: qualquer falha reverte o conjunto.
type TxManager interface {
	// Atomic executa fn dentro de uma transação. Em modo degradado
	// (substrato transacional indisponível), fn recebe tx == nil e roda
	// sem garantias de atomicidade.
	Atomic(ctx context.Context, fn func(tx *sql.Tx) error) error
	// Degraded indica se alguma operação já rodou sem transação.
	// Detectável pelos chamadores, conforme o contrato de modo degradado.
	Degraded() bool
}

// SQLTxManager é a implementação de TxManager sobre *sql.DB.
type SQLTxManager struct {
	db            *sql.DB
	allowDegraded bool
	degraded      atomic.Bool
	logger        logger.Logger
}

// NewTxManager cria o gerenciador de transações.
// allowDegraded habilita o fallback explícito sem transação (TX_DEGRADED_FALLBACK).
func NewTxManager(db *sql.DB, allowDegraded bool, log logger.Logger) *SQLTxManager {
	return &SQLTxManager{db: db, allowDegraded: allowDegraded, logger: log}
}

// Atomic abre a transação, executa fn e commita; qualquer erro de fn
// provoca rollback completo. Se BeginTx falhar e o fallback estiver
// habilitado, executa fn sem transação, registrando o modo degradado —
// o invariante "uma entrada no livro por mudança de estado" é
// explicitamente enfraquecido, nunca violado em silêncio.
func (m *SQLTxManager) Atomic(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		if !m.allowDegraded {
			return apperror.NewDBError("Falha ao iniciar transação", err)
		}
		m.degraded.Store(true)
		m.logger.Warn("Substrato transacional indisponível. Executando em MODO DEGRADADO, sem atomicidade.", map[string]interface{}{
			"error": err.Error(),
		})
		return fn(nil)
	}

	defer func() {
		tx.Rollback() // Rollback em caso de erro (no-op após Commit)
		discardHooks(tx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.NewDBError("Falha ao commitar transação", err)
	}

	// Efeitos colaterais agendados (invalidação de cache) só rodam com o
	// commit confirmado; em caso de rollback são descartados.
	for _, hook := range takeHooks(tx) {
		hook()
	}
	return nil
}

// Registro de hooks pós-commit, indexado pela transação.
var (
	hooksMu sync.Mutex
	txHooks = map[*sql.Tx][]func(){}
)

// AfterCommit agenda fn para rodar somente após o commit da transação à qual
// q está vinculado. Fora de transação (q é o *sql.DB, ou modo degradado) não
// há commit pendente e fn executa imediatamente.
func AfterCommit(q Querier, fn func()) {
	tx, ok := q.(*sql.Tx)
	if !ok {
		fn()
		return
	}
	hooksMu.Lock()
	txHooks[tx] = append(txHooks[tx], fn)
	hooksMu.Unlock()
}

func takeHooks(tx *sql.Tx) []func() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	hooks := txHooks[tx]
	delete(txHooks, tx)
	return hooks
}

func discardHooks(tx *sql.Tx) {
	hooksMu.Lock()
	delete(txHooks, tx)
	hooksMu.Unlock()
}

// Degraded retorna true se alguma operação já foi executada sem transação.
func (m *SQLTxManager) Degraded() bool {
	return m.degraded.Load()
}
