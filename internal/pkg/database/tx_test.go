package database_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperror "semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
)

// stubDriver é um driver mínimo em memória: permite observar commits e
// rollbacks do Atomic sem um Postgres real.
type stubDriver struct {
	commits   int
	rollbacks int
}

func (d *stubDriver) Open(name string) (driver.Conn, error) { return &stubConn{driver: d}, nil }

type stubConn struct {
	driver *stubDriver
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("não implementado")
}
func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return &stubTx{driver: c.driver}, nil }

type stubTx struct {
	driver *stubDriver
}

func (t *stubTx) Commit() error   { t.driver.commits++; return nil }
func (t *stubTx) Rollback() error { t.driver.rollbacks++; return nil }

// openStubDB registra o driver sob um nome único por teste (sql.Register não
// aceita nomes repetidos no mesmo processo).
func openStubDB(t *testing.T) (*sql.DB, *stubDriver) {
	t.Helper()
	d := &stubDriver{}
	sql.Register("txstub-"+t.Name(), d)
	db, err := sql.Open("txstub-"+t.Name(), "")
	assert.NoError(t, err)
	return db, d
}

// TestAtomic_CommitOnSuccess testa que fn recebe uma transação real e que o
// sucesso termina em exatamente um commit, sem rollback.
func TestAtomic_CommitOnSuccess(t *testing.T) {
	db, d := openStubDB(t)
	m := database.NewTxManager(db, false, logger.NewLogger("debug"))

	var got *sql.Tx
	err := m.Atomic(context.Background(), func(tx *sql.Tx) error {
		got = tx
		return nil
	})

	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, 1, d.commits)
	assert.Equal(t, 0, d.rollbacks)
	assert.False(t, m.Degraded())
}

// TestAtomic_RollbackOnError testa que um erro de fn reverte a transação
// inteira: nenhum commit acontece e o erro sobe intacto.
func TestAtomic_RollbackOnError(t *testing.T) {
	db, d := openStubDB(t)
	m := database.NewTxManager(db, false, logger.NewLogger("debug"))

	failure := errors.New("falha ao registrar movimentação")
	err := m.Atomic(context.Background(), func(tx *sql.Tx) error {
		return failure
	})

	assert.Equal(t, failure, err)
	assert.Equal(t, 0, d.commits)
	assert.Equal(t, 1, d.rollbacks)
}

// TestAtomic_DegradedFallback testa o fallback explícito: com o BeginTx
// falhando e o fallback habilitado, fn roda com tx == nil e o modo degradado
// fica observável em Degraded().
func TestAtomic_DegradedFallback(t *testing.T) {
	db, _ := openStubDB(t)
	db.Close() // BeginTx passa a falhar
	m := database.NewTxManager(db, true, logger.NewLogger("debug"))

	called := false
	err := m.Atomic(context.Background(), func(tx *sql.Tx) error {
		called = true
		assert.Nil(t, tx)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
	assert.True(t, m.Degraded())
}

// TestAtomic_Fail_NoFallbackWithoutFlag testa que, sem o fallback habilitado,
// a falha do BeginTx interrompe a operação sem executar fn.
func TestAtomic_Fail_NoFallbackWithoutFlag(t *testing.T) {
	db, _ := openStubDB(t)
	db.Close()
	m := database.NewTxManager(db, false, logger.NewLogger("debug"))

	called := false
	err := m.Atomic(context.Background(), func(tx *sql.Tx) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.InternalError{}, err)
	assert.False(t, called)
	assert.False(t, m.Degraded())
}

// TestAfterCommit_RunsAfterCommit testa que o hook agendado dentro da
// transação só executa depois do commit confirmado.
func TestAfterCommit_RunsAfterCommit(t *testing.T) {
	db, d := openStubDB(t)
	m := database.NewTxManager(db, false, logger.NewLogger("debug"))

	commitsAtHook := -1
	err := m.Atomic(context.Background(), func(tx *sql.Tx) error {
		database.AfterCommit(tx, func() {
			commitsAtHook = d.commits
		})
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, commitsAtHook)
}

// TestAfterCommit_DiscardedOnRollback testa que o rollback descarta os hooks
// agendados: nada de efeito colateral para uma transação revertida.
func TestAfterCommit_DiscardedOnRollback(t *testing.T) {
	db, _ := openStubDB(t)
	m := database.NewTxManager(db, false, logger.NewLogger("debug"))

	ran := false
	err := m.Atomic(context.Background(), func(tx *sql.Tx) error {
		database.AfterCommit(tx, func() { ran = true })
		return errors.New("falha após o agendamento")
	})

	assert.Error(t, err)
	assert.False(t, ran)
}

// TestAfterCommit_ImmediateOutsideTx testa que, fora de transação (consulta
// direta no *sql.DB), o hook executa na hora.
func TestAfterCommit_ImmediateOutsideTx(t *testing.T) {
	db, _ := openStubDB(t)

	ran := false
	database.AfterCommit(db, func() { ran = true })

	assert.True(t, ran)
}
