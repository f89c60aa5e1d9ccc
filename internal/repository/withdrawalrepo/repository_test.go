package withdrawalrepo

import (
	stderrors "errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperror "semestock/internal/errors"
)

// TestMapInsertError_PendingUniqueViolation testa a tradução da violação do
// índice parcial em conflito de negócio: duas aberturas concorrentes sem o
// bloqueio da linha do produto terminam com a perdedora barrada pelo índice.
func TestMapInsertError_PendingUniqueViolation(t *testing.T) {
	err := mapInsertError(&pq.Error{Code: "23505", Constraint: "idx_withdrawal_pending_per_product"})

	assert.IsType(t, &apperror.ConflictError{}, err)
}

// TestMapInsertError_OtherErrors testa que as demais falhas seguem como erro
// interno de persistência.
func TestMapInsertError_OtherErrors(t *testing.T) {
	err := mapInsertError(stderrors.New("conexão perdida"))
	assert.IsType(t, &apperror.InternalError{}, err)

	// Violação de outra constraint (FK do produto) não vira conflito.
	err = mapInsertError(&pq.Error{Code: "23503", Constraint: "withdrawal_requests_product_id_fkey"})
	assert.IsType(t, &apperror.InternalError{}, err)
}
