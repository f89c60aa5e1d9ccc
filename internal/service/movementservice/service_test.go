package movementservice_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
	"semestock/internal/service/movementservice"
)

// fakeTxManager executa fn diretamente, sem transação real (tx == nil).
type fakeTxManager struct{}

func (fakeTxManager) Atomic(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }
func (fakeTxManager) Degraded() bool                                              { return false }

// MockMovementStore é uma implementação mock da interface MovementStore.
type MockMovementStore struct {
	mock.Mock
}

func (m *MockMovementStore) WithTx(tx *sql.Tx) repository.MovementStore { return m }

func (m *MockMovementStore) NextSequence(ctx context.Context, productID string) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMovementStore) Insert(ctx context.Context, mv domain.Movement) (domain.Movement, error) {
	args := m.Called(ctx, mv)
	return args.Get(0).(domain.Movement), args.Error(1)
}

func (m *MockMovementStore) ListByProduct(ctx context.Context, productID string) ([]domain.Movement, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.Movement), args.Error(1)
}

func (m *MockMovementStore) ListByLocation(ctx context.Context, locationID string) ([]domain.Movement, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).([]domain.Movement), args.Error(1)
}

// MockProductStore é uma implementação mock da interface ProductStore.
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) WithTx(tx *sql.Tx) repository.ProductStore { return m }

func (m *MockProductStore) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStore) FindByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStore) FindByIDForUpdate(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStore) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStore) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func strPtr(s string) *string { return &s }

func validMovement(t domain.MovementType) domain.Movement {
	m := domain.Movement{
		ProductID: uuid.New().String(),
		Type:      t,
		Quantity:  5,
		WeightKg:  125,
		UserID:    uuid.New().String(),
		Reason:    "Teste de movimentação",
	}
	switch t {
	case domain.MovementEntrada:
		m.ToLocationID = strPtr(uuid.New().String())
	case domain.MovementSaida:
		m.FromLocationID = strPtr(uuid.New().String())
	case domain.MovementTransferencia:
		m.FromLocationID = strPtr(uuid.New().String())
		m.ToLocationID = strPtr(uuid.New().String())
	}
	return m
}

// TestAppend_Success_Sequence testa o append com numeração sequencial por produto.
func TestAppend_Success_Sequence(t *testing.T) {
	mockMovements := new(MockMovementStore)
	mockProducts := new(MockProductStore)
	svc := movementservice.NewService(mockMovements, mockProducts, fakeTxManager{}, logger.NewLogger("debug"))

	m := validMovement(domain.MovementEntrada)

	mockProducts.On("FindByID", mock.Anything, m.ProductID).
		Return(domain.Product{ID: m.ProductID}, nil)
	mockMovements.On("NextSequence", mock.Anything, m.ProductID).Return(int64(3), nil)
	mockMovements.On("Insert", mock.Anything, mock.MatchedBy(func(mv domain.Movement) bool {
		return mv.Sequence == 3 && mv.Type == domain.MovementEntrada
	})).Return(m, nil)

	_, err := svc.Append(context.Background(), nil, m)

	assert.NoError(t, err)
	mockMovements.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

// TestAppend_Fail_UnknownProduct testa a integridade referencial do livro.
func TestAppend_Fail_UnknownProduct(t *testing.T) {
	mockMovements := new(MockMovementStore)
	mockProducts := new(MockProductStore)
	svc := movementservice.NewService(mockMovements, mockProducts, fakeTxManager{}, logger.NewLogger("debug"))

	m := validMovement(domain.MovementEntrada)
	mockProducts.On("FindByID", mock.Anything, m.ProductID).
		Return(domain.Product{}, apperror.NewNotFoundError("Produto não encontrado."))

	_, err := svc.Append(context.Background(), nil, m)

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	mockMovements.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

// TestAppend_Fail_LocationRules testa as regras de presença de localização por tipo.
func TestAppend_Fail_LocationRules(t *testing.T) {
	mockMovements := new(MockMovementStore)
	mockProducts := new(MockProductStore)
	svc := movementservice.NewService(mockMovements, mockProducts, fakeTxManager{}, logger.NewLogger("debug"))

	// TRANSFERENCIA sem origem.
	m := validMovement(domain.MovementTransferencia)
	m.FromLocationID = nil
	_, err := svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)

	// ENTRADA com origem.
	m = validMovement(domain.MovementEntrada)
	m.FromLocationID = strPtr(uuid.New().String())
	_, err = svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)

	// SAIDA com destino.
	m = validMovement(domain.MovementSaida)
	m.ToLocationID = strPtr(uuid.New().String())
	_, err = svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)

	// AJUSTE com origem.
	m = validMovement(domain.MovementAjuste)
	m.FromLocationID = strPtr(uuid.New().String())
	_, err = svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)

	// Tipo desconhecido.
	m = validMovement("INVENTARIO")
	_, err = svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)

	mockMovements.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	mockProducts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// TestAppend_Fail_MissingFields testa os campos obrigatórios de toda entrada.
func TestAppend_Fail_MissingFields(t *testing.T) {
	mockMovements := new(MockMovementStore)
	mockProducts := new(MockProductStore)
	svc := movementservice.NewService(mockMovements, mockProducts, fakeTxManager{}, logger.NewLogger("debug"))

	m := validMovement(domain.MovementEntrada)
	m.Reason = ""
	_, err := svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)

	m = validMovement(domain.MovementEntrada)
	m.Quantity = 0
	_, err = svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)

	m = validMovement(domain.MovementEntrada)
	m.UserID = ""
	_, err = svc.Append(context.Background(), nil, m)
	assert.IsType(t, &apperror.ValidationError{}, err)
}

// TestRecord_LocksProductRow testa que o ajuste avulso bloqueia a linha do
// produto antes do append, serializando o fluxo de sequência.
func TestRecord_LocksProductRow(t *testing.T) {
	mockMovements := new(MockMovementStore)
	mockProducts := new(MockProductStore)
	svc := movementservice.NewService(mockMovements, mockProducts, fakeTxManager{}, logger.NewLogger("debug"))

	m := validMovement(domain.MovementAjuste)

	mockProducts.On("FindByIDForUpdate", mock.Anything, m.ProductID).
		Return(domain.Product{ID: m.ProductID}, nil)
	mockProducts.On("FindByID", mock.Anything, m.ProductID).
		Return(domain.Product{ID: m.ProductID}, nil)
	mockMovements.On("NextSequence", mock.Anything, m.ProductID).Return(int64(1), nil)
	mockMovements.On("Insert", mock.Anything, mock.AnythingOfType("domain.Movement")).Return(m, nil)

	_, err := svc.Record(context.Background(), m)

	assert.NoError(t, err)
	mockProducts.AssertCalled(t, "FindByIDForUpdate", mock.Anything, m.ProductID)
	mockMovements.AssertExpectations(t)
}

// TestListByProduct_Fail_EmptyID testa a validação do ID na listagem.
func TestListByProduct_Fail_EmptyID(t *testing.T) {
	mockMovements := new(MockMovementStore)
	mockProducts := new(MockProductStore)
	svc := movementservice.NewService(mockMovements, mockProducts, fakeTxManager{}, logger.NewLogger("debug"))

	_, err := svc.ListByProduct(context.Background(), "")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
}
