package withdrawalservice_test

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
	"semestock/internal/service/withdrawalservice"
)

// fakeTxManager executa fn diretamente, sem transação real (tx == nil).
type fakeTxManager struct{}

func (fakeTxManager) Atomic(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }
func (fakeTxManager) Degraded() bool                                              { return false }

// MockWithdrawalStore é uma implementação mock da interface WithdrawalStore.
type MockWithdrawalStore struct {
	mock.Mock
}

func (m *MockWithdrawalStore) WithTx(tx *sql.Tx) repository.WithdrawalStore { return m }

func (m *MockWithdrawalStore) Insert(ctx context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalStore) FindByID(ctx context.Context, id string) (domain.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalStore) FindByIDForUpdate(ctx context.Context, id string) (domain.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalStore) HasPendingForProduct(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalStore) Update(ctx context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalStore) ListByProduct(ctx context.Context, productID string) ([]domain.WithdrawalRequest, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.WithdrawalRequest), args.Error(1)
}

// MockProductWorkflow é uma implementação mock da interface ProductWorkflow.
type MockProductWorkflow struct {
	mock.Mock
}

func (m *MockProductWorkflow) BeginWithdrawal(ctx context.Context, tx *sql.Tx, productID string) (domain.Product, error) {
	args := m.Called(ctx, tx, productID)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductWorkflow) FinishWithdrawal(ctx context.Context, tx *sql.Tx, productID string, quantity int, userID, reason string) (domain.Product, error) {
	args := m.Called(ctx, tx, productID, quantity, userID, reason)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductWorkflow) ReleaseWithdrawal(ctx context.Context, tx *sql.Tx, productID string) (domain.Product, error) {
	args := m.Called(ctx, tx, productID)
	return args.Get(0).(domain.Product), args.Error(1)
}

func newService(withdrawals *MockWithdrawalStore, products *MockProductWorkflow) *withdrawalservice.Service {
	return withdrawalservice.NewService(withdrawals, products, fakeTxManager{}, logger.NewLogger("debug"))
}

func pendingRequest(kind domain.WithdrawalKind, quantity int) domain.WithdrawalRequest {
	return domain.WithdrawalRequest{
		ID:          uuid.New().String(),
		ProductID:   uuid.New().String(),
		Kind:        kind,
		Quantity:    quantity,
		Status:      domain.WithdrawalPendente,
		RequestedBy: uuid.New().String(),
		Reason:      "Retirada pelo cliente",
	}
}

// TestRequest_Success_Total testa a abertura de uma solicitação TOTAL: o
// produto vai para AGUARDANDO_RETIRADA e a quantidade registrada é a do lote.
func TestRequest_Success_Total(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	productID := uuid.New().String()
	requestedBy := uuid.New().String()

	mockStore.On("HasPendingForProduct", mock.Anything, productID).Return(false, nil)
	mockProducts.On("BeginWithdrawal", mock.Anything, mock.Anything, productID).
		Return(domain.Product{ID: productID, Quantity: 8, Status: domain.StatusAguardandoRetirada}, nil)
	mockStore.On("Insert", mock.Anything, mock.MatchedBy(func(w domain.WithdrawalRequest) bool {
		return w.ProductID == productID &&
			w.Kind == domain.WithdrawalTotal &&
			w.Quantity == 8 &&
			w.Status == domain.WithdrawalPendente &&
			w.RequestedBy == requestedBy
	})).Return(pendingRequest(domain.WithdrawalTotal, 8), nil)

	created, err := svc.Request(context.Background(), withdrawalservice.RequestInput{
		ProductID:   productID,
		Kind:        domain.WithdrawalTotal,
		RequestedBy: requestedBy,
		Reason:      "Retirada pelo cliente",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPendente, created.Status)
	mockStore.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

// TestRequest_Fail_DuplicatePending testa a regra de no máximo uma
// solicitação pendente por produto.
func TestRequest_Fail_DuplicatePending(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	productID := uuid.New().String()
	mockStore.On("HasPendingForProduct", mock.Anything, productID).Return(true, nil)

	_, err := svc.Request(context.Background(), withdrawalservice.RequestInput{
		ProductID:   productID,
		Kind:        domain.WithdrawalTotal,
		RequestedBy: uuid.New().String(),
		Reason:      "Segunda tentativa",
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	mockProducts.AssertNotCalled(t, "BeginWithdrawal", mock.Anything, mock.Anything, mock.Anything)
	mockStore.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

// TestRequest_Fail_ConcurrentDuplicate testa a corrida de duas aberturas
// simultâneas: a perdedora passa pela checagem de pendência antes do commit
// da vencedora, encontra o produto já em AGUARDANDO_RETIRADA ao obter o
// bloqueio da linha e, com a pendência rechecada, recebe o mesmo conflito do
// caminho sequencial.
func TestRequest_Fail_ConcurrentDuplicate(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	productID := uuid.New().String()
	mockStore.On("HasPendingForProduct", mock.Anything, productID).Return(false, nil).Once()
	mockProducts.On("BeginWithdrawal", mock.Anything, mock.Anything, productID).
		Return(domain.Product{}, apperror.NewInvalidTransitionError(productID,
			string(domain.StatusAguardandoRetirada), string(domain.StatusAguardandoRetirada)))
	mockStore.On("HasPendingForProduct", mock.Anything, productID).Return(true, nil).Once()

	_, err := svc.Request(context.Background(), withdrawalservice.RequestInput{
		ProductID:   productID,
		Kind:        domain.WithdrawalTotal,
		RequestedBy: uuid.New().String(),
		Reason:      "Segunda abertura concorrente",
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	mockStore.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	mockStore.AssertExpectations(t)
}

// TestRequest_Fail_ParcialWithoutQuantity testa a validação de quantidade
// para retirada PARCIAL.
func TestRequest_Fail_ParcialWithoutQuantity(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	_, err := svc.Request(context.Background(), withdrawalservice.RequestInput{
		ProductID:   uuid.New().String(),
		Kind:        domain.WithdrawalParcial,
		Quantity:    0,
		RequestedBy: uuid.New().String(),
		Reason:      "Retirada parcial",
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockStore.AssertNotCalled(t, "HasPendingForProduct", mock.Anything, mock.Anything)
}

// TestRequest_Fail_ProductNotLocado testa a propagação da recusa da máquina
// de estados quando o produto não está LOCADO.
func TestRequest_Fail_ProductNotLocado(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	productID := uuid.New().String()
	mockStore.On("HasPendingForProduct", mock.Anything, productID).Return(false, nil)
	mockProducts.On("BeginWithdrawal", mock.Anything, mock.Anything, productID).
		Return(domain.Product{}, apperror.NewInvalidTransitionError(productID,
			string(domain.StatusAguardandoLocacao), string(domain.StatusAguardandoRetirada)))

	_, err := svc.Request(context.Background(), withdrawalservice.RequestInput{
		ProductID:   productID,
		Kind:        domain.WithdrawalTotal,
		RequestedBy: uuid.New().String(),
		Reason:      "Retirada",
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.InvalidTransitionError{}, err)
	mockStore.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

// TestConfirm_Success_Total testa a confirmação de uma retirada TOTAL: a
// solicitação vira CONFIRMADO e a consumação integral é delegada ao produto
// (quantity 0 = lote inteiro, qualquer que seja a quantidade corrente).
func TestConfirm_Success_Total(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	w := pendingRequest(domain.WithdrawalTotal, 8)
	confirmedBy := uuid.New().String()

	mockStore.On("FindByIDForUpdate", mock.Anything, w.ID).Return(w, nil)
	mockStore.On("Update", mock.Anything, mock.MatchedBy(func(up domain.WithdrawalRequest) bool {
		return up.Status == domain.WithdrawalConfirmado &&
			up.ResolvedBy != nil && *up.ResolvedBy == confirmedBy &&
			up.ResolvedAt != nil
	})).Return(w, nil)
	mockProducts.On("FinishWithdrawal", mock.Anything, mock.Anything, w.ProductID, 0, confirmedBy, w.Reason).
		Return(domain.Product{ID: w.ProductID, Status: domain.StatusRetirado}, nil)

	_, err := svc.Confirm(context.Background(), w.ID, confirmedBy, "Conferido no portão")

	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

// TestConfirm_Success_Parcial testa que a confirmação PARCIAL delega a
// quantidade registrada na solicitação.
func TestConfirm_Success_Parcial(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	w := pendingRequest(domain.WithdrawalParcial, 3)
	confirmedBy := uuid.New().String()

	mockStore.On("FindByIDForUpdate", mock.Anything, w.ID).Return(w, nil)
	mockStore.On("Update", mock.Anything, mock.AnythingOfType("domain.WithdrawalRequest")).Return(w, nil)
	mockProducts.On("FinishWithdrawal", mock.Anything, mock.Anything, w.ProductID, 3, confirmedBy, w.Reason).
		Return(domain.Product{ID: w.ProductID, Status: domain.StatusLocado, Quantity: 5}, nil)

	_, err := svc.Confirm(context.Background(), w.ID, confirmedBy, "")

	assert.NoError(t, err)
	mockProducts.AssertExpectations(t)
}

// TestConfirm_Fail_AlreadyResolved testa a recusa de confirmar uma
// solicitação já resolvida (CONFIRMADO e CANCELADO são finais).
func TestConfirm_Fail_AlreadyResolved(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	w := pendingRequest(domain.WithdrawalTotal, 8)
	w.Status = domain.WithdrawalCancelado

	mockStore.On("FindByIDForUpdate", mock.Anything, w.ID).Return(w, nil)

	_, err := svc.Confirm(context.Background(), w.ID, uuid.New().String(), "")

	assert.Error(t, err)
	assert.IsType(t, &apperror.InvalidStateError{}, err)
	mockProducts.AssertNotCalled(t, "FinishWithdrawal",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockStore.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestCancel_Success testa o cancelamento: o produto reverte para LOCADO,
// a solicitação vira CANCELADO e nenhuma movimentação é gerada.
func TestCancel_Success(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	w := pendingRequest(domain.WithdrawalTotal, 8)
	canceledBy := uuid.New().String()

	mockStore.On("FindByIDForUpdate", mock.Anything, w.ID).Return(w, nil)
	mockProducts.On("ReleaseWithdrawal", mock.Anything, mock.Anything, w.ProductID).
		Return(domain.Product{ID: w.ProductID, Status: domain.StatusLocado}, nil)
	mockStore.On("Update", mock.Anything, mock.MatchedBy(func(up domain.WithdrawalRequest) bool {
		return up.Status == domain.WithdrawalCancelado &&
			up.ResolvedBy != nil && *up.ResolvedBy == canceledBy &&
			up.Notes == "Cliente desistiu"
	})).Return(w, nil)

	_, err := svc.Cancel(context.Background(), w.ID, canceledBy, "Cliente desistiu")

	assert.NoError(t, err)
	mockProducts.AssertNotCalled(t, "FinishWithdrawal",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockStore.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

// TestCancel_Fail_AlreadyResolved testa a recusa de cancelar uma solicitação
// já resolvida.
func TestCancel_Fail_AlreadyResolved(t *testing.T) {
	mockStore := new(MockWithdrawalStore)
	mockProducts := new(MockProductWorkflow)
	svc := newService(mockStore, mockProducts)

	w := pendingRequest(domain.WithdrawalTotal, 8)
	w.Status = domain.WithdrawalConfirmado

	mockStore.On("FindByIDForUpdate", mock.Anything, w.ID).Return(w, nil)

	_, err := svc.Cancel(context.Background(), w.ID, uuid.New().String(), "Tarde demais")

	assert.Error(t, err)
	assert.IsType(t, &apperror.InvalidStateError{}, err)
	mockProducts.AssertNotCalled(t, "ReleaseWithdrawal", mock.Anything, mock.Anything, mock.Anything)
}
