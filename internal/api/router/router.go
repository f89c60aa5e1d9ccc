package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"semestock/internal/api/chamber"
	"semestock/internal/api/location"
	"semestock/internal/api/movement"
	"semestock/internal/api/product"
	"semestock/internal/api/user"
	"semestock/internal/api/withdrawal"
	"semestock/internal/pkg/middleware"
)

// Handlers agrupa os Handlers já inicializados por injeção de dependências.
type Handlers struct {
	User       *user.Handler
	Product    *product.Handler
	Chamber    *chamber.Handler
	Location   *location.Handler
	Movement   *movement.Handler
	Withdrawal *withdrawal.Handler
}

// NewRouter configura e retorna o roteador HTTP principal.
// Usamos o ServeMux padrão do net/http com os padrões de método+wildcard
// do Go 1.22; toda rota protegida passa pelo AuthMiddleware (JWT) e pela
// verificação de capacidade (role, action) antes de chegar ao núcleo.
func NewRouter(h Handlers, auth func(http.HandlerFunc) http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()

	// protected encadeia autenticação + capacidade exigida pela rota.
	protected := func(action middleware.Action, next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireCapability(action)(next))
	}

	// Health check e documentação.
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// Sessão (rotas públicas).
	mux.HandleFunc("POST /v1/users/register", h.User.RegisterHandler)
	mux.HandleFunc("POST /v1/users/login", h.User.LoginHandler)

	// Produtos (máquina de estados do lote).
	mux.HandleFunc("POST /v1/products", protected(middleware.ActionProductCreate, h.Product.CreateProductHandler))
	mux.HandleFunc("GET /v1/products", protected(middleware.ActionProductRead, h.Product.ListProductsHandler))
	mux.HandleFunc("GET /v1/products/{id}", protected(middleware.ActionProductRead, h.Product.GetProductByIDHandler))
	mux.HandleFunc("POST /v1/products/{id}/allocate", protected(middleware.ActionProductAllocate, h.Product.AllocateProductHandler))
	mux.HandleFunc("POST /v1/products/{id}/move", protected(middleware.ActionProductMove, h.Product.MoveProductHandler))
	mux.HandleFunc("POST /v1/products/{id}/split-move", protected(middleware.ActionProductMove, h.Product.SplitMoveProductHandler))
	mux.HandleFunc("POST /v1/products/{id}/split-exit", protected(middleware.ActionProductMove, h.Product.SplitExitProductHandler))
	mux.HandleFunc("POST /v1/products/{id}/add-stock", protected(middleware.ActionProductMove, h.Product.AddStockHandler))
	mux.HandleFunc("DELETE /v1/products/{id}", protected(middleware.ActionProductRemove, h.Product.RemoveProductHandler))

	// Câmaras e localizações.
	mux.HandleFunc("POST /v1/chambers", protected(middleware.ActionChamberManage, h.Chamber.CreateChamberHandler))
	mux.HandleFunc("GET /v1/chambers", protected(middleware.ActionLocationRead, h.Chamber.ListChambersHandler))
	mux.HandleFunc("GET /v1/chambers/{id}", protected(middleware.ActionLocationRead, h.Chamber.GetChamberByIDHandler))
	mux.HandleFunc("PUT /v1/chambers/{id}", protected(middleware.ActionChamberManage, h.Chamber.UpdateChamberHandler))
	mux.HandleFunc("POST /v1/chambers/{id}/locations", protected(middleware.ActionChamberManage, h.Chamber.ProvisionLocationsHandler))
	mux.HandleFunc("GET /v1/chambers/{id}/locations", protected(middleware.ActionLocationRead, h.Chamber.ListLocationsHandler))
	mux.HandleFunc("GET /v1/locations/{id}", protected(middleware.ActionLocationRead, h.Location.GetLocationByIDHandler))

	// Livro de movimentações (histórico + ajuste manual).
	mux.HandleFunc("POST /v1/movements", protected(middleware.ActionProductMove, h.Movement.RecordMovementHandler))
	mux.HandleFunc("GET /v1/products/{id}/movements", protected(middleware.ActionMovementRead, h.Movement.ListByProductHandler))
	mux.HandleFunc("GET /v1/locations/{id}/movements", protected(middleware.ActionMovementRead, h.Movement.ListByLocationHandler))

	// Fluxo de retirada em dois atores.
	mux.HandleFunc("POST /v1/withdrawals", protected(middleware.ActionWithdrawalRequest, h.Withdrawal.RequestWithdrawalHandler))
	mux.HandleFunc("GET /v1/withdrawals/{id}", protected(middleware.ActionProductRead, h.Withdrawal.GetWithdrawalByIDHandler))
	mux.HandleFunc("POST /v1/withdrawals/{id}/confirm", protected(middleware.ActionWithdrawalResolve, h.Withdrawal.ConfirmWithdrawalHandler))
	mux.HandleFunc("POST /v1/withdrawals/{id}/cancel", protected(middleware.ActionWithdrawalResolve, h.Withdrawal.CancelWithdrawalHandler))
	mux.HandleFunc("GET /v1/products/{id}/withdrawals", protected(middleware.ActionProductRead, h.Withdrawal.ListByProductHandler))

	return mux
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
