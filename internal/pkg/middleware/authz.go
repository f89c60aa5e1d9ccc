package middleware

import (
	"net/http"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
)

// Action identifica uma operação do núcleo para fins de autorização.
type Action string

const (
	ActionProductRead     Action = "product:read"
	ActionProductCreate   Action = "product:create"
	ActionProductAllocate Action = "product:allocate"
	ActionProductMove     Action = "product:move"
	ActionProductRemove   Action = "product:remove"

	ActionChamberManage Action = "chamber:manage"
	ActionLocationRead  Action = "location:read"
	ActionMovementRead  Action = "movement:read"

	ActionWithdrawalRequest Action = "withdrawal:request"
	ActionWithdrawalResolve Action = "withdrawal:resolve" // confirmar ou cancelar
)

// capabilities é a tabela única de permissões, chaveada por (role, action).
// Toda verificação de permissão passa por aqui, na camada de orquestração;
// o núcleo permanece agnóstico de autorização e apenas registra a
// identidade do ator em cada registro.
var capabilities = map[domain.UserRole]map[Action]bool{
	domain.RoleAdmin: {
		ActionProductRead: true, ActionProductCreate: true, ActionProductAllocate: true,
		ActionProductMove: true, ActionProductRemove: true,
		ActionChamberManage: true, ActionLocationRead: true, ActionMovementRead: true,
		ActionWithdrawalRequest: true, ActionWithdrawalResolve: true,
	},
	domain.RoleOperator: {
		ActionProductRead: true, ActionProductCreate: true, ActionProductAllocate: true,
		ActionProductMove: true,
		ActionLocationRead: true, ActionMovementRead: true,
		ActionWithdrawalRequest: true,
	},
	domain.RoleViewer: {
		ActionProductRead: true, ActionLocationRead: true, ActionMovementRead: true,
	},
}

// Can consulta a tabela de capacidades. Pares (role, action) desconhecidos
// negam por padrão.
func Can(role domain.UserRole, action Action) bool {
	return capabilities[role][action]
}

// RequireCapability cria um middleware que nega a requisição quando a role
// do usuário autenticado não possui a capacidade exigida.
func RequireCapability(action Action) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {

			claims, ok := GetUserClaimsFromContext(r.Context())
			if !ok {
				// AuthMiddleware não rodou ou falhou em anexar as claims.
				http.Error(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado.").Error(), http.StatusUnauthorized)
				return
			}

			if !Can(claims.Role, action) {
				http.Error(w, apperror.NewUnauthorizedError("Acesso negado. Você não tem a permissão necessária.").Error(), http.StatusForbidden) // 403
				return
			}

			next.ServeHTTP(w, r)
		}
	}
}
