package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"semestock/config"
	"semestock/internal/domain"
	"semestock/internal/pkg/cache"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/pkg/middleware"
	"semestock/internal/pkg/token"

	// Camadas da API para Injeção de Dependências
	"semestock/internal/api/chamber"
	"semestock/internal/api/location"
	"semestock/internal/api/movement"
	"semestock/internal/api/product"
	"semestock/internal/api/router"
	"semestock/internal/api/user"
	"semestock/internal/api/withdrawal"
	"semestock/internal/repository/chamberrepo"
	"semestock/internal/repository/locationrepo"
	"semestock/internal/repository/movementrepo"
	"semestock/internal/repository/productrepo"
	"semestock/internal/repository/userrepo"
	"semestock/internal/repository/withdrawalrepo"
	"semestock/internal/service/locationservice"
	"semestock/internal/service/movementservice"
	"semestock/internal/service/productservice"
	"semestock/internal/service/userservice"
	"semestock/internal/service/withdrawalservice"
)

func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço SemeStock...")
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado (ou houver erro de leitura),
		// avisamos, mas continuamos, pois as variáveis essenciais podem
		// estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig() // Carrega as configurações (URLs, Timeouts, etc.)
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close() // Fecha a conexão de DB ao sair
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// C. Gerenciador de Transações
	// As operações compostas (alocação, transferência, retirada) rodam
	// dentro de uma única transação; o fallback degradado só é ativado
	// por configuração explícita.
	txManager := database.NewTxManager(db, cfg.TxDegradedFallback, log)
	if cfg.TxDegradedFallback {
		log.Warn("Fallback de modo degradado HABILITADO: operações compostas podem rodar sem transação.", nil)
	}

	// 3. INJEÇÃO DE DEPENDÊNCIAS (Montagem da Clean Architecture)
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios (Camada de Acesso a Dados)
	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, log)
	chamberRepo := chamberrepo.NewChamberRepository(db, cfg.DBTimeout, log)
	locationRepo := locationrepo.NewLocationRepository(db, cfg.DBTimeout, log)
	movementRepo := movementrepo.NewMovementRepository(db, cfg.DBTimeout, log)
	withdrawalRepo := withdrawalrepo.NewWithdrawalRepository(db, cfg.DBTimeout, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// B. Serviços (Camada de Lógica de Negócio)
	allocator := locationservice.NewAllocator(locationRepo, log)
	locationSvc := locationservice.NewService(chamberRepo, locationRepo, txManager, log)
	movementSvc := movementservice.NewService(movementRepo, productRepo, txManager, log)
	productSvc := productservice.NewService(productRepo, allocator, movementSvc, txManager, domain.DefaultTransitions(), log)
	withdrawalSvc := withdrawalservice.NewService(withdrawalRepo, productSvc, txManager, log)
	log.Debug("Serviços de estoque inicializados.", nil)

	// C. Serviço de Tokens (JWT) e Usuários
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	userSvc := userservice.NewService(userRepo, tokenSvc)
	log.Debug("Serviços de sessão inicializados.", nil)

	// D. Handlers (Camada de Apresentação)
	handlers := router.Handlers{
		User:       user.NewHandler(userSvc, log),
		Product:    product.NewHandler(productSvc, log),
		Chamber:    chamber.NewHandler(locationSvc, log),
		Location:   location.NewHandler(locationSvc, log),
		Movement:   movement.NewHandler(movementSvc, log),
		Withdrawal: withdrawal.NewHandler(withdrawalSvc, log),
	}
	log.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor

	// O roteador recebe os Handlers e o middleware de autenticação;
	// o rate limiter (Redis) envolve o roteador inteiro.
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	r := router.NewRouter(handlers, authMiddleware)
	handler := middleware.RateLimiter(cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler, // O roteador final
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor SemeStock ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
