package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaoboulevard/painel/internal/config"
	"github.com/gestaoboulevard/painel/internal/diretorio"
	"github.com/gestaoboulevard/painel/internal/feedback"
	httpmiddleware "github.com/gestaoboulevard/painel/internal/http/middleware"
	"github.com/gestaoboulevard/painel/internal/notificacao"
	"github.com/gestaoboulevard/painel/internal/ocorrencia"
	"github.com/gestaoboulevard/painel/internal/prazo"
	"github.com/gestaoboulevard/painel/internal/service"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	ocorrencias   *ocorrencia.Service
	notificacoes  *notificacao.Repository
	diretorio     *diretorio.Service
	usuarios      *diretorio.Repository
	feedbacks     *feedback.Repository
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devolve roteador configurado com todos os domínios montados e o
// serviço de varredura de prazos. Quem chama é dono do ciclo de vida da
// varredura (Start/Stop).
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService) (http.Handler, *prazo.Service, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	usuarioRepo := diretorio.NewRepository(pool)
	notificacaoRepo := notificacao.NewRepository(pool)
	diretorioService := diretorio.NewService(usuarioRepo, notificacaoRepo, cfg.ConviteTTL)

	ocorrenciaRepo := ocorrencia.NewRepository(pool)
	ocorrenciaService := ocorrencia.NewService(ocorrenciaRepo, usuarioRepo, notificacaoRepo)

	feedbackRepo := feedback.NewRepository(pool)

	prazoLogger := log.With().Str("component", "prazos").Logger()
	prazoService := prazo.NewService(ocorrenciaRepo, usuarioRepo, notificacaoRepo, cfg.Prazos, prazoLogger)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		ocorrencias:   ocorrenciaService,
		notificacoes:  notificacaoRepo,
		diretorio:     diretorioService,
		usuarios:      usuarioRepo,
		feedbacks:     feedbackRepo,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
			auth.Post("/convite/aceitar", h.AceitarConvite)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Put("/auth/senha", h.TrocarSenha)

		private.Route("/ocorrencias", func(o chi.Router) {
			o.Get("/", h.ListOcorrencias)
			o.Post("/", h.CreateOcorrencia)
			o.Get("/{id}", h.GetOcorrencia)
			o.Patch("/{id}", h.UpdateOcorrencia)
			o.Post("/{id}/atualizacoes", h.AddAtualizacao)
			o.Post("/{id}/prazo", h.DefinirPrazo)
			o.Delete("/{id}", h.SoftDeleteOcorrencia)
			o.Post("/{id}/restaurar", h.RestoreOcorrencia)
			o.Delete("/{id}/definitivo", h.HardDeleteOcorrencia)
		})

		private.Route("/notificacoes", func(n chi.Router) {
			n.Get("/", h.ListNotificacoes)
			n.Get("/resumo", h.ResumoSessao)
			n.Post("/{id}/lida", h.MarcarNotificacaoLida)
			n.Post("/lidas", h.MarcarTodasLidas)
		})

		private.Route("/usuarios", func(u chi.Router) {
			u.Use(httpmiddleware.RequirePapeis(diretorio.PapelAdmin, diretorio.PapelDiretor))
			u.Get("/", h.ListUsuarios)
			u.Post("/convite", h.ConvidarUsuario)
			u.Patch("/{id}", h.EditarUsuario)
			u.Post("/{id}/bloquear", h.BloquearUsuario)
			u.Post("/{id}/desbloquear", h.DesbloquearUsuario)
			u.Delete("/{id}", h.ExcluirUsuario)
		})

		private.Route("/feedbacks", func(f chi.Router) {
			f.Post("/", h.CreateFeedback)
			f.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequirePapeis(diretorio.PapelAdmin, diretorio.PapelDiretor))
				admin.Get("/", h.ListFeedbacks)
				admin.Post("/{id}/lida", h.MarcarFeedbackLido)
				admin.Post("/{id}/comentarios", h.ComentarFeedback)
			})
		})
	})

	return r, prazoService, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
