package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaoboulevard/painel/internal/auth"
	"github.com/gestaoboulevard/painel/internal/db"
	"github.com/gestaoboulevard/painel/internal/diretorio"
	"github.com/gestaoboulevard/painel/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrContaBloqueada indica conta suspensa por administrador.
	ErrContaBloqueada = errors.New("conta bloqueada")
	// ErrContaInativa indica registro pendente ou excluído.
	ErrContaInativa = errors.New("conta inativa")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type diretorioRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*diretorio.Usuario, error)
	GetByEmail(ctx context.Context, email string) (*diretorio.Usuario, error)
	UpdateSenha(ctx context.Context, id uuid.UUID, senhaHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	usuarios   diretorioRepo
	pool       db.Pool
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(usuarios diretorioRepo, pool db.Pool, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{usuarios: usuarios, pool: pool, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Usuario       *diretorio.Usuario
	RefreshExpiry time.Time
}

// Login autentica colaborador por e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, senha string) (*LoginResult, error) {
	usuario, err := s.usuarios.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, diretorio.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	switch usuario.Status {
	case diretorio.StatusAtivo:
	case diretorio.StatusBloqueado:
		return nil, ErrContaBloqueada
	default:
		return nil, ErrContaInativa
	}

	if usuario.SenhaHash == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.Verify(senha, *usuario.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verificação de senha falhou")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	result, err := s.emitirSessao(ctx, usuario)
	if err != nil {
		return nil, err
	}

	// Novo login abre sessão nova: o resumo de boas-vindas volta a valer.
	if err := s.redis.Del(ctx, auth.ResumoRedisKey(usuario.ID.String())).Err(); err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("login: limpeza do resumo de sessão falhou")
	}

	return result, nil
}

// Refresh troca refresh token válido por novos tokens, revogando o anterior.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashToken(rawToken)

	var (
		subject   uuid.UUID
		expiracao time.Time
		revogado  bool
	)
	err := s.pool.QueryRow(ctx,
		`SELECT subject, expiracao, revogado FROM tokens_refresh WHERE token_hash = $1`,
		hash,
	).Scan(&subject, &expiracao, &revogado)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if revogado || util.Now().After(expiracao) {
		return nil, ErrRefreshInvalid
	}

	redisKey := auth.RefreshRedisKey(hash)
	status, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	usuario, err := s.usuarios.GetByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !usuario.Ativo() {
		return nil, ErrRefreshInvalid
	}

	result, err := s.emitirSessao(ctx, usuario)
	if err != nil {
		return nil, err
	}

	// Revoga token anterior (DB + Redis)
	if _, err := s.pool.Exec(ctx, `UPDATE tokens_refresh SET revogado = TRUE WHERE token_hash = $1`, hash); err != nil {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return result, nil
}

// Logout revoga refresh token atual.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashToken(rawToken)
	if _, err := s.pool.Exec(ctx, `UPDATE tokens_refresh SET revogado = TRUE WHERE token_hash = $1`, hash); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// TrocarSenha valida a senha atual antes de gravar a nova.
func (s *AuthService) TrocarSenha(ctx context.Context, id uuid.UUID, senhaAtual, novaSenha string) error {
	if err := util.ValidatePassword(novaSenha); err != nil {
		return err
	}

	usuario, err := s.usuarios.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if usuario.SenhaHash == nil {
		return ErrInvalidCredentials
	}

	ok, err := auth.Verify(senhaAtual, *usuario.SenhaHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, err := auth.Hash(strings.TrimSpace(novaSenha))
	if err != nil {
		return err
	}

	return s.usuarios.UpdateSenha(ctx, id, hash)
}

// GetMe devolve o perfil do subject autenticado.
func (s *AuthService) GetMe(ctx context.Context, id uuid.UUID) (*diretorio.Usuario, error) {
	return s.usuarios.GetByID(ctx, id)
}

func (s *AuthService) emitirSessao(ctx context.Context, usuario *diretorio.Usuario) (*LoginResult, error) {
	token, _, err := s.jwt.GenerateAccessToken(usuario.ID.String(), usuario.Papel, usuario.Areas)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, usuario.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		Usuario:       usuario,
		RefreshExpiry: expires,
	}, nil
}

func (s *AuthService) persistRefresh(ctx context.Context, subject uuid.UUID, hash string, expires time.Time) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO tokens_refresh (id, subject, audience, token_hash, expiracao, criado_em)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, uuid.New(), subject, "painel", hash, expires, util.Now())
	if err != nil {
		return err
	}

	// Sessão única por usuário: invalida os demais tokens ativos.
	_, err = s.pool.Exec(ctx, `
        UPDATE tokens_refresh
        SET revogado = TRUE
        WHERE subject = $1 AND token_hash <> $2 AND NOT revogado
    `, subject, hash)
	if err != nil {
		return err
	}

	return s.redis.Set(ctx, auth.RefreshRedisKey(hash), "active", time.Until(expires)).Err()
}
