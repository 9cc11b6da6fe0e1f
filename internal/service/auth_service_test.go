package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gestaoboulevard/painel/internal/auth"
	"github.com/gestaoboulevard/painel/internal/diretorio"
)

const segredoTeste = "um-segredo-de-teste-com-32-bytes!"

type stubDiretorio struct {
	usuarios map[uuid.UUID]*diretorio.Usuario
}

func (s *stubDiretorio) GetByID(ctx context.Context, id uuid.UUID) (*diretorio.Usuario, error) {
	u, ok := s.usuarios[id]
	if !ok {
		return nil, diretorio.ErrNotFound
	}
	return u, nil
}

func (s *stubDiretorio) GetByEmail(ctx context.Context, email string) (*diretorio.Usuario, error) {
	for _, u := range s.usuarios {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, diretorio.ErrNotFound
}

func (s *stubDiretorio) UpdateSenha(ctx context.Context, id uuid.UUID, senhaHash string) error {
	u, ok := s.usuarios[id]
	if !ok {
		return diretorio.ErrNotFound
	}
	u.SenhaHash = &senhaHash
	return nil
}

// fakeRedis grava chaves em memória para inspecionar sessões nos testes.
type fakeRedis struct {
	valores map[string]string
	dels    []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{valores: map[string]string{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.valores[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if v, ok := f.valores[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.valores, k)
	}
	f.dels = append(f.dels, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func usuarioAtivo(t *testing.T, senha string) *diretorio.Usuario {
	t.Helper()
	hash, err := auth.Hash(senha)
	require.NoError(t, err)
	return &diretorio.Usuario{
		ID:        uuid.New(),
		Nome:      "Maria",
		Email:     "maria@gestaoboulevard.com.br",
		Papel:     diretorio.PapelGestor,
		Areas:     []string{diretorio.AreaManutencao},
		Status:    diretorio.StatusAtivo,
		SenhaHash: &hash,
	}
}

func novoAuthService(t *testing.T, usuario *diretorio.Usuario, redisFake *fakeRedis) (*AuthService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	repo := &stubDiretorio{usuarios: map[uuid.UUID]*diretorio.Usuario{usuario.ID: usuario}}
	jwtMgr := auth.NewJWTManager(segredoTeste, 15*time.Minute)
	return NewAuthService(repo, mock, redisFake, jwtMgr, 24*time.Hour), mock
}

func esperaEmissaoDeSessao(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(`INSERT INTO tokens_refresh`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "painel", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE tokens_refresh\s+SET revogado = TRUE\s+WHERE subject = \$1 AND token_hash <> \$2 AND NOT revogado`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
}

func TestLoginZeraResumoDaSessao(t *testing.T) {
	usuario := usuarioAtivo(t, "senha-forte-123")
	redisFake := newFakeRedis()
	// Sobra de uma sessão anterior do mesmo usuário.
	redisFake.valores[auth.ResumoRedisKey(usuario.ID.String())] = "exibido"

	svc, mock := novoAuthService(t, usuario, redisFake)
	defer mock.Close()

	esperaEmissaoDeSessao(mock)

	result, err := svc.Login(context.Background(), usuario.Email, "senha-forte-123")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	_, sobrou := redisFake.valores[auth.ResumoRedisKey(usuario.ID.String())]
	require.False(t, sobrou, "login deveria zerar a marca do resumo da sessão anterior")
	require.Equal(t, "active", redisFake.valores[auth.RefreshRedisKey(auth.HashToken(result.RefreshToken))])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRotacionaSemRearmarResumo(t *testing.T) {
	usuario := usuarioAtivo(t, "senha-forte-123")
	redisFake := newFakeRedis()

	raw, hash, err := auth.GenerateToken()
	require.NoError(t, err)
	redisFake.valores[auth.RefreshRedisKey(hash)] = "active"
	// Resumo já exibido nesta sessão.
	resumoKey := auth.ResumoRedisKey(usuario.ID.String())
	redisFake.valores[resumoKey] = "exibido"

	svc, mock := novoAuthService(t, usuario, redisFake)
	defer mock.Close()

	mock.ExpectQuery(`SELECT subject, expiracao, revogado FROM tokens_refresh WHERE token_hash = \$1`).
		WithArgs(hash).
		WillReturnRows(pgxmock.NewRows([]string{"subject", "expiracao", "revogado"}).
			AddRow(usuario.ID, time.Now().Add(time.Hour), false))
	esperaEmissaoDeSessao(mock)
	mock.ExpectExec(`UPDATE tokens_refresh SET revogado = TRUE WHERE token_hash = \$1`).
		WithArgs(hash).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	result, err := svc.Refresh(context.Background(), raw)
	require.NoError(t, err)
	require.NotEqual(t, raw, result.RefreshToken, "refresh deveria rotacionar o token")

	// A rotação do token não reabre o resumo dentro da mesma sessão.
	require.Equal(t, "exibido", redisFake.valores[resumoKey])
	require.NotContains(t, redisFake.dels, resumoKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRevogadoNoRedisFalha(t *testing.T) {
	usuario := usuarioAtivo(t, "senha-forte-123")
	redisFake := newFakeRedis()

	raw, hash, err := auth.GenerateToken()
	require.NoError(t, err)

	svc, mock := novoAuthService(t, usuario, redisFake)
	defer mock.Close()

	mock.ExpectQuery(`SELECT subject, expiracao, revogado FROM tokens_refresh WHERE token_hash = \$1`).
		WithArgs(hash).
		WillReturnRows(pgxmock.NewRows([]string{"subject", "expiracao", "revogado"}).
			AddRow(usuario.ID, time.Now().Add(time.Hour), false))

	_, err = svc.Refresh(context.Background(), raw)
	require.ErrorIs(t, err, ErrRefreshInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}
