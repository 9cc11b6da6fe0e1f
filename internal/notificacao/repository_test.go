package notificacao

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewRepository(mock), mock
}

var colunasMock = []string{
	"id", "destinatario_id", "titulo", "mensagem", "tipo", "lida", "ocorrencia_id", "criado_em",
}

func TestRepositoryListaCortadaNoTeto(t *testing.T) {
	repo, mock := newMockRepo(t)
	defer mock.Close()

	destinatario := uuid.New()
	base := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

	// O banco devolve no máximo LimiteExibicao linhas; notificações mais
	// antigas que as 50 primeiras ficam de fora da listagem.
	rows := pgxmock.NewRows(colunasMock)
	for i := 0; i < LimiteExibicao; i++ {
		rows.AddRow(uuid.New(), destinatario, "Nova ocorrência", "detalhes", TipoNova,
			false, nil, base.Add(-time.Duration(i)*time.Minute))
	}

	mock.ExpectQuery(`FROM notificacoes\s+WHERE destinatario_id = \$1\s+ORDER BY criado_em DESC\s+LIMIT \$2`).
		WithArgs(destinatario, LimiteExibicao).
		WillReturnRows(rows)

	lista, err := repo.ListByDestinatario(context.Background(), destinatario)
	require.NoError(t, err)
	require.Len(t, lista, LimiteExibicao)
	require.True(t, lista[0].CriadoEm.After(lista[len(lista)-1].CriadoEm),
		"listagem deveria vir da mais nova para a mais antiga")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarcarLidaEscopadaAoDestinatario(t *testing.T) {
	repo, mock := newMockRepo(t)
	defer mock.Close()

	id := uuid.New()
	outro := uuid.New()
	mock.ExpectExec(`UPDATE notificacoes SET lida = TRUE WHERE id = \$1 AND destinatario_id = \$2`).
		WithArgs(id, outro).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarcarLida(context.Background(), id, outro)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
