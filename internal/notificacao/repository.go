package notificacao

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaoboulevard/painel/internal/db"
)

// Repository provê acesso à tabela de notificações.
type Repository struct {
	pool db.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateLote insere todas as notificações em um único lote transacional:
// ou todas entram, ou nenhuma.
func (r *Repository) CreateLote(ctx context.Context, inputs []CriarInput) error {
	if len(inputs) == 0 {
		return nil
	}

	const query = `
        INSERT INTO notificacoes (destinatario_id, titulo, mensagem, tipo, ocorrencia_id)
        VALUES ($1, $2, $3, $4, $5)
    `

	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, input := range inputs {
			batch.Queue(query, input.DestinatarioID, input.Titulo, input.Mensagem, input.Tipo, input.OcorrenciaID)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range inputs {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("lote de notificações: %w", err)
			}
		}
		return nil
	})
}

// ListByDestinatario devolve as mais recentes, com teto de exibição.
func (r *Repository) ListByDestinatario(ctx context.Context, destinatarioID uuid.UUID) ([]Notificacao, error) {
	const query = `
        SELECT id, destinatario_id, titulo, mensagem, tipo, lida, ocorrencia_id, criado_em
        FROM notificacoes
        WHERE destinatario_id = $1
        ORDER BY criado_em DESC
        LIMIT $2
    `

	rows, err := r.pool.Query(ctx, query, destinatarioID, LimiteExibicao)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lista []Notificacao
	for rows.Next() {
		var n Notificacao
		if err := rows.Scan(&n.ID, &n.DestinatarioID, &n.Titulo, &n.Mensagem, &n.Tipo, &n.Lida, &n.OcorrenciaID, &n.CriadoEm); err != nil {
			return nil, err
		}
		lista = append(lista, n)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return lista, nil
}

// CountNaoLidas conta pendentes do destinatário.
func (r *Repository) CountNaoLidas(ctx context.Context, destinatarioID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM notificacoes WHERE destinatario_id = $1 AND NOT lida`

	var total int
	if err := r.pool.QueryRow(ctx, query, destinatarioID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MarcarLida vira a flag de leitura de um registro do destinatário.
func (r *Repository) MarcarLida(ctx context.Context, id, destinatarioID uuid.UUID) error {
	const query = `UPDATE notificacoes SET lida = TRUE WHERE id = $1 AND destinatario_id = $2`

	cmd, err := r.pool.Exec(ctx, query, id, destinatarioID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarcarTodasLidas vira a flag de todas as pendentes do destinatário.
func (r *Repository) MarcarTodasLidas(ctx context.Context, destinatarioID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notificacoes SET lida = TRUE WHERE destinatario_id = $1 AND NOT lida`,
		destinatarioID)
	return err
}

// DeleteByDestinatario remove todas as notificações do usuário. Usado na
// exclusão de contas.
func (r *Repository) DeleteByDestinatario(ctx context.Context, destinatarioID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notificacoes WHERE destinatario_id = $1`, destinatarioID)
	return err
}
