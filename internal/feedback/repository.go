package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaoboulevard/painel/internal/db"
)

// Repository provê acesso à tabela de feedbacks.
type Repository struct {
	pool db.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

const colunas = "id, autor_id, autor_nome, tipo, mensagem, lida, comentarios, criado_em"

// Create insere novo feedback.
func (r *Repository) Create(ctx context.Context, input CriarInput) (*Feedback, error) {
	query := fmt.Sprintf(`
        INSERT INTO feedbacks (autor_id, autor_nome, tipo, mensagem)
        VALUES ($1, $2, $3, $4)
        RETURNING %s`, colunas)

	row := r.pool.QueryRow(ctx, query,
		input.AutorID,
		strings.TrimSpace(input.AutorNome),
		NormalizeTipo(input.Tipo),
		strings.TrimSpace(input.Mensagem),
	)
	return scanFeedback(row)
}

// List devolve os feedbacks mais recentes primeiro.
func (r *Repository) List(ctx context.Context) ([]Feedback, error) {
	query := fmt.Sprintf("SELECT %s FROM feedbacks ORDER BY criado_em DESC", colunas)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lista []Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		lista = append(lista, *f)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return lista, nil
}

// MarcarLida vira a flag de leitura.
func (r *Repository) MarcarLida(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE feedbacks SET lida = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdicionarComentario acrescenta resposta ao fio. O append acontece no SQL,
// sem reescrever comentários anteriores.
func (r *Repository) AdicionarComentario(ctx context.Context, id uuid.UUID, comentario Comentario) error {
	payload, err := json.Marshal(comentario)
	if err != nil {
		return err
	}

	const query = `
        UPDATE feedbacks
        SET comentarios = comentarios || $2::jsonb
        WHERE id = $1
    `

	cmd, err := r.pool.Exec(ctx, query, id, payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (*Feedback, error) {
	var (
		f              Feedback
		comentariosRaw []byte
	)

	err := row.Scan(&f.ID, &f.AutorID, &f.AutorNome, &f.Tipo, &f.Mensagem, &f.Lida, &comentariosRaw, &f.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	f.Comentarios = []Comentario{}
	if len(comentariosRaw) > 0 {
		if err := json.Unmarshal(comentariosRaw, &f.Comentarios); err != nil {
			return nil, fmt.Errorf("comentarios: %w", err)
		}
	}

	return &f, nil
}
