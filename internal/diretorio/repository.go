package diretorio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaoboulevard/painel/internal/db"
)

// Repository provê acesso às tabelas de usuários e convites.
type Repository struct {
	pool db.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

const colunasUsuario = "id, nome, email, whatsapp, papel, areas, status, senha_hash, criado_em, atualizado_em"

// GetByID recupera usuário pelo ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Usuario, error) {
	query := fmt.Sprintf("SELECT %s FROM usuarios WHERE id = $1", colunasUsuario)
	row := r.pool.QueryRow(ctx, query, id)
	return scanUsuario(row)
}

// GetByEmail recupera usuário pelo e-mail.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Usuario, error) {
	query := fmt.Sprintf("SELECT %s FROM usuarios WHERE email = $1", colunasUsuario)
	row := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	return scanUsuario(row)
}

// List devolve o diretório completo ordenado por criação.
func (r *Repository) List(ctx context.Context) ([]Usuario, error) {
	query := fmt.Sprintf("SELECT %s FROM usuarios ORDER BY criado_em ASC", colunasUsuario)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, *u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return usuarios, nil
}

// ListAtivos devolve apenas contas aptas a receber notificações.
func (r *Repository) ListAtivos(ctx context.Context) ([]Usuario, error) {
	query := fmt.Sprintf("SELECT %s FROM usuarios WHERE status = $1 ORDER BY criado_em ASC", colunasUsuario)

	rows, err := r.pool.Query(ctx, query, StatusAtivo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, *u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return usuarios, nil
}

// CountAtivosPorPapel conta contas ativas com o papel informado.
func (r *Repository) CountAtivosPorPapel(ctx context.Context, papel string) (int, error) {
	const query = `SELECT COUNT(*) FROM usuarios WHERE papel = $1 AND status = $2`

	var total int
	if err := r.pool.QueryRow(ctx, query, papel, StatusAtivo).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Create insere registro placeholder ou conta completa.
func (r *Repository) Create(ctx context.Context, input CriarUsuarioInput) (*Usuario, error) {
	query := fmt.Sprintf(`
        INSERT INTO usuarios (nome, email, whatsapp, papel, areas, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING %s
    `, colunasUsuario)

	areas := input.Areas
	if areas == nil {
		areas = []string{}
	}

	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(input.Nome),
		strings.ToLower(strings.TrimSpace(input.Email)),
		input.Whatsapp,
		input.Papel,
		areas,
		input.Status,
	)

	return scanUsuario(row)
}

// Update aplica alterações parciais e devolve o registro atualizado.
func (r *Repository) Update(ctx context.Context, input EditarInput) (*Usuario, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if input.Nome != nil {
		setParts = append(setParts, fmt.Sprintf("nome = $%d", idx))
		args = append(args, strings.TrimSpace(*input.Nome))
		idx++
	}
	if input.Whatsapp != nil {
		setParts = append(setParts, fmt.Sprintf("whatsapp = $%d", idx))
		args = append(args, *input.Whatsapp)
		idx++
	}
	if input.Papel != nil {
		setParts = append(setParts, fmt.Sprintf("papel = $%d", idx))
		args = append(args, *input.Papel)
		idx++
	}
	if input.Areas != nil {
		setParts = append(setParts, fmt.Sprintf("areas = $%d", idx))
		args = append(args, input.Areas)
		idx++
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, input.ID)
	}

	setParts = append(setParts, "atualizado_em = now()")
	query := fmt.Sprintf("UPDATE usuarios SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setParts, ", "), idx, colunasUsuario)
	args = append(args, input.ID)

	row := r.pool.QueryRow(ctx, query, args...)
	return scanUsuario(row)
}

// UpdateStatus troca somente o status da conta.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const query = `UPDATE usuarios SET status = $2, atualizado_em = now() WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AtivarComSenha conclui o registro: grava hash da senha e ativa a conta.
func (r *Repository) AtivarComSenha(ctx context.Context, id uuid.UUID, senhaHash string) error {
	const query = `
        UPDATE usuarios
        SET senha_hash = $2, status = $3, atualizado_em = now()
        WHERE id = $1
    `

	cmd, err := r.pool.Exec(ctx, query, id, senhaHash, StatusAtivo)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSenha grava novo hash de senha.
func (r *Repository) UpdateSenha(ctx context.Context, id uuid.UUID, senhaHash string) error {
	const query = `UPDATE usuarios SET senha_hash = $2, atualizado_em = now() WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, id, senhaHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete remove definitivamente o usuário (convites caem em cascata).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByEmail remove registro anterior com o mesmo e-mail (último convite vence).
func (r *Repository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM usuarios WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return err
}

// CreateConvite insere convite vinculado ao placeholder.
func (r *Repository) CreateConvite(ctx context.Context, conv Convite) (*Convite, error) {
	const query = `
        INSERT INTO convites (id, usuario_id, token_hash, expira_em, criado_por)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, usuario_id, token_hash, expira_em, aceito_em, criado_por, criado_em
    `

	row := r.pool.QueryRow(ctx, query, conv.ID, conv.UsuarioID, conv.TokenHash, conv.ExpiraEm, conv.CriadoPor)
	return scanConvite(row)
}

// GetConviteByTokenHash localiza convite pelo hash do token bruto.
func (r *Repository) GetConviteByTokenHash(ctx context.Context, hash string) (*Convite, error) {
	const query = `
        SELECT id, usuario_id, token_hash, expira_em, aceito_em, criado_por, criado_em
        FROM convites
        WHERE token_hash = $1
    `

	row := r.pool.QueryRow(ctx, query, hash)
	conv, err := scanConvite(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrConviteNotFound
		}
		return nil, err
	}
	return conv, nil
}

// MarcarConviteAceito registra o consumo do convite.
func (r *Repository) MarcarConviteAceito(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE convites SET aceito_em = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConviteNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsuario(row rowScanner) (*Usuario, error) {
	var (
		u     Usuario
		areas []string
	)
	err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.Whatsapp, &u.Papel, &areas,
		&u.Status, &u.SenhaHash, &u.CriadoEm, &u.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if areas == nil {
		areas = []string{}
	}
	u.Areas = areas
	return &u, nil
}

func scanConvite(row rowScanner) (*Convite, error) {
	var c Convite
	err := row.Scan(&c.ID, &c.UsuarioID, &c.TokenHash, &c.ExpiraEm, &c.AceitoEm, &c.CriadoPor, &c.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
