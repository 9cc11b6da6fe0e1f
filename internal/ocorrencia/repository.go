package ocorrencia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaoboulevard/painel/internal/db"
)

// nomeContador identifica a linha compartilhada de sequência.
const nomeContador = "ocorrencias"

// Repository provê acesso à tabela de ocorrências e ao contador.
type Repository struct {
	pool db.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

const colunas = `id, unique_id, titulo, descricao, local, area, status, urgente,
        complexidade, previsao_conclusao, historico_prazos, atualizacoes,
        excluida_em, criado_por, nome_criador, criado_em, atualizado_em`

// Criar reserva o próximo número da sequência e insere a ocorrência na MESMA
// transação. O incremento do contador é a única seção crítica do sistema:
// duas criações simultâneas nunca recebem o mesmo número, e uma falha na
// inserção devolve o número junto com o rollback.
func (r *Repository) Criar(ctx context.Context, input CriarInput, criadoPor uuid.UUID, nomeCriador string, agora time.Time) (*Ocorrencia, error) {
	var criada *Ocorrencia

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var seq int64
		err := tx.QueryRow(ctx,
			`UPDATE contadores SET valor = valor + 1 WHERE nome = $1 RETURNING valor`,
			nomeContador,
		).Scan(&seq)
		if err != nil {
			return fmt.Errorf("contador: %w", err)
		}

		uniqueID := FormatarUniqueID(seq, agora.Year(), input.Area)

		query := fmt.Sprintf(`
        INSERT INTO ocorrencias (unique_id, titulo, descricao, local, area, status, urgente, complexidade, criado_por, nome_criador)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING %s`, colunas)

		row := tx.QueryRow(ctx, query,
			uniqueID,
			strings.TrimSpace(input.Titulo),
			strings.TrimSpace(input.Descricao),
			strings.TrimSpace(input.Local),
			input.Area,
			StatusAberta,
			input.Urgente,
			input.Complexidade,
			criadoPor,
			nomeCriador,
		)

		criada, err = scanOcorrencia(row)
		return err
	})
	if err != nil {
		return nil, err
	}

	return criada, nil
}

// GetByID busca uma ocorrência específica.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Ocorrencia, error) {
	query := fmt.Sprintf("SELECT %s FROM ocorrencias WHERE id = $1", colunas)
	row := r.pool.QueryRow(ctx, query, id)
	return scanOcorrencia(row)
}

// List lista ocorrências aplicando filtros simples. Por padrão devolve só o
// que está fora da lixeira; Filtro.Lixeira inverte a seleção.
func (r *Repository) List(ctx context.Context, filtro Filtro) ([]Ocorrencia, error) {
	base := fmt.Sprintf("SELECT %s FROM ocorrencias", colunas)

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filtro.Lixeira {
		clauses = append(clauses, "excluida_em IS NOT NULL")
	} else {
		clauses = append(clauses, "excluida_em IS NULL")
	}

	if filtro.Area != "" {
		clauses = append(clauses, fmt.Sprintf("area = $%d", idx))
		args = append(args, filtro.Area)
		idx++
	}

	if filtro.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, NormalizeStatus(filtro.Status))
		idx++
	}

	query := base + " WHERE " + strings.Join(clauses, " AND ")

	limit := filtro.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filtro.Offset
	if offset < 0 {
		offset = 0
	}

	query += fmt.Sprintf(" ORDER BY criado_em DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lista []Ocorrencia
	for rows.Next() {
		o, err := scanOcorrencia(rows)
		if err != nil {
			return nil, err
		}
		lista = append(lista, *o)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return lista, nil
}

// Update aplica atualização parcial de campos mutáveis. UniqueID, criador e
// logs ficam de fora: são imutáveis ou só crescem via append.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input AtualizarInput) (*Ocorrencia, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if input.Titulo != nil {
		setParts = append(setParts, fmt.Sprintf("titulo = $%d", idx))
		args = append(args, strings.TrimSpace(*input.Titulo))
		idx++
	}
	if input.Descricao != nil {
		setParts = append(setParts, fmt.Sprintf("descricao = $%d", idx))
		args = append(args, strings.TrimSpace(*input.Descricao))
		idx++
	}
	if input.Local != nil {
		setParts = append(setParts, fmt.Sprintf("local = $%d", idx))
		args = append(args, strings.TrimSpace(*input.Local))
		idx++
	}
	if input.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", idx))
		args = append(args, NormalizeStatus(*input.Status))
		idx++
	}
	if input.Urgente != nil {
		setParts = append(setParts, fmt.Sprintf("urgente = $%d", idx))
		args = append(args, *input.Urgente)
		idx++
	}
	if input.Complexidade != nil {
		setParts = append(setParts, fmt.Sprintf("complexidade = $%d", idx))
		args = append(args, NormalizeComplexidade(*input.Complexidade))
		idx++
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	setParts = append(setParts, "atualizado_em = now()")
	query := fmt.Sprintf("UPDATE ocorrencias SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setParts, ", "), idx, colunas)
	args = append(args, id)

	row := r.pool.QueryRow(ctx, query, args...)
	return scanOcorrencia(row)
}

// AppendAtualizacao acrescenta entrada ao log. O append acontece no próprio
// SQL: entradas anteriores nunca são tocadas.
func (r *Repository) AppendAtualizacao(ctx context.Context, id uuid.UUID, entrada Atualizacao) error {
	payload, err := json.Marshal(entrada)
	if err != nil {
		return err
	}

	const query = `
        UPDATE ocorrencias
        SET atualizacoes = atualizacoes || $2::jsonb, atualizado_em = now()
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

// DefinirPrazo registra novo prazo no histórico e atualiza a previsão.
func (r *Repository) DefinirPrazo(ctx context.Context, id uuid.UUID, registro PrazoRegistro) error {
	payload, err := json.Marshal(registro)
	if err != nil {
		return err
	}

	const query = `
        UPDATE ocorrencias
        SET historico_prazos = historico_prazos || $2::jsonb,
            previsao_conclusao = $3,
            atualizado_em = now()
        WHERE id = $1
    `

	cmd, err := r.pool.Exec(ctx, query, id, payload, registro.Prazo)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExcluirSuave marca a ocorrência como lixeira. Repetir a operação em item
// já excluído não altera o carimbo original.
func (r *Repository) ExcluirSuave(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE ocorrencias
        SET excluida_em = COALESCE(excluida_em, now()), atualizado_em = now()
        WHERE id = $1
    `

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Restaurar tira a ocorrência da lixeira.
func (r *Repository) Restaurar(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE ocorrencias
        SET excluida_em = NULL, atualizado_em = now()
        WHERE id = $1
    `

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExcluirDefinitivo remove o registro sem volta. Notificações que apontem
// para ele ficam penduradas de propósito; leitores toleram a referência.
func (r *Repository) ExcluirDefinitivo(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ocorrencias WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVencidas devolve ocorrências com prazo estourado cujo status em cache
// ainda não reflete o atraso.
func (r *Repository) ListVencidas(ctx context.Context, agora time.Time) ([]Ocorrencia, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ocorrencias
        WHERE excluida_em IS NULL
          AND previsao_conclusao IS NOT NULL
          AND previsao_conclusao < $1
          AND status IN ($2, $3)
        ORDER BY previsao_conclusao ASC`, colunas)

	rows, err := r.pool.Query(ctx, query, agora, StatusAberta, StatusEmAndamento)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lista []Ocorrencia
	for rows.Next() {
		o, err := scanOcorrencia(rows)
		if err != nil {
			return nil, err
		}
		lista = append(lista, *o)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return lista, nil
}

// MarcarAtrasada atualiza o cache de status para atrasada.
func (r *Repository) MarcarAtrasada(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE ocorrencias
        SET status = $2, atualizado_em = now()
        WHERE id = $1 AND status IN ($3, $4)
    `

	_, err := r.pool.Exec(ctx, query, id, StatusAtrasada, StatusAberta, StatusEmAndamento)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOcorrencia(row rowScanner) (*Ocorrencia, error) {
	var (
		o               Ocorrencia
		prazosRaw       []byte
		atualizacoesRaw []byte
	)

	err := row.Scan(&o.ID, &o.UniqueID, &o.Titulo, &o.Descricao, &o.Local, &o.Area,
		&o.Status, &o.Urgente, &o.Complexidade, &o.PrevisaoConclusao,
		&prazosRaw, &atualizacoesRaw, &o.ExcluidaEm, &o.CriadoPor, &o.NomeCriador,
		&o.CriadoEm, &o.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	o.HistoricoPrazos = []PrazoRegistro{}
	if len(prazosRaw) > 0 {
		if err := json.Unmarshal(prazosRaw, &o.HistoricoPrazos); err != nil {
			return nil, fmt.Errorf("historico_prazos: %w", err)
		}
	}

	o.Atualizacoes = []Atualizacao{}
	if len(atualizacoesRaw) > 0 {
		if err := json.Unmarshal(atualizacoesRaw, &o.Atualizacoes); err != nil {
			return nil, fmt.Errorf("atualizacoes: %w", err)
		}
	}

	return &o, nil
}
