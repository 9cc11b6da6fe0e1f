package feedback

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("feedback não encontrado")
	ErrInvalidTipo = errors.New("tipo de feedback inválido")
)

const (
	TipoSugestao = "sugestao"
	TipoProblema = "problema"
	TipoElogio   = "elogio"
	TipoOutro    = "outro"
)

var tiposValidos = map[string]struct{}{
	TipoSugestao: {},
	TipoProblema: {},
	TipoElogio:   {},
	TipoOutro:    {},
}

// Feedback representa um relato livre de usuário sobre o sistema.
type Feedback struct {
	ID          uuid.UUID    `json:"id"`
	AutorID     *uuid.UUID   `json:"autor_id,omitempty"`
	AutorNome   string       `json:"autor_nome"`
	Tipo        string       `json:"tipo"`
	Mensagem    string       `json:"mensagem"`
	Lida        bool         `json:"lida"`
	Comentarios []Comentario `json:"comentarios"`
	CriadoEm    time.Time    `json:"criado_em"`
}

// Comentario é uma resposta no fio do feedback, somente acrescentada.
type Comentario struct {
	Texto     string    `json:"texto"`
	AutorNome string    `json:"autor_nome"`
	CriadoEm  time.Time `json:"criado_em"`
}

// CriarInput encapsula os campos de um novo feedback.
type CriarInput struct {
	AutorID   *uuid.UUID
	AutorNome string
	Tipo      string
	Mensagem  string
}

// NormalizeTipo padroniza o tipo, caindo em "outro" quando vazio.
func NormalizeTipo(tipo string) string {
	tipo = strings.ToLower(strings.TrimSpace(tipo))
	if tipo == "" {
		return TipoOutro
	}
	return tipo
}

// IsValidTipo informa se o tipo é aceito.
func IsValidTipo(tipo string) bool {
	_, ok := tiposValidos[NormalizeTipo(tipo)]
	return ok
}
