package ocorrencia

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaoboulevard/painel/internal/diretorio"
)

var (
	ErrNotFound             = errors.New("ocorrência não encontrada")
	ErrInvalidStatus        = errors.New("status inválido")
	ErrInvalidUniqueID      = errors.New("identificador inválido")
	ErrSemPermissao         = errors.New("usuário sem permissão sobre a ocorrência")
	ErrCamposObrigatorios   = errors.New("título, descrição, local e área são obrigatórios")
	ErrComplexidadeInvalida = errors.New("complexidade inválida")
	ErrExcluida             = errors.New("ocorrência está na lixeira")
)

const (
	StatusAberta      = "aberta"
	StatusEmAndamento = "em_andamento"
	StatusAtrasada    = "atrasada"
	StatusConcluida   = "concluida"

	ComplexidadeSimples = "simples"
	ComplexidadeMedia   = "media"
	ComplexidadeAlta    = "alta"
)

// abreviacoes mapeia área para o código de três letras usado no unique_id.
var abreviacoes = map[string]string{
	diretorio.AreaManutencao:     "MAN",
	diretorio.AreaSeguranca:      "SEG",
	diretorio.AreaLimpeza:        "LIM",
	diretorio.AreaEstacionamento: "EST",
	diretorio.AreaAdministracao:  "ADM",
}

// abreviacaoPadrao cobre áreas fora da tabela.
const abreviacaoPadrao = "GER"

// statusLegado mapeia grafias históricas para o vocabulário canônico.
// Registros antigos carregam variações de gênero, número e acento.
var statusLegado = map[string]string{
	"aberto":       StatusAberta,
	"abertas":      StatusAberta,
	"abertos":      StatusAberta,
	"open":         StatusAberta,
	"em andamento": StatusEmAndamento,
	"andamento":    StatusEmAndamento,
	"in_progress":  StatusEmAndamento,
	"iniciada":     StatusEmAndamento,
	"atrasado":     StatusAtrasada,
	"atrasadas":    StatusAtrasada,
	"atrasados":    StatusAtrasada,
	"vencida":      StatusAtrasada,
	"overdue":      StatusAtrasada,
	"concluída":    StatusConcluida,
	"concluido":    StatusConcluida,
	"concluído":    StatusConcluida,
	"concluidas":   StatusConcluida,
	"concluídas":   StatusConcluida,
	"finalizada":   StatusConcluida,
	"done":         StatusConcluida,
}

var statusValidos = map[string]struct{}{
	StatusAberta:      {},
	StatusEmAndamento: {},
	StatusAtrasada:    {},
	StatusConcluida:   {},
}

var complexidadesValidas = map[string]struct{}{
	ComplexidadeSimples: {},
	ComplexidadeMedia:   {},
	ComplexidadeAlta:    {},
}

// Ocorrencia representa uma tarefa/incidente reportado no shopping.
type Ocorrencia struct {
	ID                uuid.UUID       `json:"id"`
	UniqueID          string          `json:"unique_id"`
	Titulo            string          `json:"titulo"`
	Descricao         string          `json:"descricao"`
	Local             string          `json:"local"`
	Area              string          `json:"area"`
	Status            string          `json:"status"`
	Urgente           bool            `json:"urgente"`
	Complexidade      *string         `json:"complexidade,omitempty"`
	PrevisaoConclusao *time.Time      `json:"previsao_conclusao,omitempty"`
	HistoricoPrazos   []PrazoRegistro `json:"historico_prazos"`
	Atualizacoes      []Atualizacao   `json:"atualizacoes"`
	ExcluidaEm        *time.Time      `json:"excluida_em,omitempty"`
	CriadoPor         uuid.UUID       `json:"criado_por"`
	NomeCriador       string          `json:"nome_criador"`
	CriadoEm          time.Time       `json:"criado_em"`
	AtualizadoEm      time.Time       `json:"atualizado_em"`
}

// PrazoRegistro guarda cada prazo já definido para a ocorrência.
type PrazoRegistro struct {
	Prazo       time.Time `json:"prazo"`
	DefinidoEm  time.Time `json:"definido_em"`
	DefinidoPor string    `json:"definido_por"`
}

// Atualizacao é uma entrada do log imutável da ocorrência.
type Atualizacao struct {
	Texto     string    `json:"texto"`
	CriadoEm  time.Time `json:"criado_em"`
	AutorNome string    `json:"autor_nome"`
}

// CriarInput encapsula os campos para abertura de ocorrência.
type CriarInput struct {
	Titulo       string
	Descricao    string
	Local        string
	Area         string
	Urgente      bool
	Complexidade *string
}

// AtualizarInput permite atualização parcial de campos mutáveis.
type AtualizarInput struct {
	Titulo       *string
	Descricao    *string
	Local        *string
	Status       *string
	Urgente      *bool
	Complexidade *string
}

// Filtro delimita listagens de ocorrências.
type Filtro struct {
	Area    string
	Status  string
	Lixeira bool
	Limit   int
	Offset  int
}

// AbreviacaoArea devolve o código de três letras da área.
// "Operações" ficou fora da tabela principal por correção de dados antiga;
// o desvio é mantido como está.
func AbreviacaoArea(area string) string {
	normalizada := diretorio.NormalizeArea(area)
	if normalizada == diretorio.AreaOperacoes {
		return "OPE"
	}
	if abbr, ok := abreviacoes[normalizada]; ok {
		return abbr
	}
	return abreviacaoPadrao
}

// NormalizeStatus converte qualquer grafia histórica para o vocabulário
// canônico. É idempotente: aplicar duas vezes devolve o mesmo valor.
func NormalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return StatusAberta
	}
	if canonico, ok := statusLegado[status]; ok {
		return canonico
	}
	return status
}

// IsValidStatus indica se o status (após normalização) é aceito.
func IsValidStatus(status string) bool {
	_, ok := statusValidos[NormalizeStatus(status)]
	return ok
}

// NormalizeComplexidade padroniza o grau em minúsculas sem acento, de forma
// que "Média" e "media" persistam com a mesma grafia.
func NormalizeComplexidade(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	return strings.ReplaceAll(c, "é", "e")
}

// IsValidComplexidade valida o grau de complexidade.
func IsValidComplexidade(c string) bool {
	_, ok := complexidadesValidas[NormalizeComplexidade(c)]
	return ok
}

// FormatarUniqueID monta o identificador humano NNN-AA-XXX.
func FormatarUniqueID(seq int64, ano int, area string) string {
	return fmt.Sprintf("%03d-%02d-%s", seq, ano%100, AbreviacaoArea(area))
}

// ParseUniqueID decompõe o identificador humano em sequência, ano e código
// de área.
func ParseUniqueID(uniqueID string) (seq int64, ano int, abbr string, err error) {
	parts := strings.Split(strings.TrimSpace(uniqueID), "-")
	if len(parts) != 3 || len(parts[2]) != 3 {
		return 0, 0, "", ErrInvalidUniqueID
	}

	seq, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil || seq < 0 {
		return 0, 0, "", ErrInvalidUniqueID
	}

	ano, err = strconv.Atoi(parts[1])
	if err != nil || ano < 0 || ano > 99 {
		return 0, 0, "", ErrInvalidUniqueID
	}

	return seq, ano, parts[2], nil
}

// StatusEfetivo deriva "atrasada" ao vivo comparando o prazo com o relógio.
// O valor armazenado funciona como cache e pode estar defasado.
func StatusEfetivo(o *Ocorrencia, agora time.Time) string {
	status := NormalizeStatus(o.Status)
	if status == StatusConcluida {
		return status
	}
	if o.PrevisaoConclusao != nil && agora.After(*o.PrevisaoConclusao) {
		return StatusAtrasada
	}
	return status
}
