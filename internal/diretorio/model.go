package diretorio

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("usuário não encontrado")
	ErrConviteNotFound = errors.New("convite não encontrado")
	ErrConviteExpirado = errors.New("convite expirado")
	ErrConviteJaUsado  = errors.New("convite já utilizado")
	ErrUltimoAdmin     = errors.New("operação removeria o último administrador ativo")
	ErrAreaInvalida    = errors.New("área inválida")
	ErrGestorSemArea   = errors.New("gestor precisa de pelo menos uma área")
	ErrPapelInvalido   = errors.New("papel inválido")
)

const (
	PapelAdmin   = "admin"
	PapelDiretor = "diretor"
	PapelGestor  = "gestor"
	PapelMonitor = "monitor"

	StatusAtivo      = "ativo"
	StatusPendente   = "pendente"
	StatusBloqueado  = "bloqueado"
	StatusProvisorio = "provisorio"
	StatusExcluido   = "excluido"
)

const (
	AreaManutencao     = "manutencao"
	AreaSeguranca      = "seguranca"
	AreaLimpeza        = "limpeza"
	AreaEstacionamento = "estacionamento"
	AreaAdministracao  = "administracao"
	AreaOperacoes      = "operacoes"
)

var areasValidas = map[string]struct{}{
	AreaManutencao:     {},
	AreaSeguranca:      {},
	AreaLimpeza:        {},
	AreaEstacionamento: {},
	AreaAdministracao:  {},
	AreaOperacoes:      {},
}

var papeisValidos = map[string]struct{}{
	PapelAdmin:   {},
	PapelDiretor: {},
	PapelGestor:  {},
	PapelMonitor: {},
}

// Usuario representa um colaborador do shopping no diretório.
type Usuario struct {
	ID           uuid.UUID `json:"id"`
	Nome         string    `json:"nome"`
	Email        string    `json:"email"`
	Whatsapp     *string   `json:"whatsapp,omitempty"`
	Papel        string    `json:"papel"`
	Areas        []string  `json:"areas"`
	Status       string    `json:"status"`
	SenhaHash    *string   `json:"-"`
	CriadoEm     time.Time `json:"criado_em"`
	AtualizadoEm time.Time `json:"atualizado_em"`
}

// Convite representa um convite pendente de registro.
type Convite struct {
	ID        uuid.UUID  `json:"id"`
	UsuarioID uuid.UUID  `json:"usuario_id"`
	TokenHash string     `json:"-"`
	ExpiraEm  time.Time  `json:"expira_em"`
	AceitoEm  *time.Time `json:"aceito_em,omitempty"`
	CriadoPor *uuid.UUID `json:"criado_por,omitempty"`
	CriadoEm  time.Time  `json:"criado_em"`
}

// CriarUsuarioInput encapsula os campos do registro placeholder.
type CriarUsuarioInput struct {
	Nome     string
	Email    string
	Whatsapp *string
	Papel    string
	Areas    []string
	Status   string
}

// EditarInput permite alterar dados cadastrais e de papel.
type EditarInput struct {
	ID       uuid.UUID
	Nome     *string
	Whatsapp *string
	Papel    *string
	Areas    []string
}

// NormalizeArea padroniza a área em minúsculas sem acentos.
func NormalizeArea(area string) string {
	area = strings.ToLower(strings.TrimSpace(area))
	area = strings.ReplaceAll(area, "ç", "c")
	area = strings.ReplaceAll(area, "ã", "a")
	area = strings.ReplaceAll(area, "õ", "o")
	return area
}

// IsValidArea informa se a área é um departamento reconhecido.
func IsValidArea(area string) bool {
	_, ok := areasValidas[NormalizeArea(area)]
	return ok
}

// NormalizePapel padroniza o papel informado.
func NormalizePapel(papel string) string {
	return strings.ToLower(strings.TrimSpace(papel))
}

// IsValidPapel informa se o papel é suportado.
func IsValidPapel(papel string) bool {
	_, ok := papeisValidos[NormalizePapel(papel)]
	return ok
}

// PodeGerirArea indica se o usuário tem autoridade sobre a área informada.
// Admin e diretor enxergam tudo; gestor só as áreas sob sua responsabilidade.
func (u *Usuario) PodeGerirArea(area string) bool {
	switch u.Papel {
	case PapelAdmin, PapelDiretor:
		return true
	case PapelGestor:
		for _, a := range u.Areas {
			if strings.EqualFold(a, area) {
				return true
			}
		}
	}
	return false
}

// Ativo informa se a conta pode operar.
func (u *Usuario) Ativo() bool {
	return u.Status == StatusAtivo
}
