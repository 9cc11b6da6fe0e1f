package notificacao

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("notificação não encontrada")
)

const (
	TipoNova        = "nova"
	TipoAtualizacao = "atualizacao"
	TipoAlerta      = "alerta"
	TipoInfo        = "info"
)

// LimiteExibicao é o teto de notificações devolvidas por destinatário.
// Registros mais antigos permanecem no banco, apenas saem da listagem.
const LimiteExibicao = 50

// JanelaToast delimita o quão recente uma não lida precisa ser para
// disparar o aviso efêmero no cliente.
const JanelaToast = 10 * time.Second

// Notificacao é um registro de fan-out endereçado a um único destinatário.
// Depois de criado, o único campo mutável é Lida.
type Notificacao struct {
	ID             uuid.UUID  `json:"id"`
	DestinatarioID uuid.UUID  `json:"destinatario_id"`
	Titulo         string     `json:"titulo"`
	Mensagem       string     `json:"mensagem"`
	Tipo           string     `json:"tipo"`
	Lida           bool       `json:"lida"`
	OcorrenciaID   *uuid.UUID `json:"ocorrencia_id,omitempty"`
	CriadoEm       time.Time  `json:"criado_em"`
}

// CriarInput encapsula um registro a inserir no lote.
type CriarInput struct {
	DestinatarioID uuid.UUID
	Titulo         string
	Mensagem       string
	Tipo           string
	OcorrenciaID   *uuid.UUID
}

// DeveExibirToast decide se a notificação dispara aviso efêmero: apenas a
// não lida mais recente, criada dentro da janela.
func DeveExibirToast(n *Notificacao, agora time.Time) bool {
	if n == nil || n.Lida {
		return false
	}
	return agora.Sub(n.CriadoEm) < JanelaToast
}

// MaisRecenteNaoLida devolve a não lida mais nova da lista (já ordenada ou
// não), ou nil quando todas foram lidas.
func MaisRecenteNaoLida(lista []Notificacao) *Notificacao {
	var recente *Notificacao
	for i := range lista {
		if lista[i].Lida {
			continue
		}
		if recente == nil || lista[i].CriadoEm.After(recente.CriadoEm) {
			recente = &lista[i]
		}
	}
	return recente
}
