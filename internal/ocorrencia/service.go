package ocorrencia

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaoboulevard/painel/internal/diretorio"
	"github.com/gestaoboulevard/painel/internal/notificacao"
	"github.com/gestaoboulevard/painel/internal/util"
)

type repository interface {
	Criar(ctx context.Context, input CriarInput, criadoPor uuid.UUID, nomeCriador string, agora time.Time) (*Ocorrencia, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Ocorrencia, error)
	List(ctx context.Context, filtro Filtro) ([]Ocorrencia, error)
	Update(ctx context.Context, id uuid.UUID, input AtualizarInput) (*Ocorrencia, error)
	AppendAtualizacao(ctx context.Context, id uuid.UUID, entrada Atualizacao) error
	DefinirPrazo(ctx context.Context, id uuid.UUID, registro PrazoRegistro) error
	ExcluirSuave(ctx context.Context, id uuid.UUID) error
	Restaurar(ctx context.Context, id uuid.UUID) error
	ExcluirDefinitivo(ctx context.Context, id uuid.UUID) error
}

type diretorioLister interface {
	ListAtivos(ctx context.Context) ([]diretorio.Usuario, error)
}

type notificador interface {
	CreateLote(ctx context.Context, inputs []notificacao.CriarInput) error
}

// Service concentra o ciclo de vida das ocorrências e o fan-out de
// notificações disparado por criação e mudança de status.
type Service struct {
	repo     repository
	usuarios diretorioLister
	notifs   notificador
}

// NewService cria nova instância do serviço.
func NewService(repo repository, usuarios diretorioLister, notifs notificador) *Service {
	return &Service{repo: repo, usuarios: usuarios, notifs: notifs}
}

// Criar valida, numera e persiste a ocorrência, e então notifica os
// responsáveis. A numeração acontece dentro de transação; o fan-out fica
// fora dela: se o lote falhar, a ocorrência permanece criada e a falha é
// apenas registrada.
func (s *Service) Criar(ctx context.Context, input CriarInput, ator *diretorio.Usuario) (*Ocorrencia, error) {
	if err := util.RequireString(input.Titulo, "título"); err != nil {
		return nil, ErrCamposObrigatorios
	}
	if err := util.RequireString(input.Descricao, "descrição"); err != nil {
		return nil, ErrCamposObrigatorios
	}
	if err := util.RequireString(input.Local, "local"); err != nil {
		return nil, ErrCamposObrigatorios
	}

	input.Area = diretorio.NormalizeArea(input.Area)
	if !diretorio.IsValidArea(input.Area) {
		return nil, diretorio.ErrAreaInvalida
	}
	if input.Complexidade != nil {
		if !IsValidComplexidade(*input.Complexidade) {
			return nil, ErrComplexidadeInvalida
		}
		normalizada := NormalizeComplexidade(*input.Complexidade)
		input.Complexidade = &normalizada
	}

	criada, err := s.repo.Criar(ctx, input, ator.ID, ator.Nome, util.Now())
	if err != nil {
		return nil, err
	}

	if err := s.notificarCriacao(ctx, criada, ator); err != nil {
		log.Warn().Err(err).Str("ocorrencia", criada.UniqueID).
			Msg("ocorrência criada, fan-out de notificações falhou")
	}

	return criada, nil
}

// Buscar devolve uma ocorrência pelo ID.
func (s *Service) Buscar(ctx context.Context, id uuid.UUID) (*Ocorrencia, error) {
	return s.repo.GetByID(ctx, id)
}

// Listar aplica filtros e delimita a lixeira a quem pode gerir a área.
func (s *Service) Listar(ctx context.Context, filtro Filtro, ator *diretorio.Usuario) ([]Ocorrencia, error) {
	if filtro.Area != "" {
		filtro.Area = diretorio.NormalizeArea(filtro.Area)
	}
	if filtro.Lixeira && ator.Papel == diretorio.PapelMonitor {
		return nil, ErrSemPermissao
	}
	return s.repo.List(ctx, filtro)
}

// Atualizar aplica mudanças parciais. Mudança de status acrescenta entrada
// ao log e notifica quem abriu a ocorrência, se não for o próprio ator.
func (s *Service) Atualizar(ctx context.Context, id uuid.UUID, input AtualizarInput, ator *diretorio.Usuario) (*Ocorrencia, error) {
	atual, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.autorizaMutacao(atual, ator); err != nil {
		return nil, err
	}
	if atual.ExcluidaEm != nil {
		return nil, ErrExcluida
	}

	if input.Status != nil {
		if !IsValidStatus(*input.Status) {
			return nil, ErrInvalidStatus
		}
		normalizado := NormalizeStatus(*input.Status)
		input.Status = &normalizado
	}
	if input.Complexidade != nil {
		if !IsValidComplexidade(*input.Complexidade) {
			return nil, ErrComplexidadeInvalida
		}
		normalizada := NormalizeComplexidade(*input.Complexidade)
		input.Complexidade = &normalizada
	}

	statusMudou := input.Status != nil && *input.Status != NormalizeStatus(atual.Status)

	atualizada, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	if statusMudou {
		entrada := Atualizacao{
			Texto:     fmt.Sprintf("Status alterado para %s", *input.Status),
			CriadoEm:  util.Now(),
			AutorNome: ator.Nome,
		}
		if err := s.repo.AppendAtualizacao(ctx, id, entrada); err != nil {
			return nil, err
		}
		atualizada.Atualizacoes = append(atualizada.Atualizacoes, entrada)

		if atual.CriadoPor != ator.ID {
			err := s.notifs.CreateLote(ctx, []notificacao.CriarInput{{
				DestinatarioID: atual.CriadoPor,
				Titulo:         fmt.Sprintf("Ocorrência %s atualizada", atual.UniqueID),
				Mensagem:       fmt.Sprintf("%s alterou o status para %s", ator.Nome, *input.Status),
				Tipo:           notificacao.TipoAtualizacao,
				OcorrenciaID:   &atual.ID,
			}})
			if err != nil {
				log.Warn().Err(err).Str("ocorrencia", atual.UniqueID).
					Msg("notificação de mudança de status falhou")
			}
		}
	}

	return atualizada, nil
}

// RegistrarAtualizacao acrescenta texto livre ao log imutável.
func (s *Service) RegistrarAtualizacao(ctx context.Context, id uuid.UUID, texto string, ator *diretorio.Usuario) error {
	if err := util.RequireString(texto, "texto"); err != nil {
		return err
	}

	atual, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.autorizaMutacao(atual, ator); err != nil {
		return err
	}
	if atual.ExcluidaEm != nil {
		return ErrExcluida
	}

	return s.repo.AppendAtualizacao(ctx, id, Atualizacao{
		Texto:     strings.TrimSpace(texto),
		CriadoEm:  util.Now(),
		AutorNome: ator.Nome,
	})
}

// DefinirPrazo registra novo prazo, preservando o histórico dos anteriores.
func (s *Service) DefinirPrazo(ctx context.Context, id uuid.UUID, prazo time.Time, ator *diretorio.Usuario) error {
	atual, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.autorizaMutacao(atual, ator); err != nil {
		return err
	}
	if atual.ExcluidaEm != nil {
		return ErrExcluida
	}

	return s.repo.DefinirPrazo(ctx, id, PrazoRegistro{
		Prazo:       prazo,
		DefinidoEm:  util.Now(),
		DefinidoPor: ator.Nome,
	})
}

// ExcluirSuave manda a ocorrência para a lixeira.
func (s *Service) ExcluirSuave(ctx context.Context, id uuid.UUID, ator *diretorio.Usuario) error {
	atual, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.autorizaMutacao(atual, ator); err != nil {
		return err
	}
	return s.repo.ExcluirSuave(ctx, id)
}

// Restaurar tira a ocorrência da lixeira.
func (s *Service) Restaurar(ctx context.Context, id uuid.UUID, ator *diretorio.Usuario) error {
	atual, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.autorizaMutacao(atual, ator); err != nil {
		return err
	}
	return s.repo.Restaurar(ctx, id)
}

// ExcluirDefinitivo remove o registro para sempre. Restrito a admin e
// diretor, independentemente do que a tela mostre.
func (s *Service) ExcluirDefinitivo(ctx context.Context, id uuid.UUID, ator *diretorio.Usuario) error {
	if ator.Papel != diretorio.PapelAdmin && ator.Papel != diretorio.PapelDiretor {
		return ErrSemPermissao
	}
	return s.repo.ExcluirDefinitivo(ctx, id)
}

// autorizaMutacao centraliza a regra de autoridade: quem abriu a ocorrência
// ou quem tem gestão sobre a área dela.
func (s *Service) autorizaMutacao(o *Ocorrencia, ator *diretorio.Usuario) error {
	if ator.ID == o.CriadoPor {
		return nil
	}
	if ator.PodeGerirArea(o.Area) {
		return nil
	}
	return ErrSemPermissao
}

// notificarCriacao calcula os destinatários e grava o lote: admins e
// diretores sempre; gestores apenas quando a área da ocorrência está sob a
// responsabilidade deles; nunca o próprio ator.
func (s *Service) notificarCriacao(ctx context.Context, o *Ocorrencia, ator *diretorio.Usuario) error {
	usuarios, err := s.usuarios.ListAtivos(ctx)
	if err != nil {
		return fmt.Errorf("listar destinatários: %w", err)
	}

	tipo := notificacao.TipoNova
	if o.Urgente {
		tipo = notificacao.TipoAlerta
	}

	var lote []notificacao.CriarInput
	for _, u := range usuarios {
		if u.ID == ator.ID {
			continue
		}
		if !elegivelParaArea(&u, o.Area) {
			continue
		}
		lote = append(lote, notificacao.CriarInput{
			DestinatarioID: u.ID,
			Titulo:         fmt.Sprintf("Nova ocorrência %s", o.UniqueID),
			Mensagem:       fmt.Sprintf("%s abriu %q em %s", o.NomeCriador, o.Titulo, o.Area),
			Tipo:           tipo,
			OcorrenciaID:   &o.ID,
		})
	}

	return s.notifs.CreateLote(ctx, lote)
}

func elegivelParaArea(u *diretorio.Usuario, area string) bool {
	switch u.Papel {
	case diretorio.PapelAdmin, diretorio.PapelDiretor:
		return true
	case diretorio.PapelGestor:
		for _, a := range u.Areas {
			if strings.EqualFold(a, area) {
				return true
			}
		}
	}
	return false
}
