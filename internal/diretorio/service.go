package diretorio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaoboulevard/painel/internal/auth"
	"github.com/gestaoboulevard/painel/internal/util"
)

type repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Usuario, error)
	GetByEmail(ctx context.Context, email string) (*Usuario, error)
	List(ctx context.Context) ([]Usuario, error)
	CountAtivosPorPapel(ctx context.Context, papel string) (int, error)
	Create(ctx context.Context, input CriarUsuarioInput) (*Usuario, error)
	Update(ctx context.Context, input EditarInput) (*Usuario, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	AtivarComSenha(ctx context.Context, id uuid.UUID, senhaHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByEmail(ctx context.Context, email string) error
	CreateConvite(ctx context.Context, conv Convite) (*Convite, error)
	GetConviteByTokenHash(ctx context.Context, hash string) (*Convite, error)
	MarcarConviteAceito(ctx context.Context, id uuid.UUID) error
}

// limpadorNotificacoes remove notificações pendentes do usuário excluído.
type limpadorNotificacoes interface {
	DeleteByDestinatario(ctx context.Context, destinatarioID uuid.UUID) error
}

// Service concentra os casos de uso do diretório de usuários.
type Service struct {
	repo         repository
	notificacoes limpadorNotificacoes
	conviteTTL   time.Duration
}

// NewService cria nova instância do serviço.
func NewService(repo repository, notificacoes limpadorNotificacoes, conviteTTL time.Duration) *Service {
	if conviteTTL <= 0 {
		conviteTTL = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, notificacoes: notificacoes, conviteTTL: conviteTTL}
}

// Listar devolve o diretório completo.
func (s *Service) Listar(ctx context.Context) ([]Usuario, error) {
	return s.repo.List(ctx)
}

// Buscar devolve um usuário pelo ID.
func (s *Service) Buscar(ctx context.Context, id uuid.UUID) (*Usuario, error) {
	return s.repo.GetByID(ctx, id)
}

// ConviteResult carrega o registro criado e o token bruto para envio.
type ConviteResult struct {
	Usuario *Usuario
	Token   string
}

// Convidar cria registro placeholder com convite. Se já existir conta com o
// mesmo e-mail, ela é substituída: o último convite vence, sem merge.
func (s *Service) Convidar(ctx context.Context, nome, email, papel string, areas []string, whatsapp *string, criadoPor *uuid.UUID) (*ConviteResult, error) {
	if err := util.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := util.RequireString(nome, "nome"); err != nil {
		return nil, err
	}

	papelNormalizado := NormalizePapel(papel)
	if !IsValidPapel(papelNormalizado) {
		return nil, ErrPapelInvalido
	}
	if papelNormalizado == PapelGestor && len(areas) == 0 {
		return nil, ErrGestorSemArea
	}

	areasNormalizadas := make([]string, 0, len(areas))
	for _, a := range areas {
		normalizada := NormalizeArea(a)
		if !IsValidArea(normalizada) {
			return nil, ErrAreaInvalida
		}
		areasNormalizadas = append(areasNormalizadas, normalizada)
	}

	if existente, err := s.repo.GetByEmail(ctx, email); err == nil {
		if eliminado, guardErr := s.removeriaUltimoAdmin(ctx, existente, nil); guardErr != nil {
			return nil, guardErr
		} else if eliminado {
			return nil, ErrUltimoAdmin
		}
		if err := s.repo.DeleteByEmail(ctx, email); err != nil {
			return nil, err
		}
		// A conta substituída leva junto as notificações endereçadas a ela,
		// como na exclusão direta.
		if err := s.notificacoes.DeleteByDestinatario(ctx, existente.ID); err != nil {
			log.Warn().Err(err).Str("usuario", existente.ID.String()).Msg("diretório: limpeza de notificações falhou")
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	usuario, err := s.repo.Create(ctx, CriarUsuarioInput{
		Nome:     strings.TrimSpace(nome),
		Email:    email,
		Whatsapp: whatsapp,
		Papel:    papelNormalizado,
		Areas:    areasNormalizadas,
		Status:   StatusPendente,
	})
	if err != nil {
		return nil, err
	}

	rawToken, hash, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.CreateConvite(ctx, Convite{
		ID:        uuid.New(),
		UsuarioID: usuario.ID,
		TokenHash: hash,
		ExpiraEm:  util.Now().Add(s.conviteTTL),
		CriadoPor: criadoPor,
	}); err != nil {
		return nil, err
	}

	return &ConviteResult{Usuario: usuario, Token: rawToken}, nil
}

// AceitarConvite consome o token e ativa a conta com a senha escolhida.
func (s *Service) AceitarConvite(ctx context.Context, token, senha string) (*Usuario, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrConviteNotFound
	}
	if err := util.ValidatePassword(senha); err != nil {
		return nil, err
	}

	convite, err := s.repo.GetConviteByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		return nil, err
	}
	if convite.AceitoEm != nil {
		return nil, ErrConviteJaUsado
	}
	if util.Now().After(convite.ExpiraEm) {
		return nil, ErrConviteExpirado
	}

	hash, err := auth.Hash(strings.TrimSpace(senha))
	if err != nil {
		return nil, err
	}

	if err := s.repo.AtivarComSenha(ctx, convite.UsuarioID, hash); err != nil {
		return nil, err
	}
	if err := s.repo.MarcarConviteAceito(ctx, convite.ID); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, convite.UsuarioID)
}

// Editar altera dados cadastrais respeitando as salvaguardas de papel.
func (s *Service) Editar(ctx context.Context, input EditarInput) (*Usuario, error) {
	alvo, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Papel != nil {
		papelNormalizado := NormalizePapel(*input.Papel)
		if !IsValidPapel(papelNormalizado) {
			return nil, ErrPapelInvalido
		}
		input.Papel = &papelNormalizado

		if eliminado, guardErr := s.removeriaUltimoAdmin(ctx, alvo, input.Papel); guardErr != nil {
			return nil, guardErr
		} else if eliminado {
			return nil, ErrUltimoAdmin
		}
	}

	papelFinal := alvo.Papel
	if input.Papel != nil {
		papelFinal = *input.Papel
	}
	areasFinais := alvo.Areas
	if input.Areas != nil {
		areasFinais = input.Areas
	}
	if papelFinal == PapelGestor && len(areasFinais) == 0 {
		return nil, ErrGestorSemArea
	}

	if input.Areas != nil {
		normalizadas := make([]string, 0, len(input.Areas))
		for _, a := range input.Areas {
			normalizada := NormalizeArea(a)
			if !IsValidArea(normalizada) {
				return nil, ErrAreaInvalida
			}
			normalizadas = append(normalizadas, normalizada)
		}
		input.Areas = normalizadas
	}

	return s.repo.Update(ctx, input)
}

// Bloquear suspende a conta. O último admin ativo não pode ser bloqueado.
func (s *Service) Bloquear(ctx context.Context, id uuid.UUID) error {
	alvo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if eliminado, guardErr := s.removeriaUltimoAdmin(ctx, alvo, nil); guardErr != nil {
		return guardErr
	} else if eliminado {
		return ErrUltimoAdmin
	}

	return s.repo.UpdateStatus(ctx, id, StatusBloqueado)
}

// Desbloquear reativa conta bloqueada.
func (s *Service) Desbloquear(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusAtivo)
}

// Excluir remove a conta e, em melhor esforço, as notificações dela.
func (s *Service) Excluir(ctx context.Context, id uuid.UUID) error {
	alvo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if eliminado, guardErr := s.removeriaUltimoAdmin(ctx, alvo, nil); guardErr != nil {
		return guardErr
	} else if eliminado {
		return ErrUltimoAdmin
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Limpeza não transacional: falha aqui não desfaz a exclusão.
	if err := s.notificacoes.DeleteByDestinatario(ctx, id); err != nil {
		log.Warn().Err(err).Str("usuario", id.String()).Msg("diretório: limpeza de notificações falhou")
	}

	return nil
}

// removeriaUltimoAdmin responde se a operação deixaria o sistema sem admin
// ativo. novoPapel não nulo indica troca de papel; nulo indica bloqueio,
// exclusão ou substituição do registro.
func (s *Service) removeriaUltimoAdmin(ctx context.Context, alvo *Usuario, novoPapel *string) (bool, error) {
	if alvo.Papel != PapelAdmin || alvo.Status != StatusAtivo {
		return false, nil
	}
	if novoPapel != nil && *novoPapel == PapelAdmin {
		return false, nil
	}

	total, err := s.repo.CountAtivosPorPapel(ctx, PapelAdmin)
	if err != nil {
		return false, err
	}
	return total <= 1, nil
}
