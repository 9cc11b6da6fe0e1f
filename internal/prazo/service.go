// Package prazo executa a varredura periódica de prazos vencidos: ocorrências
// com previsão estourada têm o cache de status atualizado para atrasada e os
// responsáveis recebem alerta.
package prazo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaoboulevard/painel/internal/config"
	"github.com/gestaoboulevard/painel/internal/diretorio"
	"github.com/gestaoboulevard/painel/internal/notificacao"
	"github.com/gestaoboulevard/painel/internal/ocorrencia"
	"github.com/gestaoboulevard/painel/internal/util"
)

// Service executa verificações periódicas de prazo.
type Service struct {
	ocorrencias *ocorrencia.Repository
	usuarios    *diretorio.Repository
	notifs      *notificacao.Repository
	cfg         config.PrazosConfig
	logger      zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
}

// NewService cria o serviço de varredura.
func NewService(ocorrencias *ocorrencia.Repository, usuarios *diretorio.Repository, notifs *notificacao.Repository, cfg config.PrazosConfig, logger zerolog.Logger) *Service {
	return &Service{
		ocorrencias: ocorrencias,
		usuarios:    usuarios,
		notifs:      notifs,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start inicia loop periódico. Safe para chamar múltiplas vezes.
func (s *Service) Start(parent context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
}

// Stop encerra loop periódico.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLoop(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("prazos: varredura iniciada")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("prazos: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("prazos: varredura encerrada")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("prazos: execução periódica falhou")
			}
		}
	}
}

// RunOnce marca como atrasadas as ocorrências vencidas e alerta a gestão.
func (s *Service) RunOnce(ctx context.Context) error {
	agora := util.Now()

	vencidas, err := s.ocorrencias.ListVencidas(ctx, agora)
	if err != nil {
		return fmt.Errorf("listar vencidas: %w", err)
	}
	if len(vencidas) == 0 {
		return nil
	}

	usuarios, err := s.usuarios.ListAtivos(ctx)
	if err != nil {
		return fmt.Errorf("listar usuários: %w", err)
	}

	for _, o := range vencidas {
		if err := s.ocorrencias.MarcarAtrasada(ctx, o.ID); err != nil {
			s.logger.Warn().Err(err).Str("ocorrencia", o.UniqueID).Msg("prazos: marcação falhou")
			continue
		}

		var lote []notificacao.CriarInput
		for _, u := range usuarios {
			if !responsavelPelaArea(&u, o.Area) {
				continue
			}
			ocorrenciaID := o.ID
			lote = append(lote, notificacao.CriarInput{
				DestinatarioID: u.ID,
				Titulo:         fmt.Sprintf("Ocorrência %s atrasada", o.UniqueID),
				Mensagem:       fmt.Sprintf("%q passou do prazo de %s", o.Titulo, o.PrevisaoConclusao.Format("02/01/2006 15:04")),
				Tipo:           notificacao.TipoAlerta,
				OcorrenciaID:   &ocorrenciaID,
			})
		}

		if err := s.notifs.CreateLote(ctx, lote); err != nil {
			s.logger.Warn().Err(err).Str("ocorrencia", o.UniqueID).Msg("prazos: alerta falhou")
		}
	}

	s.logger.Info().Int("total", len(vencidas)).Msg("prazos: ocorrências marcadas como atrasadas")
	return nil
}

func responsavelPelaArea(u *diretorio.Usuario, area string) bool {
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
