package prazo

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gestaoboulevard/painel/internal/config"
)

func TestStartDesligadoNaoIniciaLoop(t *testing.T) {
	svc := NewService(nil, nil, nil, config.PrazosConfig{Enabled: false}, zerolog.Nop())

	// Com a varredura desligada o Start é um no-op e o Stop é seguro.
	svc.Start(context.Background())
	svc.Stop()

	if svc.cancel != nil {
		t.Error("varredura desligada não deveria registrar cancelamento")
	}
}

func TestStopAntesDoStart(t *testing.T) {
	svc := NewService(nil, nil, nil, config.PrazosConfig{Enabled: true}, zerolog.Nop())
	// Stop sem Start não pode entrar em pânico.
	svc.Stop()
}
