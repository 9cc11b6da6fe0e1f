package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gestaoboulevard/painel/internal/auth"
	"github.com/gestaoboulevard/painel/internal/notificacao"
	"github.com/gestaoboulevard/painel/internal/util"
)

// ListNotificacoes devolve as notificações mais recentes do usuário, já
// limitadas, com contagem de não lidas e indicação de toast.
func (h *Handler) ListNotificacoes(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	lista, err := h.notificacoes.ListByDestinatario(r.Context(), subject)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar notificações", nil)
		return
	}

	naoLidas, err := h.notificacoes.CountNaoLidas(r.Context(), subject)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível contar não lidas", nil)
		return
	}

	agora := util.Now()
	var toast *notificacao.Notificacao
	if recente := notificacao.MaisRecenteNaoLida(lista); notificacao.DeveExibirToast(recente, agora) {
		toast = recente
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"notificacoes": lista,
		"nao_lidas":    naoLidas,
		"toast":        toast,
	})
}

// ResumoSessao entrega o resumo de boas-vindas no máximo uma vez por sessão,
// e apenas quando há não lidas. A marca no Redis é por subject: a rotação do
// access token no refresh não rearma o resumo; o login limpa a marca para a
// sessão seguinte.
func (h *Handler) ResumoSessao(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	naoLidas, err := h.notificacoes.CountNaoLidas(r.Context(), subject)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível montar o resumo", nil)
		return
	}

	if naoLidas == 0 {
		WriteJSON(w, http.StatusOK, map[string]any{"exibir": false, "nao_lidas": 0})
		return
	}

	inedito, err := h.redis.SetNX(r.Context(), auth.ResumoRedisKey(subject.String()), "exibido", h.cfg.JWTRefreshTTL).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível verificar a sessão", nil)
		return
	}

	if !inedito {
		WriteJSON(w, http.StatusOK, map[string]any{"exibir": false, "nao_lidas": naoLidas})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"exibir":    true,
		"nao_lidas": naoLidas,
		"gerado_em": time.Now().UTC(),
	})
}

// MarcarNotificacaoLida marca uma notificação do próprio usuário como lida.
func (h *Handler) MarcarNotificacaoLida(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.notificacoes.MarcarLida(r.Context(), id, subject); err != nil {
		if errors.Is(err, notificacao.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível marcar como lida", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MarcarTodasLidas zera as não lidas do usuário.
func (h *Handler) MarcarTodasLidas(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	if err := h.notificacoes.MarcarTodasLidas(r.Context(), subject); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível marcar como lidas", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
