package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaoboulevard/painel/internal/feedback"
	"github.com/gestaoboulevard/painel/internal/util"
)

// CreateFeedback registra sugestão, problema ou elogio do colaborador.
func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	ator, err := h.usuarioAtual(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Tipo     string `json:"tipo"`
		Mensagem string `json:"mensagem"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Mensagem) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "mensagem é obrigatória", nil)
		return
	}
	if !feedback.IsValidTipo(payload.Tipo) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", feedback.ErrInvalidTipo.Error(), nil)
		return
	}

	criado, err := h.feedbacks.Create(r.Context(), feedback.CriarInput{
		AutorID:   &ator.ID,
		AutorNome: ator.Nome,
		Tipo:      feedback.NormalizeTipo(payload.Tipo),
		Mensagem:  payload.Mensagem,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível registrar o feedback", nil)
		return
	}

	WriteJSON(w, http.StatusCreated, criado)
}

// ListFeedbacks lista todos os feedbacks recebidos.
func (h *Handler) ListFeedbacks(w http.ResponseWriter, r *http.Request) {
	lista, err := h.feedbacks.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar feedbacks", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"feedbacks": lista})
}

// MarcarFeedbackLido marca o feedback como visto pela gestão.
func (h *Handler) MarcarFeedbackLido(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.feedbacks.MarcarLida(r.Context(), id); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível marcar como lido", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ComentarFeedback acrescenta resposta da gestão ao feedback.
func (h *Handler) ComentarFeedback(w http.ResponseWriter, r *http.Request) {
	ator, err := h.usuarioAtual(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Texto string `json:"texto"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Texto) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "texto é obrigatório", nil)
		return
	}

	comentario := feedback.Comentario{
		Texto:     payload.Texto,
		AutorNome: ator.Nome,
		CriadoEm:  util.Now(),
	}

	if err := h.feedbacks.AdicionarComentario(r.Context(), id, comentario); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível comentar", nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}
