package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaoboulevard/painel/internal/diretorio"
)

// ListUsuarios devolve o diretório completo de colaboradores.
func (h *Handler) ListUsuarios(w http.ResponseWriter, r *http.Request) {
	lista, err := h.diretorio.Listar(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar usuários", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"usuarios": lista})
}

// ConvidarUsuario cria conta pendente e devolve o token do convite.
func (h *Handler) ConvidarUsuario(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Nome     string   `json:"nome"`
		Email    string   `json:"email"`
		Papel    string   `json:"papel"`
		Areas    []string `json:"areas"`
		Whatsapp *string  `json:"whatsapp"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	result, err := h.diretorio.Convidar(r.Context(), payload.Nome, payload.Email, payload.Papel, payload.Areas, payload.Whatsapp, &subject)
	if err != nil {
		h.handleDiretorioError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"user":  result.Usuario,
		"token": result.Token,
	})
}

// EditarUsuario atualiza nome, papel, áreas e contato.
func (h *Handler) EditarUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Nome     *string  `json:"nome"`
		Whatsapp *string  `json:"whatsapp"`
		Papel    *string  `json:"papel"`
		Areas    []string `json:"areas"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	usuario, err := h.diretorio.Editar(r.Context(), diretorio.EditarInput{
		ID:       id,
		Nome:     payload.Nome,
		Whatsapp: payload.Whatsapp,
		Papel:    payload.Papel,
		Areas:    payload.Areas,
	})
	if err != nil {
		h.handleDiretorioError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": usuario})
}

// BloquearUsuario suspende o acesso do colaborador.
func (h *Handler) BloquearUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.diretorio.Bloquear(r.Context(), id); err != nil {
		h.handleDiretorioError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DesbloquearUsuario reativa colaborador suspenso.
func (h *Handler) DesbloquearUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.diretorio.Desbloquear(r.Context(), id); err != nil {
		h.handleDiretorioError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ExcluirUsuario remove a conta e limpa notificações pendentes.
func (h *Handler) ExcluirUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.diretorio.Excluir(r.Context(), id); err != nil {
		h.handleDiretorioError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDiretorioError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, diretorio.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, diretorio.ErrUltimoAdmin):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, diretorio.ErrPapelInvalido),
		errors.Is(err, diretorio.ErrAreaInvalida),
		errors.Is(err, diretorio.ErrGestorSemArea):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "operação falhou", nil)
	}
}
