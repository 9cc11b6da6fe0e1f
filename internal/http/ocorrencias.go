package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaoboulevard/painel/internal/diretorio"
	"github.com/gestaoboulevard/painel/internal/ocorrencia"
)

// ListOcorrencias lista ocorrências, com filtros por área, status e lixeira.
func (h *Handler) ListOcorrencias(w http.ResponseWriter, r *http.Request) {
	ator, err := h.usuarioAtual(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	filtro := ocorrencia.Filtro{
		Area:    r.URL.Query().Get("area"),
		Status:  r.URL.Query().Get("status"),
		Lixeira: r.URL.Query().Get("lixeira") == "true",
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filtro.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filtro.Offset = offset
		}
	}

	lista, err := h.ocorrencias.Listar(r.Context(), filtro, ator)
	if err != nil {
		if errors.Is(err, ocorrencia.ErrSemPermissao) {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar ocorrências", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ocorrencias": lista})
}

// CreateOcorrencia registra nova ocorrência e dispara notificações.
func (h *Handler) CreateOcorrencia(w http.ResponseWriter, r *http.Request) {
	ator, err := h.usuarioAtual(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Titulo       string  `json:"titulo"`
		Descricao    string  `json:"descricao"`
		Local        string  `json:"local"`
		Area         string  `json:"area"`
		Urgente      bool    `json:"urgente"`
		Complexidade *string `json:"complexidade"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	criada, err := h.ocorrencias.Criar(r.Context(), ocorrencia.CriarInput{
		Titulo:       payload.Titulo,
		Descricao:    payload.Descricao,
		Local:        payload.Local,
		Area:         payload.Area,
		Urgente:      payload.Urgente,
		Complexidade: payload.Complexidade,
	}, ator)
	if err != nil {
		switch {
		case errors.Is(err, ocorrencia.ErrCamposObrigatorios), errors.Is(err, diretorio.ErrAreaInvalida),
			errors.Is(err, ocorrencia.ErrComplexidadeInvalida):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível criar a ocorrência", nil)
		}
		return
	}

	WriteJSON(w, http.StatusCreated, criada)
}

// GetOcorrencia devolve ocorrência pelo id.
func (h *Handler) GetOcorrencia(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	o, err := h.ocorrencias.Buscar(r.Context(), id)
	if err != nil {
		h.handleOcorrenciaError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, o)
}

// UpdateOcorrencia aplica atualização parcial de campos mutáveis.
func (h *Handler) UpdateOcorrencia(w http.ResponseWriter, r *http.Request) {
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
		Titulo       *string `json:"titulo"`
		Descricao    *string `json:"descricao"`
		Local        *string `json:"local"`
		Status       *string `json:"status"`
		Urgente      *bool   `json:"urgente"`
		Complexidade *string `json:"complexidade"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	atualizada, err := h.ocorrencias.Atualizar(r.Context(), id, ocorrencia.AtualizarInput{
		Titulo:       payload.Titulo,
		Descricao:    payload.Descricao,
		Local:        payload.Local,
		Status:       payload.Status,
		Urgente:      payload.Urgente,
		Complexidade: payload.Complexidade,
	}, ator)
	if err != nil {
		h.handleOcorrenciaError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, atualizada)
}

// AddAtualizacao acrescenta nota de progresso ao histórico.
func (h *Handler) AddAtualizacao(w http.ResponseWriter, r *http.Request) {
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

	if err := h.ocorrencias.RegistrarAtualizacao(r.Context(), id, payload.Texto, ator); err != nil {
		h.handleOcorrenciaError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// DefinirPrazo define nova previsão de conclusão e preserva o histórico.
func (h *Handler) DefinirPrazo(w http.ResponseWriter, r *http.Request) {
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
		Prazo time.Time `json:"prazo"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if payload.Prazo.IsZero() {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "prazo é obrigatório", nil)
		return
	}

	if err := h.ocorrencias.DefinirPrazo(r.Context(), id, payload.Prazo, ator); err != nil {
		h.handleOcorrenciaError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SoftDeleteOcorrencia envia a ocorrência para a lixeira.
func (h *Handler) SoftDeleteOcorrencia(w http.ResponseWriter, r *http.Request) {
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

	if err := h.ocorrencias.ExcluirSuave(r.Context(), id, ator); err != nil {
		h.handleOcorrenciaError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RestoreOcorrencia recupera ocorrência da lixeira.
func (h *Handler) RestoreOcorrencia(w http.ResponseWriter, r *http.Request) {
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

	if err := h.ocorrencias.Restaurar(r.Context(), id, ator); err != nil {
		h.handleOcorrenciaError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HardDeleteOcorrencia remove definitivamente. Restrito a admin e diretor.
func (h *Handler) HardDeleteOcorrencia(w http.ResponseWriter, r *http.Request) {
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

	if err := h.ocorrencias.ExcluirDefinitivo(r.Context(), id, ator); err != nil {
		h.handleOcorrenciaError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleOcorrenciaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ocorrencia.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ocorrencia.ErrSemPermissao):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ocorrencia.ErrInvalidStatus), errors.Is(err, ocorrencia.ErrComplexidadeInvalida),
		errors.Is(err, ocorrencia.ErrExcluida):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "operação falhou", nil)
	}
}
