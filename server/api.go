package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/alimasry/lumina/assistant"
	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/render"
	"github.com/alimasry/lumina/store"
	"github.com/alimasry/lumina/workspace"
)

const (
	maxBodySize   = 10 << 20
	maxUploadSize = 32 << 20
)

// API serves the workspace and document endpoints.
type API struct {
	hub    *Hub
	ws     *workspace.Workspace
	logger *zap.Logger
}

func NewAPI(hub *Hub, ws *workspace.Workspace, logger *zap.Logger) *API {
	return &API{hub: hub, ws: ws, logger: logger.Named("api")}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/strings", a.Strings)
	mux.HandleFunc("GET /api/workspace", a.Workspace)
	mux.HandleFunc("PUT /api/workspace/language", a.SetLanguage)
	mux.HandleFunc("POST /api/drafts", a.StartDraft)
	mux.HandleFunc("POST /api/documents", a.CreateDocument)
	mux.HandleFunc("GET /api/documents/active", a.ActiveDocument)
	mux.HandleFunc("PUT /api/documents/active", a.ActivateDocument)
	mux.HandleFunc("PATCH /api/documents/active", a.UpdateActiveDocument)
	mux.HandleFunc("GET /api/documents/{id}", a.GetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", a.CloseDocument)
	mux.HandleFunc("GET /api/documents/{id}/preview", a.Preview)
	mux.HandleFunc("GET /api/documents/{id}/suggestions", a.Suggestions)
	mux.HandleFunc("POST /api/documents/{id}/suggestions/{sid}/apply", a.ApplySuggestion)
	mux.HandleFunc("DELETE /api/documents/{id}/suggestions/{sid}", a.DismissSuggestion)
}

func parseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", workspace.ErrValidation, err)
	}
	return nil
}

// Strings returns the display strings for a language. Without a lang
// parameter the Accept-Language header decides.
// GET /api/strings?lang=ru
func (a *API) Strings(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("lang")
	if tag == "" {
		tag = r.Header.Get("Accept-Language")
	}
	lang := i18n.Parse(tag)
	RespondJSON(w, http.StatusOK, map[string]any{
		"language": lang,
		"strings":  i18n.Strings(lang),
	})
}

// GET /api/workspace
func (a *API) Workspace(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, a.ws.Snapshot())
}

type languageRequest struct {
	Language string `json:"language"`
}

// PUT /api/workspace/language
func (a *API) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := parseJSON(w, r, &req); err != nil {
		handleError(w, a.logger, err)
		return
	}
	if err := a.ws.SetLanguage(i18n.Language(strings.ToLower(req.Language))); err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusOK, a.ws.Snapshot())
}

type draftRequest struct {
	Prompt      string                     `json:"prompt"`
	Language    string                     `json:"language,omitempty"`
	Attachments []assistant.FileAttachment `json:"attachments,omitempty"`
}

// StartDraft generates the first draft from a prompt and replaces the open
// documents with it. Accepts multipart/form-data (prompt, language, files)
// or JSON with base64 attachments.
// POST /api/drafts
func (a *API) StartDraft(w http.ResponseWriter, r *http.Request) {
	req, err := a.readDraftRequest(w, r)
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	if req.Language != "" {
		if err := a.ws.SetLanguage(i18n.Parse(req.Language)); err != nil {
			handleError(w, a.logger, err)
			return
		}
	}

	snap, err := a.ws.Start(r.Context(), req.Prompt, req.Attachments)
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusCreated, snap)
}

func (a *API) readDraftRequest(w http.ResponseWriter, r *http.Request) (draftRequest, error) {
	var req draftRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := parseJSON(w, r, &req); err != nil {
			return req, err
		}
		for i := range req.Attachments {
			req.Attachments[i].Complete()
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return req, fmt.Errorf("%w: invalid form: %v", workspace.ErrValidation, err)
	}
	req.Prompt = r.FormValue("prompt")
	req.Language = r.FormValue("language")
	for _, fh := range r.MultipartForm.File["files"] {
		att, err := assistant.FromMultipart(fh)
		if err != nil {
			return req, fmt.Errorf("%w: %v", workspace.ErrValidation, err)
		}
		req.Attachments = append(req.Attachments, att)
	}
	return req, nil
}

// POST /api/documents
func (a *API) CreateDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := a.ws.Create(r.Context())
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusCreated, doc)
}

// documentResponse is a document with its word and character counts.
type documentResponse struct {
	*store.DocumentInfo
	workspace.Stats
}

func withStats(info *store.DocumentInfo) documentResponse {
	return documentResponse{DocumentInfo: info, Stats: workspace.Count(info.Content)}
}

// GET /api/documents/active
func (a *API) ActiveDocument(w http.ResponseWriter, r *http.Request) {
	info, err := a.ws.Active(r.Context())
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusOK, withStats(info))
}

type activateRequest struct {
	ID string `json:"id"`
}

// PUT /api/documents/active
func (a *API) ActivateDocument(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := parseJSON(w, r, &req); err != nil {
		handleError(w, a.logger, err)
		return
	}
	if err := a.ws.Activate(req.ID); err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusOK, a.ws.Snapshot())
}

type updateRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// UpdateActiveDocument renames the active document and/or replaces its
// content. With no active document nothing changes.
// PATCH /api/documents/active
func (a *API) UpdateActiveDocument(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := parseJSON(w, r, &req); err != nil {
		handleError(w, a.logger, err)
		return
	}
	if req.Title != nil {
		if err := a.ws.Rename(r.Context(), *req.Title); err != nil {
			handleError(w, a.logger, err)
			return
		}
	}
	if req.Content != nil {
		if err := a.ws.SetContent(r.Context(), *req.Content); err != nil {
			handleError(w, a.logger, err)
			return
		}
	}
	RespondJSON(w, http.StatusOK, a.ws.Snapshot())
}

// GET /api/documents/{id}
func (a *API) GetDocument(w http.ResponseWriter, r *http.Request) {
	info, err := a.ws.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusOK, withStats(info))
}

// DELETE /api/documents/{id}
func (a *API) CloseDocument(w http.ResponseWriter, r *http.Request) {
	if err := a.ws.Close(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusOK, a.ws.Snapshot())
}

// Preview renders the document's markdown as sanitized HTML.
// GET /api/documents/{id}/preview
func (a *API) Preview(w http.ResponseWriter, r *http.Request) {
	info, err := a.ws.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(render.Markdown(info.Content)))
}

func (a *API) openDocument(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := a.ws.Document(r.Context(), id); err != nil {
		handleError(w, a.logger, err)
		return "", false
	}
	return id, true
}

// GET /api/documents/{id}/suggestions
func (a *API) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := a.openDocument(w, r)
	if !ok {
		return
	}
	list, err := a.hub.Suggestions(r.Context(), id)
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusOK, list)
}

type applyResponse struct {
	Applied bool   `json:"applied"`
	Content string `json:"content"`
}

// POST /api/documents/{id}/suggestions/{sid}/apply
func (a *API) ApplySuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := a.openDocument(w, r)
	if !ok {
		return
	}
	res, err := a.hub.ApplySuggestion(r.Context(), id, r.PathValue("sid"))
	if err != nil {
		handleError(w, a.logger, err)
		return
	}
	RespondJSON(w, http.StatusOK, applyResponse{Applied: res.Applied, Content: res.Content})
}

// DELETE /api/documents/{id}/suggestions/{sid}
func (a *API) DismissSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := a.openDocument(w, r)
	if !ok {
		return
	}
	if err := a.hub.DismissSuggestion(r.Context(), id, r.PathValue("sid")); err != nil {
		handleError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
