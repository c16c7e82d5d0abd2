package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"studio/admin/internal/assets"
	"studio/admin/internal/auth"
	"studio/admin/internal/content"
	"studio/admin/internal/docstore"
	"studio/admin/internal/ordering"
	"studio/admin/internal/rbac"
	"studio/admin/internal/search"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ready, checks := s.service.Readiness(ctx)
		status, statusCode := "ready", http.StatusOK
		if !ready {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     ready,
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
				return
			}
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		current := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				current = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), current, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		current, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      current.UserName,
			"userId":        current.UserID,
			"role":          current.Role,
			"expiresAt":     current.ExpiresAt.Unix(),
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/public/inquiries" {
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		inquiry, err := s.service.Inquiries().Submit(r.Context(), body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": inquiry.ID})
		return
	}

	current, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "search":
		if len(parts) == 2 && r.Method == http.MethodGet {
			s.handleSearch(w, r, current)
			return
		}
	case "texts":
		s.handleTexts(w, r, current, parts[2:])
		return
	case "inquiries":
		s.handleInquiries(w, r, current, parts[2:])
		return
	case "assets":
		s.handleAssets(w, r, current, parts[2:])
		return
	default:
		if _, ok := s.service.Listing(parts[1]); ok {
			s.handleListing(w, r, current, parts[1], parts[2:])
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleListing(w http.ResponseWriter, r *http.Request, current Session, kind string, rest []string) {
	listing, _ := s.service.Listing(kind)
	scopeField := listing.Kind().ScopeField

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.allow(w, current, rbac.ResourceContent, rbac.ActionRead) {
			return
		}
		scope := ""
		if scopeField != "" {
			scope = strings.TrimSpace(r.URL.Query().Get(scopeField))
		}
		payload, err := s.service.ListItems(r.Context(), kind, scope)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.allow(w, current, rbac.ResourceContent, rbac.ActionWrite) {
			return
		}
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateItem(r.Context(), kind, body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)

	case len(rest) == 1 && rest[0] == "reorder" && r.Method == http.MethodPost:
		if !s.allow(w, current, rbac.ResourceContent, rbac.ActionWrite) {
			return
		}
		var body map[string]json.RawMessage
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var ids []string
		if raw, ok := body["ids"]; ok {
			if err := json.Unmarshal(raw, &ids); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", "ids must be an array of strings", nil)
				return
			}
		}
		var scope string
		if raw, ok := body[scopeField]; ok && scopeField != "" {
			if err := json.Unmarshal(raw, &scope); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", scopeField+" must be a string", nil)
				return
			}
		}
		payload, err := s.service.ReorderItems(r.Context(), kind, strings.TrimSpace(scope), ids)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(rest) == 1 && r.Method == http.MethodGet:
		if !s.allow(w, current, rbac.ResourceContent, rbac.ActionRead) {
			return
		}
		payload, err := s.service.GetItem(r.Context(), kind, rest[0])
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(rest) == 1 && r.Method == http.MethodPut:
		if !s.allow(w, current, rbac.ResourceContent, rbac.ActionWrite) {
			return
		}
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateItem(r.Context(), kind, rest[0], body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if !s.allow(w, current, rbac.ResourceContent, rbac.ActionDelete) {
			return
		}
		if err := s.service.DeleteItem(r.Context(), kind, rest[0]); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": rest[0]})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleTexts(w http.ResponseWriter, r *http.Request, current Session, rest []string) {
	texts := s.service.Texts()
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.allow(w, current, rbac.ResourceTexts, rbac.ActionRead) {
			return
		}
		items, err := texts.List(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case len(rest) == 1 && r.Method == http.MethodGet:
		if !s.allow(w, current, rbac.ResourceTexts, rbac.ActionRead) {
			return
		}
		text, err := texts.Get(r.Context(), rest[0])
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, text)

	case len(rest) == 1 && r.Method == http.MethodPut:
		if !s.allow(w, current, rbac.ResourceTexts, rbac.ActionWrite) {
			return
		}
		var body struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		text, err := texts.Put(r.Context(), content.Text{Key: rest[0], Title: body.Title, Body: body.Body})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, text)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleInquiries(w http.ResponseWriter, r *http.Request, current Session, rest []string) {
	inquiries := s.service.Inquiries()
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.allow(w, current, rbac.ResourceInquiries, rbac.ActionRead) {
			return
		}
		items, err := inquiries.List(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case len(rest) == 2 && rest[1] == "handled" && r.Method == http.MethodPost:
		if !s.allow(w, current, rbac.ResourceInquiries, rbac.ActionWrite) {
			return
		}
		body := struct {
			Handled *bool `json:"handled"`
		}{}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		handled := body.Handled == nil || *body.Handled
		inquiry, err := inquiries.MarkHandled(r.Context(), rest[0], handled)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inquiry)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if !s.allow(w, current, rbac.ResourceInquiries, rbac.ActionDelete) {
			return
		}
		if err := inquiries.Delete(r.Context(), rest[0]); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": rest[0]})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAssets(w http.ResponseWriter, r *http.Request, current Session, rest []string) {
	store, err := s.service.Assets()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.allow(w, current, rbac.ResourceAssets, rbac.ActionRead) {
			return
		}
		objects, err := store.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("prefix")))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": objects})

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.allow(w, current, rbac.ResourceAssets, rbac.ActionWrite) {
			return
		}
		s.handleUpload(w, r, store)

	case len(rest) > 0 && r.Method == http.MethodGet:
		if !s.allow(w, current, rbac.ResourceAssets, rbac.ActionRead) {
			return
		}
		object, err := store.Stat(r.Context(), strings.Join(rest, "/"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, object)

	case len(rest) > 0 && r.Method == http.MethodDelete:
		if !s.allow(w, current, rbac.ResourceAssets, rbac.ActionDelete) {
			return
		}
		key := strings.Join(rest, "/")
		if err := store.Delete(r.Context(), key); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// multipartOverhead leaves room for the form boundaries and other fields.
const multipartOverhead = 1 << 20

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request, store AssetStore) {
	if limit := s.service.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "Upload exceeds the size limit", map[string]any{"maxBytes": s.service.MaxUploadBytes()})
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form data", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	meta := map[string]string{}
	if alt := strings.TrimSpace(r.FormValue("alt")); alt != "" {
		meta["alt"] = alt
	}
	object, err := store.Put(r.Context(), assets.Upload{
		Prefix:      r.FormValue("prefix"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Metadata:    meta,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, object)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, current Session) {
	if !s.allow(w, current, rbac.ResourceContent, rbac.ActionRead) {
		return
	}
	query := r.URL.Query()
	q := search.Query{
		Text: strings.TrimSpace(query.Get("q")),
		Kind: strings.TrimSpace(query.Get("type")),
	}
	if q.Kind != "" {
		if _, ok := s.service.Listing(q.Kind); !ok {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown type", map[string]any{"type": q.Kind})
			return
		}
	}
	for name, target := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be a non-negative integer", nil)
			return
		}
		*target = parsed
	}
	writeJSON(w, http.StatusOK, s.service.Search(q))
}

func (s *HTTPServer) allow(w http.ResponseWriter, current Session, resource rbac.Resource, action rbac.Action) bool {
	if s.service.Can(current, resource, action) {
		return true
	}
	s.logger.Info("access denied",
		zap.String("user_id", current.UserID),
		zap.String("role", string(current.Role)),
		zap.String("resource", string(resource)),
		zap.String("action", string(action)),
	)
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	return false
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	current, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		s.logger.Error("session lookup failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return current, true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", id)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"accessToken":  session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"userName":     session.UserName,
		"role":         session.Role,
		"expiresAt":    session.ExpiresAt.Unix(),
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var orderErr *ordering.ValidationError
	if errors.As(err, &orderErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", orderErr.Reason, map[string]any{
			"missing":   nonNilStrings(orderErr.Missing),
			"unknown":   nonNilStrings(orderErr.Unknown),
			"duplicate": nonNilStrings(orderErr.Duplicate),
		}
	}
	var contentErr *content.ValidationError
	if errors.As(err, &contentErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid " + contentErr.Kind, map[string]any{"problems": contentErr.Problems}
	}
	var batch *ordering.BatchError
	if errors.As(err, &batch) {
		de := partialWriteError(batch, "")
		return de.Status, de.Code, de.Message, de.Details
	}
	var uploadErr *assets.UploadError
	if errors.As(err, &uploadErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", uploadErr.Reason, nil
	}

	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, assets.ErrObjectNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
