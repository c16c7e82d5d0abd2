package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"studio/admin/internal/assets"
	"studio/admin/internal/auth"
	"studio/admin/internal/authpw"
	"studio/admin/internal/config"
	"studio/admin/internal/content"
	"studio/admin/internal/docstore"
	"studio/admin/internal/ordering"
	"studio/admin/internal/rbac"
	"studio/admin/internal/search"
	"studio/admin/internal/session"
	"studio/admin/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         rbac.Role
	JTI          string
	ExpiresAt    time.Time
}

// AssetStore is satisfied by *assets.Bucket.
type AssetStore interface {
	Put(ctx context.Context, upload assets.Upload) (assets.Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]assets.Object, error)
	Stat(ctx context.Context, key string) (assets.Object, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators wired by cmd/admin. Assets, Search and
// Notifier may be nil.
type Deps struct {
	Config   config.Config
	Store    docstore.Store
	Sessions session.Store
	RBAC     *rbac.Enforcer
	Assets   AssetStore
	Search   *search.Service
	Notifier content.Notifier
	Logger   *zap.Logger
}

type Service struct {
	cfg       config.Config
	store     docstore.Store
	sessions  session.Store
	signer    *auth.Signer
	users     *authpw.Service
	rbac      *rbac.Enforcer
	orders    *ordering.Manager
	listings  map[string]*content.Listing
	texts     *content.TextService
	inquiries *content.InquiryService
	assets    AssetStore
	search    *search.Service
	logger    *zap.Logger
}

func New(deps Deps) (*Service, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	enforcer := deps.RBAC
	if enforcer == nil {
		var err error
		if enforcer, err = rbac.New(""); err != nil {
			return nil, fmt.Errorf("default rbac policy: %w", err)
		}
	}

	orders := ordering.NewManager(deps.Store, logger.Named("ordering"), deps.Config.WriteConcurrency)
	opts := []content.ListingOption{content.WithLogger(logger.Named("content"))}
	if deps.Search != nil {
		opts = append(opts, content.WithIndexer(deps.Search))
	}
	listings := make(map[string]*content.Listing, len(content.Kinds))
	for name, kind := range content.Kinds {
		kindOpts := opts
		if name == content.Projects.Name {
			kindOpts = append(append([]content.ListingOption(nil), opts...), content.WithScopes(deps.Config.ProjectCategories...))
		}
		listings[name] = content.NewListing(kind, deps.Store, orders, kindOpts...)
	}

	return &Service{
		cfg:       deps.Config,
		store:     deps.Store,
		sessions:  sessions,
		signer:    auth.NewSigner(deps.Config.JWTSecret, deps.Config.AccessTTL),
		users:     authpw.NewService(deps.Store),
		rbac:      enforcer,
		orders:    orders,
		listings:  listings,
		texts:     content.NewTextService(deps.Store),
		inquiries: content.NewInquiryService(deps.Store, deps.Notifier, logger.Named("inquiries")),
		assets:    deps.Assets,
		search:    deps.Search,
		logger:    logger,
	}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.SignIn(ctx, email, password)
	if err != nil {
		var input *authpw.InputError
		if errors.As(err, &input) {
			return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", input.Message, map[string]any{"field": input.Field})
		}
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, err
	}
	s.logger.Info("staff signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.issueSession(ctx, session.Data{UserID: user.ID, Name: user.Name, Role: string(user.Role)})
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	data, err := s.sessions.ConsumeRefresh(ctx, auth.HashToken(refreshToken))
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	// Role and disabled flag may have changed since the session began.
	user, err := s.users.Get(ctx, data.UserID)
	if errors.Is(err, authpw.ErrUserNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if user.Disabled {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, session.Data{UserID: user.ID, Name: user.Name, Role: string(user.Role)})
}

func (s *Service) issueSession(ctx context.Context, data session.Data) (Session, error) {
	token, claims, err := s.signer.Issue(auth.Claims{
		Sub:  data.UserID,
		Name: data.Name,
		Role: data.Role,
		JTI:  util.NewID("jti"),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := time.Now().Add(s.cfg.RefreshTTL)
	data.CreatedAt = time.Now().UTC()
	if err := s.sessions.SaveRefresh(ctx, auth.HashToken(refresh), data, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       claims.Sub,
		UserName:     claims.Name,
		Role:         rbac.Normalize(claims.Role),
		JTI:          claims.JTI,
		ExpiresAt:    claims.ExpiresAt(),
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Role:      rbac.Normalize(claims.Role),
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, current Session, refreshToken string) error {
	if current.JTI != "" {
		if err := s.sessions.RevokeAccess(ctx, current.JTI, current.ExpiresAt); err != nil {
			s.logger.Warn("revoke access token failed", zap.Error(err))
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefresh(ctx, auth.HashToken(refreshToken)); err != nil {
			s.logger.Warn("revoke refresh token failed", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) Can(current Session, resource rbac.Resource, action rbac.Action) bool {
	return s.rbac.Can(current.Role, resource, action)
}

func (s *Service) Listing(name string) (*content.Listing, bool) {
	listing, ok := s.listings[name]
	return listing, ok
}

func (s *Service) ListItems(ctx context.Context, kind, scope string) (map[string]any, error) {
	listing, ok := s.Listing(kind)
	if !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	items, err := listing.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"items": itemMaps(items)}
	if field := listing.Kind().ScopeField; field != "" {
		payload["scopeField"] = field
		payload["scopes"] = listing.Scopes()
	}
	return payload, nil
}

// CreateItem stores a new item. A partial ordering failure still reports
// the id of the stored item so the client can re-fetch around it.
func (s *Service) CreateItem(ctx context.Context, kind string, input map[string]any) (map[string]any, error) {
	listing, ok := s.Listing(kind)
	if !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	item, err := listing.Create(ctx, input)
	if err != nil {
		var batch *ordering.BatchError
		if errors.As(err, &batch) && item.ID != "" {
			return nil, partialWriteError(batch, item.ID)
		}
		return nil, err
	}
	return item.Map(), nil
}

func (s *Service) GetItem(ctx context.Context, kind, id string) (map[string]any, error) {
	listing, ok := s.Listing(kind)
	if !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	item, err := listing.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return item.Map(), nil
}

func (s *Service) UpdateItem(ctx context.Context, kind, id string, input map[string]any) (map[string]any, error) {
	listing, ok := s.Listing(kind)
	if !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	item, err := listing.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	return item.Map(), nil
}

func (s *Service) DeleteItem(ctx context.Context, kind, id string) error {
	listing, ok := s.Listing(kind)
	if !ok {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return listing.Delete(ctx, id)
}

func (s *Service) ReorderItems(ctx context.Context, kind, scope string, ids []string) (map[string]any, error) {
	listing, ok := s.Listing(kind)
	if !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	if err := listing.Reorder(ctx, scope, ids); err != nil {
		return nil, err
	}
	items, err := listing.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	return map[string]any{"items": itemMaps(items)}, nil
}

func (s *Service) Texts() *content.TextService { return s.texts }

func (s *Service) Inquiries() *content.InquiryService { return s.inquiries }

func (s *Service) Assets() (AssetStore, error) {
	if s.assets == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ASSETS_UNAVAILABLE", "Object storage is not configured", nil)
	}
	return s.assets, nil
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text, Backend: "none"}
	}
	return s.search.Search(q)
}

func (s *Service) MaxUploadBytes() int64 {
	return s.cfg.MaxUploadBytes
}

// Readiness pings every stateful collaborator. Missing optional
// collaborators are reported as disabled.
func (s *Service) Readiness(ctx context.Context) (bool, map[string]any) {
	ready := true
	checks := map[string]any{}
	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			ready = false
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			return
		}
		checks[name] = map[string]any{"status": "ok"}
	}

	check("docstore", s.store.Ping)
	check("sessions", s.sessions.Ping)
	if s.assets != nil {
		check("objectStorage", s.assets.Ping)
	} else {
		checks["objectStorage"] = map[string]any{"status": "disabled"}
	}
	return ready, checks
}

func partialWriteError(batch *ordering.BatchError, createdID string) *DomainError {
	details := map[string]any{
		"op":        batch.Op,
		"attempted": batch.Attempted,
		"failedIds": batch.FailedIDs(),
		"refetch":   true,
	}
	if createdID != "" {
		details["id"] = createdID
	}
	return domainError(http.StatusBadGateway, "PARTIAL_WRITE", "Some order updates did not complete; reload the list", details)
}

func itemMaps(items []content.Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.Map())
	}
	return out
}
