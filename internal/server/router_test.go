package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/inkwell/internal/api/handlers"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/service"
)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateAPIKey(ctx context.Context, token string) (*domain.APIKey, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

type MockIntakeService struct {
	mock.Mock
}

func (m *MockIntakeService) Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockIntakeService) GetSource(ctx context.Context, orgID, sourceID string) (*domain.IngestionSource, error) {
	args := m.Called(ctx, orgID, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionSource), args.Error(1)
}

func (m *MockIntakeService) ListSources(ctx context.Context, orgID string, limit int) ([]*domain.IngestionSource, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IngestionSource), args.Error(1)
}

func (m *MockIntakeService) Reingest(ctx context.Context, orgID, sourceID string) error {
	args := m.Called(ctx, orgID, sourceID)
	return args.Error(0)
}

func (m *MockIntakeService) Delete(ctx context.Context, orgID, sourceID string) (*service.PurgeCounts, error) {
	args := m.Called(ctx, orgID, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PurgeCounts), args.Error(1)
}

func (m *MockIntakeService) AttachFolders(ctx context.Context, orgID, sourceID string, folderIDs []string) error {
	args := m.Called(ctx, orgID, sourceID, folderIDs)
	return args.Error(0)
}

type MockGovernanceService struct {
	mock.Mock
}

func (m *MockGovernanceService) ListChunks(ctx context.Context, actor service.Actor, filters service.ChunkListFilters, cursor string, limit int) (*service.ChunkPageResult, error) {
	args := m.Called(ctx, actor, filters, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChunkPageResult), args.Error(1)
}

func (m *MockGovernanceService) GetChunk(ctx context.Context, actor service.Actor, chunkID string) (*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, actor, chunkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeChunk), args.Error(1)
}

func (m *MockGovernanceService) ListChunkEvents(ctx context.Context, actor service.Actor, chunkID string) ([]*domain.ChunkEvent, error) {
	args := m.Called(ctx, actor, chunkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChunkEvent), args.Error(1)
}

func (m *MockGovernanceService) Activate(ctx context.Context, actor service.Actor, chunkID, reason string) (bool, error) {
	args := m.Called(ctx, actor, chunkID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockGovernanceService) Deactivate(ctx context.Context, actor service.Actor, chunkID, reason string) (bool, error) {
	args := m.Called(ctx, actor, chunkID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockGovernanceService) Reclassify(ctx context.Context, actor service.Actor, chunkID string, newKind domain.ChunkKind, reason string) (bool, error) {
	args := m.Called(ctx, actor, chunkID, newKind, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockGovernanceService) SetPolicy(ctx context.Context, actor service.Actor, chunkID string, newPolicy domain.UsagePolicy, reason string) (bool, error) {
	args := m.Called(ctx, actor, chunkID, newPolicy, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockGovernanceService) HardDelete(ctx context.Context, actor service.Actor, chunkID string, confirm bool) error {
	args := m.Called(ctx, actor, chunkID, confirm)
	return args.Error(0)
}

type MockResearchService struct {
	mock.Mock
}

func (m *MockResearchService) ResearchSearch(ctx context.Context, actor service.Actor, input service.ResearchSearchInput) ([]*service.ScoredChunk, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.ScoredChunk), args.Error(1)
}

func (m *MockResearchService) PromoteFromResearch(ctx context.Context, actor service.Actor, input service.PromoteInput) (*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeChunk), args.Error(1)
}

type MockContextProvider struct {
	mock.Mock
}

func (m *MockContextProvider) GenerationContext(ctx context.Context, input service.GenerationContextInput) ([]*service.RetrievedChunk, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.RetrievedChunk), args.Error(1)
}

type MockFolderService struct {
	mock.Mock
}

func (m *MockFolderService) CreateFolder(ctx context.Context, orgID, name string) (*domain.Folder, error) {
	args := m.Called(ctx, orgID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Folder), args.Error(1)
}

func (m *MockFolderService) GetFolder(ctx context.Context, orgID, folderID string) (*domain.Folder, error) {
	args := m.Called(ctx, orgID, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Folder), args.Error(1)
}

type MockInsightsService struct {
	mock.Mock
}

func (m *MockInsightsService) ListFacts(ctx context.Context, actor service.Actor, limit int) ([]*domain.BusinessFact, error) {
	args := m.Called(ctx, actor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BusinessFact), args.Error(1)
}

func (m *MockInsightsService) ListVoiceTraits(ctx context.Context, actor service.Actor, limit int) ([]*domain.VoiceTrait, error) {
	args := m.Called(ctx, actor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VoiceTrait), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateOrg(ctx context.Context, name, ownerUserID string) (*domain.Organization, error) {
	args := m.Called(ctx, name, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockAuthService) AddMember(ctx context.Context, orgID, userID string, role domain.Role) error {
	args := m.Called(ctx, orgID, userID, role)
	return args.Error(0)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, orgID, userID, name string) (string, error) {
	args := m.Called(ctx, orgID, userID, name)
	return args.String(0), args.Error(1)
}

type routerMocks struct {
	validator *MockAuthValidator
	intake    *MockIntakeService
	chunks    *MockGovernanceService
	research  *MockResearchService
	retrieval *MockContextProvider
	folders   *MockFolderService
	insights  *MockInsightsService
	auth      *MockAuthService
}

func setupRouter() (http.Handler, *routerMocks) {
	m := &routerMocks{
		validator: new(MockAuthValidator),
		intake:    new(MockIntakeService),
		chunks:    new(MockGovernanceService),
		research:  new(MockResearchService),
		retrieval: new(MockContextProvider),
		folders:   new(MockFolderService),
		insights:  new(MockInsightsService),
		auth:      new(MockAuthService),
	}

	cfg := RouterConfig{
		AuthValidator:   m.validator,
		SourceHandler:   handlers.NewSourceHandler(m.intake),
		ChunkHandler:    handlers.NewChunkHandler(m.chunks),
		ResearchHandler: handlers.NewResearchHandler(m.research, m.research),
		ContextHandler:  handlers.NewContextHandler(m.retrieval),
		FolderHandler:   handlers.NewFolderHandler(m.folders),
		InsightsHandler: handlers.NewInsightsHandler(m.insights),
		AuthHandler:     handlers.NewAuthHandler(m.auth),
	}

	return NewRouter(cfg), m
}

const testToken = "ink_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/sources"},
		{http.MethodGet, "/sources"},
		{http.MethodGet, "/sources/123"},
		{http.MethodPost, "/sources/123/reingest"},
		{http.MethodDelete, "/sources/123"},
		{http.MethodGet, "/chunks"},
		{http.MethodPost, "/chunks/123/deactivate"},
		{http.MethodDelete, "/chunks/123"},
		{http.MethodPost, "/research/search"},
		{http.MethodPost, "/research/promote"},
		{http.MethodPost, "/context"},
		{http.MethodPost, "/folders"},
		{http.MethodGet, "/facts"},
		{http.MethodGet, "/voice-traits"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_AuthenticatedRoutes_WithValidAuth(t *testing.T) {
	router, m := setupRouter()

	m.validator.On("ValidateAPIKey", mock.Anything, testToken).
		Return(&domain.APIKey{ID: "key-1", OrgID: "org-789", UserID: "user-1"}, nil)

	now := time.Now().UTC()
	m.intake.On("GetSource", mock.Anything, "org-789", "src-123").
		Return(&domain.IngestionSource{
			ID:        "src-123",
			OrgID:     "org-789",
			Type:      domain.SourceTypeText,
			Status:    domain.SourceStatusCompleted,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/sources/src-123", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	m.validator.AssertExpectations(t)
	m.intake.AssertExpectations(t)
}

func TestRouter_AuthScopesActorFromKey(t *testing.T) {
	router, m := setupRouter()

	m.validator.On("ValidateAPIKey", mock.Anything, testToken).
		Return(&domain.APIKey{ID: "key-1", OrgID: "org-789", UserID: "user-1"}, nil)
	m.chunks.On("Deactivate", mock.Anything, service.Actor{OrgID: "org-789", UserID: "user-1"}, "chunk-1", "").
		Return(true, nil)

	req := httptest.NewRequest(http.MethodPost, "/chunks/chunk-1/deactivate", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	m.chunks.AssertExpectations(t)
}

func TestRouter_RejectsInvalidKey(t *testing.T) {
	router, m := setupRouter()

	m.validator.On("ValidateAPIKey", mock.Anything, "ink_bad").Return(nil, domain.ErrInvalidAPIKey)

	req := httptest.NewRequest(http.MethodGet, "/sources", nil)
	req.Header.Set("Authorization", "Bearer ink_bad")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	m.intake.AssertNotCalled(t, "ListSources")
}

func TestRouter_OrgBootstrap_NoAuthRequired(t *testing.T) {
	router, m := setupRouter()

	m.auth.On("CreateOrg", mock.Anything, "Test Org", "user-1").
		Return(&domain.Organization{ID: "org-123", Name: "Test Org", CreatedAt: time.Now().UTC()}, nil)

	body := `{"name":"Test Org","owner_user_id":"user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/orgs", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	m.auth.AssertExpectations(t)
}
