package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

const apiKeyPrefix = "ink_"

// APIKeyRepositoryInterface defines the persistence contract for API keys.
type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService handles organizations, memberships, and API keys. Every API key
// belongs to an organization member, so a validated key resolves to both the
// tenant and the acting user.
type AuthService struct {
	orgRepo OrgRepositoryInterface
	keyRepo APIKeyRepositoryInterface
	uuidGen UUIDGenerator
}

func NewAuthService(orgRepo OrgRepositoryInterface, keyRepo APIKeyRepositoryInterface, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		orgRepo: orgRepo,
		keyRepo: keyRepo,
		uuidGen: uuidGen,
	}
}

// CreateOrg creates an organization with the given user as its owner.
func (s *AuthService) CreateOrg(ctx context.Context, name, ownerUserID string) (*domain.Organization, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "organization name is required")
	}
	if ownerUserID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "owner user ID is required")
	}

	org := &domain.Organization{
		ID:        s.uuidGen.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateOrganization(org); err != nil {
		return nil, err
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, err
	}

	membership := &domain.Membership{
		OrgID:     org.ID,
		UserID:    ownerUserID,
		Role:      domain.RoleOwner,
		CreatedAt: org.CreatedAt,
	}
	if err := s.orgRepo.UpsertMembership(ctx, membership); err != nil {
		return nil, err
	}

	return org, nil
}

// AddMember grants a user a role in the organization, updating the role if a
// membership already exists.
func (s *AuthService) AddMember(ctx context.Context, orgID, userID string, role domain.Role) error {
	if !domain.IsValidRole(role) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid role: "+string(role))
	}
	if _, err := s.orgRepo.GetByID(ctx, orgID); err != nil {
		return err
	}

	membership := &domain.Membership{
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateMembership(membership); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}
	return s.orgRepo.UpsertMembership(ctx, membership)
}

// CreateAPIKey issues a key acting as the given member. Returns the plaintext
// token; only its hash is stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, orgID, userID, name string) (string, error) {
	if orgID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "organization ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	// The key must act as an existing member.
	if _, err := s.orgRepo.RoleOf(ctx, orgID, userID); err != nil {
		return "", err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		OrgID:     orgID,
		UserID:    userID,
		Name:      name,
		KeyHash:   hashToken(token),
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return "", err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateAPIKey resolves a plaintext token to its key record, rejecting
// malformed and revoked tokens.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (*domain.APIKey, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return nil, domain.ErrInvalidAPIKey
		}
		return nil, err
	}

	if key.IsRevoked() {
		return nil, domain.ErrAPIKeyRevoked
	}

	return key, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

// RoleOf implements PermissionResolver.
func (s *AuthService) RoleOf(ctx context.Context, orgID, userID string) (domain.Role, error) {
	return s.orgRepo.RoleOf(ctx, orgID, userID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
