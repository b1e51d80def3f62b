package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeState   = "state"

	stateTTL = 10 * time.Minute
)

// Claims is the payload of every token this service signs. Type tells the
// three kinds apart so one can never stand in for another.
type Claims struct {
	Email      string  `json:"email,omitempty"`
	Role       string  `json:"role,omitempty"`
	CompanyID  *string `json:"company_id,omitempty"`
	Type       string  `json:"type"`
	Invitation string  `json:"inv,omitempty"`
	jwt.RegisteredClaims
}

type TokenService interface {
	IssuePair(u *models.User) (*models.TokenResponse, error)
	Validate(token, tokenType string) (*Claims, error)
	IssueState(invitationToken string) (string, error)
	// ValidateState returns the invitation token carried by an OAuth state.
	ValidateState(state string) (string, error)
	AccessTTL() time.Duration
}

type tokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) TokenService {
	return &tokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *tokenService) AccessTTL() time.Duration { return s.accessTTL }

func (s *tokenService) sign(c Claims, ttl time.Duration) (string, error) {
	now := s.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	c.ID = uuid.NewString()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *tokenService) IssuePair(u *models.User) (*models.TokenResponse, error) {
	access, err := s.sign(Claims{
		Email:            u.Email,
		Role:             u.Role.String(),
		CompanyID:        u.CompanyID,
		Type:             TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
	}, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(Claims{
		Email:            u.Email,
		Type:             TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
	}, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		User: models.TokenUser{
			ID:            u.ID,
			Email:         u.Email,
			FullName:      u.FullName,
			Role:          u.Role.String(),
			CompanyID:     u.CompanyID,
			CanAddDevices: u.CanAddDevices,
		},
	}, nil
}

func (s *tokenService) Validate(token, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrTokenInvalid
	}
	if claims.Type != tokenType {
		return nil, apperr.New(apperr.ErrTokenInvalid, "Invalid token type")
	}
	if tokenType != TokenTypeState && claims.Subject == "" {
		return nil, apperr.ErrTokenInvalid
	}
	if tokenType == TokenTypeAccess {
		if _, err := authz.ParseRole(claims.Role); err != nil {
			return nil, apperr.ErrTokenInvalid
		}
	}
	return claims, nil
}

func (s *tokenService) IssueState(invitationToken string) (string, error) {
	return s.sign(Claims{Type: TokenTypeState, Invitation: invitationToken}, stateTTL)
}

func (s *tokenService) ValidateState(state string) (string, error) {
	c, err := s.Validate(state, TokenTypeState)
	if err != nil {
		return "", apperr.New(apperr.ErrTokenInvalid, "Invalid OAuth state")
	}
	return c.Invitation, nil
}
