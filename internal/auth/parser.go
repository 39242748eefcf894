package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/orderflow/internal/model"
)

var ErrInvalidToken = errors.New("invalid access token")

type Claims struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(raw string) (model.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Principal{}, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad user_id", ErrInvalidToken)
	}
	var orgID uuid.UUID
	if claims.OrgID != "" {
		if orgID, err = uuid.Parse(claims.OrgID); err != nil {
			return model.Principal{}, fmt.Errorf("%w: bad org_id", ErrInvalidToken)
		}
	}

	role := model.UserRole(strings.ToUpper(claims.Role))
	switch role {
	case model.UserRoleAdmin, model.UserRoleManager, model.UserRoleWarehouse:
	default:
		return model.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return model.Principal{
		UserID: userID,
		OrgID:  orgID,
		Name:   claims.Name,
		Role:   role,
	}, nil
}

// Sign issues an access token for a principal. Used by tooling and tests;
// production tokens come from the auth service.
func (p *Parser) Sign(principal model.Principal, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           principal.UserID.String(),
		OrgID:            principal.OrgID.String(),
		Name:             principal.Name,
		Role:             string(principal.Role),
		RegisteredClaims: claims,
	})
	return token.SignedString(p.secret)
}
