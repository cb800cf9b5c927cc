package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	staffModel "orderkue_backend/internals/features/users/staff/model"
)

const expirySkew = 30 * time.Second

var (
	ErrNoToken       = errors.New("no token provided")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserInactive  = errors.New("user inactive")
	ErrNotStaff      = errors.New("only staff accounts are allowed")
	errMissingSecret = errors.New("missing JWT secret")
)

// Claims: hasil verifikasi token. Role diambil dari tabel users, bukan dari token.
type Claims struct {
	UserID   uuid.UUID
	Role     string
	UserName string
}

// Verifier memeriksa JWT HS256 + status akun. Dipakai AuthMiddleware (REST) dan
// staff_join di websocket.
type Verifier struct {
	db     *gorm.DB
	secret string
}

func NewVerifier(db *gorm.DB, secret string) *Verifier {
	return &Verifier{db: db, secret: secret}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if f := strings.Fields(token); len(f) == 2 && strings.EqualFold(f[0], "Bearer") {
		token = f[1]
	}
	token = strings.Trim(token, "\"'")
	if token == "" {
		return nil, ErrNoToken
	}
	if v.secret == "" {
		return nil, errMissingSecret
	}

	claims := jwt.MapClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true, ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(v.secret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := validateTokenExpiry(claims, expirySkew); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	userID, err := extractUserID(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := loadActiveUser(ctx, v.db, userID)
	if err != nil {
		return nil, err
	}
	return &Claims{UserID: user.ID, Role: user.Role, UserName: user.UserName}, nil
}

// VerifyStaff: token valid dan akun ber-role admin. Mengembalikan identity staff
// (user id) yang dipakai sebagai sender_id.
func (v *Verifier) VerifyStaff(ctx context.Context, token string) (string, error) {
	cl, err := v.Verify(ctx, token)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(cl.Role, staffModel.RoleAdmin) {
		return "", ErrNotStaff
	}
	return cl.UserID.String(), nil
}
