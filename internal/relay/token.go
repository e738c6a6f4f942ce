package relay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"snapsync/internal/config"
)

const tokenIssuerName = "snapsync-relay"

// 开发环境兜底密钥，上线必须通过配置或环境变量覆盖
const devSecret = "snapsync-dev-secret-change-in-production"

var ErrTokenMismatch = errors.New("会话令牌与连接不符")

// SessionClaims 会话令牌内容：连接标识加发布方绑定的实体
// 订阅方的 Entity 为空
type SessionClaims struct {
	ConnID string `json:"conn_id"`
	Entity string `json:"entity,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer 会话令牌的签发与校验
// 密钥优先级：环境变量 SNAPSYNC_JWT_SECRET > 配置文件 > 开发密钥，
// 有效期来自配置（auth.sessionTTL）
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

// NewTokenIssuer 按配置创建令牌签发器
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	secret := cfg.Secret
	if env := os.Getenv("SNAPSYNC_JWT_SECRET"); env != "" {
		secret = env
	}
	if secret == "" {
		secret = devSecret
	}
	return &TokenIssuer{
		key: []byte(secret),
		ttl: cfg.SessionTTL,
	}
}

// Issue 为一条刚完成握手的连接签发令牌
func (ti *TokenIssuer) Issue(connID, entity string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		ConnID: connID,
		Entity: entity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   connID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
}

// Verify 校验令牌并返回其 Claims
// 算法与签发方约束交给解析选项，过期由 RegisteredClaims 自带校验
func (ti *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(*jwt.Token) (interface{}, error) { return ti.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuerName),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("解析会话令牌失败: %w", err)
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || claims.ConnID == "" {
		return nil, errors.New("会话令牌无效")
	}
	return claims, nil
}

// VerifyFor 校验令牌并核对它是否真属于这条连接的这个实体
func (ti *TokenIssuer) VerifyFor(tokenString, connID, entity string) error {
	claims, err := ti.Verify(tokenString)
	if err != nil {
		return err
	}
	if claims.ConnID != connID || claims.Entity != entity {
		return ErrTokenMismatch
	}
	return nil
}
