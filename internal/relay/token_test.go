package relay

import (
	"errors"
	"testing"
	"time"

	"snapsync/internal/config"
)

func testIssuer(ttl time.Duration) *TokenIssuer {
	return NewTokenIssuer(config.AuthConfig{
		Secret:     "test-secret",
		SessionTTL: ttl,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	ti := testIssuer(time.Minute)

	token, err := ti.Issue("conn-1", "player-7")
	if err != nil {
		t.Fatalf("签发失败: %v", err)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if claims.ConnID != "conn-1" || claims.Entity != "player-7" {
		t.Errorf("Claims 不一致: %+v", claims)
	}

	if err := ti.VerifyFor(token, "conn-1", "player-7"); err != nil {
		t.Errorf("VerifyFor 应通过: %v", err)
	}
}

func TestTokenSubscriberHasNoEntity(t *testing.T) {
	ti := testIssuer(time.Minute)

	token, err := ti.Issue("conn-2", "")
	if err != nil {
		t.Fatalf("签发失败: %v", err)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if claims.Entity != "" {
		t.Errorf("订阅方令牌不应携带实体: %s", claims.Entity)
	}
}

func TestTokenVerifyForMismatch(t *testing.T) {
	ti := testIssuer(time.Minute)

	token, err := ti.Issue("conn-1", "e1")
	if err != nil {
		t.Fatal(err)
	}

	if err := ti.VerifyFor(token, "conn-2", "e1"); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("连接不符应返回 ErrTokenMismatch: %v", err)
	}
	if err := ti.VerifyFor(token, "conn-1", "e2"); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("实体不符应返回 ErrTokenMismatch: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	ti := testIssuer(-time.Minute) // 签出来就是过期的

	token, err := ti.Issue("conn-1", "e1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ti.Verify(token); err == nil {
		t.Error("过期令牌应校验失败")
	}
}

func TestTokenRejectsWrongKeyAndGarbage(t *testing.T) {
	ti := testIssuer(time.Minute)

	other := NewTokenIssuer(config.AuthConfig{
		Secret:     "another-secret",
		SessionTTL: time.Minute,
	})
	token, err := other.Issue("conn-1", "e1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ti.Verify(token); err == nil {
		t.Error("异密钥令牌应校验失败")
	}
	if _, err := ti.Verify("not-a-token"); err == nil {
		t.Error("非法令牌应校验失败")
	}
	if _, err := ti.Verify(""); err == nil {
		t.Error("空令牌应校验失败")
	}
}
