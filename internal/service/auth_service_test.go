package service

import (
	"Chatter/internal/api/config"
	"Chatter/internal/api/dto"
	"Chatter/internal/model"
	"Chatter/internal/pkg/security"
	"Chatter/internal/repository/repotest"
	"context"
	"errors"
	"testing"
	"time"
)

func newAuthFixture(t *testing.T) (AuthService, *repotest.UserRepo) {
	t.Helper()
	users := repotest.NewUserRepo()
	jwt := security.NewJWTManager(config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		ResetTTL:      time.Hour,
		Issuer:        "Chatter",
	})
	return NewAuthService(users, jwt, repotest.NewBlacklist(), nil, true), users
}

func register(t *testing.T, svc AuthService, username, email string) *dto.AuthResultDTO {
	t.Helper()
	res, err := svc.Register(context.Background(), &dto.RegisterDTO{
		Username: username,
		Email:    email,
		Password: "Secret123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return res
}

func TestRegisterStoresHashAndLoginSucceeds(t *testing.T) {
	svc, users := newAuthFixture(t)
	ctx := context.Background()

	res := register(t, svc, "Alice", "Alice@Example.com")
	if res.Token == "" || res.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}
	if res.User.Username != "alice" {
		t.Errorf("username not normalised: %q", res.User.Username)
	}

	stored, _ := users.GetUserByEmail(ctx, "alice@example.com")
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.Password == "Secret123" {
		t.Fatal("plaintext password stored")
	}
	if stored.Avatar == "" {
		t.Error("default avatar missing")
	}

	if _, err := svc.Login(ctx, &dto.LoginDTO{Email: "ALICE@example.com", Password: "Secret123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	register(t, svc, "bob", "bob@example.com")

	_, err := svc.Register(ctx, &dto.RegisterDTO{Username: "BOB", Email: "other@example.com", Password: "Secret123"})
	if !errors.Is(err, ErrUsernameExist) {
		t.Errorf("expected ErrUsernameExist, got %v", err)
	}
	_, err = svc.Register(ctx, &dto.RegisterDTO{Username: "bobby", Email: "bob@example.com", Password: "Secret123"})
	if !errors.Is(err, ErrEmailExist) {
		t.Errorf("expected ErrEmailExist, got %v", err)
	}
}

func TestLoginWrongPasswordCountsFailuresWithoutLockout(t *testing.T) {
	svc, users := newAuthFixture(t)
	ctx := context.Background()
	res := register(t, svc, "carol", "carol@example.com")
	uid, _ := parseHex(res.User.ID)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, &dto.LoginDTO{Email: "carol@example.com", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if got := users.Get(uid).FailedLoginAttempts; got != 3 {
		t.Errorf("expected 3 failed attempts, got %d", got)
	}
	if users.Get(uid).LastFailedLogin == nil {
		t.Error("lastFailedLogin not stamped")
	}

	if _, err := svc.Login(ctx, &dto.LoginDTO{Email: "carol@example.com", Password: "Secret123"}); err != nil {
		t.Fatalf("correct password rejected after failures: %v", err)
	}
	if got := users.Get(uid).FailedLoginAttempts; got != 0 {
		t.Errorf("counter not reset, got %d", got)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login(context.Background(), &dto.LoginDTO{Email: "nobody@example.com", Password: "Secret123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestBlockedUserIsRejected(t *testing.T) {
	svc, users := newAuthFixture(t)
	ctx := context.Background()
	res := register(t, svc, "dave", "dave@example.com")
	uid, _ := parseHex(res.User.ID)

	users.SetStatus(uid, model.UserStatusBlocked)

	if _, err := svc.Login(ctx, &dto.LoginDTO{Email: "dave@example.com", Password: "Secret123"}); !errors.Is(err, ErrUserBlocked) {
		t.Errorf("login: expected ErrUserBlocked, got %v", err)
	}
	// 令牌仍在有效期内
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrUserBlocked) {
		t.Errorf("authenticate: expected ErrUserBlocked, got %v", err)
	}
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	res := register(t, svc, "erin", "erin@example.com")

	user, err := svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username != "erin" {
		t.Errorf("unexpected user %q", user.Username)
	}

	if err = svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err = svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("expected ErrTokenRevoked, got %v", err)
	}

	if _, err = svc.Authenticate(ctx, ""); !errors.Is(err, ErrTokenMissing) {
		t.Errorf("expected ErrTokenMissing, got %v", err)
	}
	if _, err = svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	res := register(t, svc, "frank", "frank@example.com")

	access, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err = svc.Authenticate(ctx, access); err != nil {
		t.Errorf("refreshed token rejected: %v", err)
	}
	if _, err = svc.Refresh(ctx, res.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access token accepted as refresh token: %v", err)
	}
	if _, err = svc.Refresh(ctx, ""); !errors.Is(err, ErrRefreshTokenMissing) {
		t.Errorf("expected ErrRefreshTokenMissing, got %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, users := newAuthFixture(t)
	ctx := context.Background()
	res := register(t, svc, "grace", "grace@example.com")
	uid, _ := parseHex(res.User.ID)

	unknown, err := svc.ForgotPassword(ctx, "missing@example.com")
	if err != nil || unknown.ResetToken != "" {
		t.Fatalf("unknown email should be silent, got %+v, %v", unknown, err)
	}

	forgot, err := svc.ForgotPassword(ctx, "grace@example.com")
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if forgot.ResetToken == "" {
		t.Fatal("dev mode should return the reset token")
	}

	if err = svc.ResetPassword(ctx, &dto.ResetPasswordDTO{Token: res.Token, NewPassword: "Changed123"}); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("access token accepted as reset token: %v", err)
	}
	if err = svc.ResetPassword(ctx, &dto.ResetPasswordDTO{Token: forgot.ResetToken, NewPassword: "Changed123"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if users.Get(uid).ResetPasswordToken != nil {
		t.Error("reset token not cleared")
	}
	if err = svc.ResetPassword(ctx, &dto.ResetPasswordDTO{Token: forgot.ResetToken, NewPassword: "Again1234"}); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("reset token reusable: %v", err)
	}

	if _, err = svc.Login(ctx, &dto.LoginDTO{Email: "grace@example.com", Password: "Changed123"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}
