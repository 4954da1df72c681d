package service

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.SysUser{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newAuthServiceForTest(db *gorm.DB) *AuthService {
	return NewAuthService(repository.NewUserRepository(db))
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthServiceForTest(db)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "shop@example.com",
		Password: "pass1234",
		FullName: "Marie",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("注册后应返回 Token 对")
	}
	if resp.User.Email != "shop@example.com" {
		t.Errorf("User.Email = %q", resp.User.Email)
	}

	// 密码不落明文
	var user model.SysUser
	db.First(&user, resp.User.ID)
	if user.PasswordHash == "pass1234" {
		t.Error("密码不应明文存储")
	}

	// 正确密码登录
	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "shop@example.com", Password: "pass1234"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Error("登录返回的用户不一致")
	}

	// 错误密码
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "shop@example.com", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Errorf("错误密码应返回 ErrInvalidCredentials, got %v", err)
	}

	// 不存在的用户
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "ghost@example.com", Password: "x"}); err != ErrInvalidCredentials {
		t.Errorf("不存在用户应返回 ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthServiceForTest(db)
	ctx := context.Background()

	req := &dto.RegisterRequest{Email: "dup@example.com", Password: "pass1234"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("首次注册失败: %v", err)
	}
	if _, err := svc.Register(ctx, req); err != ErrEmailExists {
		t.Errorf("重复邮箱应返回 ErrEmailExists, got %v", err)
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthServiceForTest(db)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterRequest{Email: "r@example.com", Password: "pass1234"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	refreshed, err := svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("刷新后应返回新的 Access Token")
	}

	// Access Token 冒充 Refresh Token
	if _, err := svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.AccessToken}); err != ErrInvalidToken {
		t.Errorf("Access Token 不应能刷新, got %v", err)
	}

	// 伪造 Token
	if _, err := svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: "garbage"}); err != ErrInvalidToken {
		t.Errorf("伪造 Token 应返回 ErrInvalidToken, got %v", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthServiceForTest(db)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterRequest{Email: "c@example.com", Password: "oldpass1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// 旧密码错误
	err = svc.ChangePassword(ctx, resp.User.ID, &dto.ChangePasswordRequest{OldPassword: "bad", NewPassword: "newpass1"})
	if err != ErrInvalidOldPassword {
		t.Errorf("旧密码错误应返回 ErrInvalidOldPassword, got %v", err)
	}

	// 正确修改
	err = svc.ChangePassword(ctx, resp.User.ID, &dto.ChangePasswordRequest{OldPassword: "oldpass1", NewPassword: "newpass1"})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "c@example.com", Password: "newpass1"}); err != nil {
		t.Errorf("新密码应能登录: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "c@example.com", Password: "oldpass1"}); err != ErrInvalidCredentials {
		t.Error("旧密码不应再能登录")
	}
}

func TestJWT_ParseGeneratedToken(t *testing.T) {
	access, _, err := middleware.GenerateTokenPair(42, "u@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	claims, err := middleware.ParseToken(access)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "u@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Subject != "access" {
		t.Errorf("Subject = %q, want access", claims.Subject)
	}
}
