package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ==================== Token 加密工具 ====================
// OAuth 令牌和 API 凭证落库前必须加密，采用 AES-256-GCM。
// 密钥来自环境变量 TOKEN_ENCRYPTION_KEY（base64 编码的 32 字节）。

var (
	encryptionKey     []byte
	encryptionKeyOnce sync.Once
	encryptionKeyErr  error
)

// loadEncryptionKey 懒加载并校验加密密钥
func loadEncryptionKey() ([]byte, error) {
	encryptionKeyOnce.Do(func() {
		raw := os.Getenv("TOKEN_ENCRYPTION_KEY")
		if raw == "" {
			encryptionKeyErr = errors.New("TOKEN_ENCRYPTION_KEY 环境变量未设置")
			return
		}

		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			encryptionKeyErr = fmt.Errorf("TOKEN_ENCRYPTION_KEY 不是合法的 base64: %w", err)
			return
		}

		if len(key) != 32 {
			encryptionKeyErr = fmt.Errorf("TOKEN_ENCRYPTION_KEY 解码后必须为 32 字节，实际 %d 字节", len(key))
			return
		}

		encryptionKey = key
	})

	return encryptionKey, encryptionKeyErr
}

// EncryptToken 加密明文，返回 base64(nonce + ciphertext)
func EncryptToken(plaintext string) (string, error) {
	key, err := loadEncryptionKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	// 1. 生成随机 nonce
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// 2. nonce 作为前缀与密文一起存储
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptToken 解密 EncryptToken 的输出
func DecryptToken(encoded string) (string, error) {
	key, err := loadEncryptionKey()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("密文不是合法的 base64: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("密文长度不足")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("解密失败: %w", err)
	}

	return string(plaintext), nil
}

// ResetEncryptionKeyForTest 重置密钥缓存，仅测试用
func ResetEncryptionKeyForTest() {
	encryptionKeyOnce = sync.Once{}
	encryptionKey = nil
	encryptionKeyErr = nil
}
