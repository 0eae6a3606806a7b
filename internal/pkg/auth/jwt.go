/*
 * @Description: 文档服务器 JWT 签名与校验
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-16 16:40:02
 * @LastEditors: 安知鱼
 */
package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"

	"github.com/golang-jwt/jwt/v5"
)

// Signer 是对令牌签发服务的抽象，密钥为空时 Enabled 返回 false。
type Signer interface {
	Enabled() bool
	Encode(payload any) (string, error)
	Decode(token string) (map[string]any, error)
}

// TokenSigner 使用 HS256 对任意 JSON 负载签名
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner 创建签名器；secret 为空时签名功能关闭
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

// Enabled 表示是否配置了密钥
func (s *TokenSigner) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Encode 将负载转为 JSON 对象后作为 claims 签名。
// 负载可以是 map、结构体或任何实现了 json.Marshaler 的值，但必须序列化为对象。
func (s *TokenSigner) Encode(payload any) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("JWT Secret 不能为空")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化令牌负载失败: %w", err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return "", fmt.Errorf("令牌负载必须是 JSON 对象: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Decode 校验令牌签名并返回 claims
func (s *TokenSigner) Decode(tokenStr string) (map[string]any, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("JWT Secret 不能为空")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, constant.ErrInvalidToken
	}

	return map[string]any(claims), nil
}

// ExtractBearer 从 "Bearer xxx" 形式的请求头中取出令牌
func ExtractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
