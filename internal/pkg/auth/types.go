/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-08-11 18:38:27
 * @LastEditTime: 2026-10-14 21:02:16
 * @LastEditors: 安知鱼
 */
package auth

import "github.com/golang-jwt/jwt/v5"

// ClaimsKey 是用于在 gin.Context 中存储和检索整个用户信息结构体的键。
const ClaimsKey = "user_claims"

// Issuer 是本服务签发 Token 时使用的签发者
const Issuer = "anheyu-comment"

// CustomClaims 定义了 JWT 的自定义 Claims 结构体
type CustomClaims struct {
	Admin bool `json:"admin"` // 是否拥有评论管理权限
	jwt.RegisteredClaims
}
