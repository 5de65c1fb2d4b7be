package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ALBA-backend/internal/platform/apperr"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"

	RoleEmployee   = "employee"
	RoleSupervisor = "supervisor"
)

// RequireAuth: Authorization: Bearer <token> を検証して context に sub/role を詰める
// トークンの発行は認証サービス側の責務。ここでは検証のみ。
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Body(apperr.CodeUnauthorized, "missing Authorization header"))
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Body(apperr.CodeUnauthorized, "invalid Authorization header"))
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Body(apperr.CodeUnauthorized, "empty token"))
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			// alg 固定（none攻撃とか回避）
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || token == nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Body(apperr.CodeUnauthorized, "invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Body(apperr.CodeUnauthorized, "invalid claims"))
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Body(apperr.CodeUnauthorized, "invalid sub"))
			return
		}

		role := ""
		if roleStr, ok := claims["role"].(string); ok {
			role = roleStr
		}

		c.Set(CtxUserIDKey, sub)
		c.Set(CtxRoleKey, role)
		c.Next()
	}
}

// RequireRole: 例) supervisor のみ許可したい時に追加
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "missing role"))
			return
		}

		if _, allowed := roleSet[role]; !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, apperr.Body(apperr.CodeForbidden, "forbidden"))
			return
		}

		c.Next()
	}
}

// CanActFor: supervisor は全員分、employee は本人(sub == employee_id)分のみ操作できる
func CanActFor(c *gin.Context, employeeID int64) bool {
	if c.GetString(CtxRoleKey) == RoleSupervisor {
		return true
	}
	return c.GetString(CtxUserIDKey) == strconv.FormatInt(employeeID, 10)
}
