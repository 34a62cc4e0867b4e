package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-requisition-api/internal/middleware"
	"github.com/noah-isme/site-requisition-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func userInfoFromClaims(claims *models.JWTClaims) models.UserInfo {
	if claims == nil {
		return models.UserInfo{}
	}
	return models.UserInfo{ID: claims.UserID, Email: claims.Email, Role: claims.Role}
}
