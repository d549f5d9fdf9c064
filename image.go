package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bihua-university/dreamcanvas/internal/studio"
)

// createImage POST /api/images
func (s *server) createImage(c *gin.Context) {
	var req studio.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, &AppError{Status: http.StatusBadRequest, Message: "请求格式错误", Err: err})
		return
	}

	creation, err := s.svc.Generate(c.Request.Context(), req, studio.Observer{})
	if err != nil {
		s.logger.Error("图像生成失败", "error", err)
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": creation})
}

// userImages GET /api/images/user/:userId
func (s *server) userImages(c *gin.Context) {
	images, err := s.svc.UserImages(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.logger.Error("获取用户图像失败", "error", err)
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(images), "data": images})
}

// getImage GET /api/images/:id
func (s *server) getImage(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		abort(c, &AppError{Status: http.StatusBadRequest, Message: "无效的ID格式", Err: err})
		return
	}

	image, err := s.svc.Image(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": image})
}
