package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bihua-university/dreamcanvas/internal/prompt"
)

func (s *server) categories(c *gin.Context) {
	list := make([]gin.H, 0, len(prompt.Categories()))
	for _, category := range prompt.Categories() {
		list = append(list, gin.H{
			"id":          category,
			"name":        category,
			"displayName": category.DisplayName(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

// brainstorm GET /api/brainstorm/:category?count=N
func (s *server) brainstorm(c *gin.Context) {
	count := prompt.DefaultCount
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			abort(c, &AppError{Status: http.StatusBadRequest, Message: "提示数量必须在1-10之间", Err: err})
			return
		}
		count = n
	}

	ideas, fallback, err := s.svc.Brainstorm(c.Request.Context(), c.Param("category"), count)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": ideas, "fallback": fallback})
}
