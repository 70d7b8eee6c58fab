package mockapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleExercises(c *gin.Context) {
	respond(c, http.StatusOK, s.data.Exercises)
}

func (s *Server) handleStats(c *gin.Context) {
	respond(c, http.StatusOK, s.data.Stats)
}

func (s *Server) handleWords(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, gin.H{"message": "page must be a number"})
		return
	}
	page, ok := s.data.Page(n)
	if !ok {
		fail(c, http.StatusUnprocessableEntity, gin.H{"message": "page out of range"})
		return
	}
	respond(c, http.StatusOK, page)
}
