package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetJobStats(c *gin.Context) {
	stats, err := s.queue.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"queues": stats})
}

func (s *Server) GetJobByID(c *gin.Context) {
	job, err := s.queue.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if job == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, job)
}
