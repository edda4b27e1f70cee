package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tweetscope/models"
	"github.com/use-agent/tweetscope/profile"
)

// ListProfiles returns a handler for GET /api/v1/profiles.
func ListProfiles(s *profile.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ProfileListResponse{
			Profiles:   s.List(),
			SelectedID: s.SelectedID(),
		})
	}
}

// CreateProfile returns a handler for POST /api/v1/profiles.
func CreateProfile(s *profile.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		p, err := s.Create(req.Name, req.Prompt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// UpdateProfile returns a handler for PUT /api/v1/profiles/:id.
func UpdateProfile(s *profile.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		p, err := s.Update(c.Param("id"), req.Name, req.Prompt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// DeleteProfile returns a handler for DELETE /api/v1/profiles/:id.
func DeleteProfile(s *profile.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.Delete(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// SelectProfile returns a handler for POST /api/v1/profiles/:id/select.
func SelectProfile(s *profile.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.Select(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ProfileListResponse{
			Profiles:   s.List(),
			SelectedID: s.SelectedID(),
		})
	}
}
