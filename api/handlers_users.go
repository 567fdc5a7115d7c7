package api

import (
	"adventcal/config"
	"adventcal/db"
	"adventcal/models"
	"adventcal/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GetUserMeHandler returns the caller's user record.
// @Summary      Get Your Own User
// @Description  Returns your display name and the ids of the calendars you created and received.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /users/me [get]
func GetUserMeHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	uid := c.GetString("userID")
	user, err := repo.GetUser(c.Request.Context(), uid)
	if err != nil {
		log.Error().Stack().Err(err).Str("uid", uid).Msg("failed to load user")
		utils.GinInternalServerError(c, "Failed to load user.")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUserMeHandler sets or clears the caller's display name.
// @Summary      Update Your Display Name
// @Description  Sets `display_name`. Sending `null`, an empty string or omitting the field clears it.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user body models.UpdateUserRequest true "The new display name."
// @Success      200  {object}  models.User
// @Failure      400  {object}  utils.APIError "Bad Request: the body is not valid JSON."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /users/me [put]
func UpdateUserMeHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	uid := c.GetString("userID")

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var name *string
	if req.DisplayName != nil {
		if trimmed := strings.TrimSpace(*req.DisplayName); trimmed != "" {
			name = &trimmed
		}
	}

	user, err := repo.SetDisplayName(c.Request.Context(), uid, name)
	if err != nil {
		log.Error().Stack().Err(err).Str("uid", uid).Msg("failed to update user")
		utils.GinInternalServerError(c, "Failed to update user.")
		return
	}
	c.JSON(http.StatusOK, user)
}
