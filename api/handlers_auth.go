package api

import (
	"adventcal/config"
	"adventcal/db"
	"adventcal/models"
	"adventcal/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// --- Anonymous Sign-In ---

// AnonymousSignInHandler creates a new anonymous identity.
// @Summary      Sign In Anonymously
// @Description  Creates a brand new anonymous user and returns an access token for it.
// @Description
// @Description  No credentials are needed. The response also carries a `refresh_secret`: keep it, because it is the only way to get a new token for the same user once the current one expires (see `POST /auth/refresh`). The server only stores a hash of it.
// @Tags         Authentication
// @Produce      json
// @Success      201  {object}  models.AuthResponse "A new anonymous user was created. Use `token` as a Bearer token."
// @Failure      500  {object}  utils.APIError      "Internal Server Error: the identity could not be created or stored."
// @Router       /auth/anonymous [post]
func AnonymousSignInHandler(c *gin.Context, repo *db.Repository, cfg *config.Config, metrics *Metrics) {
	ctx := c.Request.Context()
	uid := utils.GenerateDashlessUUID()

	secret, err := utils.GenerateSecret()
	if err != nil {
		utils.GinInternalServerError(c, "Failed to generate refresh secret.")
		return
	}
	hash, err := utils.HashSecret(secret, cfg.BcryptCost)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to secure refresh secret.")
		return
	}

	if err := repo.SaveCredential(ctx, db.Credential{UID: uid, SecretHash: hash, CreatedAt: now().UTC()}); err != nil {
		log.Error().Stack().Err(err).Str("uid", uid).Msg("failed to store credential")
		utils.GinInternalServerError(c, "Failed to store credential.")
		return
	}
	if _, err := repo.EnsureUser(ctx, uid); err != nil {
		log.Error().Stack().Err(err).Str("uid", uid).Msg("failed to create user")
		utils.GinInternalServerError(c, "Failed to create user.")
		return
	}

	token, expiresAt, err := utils.GenerateJWT(uid, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to generate token.")
		return
	}

	metrics.recordSignIn()
	log.Info().Str("uid", uid).Msg("anonymous identity issued")
	c.JSON(http.StatusCreated, models.AuthResponse{
		UserID:        uid,
		Token:         token,
		RefreshSecret: secret,
		ExpiresAt:     expiresAt.UTC(),
	})
}

// --- Refresh ---

// RefreshTokenHandler issues a new token for an anonymous identity.
// @Summary      Refresh an Access Token
// @Description  Exchanges the `refresh_secret` received at sign-in for a new access token for the same user.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        credentials body models.RefreshRequest true "The user id and refresh secret from sign-in."
// @Success      200  {object}  models.AuthResponse "A new token. `refresh_secret` is not repeated."
// @Failure      400  {object}  utils.APIError      "Bad Request: `user_id` or `refresh_secret` is missing."
// @Failure      401  {object}  utils.APIError      "Unauthorized: the secret does not match, or the user has logged out."
// @Failure      500  {object}  utils.APIError      "Internal Server Error"
// @Router       /auth/refresh [post]
func RefreshTokenHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cred, err := repo.GetCredential(c.Request.Context(), req.UserID)
	if errors.Is(err, db.ErrNotFound) {
		utils.GinUnauthorized(c, "Invalid refresh secret.")
		return
	}
	if err != nil {
		log.Error().Stack().Err(err).Str("uid", req.UserID).Msg("failed to load credential")
		utils.GinInternalServerError(c, "Failed to load credential.")
		return
	}
	if !utils.CheckSecretHash(req.RefreshSecret, cred.SecretHash) {
		utils.GinUnauthorized(c, "Invalid refresh secret.")
		return
	}

	token, expiresAt, err := utils.GenerateJWT(req.UserID, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to generate token.")
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{UserID: req.UserID, Token: token, ExpiresAt: expiresAt.UTC()})
}

// --- Logout ---

// LogoutHandler revokes the caller's refresh secret.
// @Summary      Log Out
// @Description  Revokes the refresh secret of the current user so no new tokens can be issued for it.
// @Description  The access token itself stays valid until it expires; clients should discard it.
// @Tags         Authentication
// @Security     BearerAuth
// @Success      204  "Logged out."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/logout [post]
func LogoutHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	uid := c.GetString("userID")
	if uid == "" {
		utils.GinInternalServerError(c, "User ID not found in context.")
		return
	}
	if err := repo.DeleteCredential(c.Request.Context(), uid); err != nil {
		log.Error().Stack().Err(err).Str("uid", uid).Msg("failed to delete credential")
		utils.GinInternalServerError(c, "Failed to log out.")
		return
	}
	log.Info().Str("uid", uid).Msg("logged out")
	c.Status(http.StatusNoContent)
}
