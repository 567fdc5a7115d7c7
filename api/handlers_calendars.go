package api

import (
	"adventcal/config"
	"adventcal/db"
	"adventcal/models"
	"adventcal/utils"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// calendarAccess is the caller's relation to a calendar.
type calendarAccess int

const (
	accessNone calendarAccess = iota
	accessRecipient
	accessCreator
)

// loadCalendar fetches the calendar named by the :id path parameter and the caller's access to it.
// On failure it has already written the error response.
func loadCalendar(c *gin.Context, repo *db.Repository) (models.Calendar, calendarAccess, bool) {
	uid := c.GetString("userID")
	calID := c.Param("id")
	if calID == "" {
		utils.GinBadRequest(c, "Calendar ID is required in the path.")
		return models.Calendar{}, accessNone, false
	}

	ctx := c.Request.Context()
	cal, err := repo.GetCalendar(ctx, calID)
	if errors.Is(err, db.ErrNotFound) {
		utils.GinNotFound(c, fmt.Sprintf("Calendar with ID '%s' not found.", calID))
		return models.Calendar{}, accessNone, false
	}
	if err != nil {
		log.Error().Stack().Err(err).Str("calendar", calID).Msg("failed to load calendar")
		utils.GinInternalServerError(c, "Failed to load calendar.")
		return models.Calendar{}, accessNone, false
	}

	if cal.CreatorUID == uid {
		return cal, accessCreator, true
	}
	user, err := repo.GetUser(ctx, uid)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		utils.GinInternalServerError(c, "Failed to load user.")
		return models.Calendar{}, accessNone, false
	}
	if err == nil && user.HasReceived(calID) {
		return cal, accessRecipient, true
	}
	return cal, accessNone, true
}

// requireCreator loads the calendar and rejects callers other than its creator.
func requireCreator(c *gin.Context, repo *db.Repository, action string) (models.Calendar, bool) {
	cal, access, ok := loadCalendar(c, repo)
	if !ok {
		return models.Calendar{}, false
	}
	if access != accessCreator {
		utils.GinForbidden(c, fmt.Sprintf("Only the calendar's creator can %s.", action))
		return models.Calendar{}, false
	}
	return cal, true
}

// --- Create Calendar ---

// CreateCalendarHandler creates a calendar with 24 empty doors.
// @Summary      Create a Calendar
// @Description  Starts a new advent calendar for a recipient. The calendar gets 24 empty, locked doors which you fill with `PUT /calendars/{id}/doors/{day}`.
// @Description  You become its creator; share it with `PUT /calendars/{id}/recipients/{uid}` once it is ready.
// @Tags         Calendars
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        calendar body models.CreateCalendarRequest true "Who the calendar is for."
// @Success      201  {object}  models.Calendar
// @Failure      400  {object}  utils.APIError "Bad Request: `recipientName` is missing."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars [post]
func CreateCalendarHandler(c *gin.Context, repo *db.Repository, cfg *config.Config, metrics *Metrics) {
	uid := c.GetString("userID")

	var req models.CreateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.RecipientName)
	if name == "" {
		utils.GinBadRequest(c, "recipientName must not be blank.")
		return
	}

	cal := models.NewCalendar(utils.GenerateDashlessUUID(), uid, name, strings.TrimSpace(req.RecipientInterest), nil, now().UTC())
	if err := repo.CreateCalendar(c.Request.Context(), cal); err != nil {
		log.Error().Stack().Err(err).Str("uid", uid).Msg("failed to create calendar")
		utils.GinInternalServerError(c, "Failed to create calendar.")
		return
	}

	metrics.recordCalendarCreated()
	c.JSON(http.StatusCreated, cal)
}

// --- List Calendars ---

// ListCalendarsHandler lists the calendars the caller created or received.
// @Summary      List and Search Your Calendars
// @Description  Lists calendars you created and/or received, with filtering, sorting and pagination:
// @Description  *   `scope`: `created`, `received` or `all` (default).
// @Description  *   `content_query`: repeatable `path operator value` condition over the calendar JSON, joined by `and`/`or` parts, e.g. `content_query=recipientName equals-insensitive ada&content_query=or&content_query=doors.0.isUnlocked equals true`.
// @Description  *   `sort_by`: `created_at` (default) or `recipient_name`. `order`: `asc` or `desc` (default).
// @Description  *   `page` (from 1) and `limit` (default 20, max 100).
// @Description  Calendars you received show locked doors without their content, and queries see the same redacted view.
// @Tags         Calendars
// @Produce      json
// @Security     BearerAuth
// @Param        scope          query  string    false  "created, received or all"
// @Param        content_query  query  []string  false  "Content filter parts" collectionFormat(multi)
// @Param        sort_by        query  string    false  "created_at or recipient_name"
// @Param        order          query  string    false  "asc or desc"
// @Param        page           query  int       false  "Page number"
// @Param        limit          query  int       false  "Page size"
// @Success      200  {object}  models.CalendarListResponse
// @Failure      400  {object}  utils.APIError "Bad Request: an invalid parameter or content_query."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars [get]
func ListCalendarsHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	page, err := queryInt(c, "page", 1)
	if err != nil || page < 1 {
		utils.GinBadRequest(c, "page must be a positive integer.")
		return
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil || limit < 1 {
		utils.GinBadRequest(c, "limit must be a positive integer.")
		return
	}
	if limit > 100 {
		limit = 100
	}

	params := db.QueryCalendarsParams{
		UserID:       c.GetString("userID"),
		Scope:        c.Query("scope"),
		ContentQuery: c.QueryArray("content_query"),
		SortBy:       c.Query("sort_by"),
		Order:        c.Query("order"),
		Page:         page,
		Limit:        limit,
	}

	cals, total, err := repo.QueryCalendars(c.Request.Context(), params)
	if errors.Is(err, db.ErrInvalidQuery) {
		utils.GinBadRequest(c, err.Error())
		return
	}
	if err != nil {
		log.Error().Stack().Err(err).Str("uid", params.UserID).Msg("failed to query calendars")
		utils.GinInternalServerError(c, "Failed to list calendars.")
		return
	}

	c.JSON(http.StatusOK, models.CalendarListResponse{Data: cals, Total: total, Page: page, Limit: limit})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// --- Get Calendar ---

// GetCalendarHandler returns one calendar.
// @Summary      Get a Calendar
// @Description  Returns the calendar with all 24 doors. The creator sees everything; recipients see locked doors without their content.
// @Tags         Calendars
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Calendar ID"
// @Success      200  {object}  models.Calendar
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      403  {object}  utils.APIError "Forbidden: you neither created nor received this calendar."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars/{id} [get]
func GetCalendarHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	cal, access, ok := loadCalendar(c, repo)
	if !ok {
		return
	}
	switch access {
	case accessCreator:
		c.JSON(http.StatusOK, cal)
	case accessRecipient:
		c.JSON(http.StatusOK, cal.RedactedForRecipient())
	default:
		utils.GinForbidden(c, "You do not have permission to access this calendar.")
	}
}

// --- Delete Calendar ---

// DeleteCalendarHandler deletes a calendar.
// @Summary      Delete a Calendar
// @Description  Permanently deletes the calendar. Only its creator may do this. Recipients simply stop seeing it.
// @Tags         Calendars
// @Security     BearerAuth
// @Param        id   path      string  true  "Calendar ID"
// @Success      204  "Deleted."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      403  {object}  utils.APIError "Forbidden: only the creator can delete."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars/{id} [delete]
func DeleteCalendarHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	cal, ok := requireCreator(c, repo, "delete it")
	if !ok {
		return
	}
	err := repo.DeleteCalendar(c.Request.Context(), cal)
	if errors.Is(err, db.ErrNotFound) {
		utils.GinNotFound(c, fmt.Sprintf("Calendar with ID '%s' not found.", cal.ID))
		return
	}
	if err != nil {
		log.Error().Stack().Err(err).Str("calendar", cal.ID).Msg("failed to delete calendar")
		utils.GinInternalServerError(c, "Failed to delete calendar.")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Share Calendar ---

// ShareCalendarHandler gives a calendar to a recipient.
// @Summary      Share a Calendar with a Recipient
// @Description  Adds the calendar to the received list of the user `uid`. The recipient must have signed in at least once.
// @Description  Sharing the same calendar with the same user twice has no further effect.
// @Tags         Calendars
// @Security     BearerAuth
// @Param        id   path      string  true  "Calendar ID"
// @Param        uid  path      string  true  "Recipient user ID"
// @Success      204  "Shared."
// @Failure      400  {object}  utils.APIError "Bad Request: you cannot share a calendar with yourself."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      403  {object}  utils.APIError "Forbidden: only the creator can share."
// @Failure      404  {object}  utils.APIError "Not Found: no such calendar or user."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars/{id}/recipients/{uid} [put]
func ShareCalendarHandler(c *gin.Context, repo *db.Repository, cfg *config.Config, metrics *Metrics) {
	cal, ok := requireCreator(c, repo, "share it")
	if !ok {
		return
	}
	recipient := c.Param("uid")
	if recipient == cal.CreatorUID {
		utils.GinBadRequest(c, "You cannot share a calendar with yourself.")
		return
	}

	err := repo.ShareCalendar(c.Request.Context(), cal.ID, recipient)
	if errors.Is(err, db.ErrNotFound) {
		utils.GinNotFound(c, fmt.Sprintf("User with ID '%s' not found.", recipient))
		return
	}
	if err != nil {
		log.Error().Stack().Err(err).Str("calendar", cal.ID).Str("recipient", recipient).Msg("failed to share calendar")
		utils.GinInternalServerError(c, "Failed to share calendar.")
		return
	}

	metrics.recordCalendarShared()
	c.Status(http.StatusNoContent)
}
