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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// errDoorLocked aborts an unlock whose day has not come yet.
var errDoorLocked = errors.New("door is still locked")

// parseDay reads the :day path parameter. On failure it has already written the error response.
func parseDay(c *gin.Context) (int, bool) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 || day > models.DaysInCalendar {
		utils.GinBadRequest(c, fmt.Sprintf("day must be an integer between 1 and %d.", models.DaysInCalendar))
		return 0, false
	}
	return day, true
}

// doorOf returns the door for day, writing 404 when the calendar has none.
func doorOf(c *gin.Context, cal models.Calendar, day int) (models.Door, bool) {
	door, ok := cal.Door(day)
	if !ok {
		utils.GinNotFound(c, fmt.Sprintf("Calendar '%s' has no door %d.", cal.ID, day))
		return models.Door{}, false
	}
	return door, true
}

// --- Get Door ---

// GetDoorHandler returns one door.
// @Summary      Get a Door
// @Description  Returns the door for `day`. Recipients see a locked door without its content.
// @Tags         Doors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Calendar ID"
// @Param        day  path      int     true  "Day, 1 to 24"
// @Success      200  {object}  models.Door
// @Failure      400  {object}  utils.APIError "Bad Request: day out of range."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      403  {object}  utils.APIError "Forbidden"
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars/{id}/doors/{day} [get]
func GetDoorHandler(c *gin.Context, repo *db.Repository, cfg *config.Config) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	cal, access, ok := loadCalendar(c, repo)
	if !ok {
		return
	}
	switch access {
	case accessCreator:
	case accessRecipient:
		cal = cal.RedactedForRecipient()
	default:
		utils.GinForbidden(c, "You do not have permission to access this calendar.")
		return
	}

	door, ok := doorOf(c, cal, day)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, door)
}

// --- Update Door ---

// UpdateDoorHandler replaces a door's content.
// @Summary      Fill a Door
// @Description  Sets the content of the door for `day`. Only the creator may do this.
// @Description  `contentType` is `text` (with `text`), `image` (with `imageURL`) or `empty` to clear the door. A type whose payload is missing is stored as `empty`. The door's unlock state is kept.
// @Tags         Doors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                   true  "Calendar ID"
// @Param        day   path  int                      true  "Day, 1 to 24"
// @Param        door  body  models.UpdateDoorRequest true  "The new content."
// @Success      200  {object}  models.Door
// @Failure      400  {object}  utils.APIError "Bad Request"
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      403  {object}  utils.APIError "Forbidden: only the creator can edit doors."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars/{id}/doors/{day} [put]
func UpdateDoorHandler(c *gin.Context, repo *db.Repository, cfg *config.Config, metrics *Metrics) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	var req models.UpdateDoorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cal, ok := requireCreator(c, repo, "edit its doors")
	if !ok {
		return
	}
	if _, ok := doorOf(c, cal, day); !ok {
		return
	}

	var updated models.Door
	_, err := repo.UpdateCalendar(c.Request.Context(), cal.ID, func(cal *models.Calendar) error {
		door, ok := cal.Door(day)
		if !ok {
			return db.ErrNotFound
		}
		switch models.NormalizeContentType(req.ContentType, req.Text, req.ImageURL) {
		case models.ContentText:
			door.SetText(*req.Text)
		case models.ContentImage:
			door.SetImage(*req.ImageURL)
		default:
			door.ClearContent()
		}
		cal.UpdateDoor(door)
		updated = door
		return nil
	})
	if errors.Is(err, db.ErrNotFound) {
		utils.GinNotFound(c, fmt.Sprintf("Calendar '%s' or door %d not found.", cal.ID, day))
		return
	}
	if err != nil {
		log.Error().Stack().Err(err).Str("calendar", cal.ID).Int("day", day).Msg("failed to update door")
		utils.GinInternalServerError(c, "Failed to update door.")
		return
	}

	metrics.recordDoorUpdated(string(updated.ContentType))
	c.JSON(http.StatusOK, updated)
}

// --- Unlock Door ---

// UnlockDoorHandler opens a door for its recipient.
// @Summary      Open a Door
// @Description  Unlocks the door for `day`. Only recipients may open doors, and only from midnight of December `day` of the calendar's year onwards (server time). Once that December has passed every door can be opened.
// @Description  Opening an already open door returns it unchanged.
// @Tags         Doors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Calendar ID"
// @Param        day  path      int     true  "Day, 1 to 24"
// @Success      200  {object}  models.Door "The opened door with its content."
// @Failure      400  {object}  utils.APIError "Bad Request: day out of range."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      403  {object}  utils.APIError "Forbidden: not a recipient, or the day has not come yet."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /calendars/{id}/doors/{day}/unlock [post]
func UnlockDoorHandler(c *gin.Context, repo *db.Repository, cfg *config.Config, metrics *Metrics) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	cal, access, ok := loadCalendar(c, repo)
	if !ok {
		return
	}
	if access != accessRecipient {
		utils.GinForbidden(c, "Only a recipient of this calendar can open its doors.")
		return
	}
	if _, ok := doorOf(c, cal, day); !ok {
		return
	}

	at := now()
	var (
		opened    models.Door
		firstTime bool
	)
	_, err := repo.UpdateCalendar(c.Request.Context(), cal.ID, func(cal *models.Calendar) error {
		door, ok := cal.Door(day)
		if !ok {
			return db.ErrNotFound
		}
		if door.IsUnlocked {
			opened = door
			return nil
		}
		if !cal.CanUnlockDoor(day, at) {
			return errDoorLocked
		}
		door.UnlockAt(at.UTC())
		cal.UpdateDoor(door)
		opened, firstTime = door, true
		return nil
	})
	switch {
	case errors.Is(err, errDoorLocked):
		utils.GinForbidden(c, fmt.Sprintf("Door %d cannot be opened before December %d, %d.", day, day, cal.SeasonYear()))
		return
	case errors.Is(err, db.ErrNotFound):
		utils.GinNotFound(c, fmt.Sprintf("Calendar '%s' or door %d not found.", cal.ID, day))
		return
	case err != nil:
		log.Error().Stack().Err(err).Str("calendar", cal.ID).Int("day", day).Msg("failed to unlock door")
		utils.GinInternalServerError(c, "Failed to unlock door.")
		return
	}

	if firstTime {
		metrics.recordDoorUnlocked(day)
		log.Info().Str("calendar", cal.ID).Int("day", day).Msg("door unlocked")
	}
	c.JSON(http.StatusOK, opened)
}
