package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"authors-haven/internal/logging"
	"authors-haven/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var statusByKind = map[services.Kind]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindState:        http.StatusBadRequest,
	services.KindConflict:     http.StatusUnprocessableEntity,
	services.KindForbidden:    http.StatusForbidden,
	services.KindNotFound:     http.StatusNotFound,
	services.KindUnauthorized: http.StatusUnauthorized,
}

// respondError writes err with the status matching its kind. Internal errors
// are logged and replaced with a generic message.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		logging.WithComponent("http").WithError(err).WithField("path", c.FullPath()).Error("❌ Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again later"})
		return
	}

	body := gin.H{"error": err.Error()}
	var se *services.Error
	if errors.As(err, &se) {
		body["error"] = se.Message
		if se.Field != "" {
			body["field"] = se.Field
		}
		if se.Code != "" {
			body["code"] = se.Code
		}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// paramUUID parses a uuid path parameter, writing a 404 when it is malformed
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads limit and page query parameters
func pagination(c *gin.Context) (limit, page, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))

	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}

	return limit, page, (page - 1) * limit
}
