package handlers

import (
	"context"
	"errors"
	"net/http"

	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

// emptyFeed is the data payload that accompanies a DATA_UNAVAILABLE error
var emptyFeed = map[string]interface{}{"items": []interface{}{}}

// writeError maps repository / engine errors onto the response envelope
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error, message string) {
	switch {
	case errors.Is(err, feed.ErrInvalidSpace):
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, utils.CodeInvalidSpace, message, err.Error())
	case errors.Is(err, database.ErrNotFound):
		utils.WriteNotFoundResponse(w, message+": "+err.Error())
	case errors.Is(err, database.ErrInvalidVariant):
		utils.WriteBadRequestResponse(w, err.Error())
	case errors.Is(err, feed.ErrDataUnavailable), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.WithError(err).Warn(message)
		utils.WriteServiceUnavailableResponse(w, message, err.Error(), emptyFeed)
	default:
		log.WithError(err).Error(message)
		utils.WriteInternalServerErrorResponse(w, message+": "+err.Error())
	}
}
