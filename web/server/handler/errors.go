package handler

import (
	"errors"
	"net/http"

	"go.hackfix.me/rxplay/models"
	"go.hackfix.me/rxplay/reactive"
	"go.hackfix.me/rxplay/scheduler"
	"go.hackfix.me/rxplay/web/server/types"
)

// MapError converts an error returned while handling a request into an HTTP
// error. The variants are checked in order, from the most specific one:
//
//  1. *types.Error with a status code is returned as is.
//  2. *models.NotFoundError maps to 404 Not Found.
//  3. *models.RuntimeError, and recovered panics, map to
//     500 Internal Server Error, reported as a runtime exception.
//  4. Any other error maps to 500 Internal Server Error.
//
// Except for the first variant, the message includes the error detail.
func MapError(err error) *types.Error {
	var (
		terr  *types.Error
		nferr *models.NotFoundError
		rterr *models.RuntimeError
	)

	switch {
	case errors.As(err, &terr) && terr.StatusCode != 0:
		return terr
	case errors.As(err, &nferr):
		return types.NewError(http.StatusNotFound, "Resource not found: "+nferr.Error())
	case errors.As(err, &rterr):
		return types.NewError(http.StatusInternalServerError, "Runtime Exception: "+rterr.Error())
	case errors.Is(err, scheduler.ErrTaskPanic), errors.Is(err, reactive.ErrPanic):
		return types.NewError(http.StatusInternalServerError, "Runtime Exception: "+err.Error())
	default:
		return types.NewError(http.StatusInternalServerError, "Internal Server Error: "+err.Error())
	}
}
