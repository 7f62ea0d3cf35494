package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kineticlab/physio-academy-backend/api/middleware"
	"github.com/kineticlab/physio-academy-backend/api/responses"
	"github.com/kineticlab/physio-academy-backend/api/validators"
	"github.com/kineticlab/physio-academy-backend/internal/courses"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// LessonAccess returns unlock states for the lessons of a course.
func LessonAccess(svc courses.Service, defaultLoc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "course service unavailable"))
			return
		}
		userID, courseID, loc, err := accessParams(r, "courseID", defaultLoc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LessonAccess(r.Context(), userID, courseID, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PackageAccess returns unlock states for the courses of a package.
func PackageAccess(svc courses.Service, defaultLoc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "course service unavailable"))
			return
		}
		userID, packageID, loc, err := accessParams(r, "packageID", defaultLoc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PackageAccess(r.Context(), userID, packageID, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func accessParams(r *http.Request, param string, defaultLoc *time.Location) (uuid.UUID, uuid.UUID, *time.Location, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := validators.URLParamUUID(r, param)
	if err != nil {
		return uuid.Nil, uuid.Nil, nil, err
	}
	loc, err := validators.ParseQueryLocation(r, "tz", defaultLoc)
	if err != nil {
		return uuid.Nil, uuid.Nil, nil, err
	}
	return identity.UserID, id, loc, nil
}
