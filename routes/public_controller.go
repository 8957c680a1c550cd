package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/mbolis/santas-scanner/app"
	"github.com/mbolis/santas-scanner/database"
	"github.com/mbolis/santas-scanner/httpx"
	"github.com/mbolis/santas-scanner/log"
	"github.com/mbolis/santas-scanner/model"
)

const maxBodyBytes = 1 << 20

func ListQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(app.Questions) == 0 {
			httpx.LogInternalError(w, r, "questions.list", "Failed to load questions", errors.New("question set is empty"))
			return
		}
		render.JSON(w, r, app.Questions)
	}
}

func SubmitScanResult(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		candidate, err := decodeCandidate(r.Body)
		var verr *model.ValidationError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &verr):
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", verr)
			return
		case errors.As(err, &tooLarge):
			httpx.LogStatusMsg(w, r, http.StatusRequestEntityTooLarge, log.DebugLevel, "request.body_too_large", "request body exceeds %d bytes", tooLarge.Limit)
			return
		case err != nil:
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "invalid JSON body")
			return
		}

		res, err := app.Results.Insert(r.Context(), candidate)
		if err != nil {
			if errors.As(err, &verr) {
				httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "db.insert_scan_result.validate", "%s", verr)
			} else {
				httpx.LogInternalError(w, r, "db.insert_scan_result", "Failed to save scan result", err)
			}
			return
		}

		log.WithField("id", res.ID).Debugf("scan result saved: %s is %s (%v)", res.Name, res.Verdict, res.Score)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, res)
	}
}

// decodeCandidate reports fields of the wrong JSON type as validation errors,
// together with whatever else the candidate lacks. Anything else unreadable is
// a plain decoding error.
func decodeCandidate(body io.Reader) (model.ScanCandidate, error) {
	var candidate model.ScanCandidate
	err := render.DecodeJSON(body, &candidate)

	var typeErr *json.UnmarshalTypeError
	var timeErr *time.ParseError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		verr := &model.ValidationError{}
		verr.Add(typeErr.Field, model.ReasonType)
		// the mistyped field decodes as absent and is not also reported missing
		var rest *model.ValidationError
		if _, err := database.Prepare(candidate, time.Now()); errors.As(err, &rest) {
			for _, f := range rest.Fields {
				if f.Field != typeErr.Field {
					verr.Add(f.Field, f.Reason)
				}
			}
		}
		return candidate, verr
	case errors.As(err, &timeErr):
		verr := &model.ValidationError{}
		verr.Add("timestamp", "is not an RFC 3339 time")
		return candidate, verr
	}
	return candidate, err
}

func GetLeaderboard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := app.Results.QueryTop(r.Context(), database.DefaultLimit)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_leaderboard", "Failed to retrieve leaderboard", err)
			return
		}
		render.JSON(w, r, results)
	}
}

type countryResponse struct {
	CountryCode string `json:"countryCode"`
}

func GetCountry(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := app.Geo.LookupCountry(r.Context(), httpx.ClientIP(r))
		render.JSON(w, r, countryResponse{CountryCode: code})
	}
}
