package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/santas-scanner/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// Will log an error, and send a JSON response with status 500 and the given
// public message. err is never exposed to the caller.
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, msg string, err error) {
	log.Errorf("%s: %s", code, err)
	WriteError(w, r, http.StatusInternalServerError, msg)
}

// Will log a debug message, and send a JSON response with status 404
func LogNotFound(w http.ResponseWriter, r *http.Request) {
	log.Debugf("route.not_found: %s %s", r.Method, r.URL.Path)
	WriteError(w, r, http.StatusNotFound, "Not found")
}

// Will log an error code at the given level, and send
// a JSON response with status and default text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	WriteError(w, r, status, http.StatusText(status))
}

// Will log an error code and message at the given level,
// and send a JSON response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	WriteError(w, r, status, errMsg)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
