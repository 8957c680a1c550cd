package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/santas-scanner/app"
	"github.com/mbolis/santas-scanner/httpx"
	"github.com/mbolis/santas-scanner/log"
	"github.com/mbolis/santas-scanner/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	requestLogger := middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  log.Logger,
		NoColor: true,
	})

	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	// preflight requests stop here, before any handler runs
	root.Use(middlewares.CORS(app.CORS, app.Debug), middlewares.Preflight)

	root.NotFound(httpx.LogNotFound)
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allowedMethods(root, r.URL.Path))
		httpx.LogStatus(w, r, http.StatusMethodNotAllowed, log.DebugLevel, "route.method_not_allowed")
	})

	root.Get("/questions", ListQuestions(app))
	root.Post("/scan-results", SubmitScanResult(app))
	root.Get("/leaderboard", GetLeaderboard(app))
	root.Get("/country", GetCountry(app))

	return root
}

var routeMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// allowedMethods lists what path is routed for. OPTIONS is always answered by
// the preflight middleware.
func allowedMethods(mux *chi.Mux, path string) string {
	var allowed []string
	for _, m := range routeMethods {
		if mux.Match(chi.NewRouteContext(), m, path) {
			allowed = append(allowed, m)
		}
	}
	return strings.Join(append(allowed, http.MethodOptions), ", ")
}
