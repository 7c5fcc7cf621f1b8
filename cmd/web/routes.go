package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(commonContext(next))))
		}
		noAuth = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(app.timeout(next)))
		}
		sessionWithTimeout = func(timeout func(http.Handler) http.Handler, next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				app.webAuthnHandler.AuthenticateMiddleware(shared(timeout(next))))))
		}
		session = func(next http.Handler) http.Handler {
			return sessionWithTimeout(app.timeout, next)
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
		// mustSessionSlow serves the routes that wait for the generative model.
		mustSessionSlow = func(next http.Handler) http.Handler {
			return sessionWithTimeout(app.slowTimeout, app.mustAuthenticate(next))
		}
	)

	mux.Handle("GET /suggestions", mustSession(http.HandlerFunc(app.suggestionsGET)))
	mux.Handle("POST /suggestions", mustSessionSlow(http.HandlerFunc(app.suggestionsPOST)))

	mux.Handle("POST /workouts", mustSession(http.HandlerFunc(app.workoutCreatePOST)))
	mux.Handle("GET /workouts/new", mustSession(http.HandlerFunc(app.workoutNewGET)))
	mux.Handle("GET /workouts/{id}", mustSession(http.HandlerFunc(app.workoutGET)))
	mux.Handle("GET /workouts/{id}/modify", mustSession(http.HandlerFunc(app.workoutModifyGET)))
	mux.Handle("POST /workouts/{id}/modify", mustSession(http.HandlerFunc(app.workoutModifyPOST)))
	mux.Handle("POST /workouts/{id}/delete", mustSession(http.HandlerFunc(app.workoutDeletePOST)))
	mux.Handle("POST /workouts/{id}/repeat", mustSession(http.HandlerFunc(app.workoutRepeatPOST)))

	mux.Handle("GET /preferences", mustSession(http.HandlerFunc(app.preferencesGET)))
	mux.Handle("POST /preferences", mustSession(http.HandlerFunc(app.preferencesPOST)))
	mux.Handle("GET /preferences/export", mustSession(http.HandlerFunc(app.exportUserDataGET)))
	mux.Handle("POST /preferences/delete-user", mustSession(http.HandlerFunc(app.deleteUserPOST)))

	mux.Handle("POST /api/registration/start", session(http.HandlerFunc(app.beginRegistration)))
	mux.Handle("POST /api/registration/finish", session(http.HandlerFunc(app.finishRegistration)))
	mux.Handle("POST /api/login/start", session(http.HandlerFunc(app.beginLogin)))
	mux.Handle("POST /api/login/finish", session(http.HandlerFunc(app.finishLogin)))
	mux.Handle("POST /api/logout", session(http.HandlerFunc(app.logout)))
	mux.Handle("GET /api/healthy", noAuth(http.HandlerFunc(app.healthy)))
	mux.Handle("POST /api/reports", noAuth(http.HandlerFunc(app.reports)))

	mux.Handle("GET /metrics", noAuth(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{ //nolint:exhaustruct // defaults.
		ErrorLog:          nil,
		Registry:          app.registry,
		EnableOpenMetrics: true,
	})))

	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))

	fileServerHandler, err := app.fileServerHandler()
	if err != nil {
		return nil, fmt.Errorf("fileServerHandler: %w", err)
	}
	mux.Handle("/", fileServerHandler)

	return mux, nil
}
