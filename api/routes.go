package main

import (
	"net/http"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", app.unmatchedRouteHandler(mux))

	mux.HandleFunc("GET /health", app.healthCheckHandler)

	mux.HandleFunc("POST /auth/register", app.registerUserHandler)
	mux.HandleFunc("POST /auth/login", app.loginUserHandler)

	mux.HandleFunc("GET /tasks", app.requireAuthenticatedUser(app.listTasksHandler))
	mux.HandleFunc("POST /tasks", app.requireAuthenticatedUser(app.createTaskHandler))
	mux.HandleFunc("GET /tasks/{id}", app.requireAuthenticatedUser(app.getTaskHandler))
	mux.HandleFunc("PUT /tasks/{id}", app.requireAuthenticatedUser(app.updateTaskHandler))
	mux.HandleFunc("DELETE /tasks/{id}", app.requireAuthenticatedUser(app.deleteTaskHandler))

	return app.logRequests(app.recoverPanic(app.enableCORS(mux)))
}
