package main

import (
	"errors"
	"net/http"
	"strings"
)

var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	err := writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// unmatchedRouteHandler answers requests no other pattern claims with a JSON 405
// when the path exists under another method, and a JSON 404 otherwise.
func (app *application) unmatchedRouteHandler(mux *http.ServeMux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, method := range routeMethods {
			alt := r.Clone(r.Context())
			alt.Method = method
			if _, pattern := mux.Handler(alt); pattern != "" && pattern != "/" {
				allowed = append(allowed, method)
			}
		}
		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			writeError(w, errors.New("method not allowed"), http.StatusMethodNotAllowed)
			return
		}
		writeError(w, errors.New("resource not found"), http.StatusNotFound)
	}
}

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	input := readJSONObject(w, r)
	email := input.str("email")

	id, err := app.storage.users.register(r.Context(), email, input.str("password"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.sendWelcomeMail(r, id, normalizeEmail(email))

	err = writeJSON(w, http.StatusCreated, map[string]string{"message": "registered successfully"})
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	input := readJSONObject(w, r)

	id, err := app.storage.users.authenticate(r.Context(), input.str("email"), input.str("password"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	token, err := app.tokens.issue(id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// sendWelcomeMail is best effort: delivery happens after the response and a
// failure is only logged.
func (app *application) sendWelcomeMail(r *http.Request, userID int64, email string) {
	if app.mailer == nil {
		return
	}
	requestID := requestIDFromRequest(r)
	data := map[string]any{
		"userID": userID,
		"email":  email,
	}
	app.background(func() {
		if err := app.mailer.send(email, "user_welcome.tmpl", data); err != nil {
			app.logger.Printf("request_id=%s user_id=%d send welcome mail: %v", requestID, userID, err)
		}
	})
}
