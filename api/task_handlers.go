package main

import (
	"net/http"
)

func (app *application) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := app.storage.tasks.list(r.Context(), userIDFromRequest(r))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, tasks)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	input := readJSONObject(w, r)
	var description *string
	if input.has("description") {
		d := input.str("description")
		description = &d
	}

	t, err := app.storage.tasks.create(r.Context(), userIDFromRequest(r), input.str("title"), description)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusCreated, t)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	t, err := app.storage.tasks.get(r.Context(), userIDFromRequest(r), id)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, t)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	input := readJSONObject(w, r)
	var patch taskPatch
	if input.has("title") {
		title := input.str("title")
		patch.Title = &title
	}
	if input.has("description") {
		description := input.str("description")
		patch.Description = &description
	}
	if input.has("is_done") {
		isDone := input.truthy("is_done")
		patch.IsDone = &isDone
	}

	t, err := app.storage.tasks.update(r.Context(), userIDFromRequest(r), id, patch)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, t)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.storage.tasks.delete(r.Context(), userIDFromRequest(r), id); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
