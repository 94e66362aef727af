package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func composeJSONError(err error) string {
	jsonError := map[string]string{
		"error": err.Error(),
	}
	result, err := json.Marshal(jsonError)
	if err != nil {
		log.Println(err)
		return ""
	}
	return string(result)
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprintln(w, composeJSONError(err))
}

// errorResponse answers expected failures with their own status and message and
// everything else with a logged 500.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *appError
	if errors.As(err, &appErr) {
		writeError(w, appErr, appErr.status())
		return
	}
	app.serverErrorResponse(w, r, err)
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Printf("request_id=%s method=%s path=%s error=%q", requestIDFromRequest(r), r.Method, r.URL.Path, err)
	writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
}

// jsonObject is a request body decoded one level deep, so handlers can tell
// absent fields from present ones.
type jsonObject map[string]json.RawMessage

// readJSONObject decodes the body as a JSON object. Missing, malformed and
// non-object bodies read as an empty object and surface later as missing fields.
func readJSONObject(w http.ResponseWriter, r *http.Request) jsonObject {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var obj map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil || obj == nil {
		return jsonObject{}
	}
	return obj
}

func (o jsonObject) has(key string) bool {
	_, ok := o[key]
	return ok
}

// str returns the string value of key. Absent, null and non-string values are empty.
func (o jsonObject) str(key string) string {
	raw, ok := o[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// truthy reads key loosely: absent, null, false, 0, "", [] and {} are false,
// any other value is true.
func (o jsonObject) truthy(key string) bool {
	raw, ok := o[key]
	if !ok {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) != 0
	case map[string]any:
		return len(x) != 0
	}
	return true
}

// readIDParam parses the {id} path value. Anything but a positive integer is
// reported as a missing task.
func readIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errTaskNotFound
	}
	return id, nil
}
