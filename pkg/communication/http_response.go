package communication

import (
	"encoding/json"
	"net/http"

	"github.com/trailgo-app/trailgo-backend/pkg/logger"
)

// ResponseManager writes the uniform JSON envelopes all routes respond with
type ResponseManager struct {
	Logger logger.Interface
}

// RespondWithError logs server side errors and writes the error envelope.
// 4xx statuses report as "fail", everything above as "error".
func (r *ResponseManager) RespondWithError(writer http.ResponseWriter, status int, message string, err error) {
	if status >= 500 {
		r.Logger.Error(message, err)
	}

	statusText := "fail"
	if status >= 500 {
		statusText = "error"
	}

	if err != nil {
		message = message + ": " + err.Error()
	}

	writer.WriteHeader(status)
	var response = map[string]interface{}{
		"status":  statusText,
		"message": message,
	}

	binary, err := json.Marshal(response)
	if err != nil {
		r.Logger.Fatal(err)
	}

	_, err = writer.Write(binary)
	if err != nil {
		r.Logger.Fatal(err)
	}
}

// Respond wraps data into the success envelope and responds with a 200 HTTP status
func (r ResponseManager) Respond(writer http.ResponseWriter, data interface{}) {
	r.RespondWithStatus(writer, data, http.StatusOK)
}

// RespondWithStatus wraps data into the success envelope and responds with a specific status code
func (r ResponseManager) RespondWithStatus(writer http.ResponseWriter, data interface{}, status int) {
	r.respondEnvelope(writer, map[string]interface{}{
		"status": "success",
		"data":   data,
	}, status)
}

// RespondWithResults responds with a list payload and its result count
func (r ResponseManager) RespondWithResults(writer http.ResponseWriter, count int, data interface{}) {
	r.respondEnvelope(writer, map[string]interface{}{
		"status":  "success",
		"results": count,
		"data":    data,
	}, http.StatusOK)
}

// RespondWithNoContent sends a no content status code
func (r ResponseManager) RespondWithNoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

func (r ResponseManager) respondEnvelope(writer http.ResponseWriter, envelope map[string]interface{}, status int) {
	binary, err := json.Marshal(envelope)
	if err != nil {
		r.RespondWithError(writer, http.StatusInternalServerError,
			"Problem while marshalling response into json", err)
		return
	}

	writer.WriteHeader(status)
	_, err = writer.Write(binary)
	if err != nil {
		r.Logger.Error("Problem writing response", err)
	}
}
