package core

import (
	"encoding/json"
	"net/http"
)

// JSONEnvelope serializes payload as the envelope body. A payload that cannot be
// serialized collapses into an internal fault envelope.
func JSONEnvelope(status int, payload any) Envelope {
	body, err := json.Marshal(payload)
	if err != nil {
		body, _ = json.Marshal(MessageBody(internalFaultMessage))
		return Envelope{StatusCode: http.StatusInternalServerError, Body: body}
	}
	return Envelope{StatusCode: status, Body: body}
}

// EmptyEnvelope carries a status and no body.
func EmptyEnvelope(status int) Envelope {
	return Envelope{StatusCode: status}
}

func MessageBody(message string) map[string]any {
	return map[string]any{"message": message}
}

func (e Envelope) Write(w http.ResponseWriter) error {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if len(e.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if len(e.Body) == 0 {
		return nil
	}
	_, err := w.Write(e.Body)
	return err
}
