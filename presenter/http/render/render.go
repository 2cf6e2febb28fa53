package render

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
)

// ErrorResponse is the body of every failed request. Code carries the gravity result code,
// so clients can restore the original sentinel error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  uint32 `json:"code"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, res interface{}) {
	raw, err := marshal(r, res)
	if err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Error("failed to marshal JSON result")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(raw); err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Error("failed to write response")
	}
}

func marshal(r *http.Request, res interface{}) ([]byte, error) {
	if pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty")); pretty {
		return json.MarshalIndent(res, "", "  ")
	}
	return json.Marshal(res)
}

func Error(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger := logging.LoggerFromContext(r.Context()).WithError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request handling failed")
	} else {
		logger.Warn("request rejected")
	}
	JSON(w, r, status, &ErrorResponse{
		Error: err.Error(),
		Code:  gravity.CodeFromError(err),
	})
}
