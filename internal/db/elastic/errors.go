package elastic

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/peerdex/internal/db"
)

const maxErrorBody = 64 << 10

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// decodeError maps a non-2xx response to a db error.
// index_not_found_exception → db.ErrIndexNotFound,
// resource_already_exists_exception → db.ErrIndexExists, other 400s → db.ErrBadRequest.
func decodeError(op string, res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	var er errorResponse
	_ = json.Unmarshal(raw, &er)

	reason := er.Error.Reason
	if reason == "" {
		reason = http.StatusText(res.StatusCode)
	}
	detail := fmt.Errorf("status %d: %s: %s", res.StatusCode, er.Error.Type, reason)

	switch {
	case er.Error.Type == "index_not_found_exception":
		return &db.Error{Op: op, Err: errors.Join(db.ErrIndexNotFound, detail)}
	case er.Error.Type == "resource_already_exists_exception":
		return &db.Error{Op: op, Err: errors.Join(db.ErrIndexExists, detail)}
	case res.StatusCode == http.StatusNotFound && er.Error.Type == "":
		return &db.Error{Op: op, Err: errors.Join(db.ErrIndexNotFound, detail)}
	case res.StatusCode == http.StatusBadRequest:
		return &db.Error{Op: op, Err: errors.Join(db.ErrBadRequest, detail)}
	default:
		return &db.Error{Op: op, Err: detail}
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
