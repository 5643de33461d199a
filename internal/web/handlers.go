package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/dbengine"
)

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	}
}

func handleTables(db *dbengine.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(db.Tables()); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode tables: %v", err), http.StatusInternalServerError)
		}
	}
}

// queryPayload is the /api/query request body, matching handleQuery's
// {"sql": "..."} contract with unknown fields rejected.
type queryPayload struct {
	SQL string `json:"sql"`
}

// handleQuery runs SQL and writes the result as a CSV body: one header
// line, one line per row, then a trailing "# took <duration>" comment line.
func handleQuery(db *dbengine.Database, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST is allowed for /api/query", http.StatusMethodNotAllowed)
			return
		}

		var payload queryPayload
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&payload); err != nil {
			http.Error(w, fmt.Sprintf("did not supply a correct query payload: %v", err), http.StatusBadRequest)
			return
		}
		if dec.More() {
			http.Error(w, "body can only contain a single JSON object", http.StatusBadRequest)
			return
		}

		res, err := db.Query(r.Context(), payload.SQL)
		if err != nil {
			log.Errorw("query failed", "sql", payload.SQL, "error", err)
			http.Error(w, err.Error(), dberr.HTTPStatus(err))
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		var body strings.Builder
		body.WriteString(res.HeaderLine)
		body.WriteByte('\n')
		for _, line := range res.Rows {
			body.WriteString(line)
			body.WriteByte('\n')
		}
		fmt.Fprintf(&body, "# took %s\n", res.Took)
		w.Write([]byte(body.String()))
	}
}

func handleUpload(db *dbengine.Database, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST is allowed for /upload/auto", http.StatusMethodNotAllowed)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "missing required query parameter 'name'", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		tm, err := db.Import(name, r.Body)
		if err != nil {
			log.Errorw("import failed", "table", name, "error", err)
			http.Error(w, err.Error(), dberr.HTTPStatus(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tm); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode table metadata: %v", err), http.StatusInternalServerError)
		}
	}
}

type remotePayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func handleRemoteUpload(db *dbengine.Database, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST is allowed for /upload/remote", http.StatusMethodNotAllowed)
			return
		}

		var payload remotePayload
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&payload); err != nil {
			http.Error(w, fmt.Sprintf("did not supply correct remote import information: %v", err), http.StatusBadRequest)
			return
		}
		if dec.More() {
			http.Error(w, "body can only contain a single JSON object", http.StatusBadRequest)
			return
		}

		tm, err := db.ImportRemote(r.Context(), payload.Name, payload.URL)
		if err != nil {
			log.Errorw("remote import failed", "table", payload.Name, "url", payload.URL, "error", err)
			http.Error(w, err.Error(), dberr.HTTPStatus(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tm); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode table metadata: %v", err), http.StatusInternalServerError)
		}
	}
}
