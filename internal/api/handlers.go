/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"querysync/internal/compat"
	"querysync/internal/errors"
	"querysync/internal/metrics"
	qsql "querysync/internal/sql"
)

type sqlRequest struct {
	SQL string `json:"sql"`
}

type modelRequest struct {
	Query *qsql.Query `json:"query"`
	SQL   string      `json:"sql"`
}

type generateResponse struct {
	SQL       string `json:"sql"`
	Formatted string `json:"formatted"`
}

type formatResponse struct {
	Formatted string `json:"formatted"`
}

type errorResponse struct {
	Error     *errors.QueryError `json:"error"`
	RequestID string             `json:"request_id,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req sqlRequest
	if err := decode(w, r, &req); err != nil {
		s.metrics.RecordParse(time.Since(start), 0, false, err)
		s.writeError(w, r, err)
		return
	}

	result, hit, err := s.parse(req.SQL)
	if err != nil {
		s.metrics.RecordParse(time.Since(start), 0, hit, err)
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordParse(time.Since(start), len(result.Diagnostics), hit, nil)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, err := s.decodeModel(w, r, nil)
	if err != nil {
		s.metrics.Record(metrics.OpGenerate, time.Since(start), err)
		s.writeError(w, r, err)
		return
	}

	text := qsql.Generate(q)
	s.metrics.Record(metrics.OpGenerate, time.Since(start), nil)
	writeJSON(w, http.StatusOK, generateResponse{SQL: text, Formatted: qsql.Format(text)})
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req sqlRequest
	if err := decode(w, r, &req); err != nil {
		s.metrics.Record(metrics.OpFormat, time.Since(start), err)
		s.writeError(w, r, err)
		return
	}

	formatted := qsql.Format(req.SQL)
	s.metrics.Record(metrics.OpFormat, time.Since(start), nil)
	writeJSON(w, http.StatusOK, formatResponse{Formatted: formatted})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, err := s.decodeModel(w, r, nil)
	if err != nil {
		s.metrics.Record(metrics.OpValidate, time.Since(start), err)
		s.writeError(w, r, err)
		return
	}

	result := qsql.Validate(q)
	if !result.Valid {
		s.metrics.RecordValidationFailure()
	}
	s.metrics.Record(metrics.OpValidate, time.Since(start), nil)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var text string
	q, err := s.decodeModel(w, r, &text)
	if err != nil {
		s.metrics.Record(metrics.OpCheck, time.Since(start), err)
		s.writeError(w, r, err)
		return
	}

	var report *compat.Report
	if text != "" {
		report = compat.Check(text, q)
	} else {
		report = compat.CheckQuery(q)
	}
	s.metrics.Record(metrics.OpCheck, time.Since(start), nil)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, err := s.decodeModel(w, r, nil)
	if err != nil {
		s.metrics.Record(metrics.OpPreview, time.Since(start), err)
		s.writeError(w, r, err)
		return
	}

	result, err := s.preview.Run(r.Context(), q)
	s.metrics.Record(metrics.OpPreview, time.Since(start), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parse goes through the cache when there is one.
func (s *Server) parse(text string) (*qsql.ParseResult, bool, error) {
	var (
		result *qsql.ParseResult
		hit    bool
		err    error
	)
	if s.cache != nil {
		result, hit, err = s.cache.Parse(text)
	} else {
		result, err = qsql.ParseWithDiagnostics(text)
	}
	if errors.IsUnsupportedStatement(err) {
		s.metrics.RecordUnsupported()
	}
	return result, hit, err
}

// decodeModel reads a modelRequest and resolves it to a Query. When both a
// model and SQL text are sent and text is non-nil, the text is stored there.
func (s *Server) decodeModel(w http.ResponseWriter, r *http.Request, text *string) (qsql.Query, error) {
	var req modelRequest
	if err := decode(w, r, &req); err != nil {
		return qsql.NewQuery(), err
	}

	if req.Query != nil {
		if text != nil {
			*text = strings.TrimSpace(req.SQL)
		}
		return *req.Query, nil
	}

	if strings.TrimSpace(req.SQL) == "" {
		return qsql.NewQuery(), errors.InvalidRequest("query or sql is required")
	}
	result, _, err := s.parse(req.SQL)
	if err != nil {
		return qsql.NewQuery(), err
	}
	if text != nil {
		*text = req.SQL
	}
	return result.Query, nil
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if err == io.EOF {
			return errors.InvalidRequest("request body is empty")
		}
		return errors.InvalidRequest("malformed JSON body: " + err.Error()).WithCause(err)
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *errors.QueryError
	if !stderrors.As(err, &qe) {
		qe = &errors.QueryError{Message: "internal error", Detail: err.Error(), Cause: err}
	}
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "request_id", RequestID(r.Context()), "error", err)
	}
	writeJSON(w, status, errorResponse{Error: qe, RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
