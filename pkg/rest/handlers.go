package rest

import (
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/restmap/restmap/pkg/httputil"
	mw "github.com/restmap/restmap/pkg/httputil/middleware"
	"github.com/restmap/restmap/pkg/resource"
	"go.uber.org/zap"
)

// handleList returns every row of the resource's table.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request, res *resource.Resource) {
	query, err := buildSelectAll(res)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, err := s.pool.Query(r.Context(), query)
	if err != nil {
		s.dbError(w, r, "list query", err)
		return
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		row, err := scanRow(res, rows)
		if err != nil {
			s.dbError(w, r, "list scan", err)
			return
		}
		out = append(out, row.AsMap())
	}
	if err := rows.Err(); err != nil {
		s.dbError(w, r, "list rows", err)
		return
	}

	httputil.JSON(w, http.StatusOK, out)
}

// handleGet returns one row by primary key.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, res *resource.Resource) {
	row, found, err := s.fetchRow(r, res, r.PathValue("id"))
	if err != nil {
		s.dbError(w, r, "get", err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "resource not found")
		return
	}

	httputil.JSON(w, http.StatusOK, row.AsMap())
}

// handleCreate inserts a new row built from the request body. Generated
// keys and column defaults are read back from the insert.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, res *resource.Resource) {
	var body map[string]any
	if err := httputil.BindOrError(r, w, &body); err != nil {
		return
	}

	row, err := res.NewRow()
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	row.ApplyPartial(body)

	query, args, err := buildInsert(res, row)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, err := s.pool.Query(r.Context(), query, args...)
	if err != nil {
		s.dbError(w, r, "insert", err)
		return
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			s.dbError(w, r, "insert returning", err)
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "insert returned no row")
		return
	}
	inserted, err := scanRow(res, rows)
	if err != nil {
		s.dbError(w, r, "insert scan", err)
		return
	}
	rows.Close()

	w.Header().Set("Location", s.location(inserted))
	httputil.JSON(w, http.StatusCreated, inserted.AsMap())
}

// handlePatch applies a partial update: only truthy body values are
// written, everything else keeps its current value.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request, res *resource.Resource) {
	s.update(w, r, res, func(row *resource.Row, body map[string]any) {
		row.ApplyPartial(body)
	})
}

// handlePut replaces the row: columns absent from the body (or carrying a
// falsy value) become NULL.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, res *resource.Resource) {
	s.update(w, r, res, func(row *resource.Row, body map[string]any) {
		row.Replace(body)
	})
}

// update implements the shared read-modify-write cycle of PATCH and PUT.
func (s *Server) update(w http.ResponseWriter, r *http.Request, res *resource.Resource, apply func(*resource.Row, map[string]any)) {
	var body map[string]any
	if err := httputil.BindOrError(r, w, &body); err != nil {
		return
	}

	key := r.PathValue("id")
	row, found, err := s.fetchRow(r, res, key)
	if err != nil {
		s.dbError(w, r, "update fetch", err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "resource not found")
		return
	}

	apply(row, body)

	query, args, err := buildUpdateByKey(res, row, key)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, err := s.pool.Query(r.Context(), query, args...)
	if err != nil {
		s.dbError(w, r, "update", err)
		return
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			s.dbError(w, r, "update returning", err)
			return
		}
		httputil.Error(w, http.StatusNotFound, "resource not found")
		return
	}
	updated, err := scanRow(res, rows)
	if err != nil {
		s.dbError(w, r, "update scan", err)
		return
	}
	rows.Close()

	httputil.JSON(w, http.StatusOK, updated.AsMap())
}

// handleDelete removes one row by primary key.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, res *resource.Resource) {
	query, err := buildDeleteByKey(res)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	tag, err := s.pool.Exec(r.Context(), query, r.PathValue("id"))
	if err != nil {
		s.dbError(w, r, "delete", err)
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.Error(w, http.StatusNotFound, "resource not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fetchRow loads one row by primary key. found is false when the key does
// not exist.
func (s *Server) fetchRow(r *http.Request, res *resource.Resource, key string) (*resource.Row, bool, error) {
	query, err := buildSelectByKey(res)
	if err != nil {
		return nil, false, err
	}

	rows, err := s.pool.Query(r.Context(), query, key)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}
	row, err := scanRow(res, rows)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// scanRow reads the current pgx result row into a resource row, matching
// result columns to declared columns by name.
func scanRow(res *resource.Resource, rows pgx.Rows) (*resource.Row, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}

	row, err := res.NewRow()
	if err != nil {
		return nil, err
	}
	for i, fd := range rows.FieldDescriptions() {
		if i < len(values) {
			row.Set(fd.Name, values[i])
		}
	}
	return row, nil
}

// dbError logs the failure through the request-scoped entry when the
// logging middleware is installed, and answers with a generic 500.
func (s *Server) dbError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := mw.LogEntry(r.Context())
	if logger == nil {
		logger = s.logger
	}
	logger.Error("database error", zap.String("op", op), zap.Error(err))
	httputil.Error(w, http.StatusInternalServerError, "database error")
}
