package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-weather/internal/db"
	"github.com/joeblew999/plat-weather/internal/humastar"
	"github.com/joeblew999/plat-weather/internal/journal"
)

// DBHandler handles database-related endpoints.
type DBHandler struct {
	db      *sql.DB
	journal *journal.Store
}

// NewDBHandler creates a new database handler. Either argument may be nil.
func NewDBHandler(conn *sql.DB, j *journal.Store) *DBHandler {
	return &DBHandler{db: conn, journal: j}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("journal"))
	huma.Get(api, "/api/v1/journal", h.ListJournal, huma.OperationTags("journal"))
	huma.Get(api, "/api/v1/journal/failures", h.Failures, huma.OperationTags("journal"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	tables, err := db.Tables(ctx, h.db)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	out := &TablesOutput{}
	out.Body.Tables = tables
	return out, nil
}

// JournalInput filters the toggle journal.
type JournalInput struct {
	Session string `query:"session" doc:"Only this session"`
	Layer   string `query:"layer" doc:"Only this layer" example:"temperature"`
	Offset  int    `query:"offset" minimum:"0" default:"0" doc:"Entries to skip"`
	Limit   int    `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

// ListJournal returns recent toggle outcomes, newest first.
func (h *DBHandler) ListJournal(ctx context.Context, input *JournalInput) (*struct {
	Body humastar.PageBody[journal.Entry]
}, error) {
	if h.journal == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	entries, err := h.journal.List(ctx, journal.Filter{
		SessionID: input.Session,
		LayerID:   input.Layer,
		Offset:    input.Offset,
		Limit:     input.Limit + 1,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read journal", err)
	}
	return &struct {
		Body humastar.PageBody[journal.Entry]
	}{Body: humastar.NewPage(entries, input.Offset, input.Limit)}, nil
}

// Failures counts failed toggles per layer.
func (h *DBHandler) Failures(ctx context.Context, input *struct{}) (*struct{ Body map[string]int }, error) {
	if h.journal == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	counts, err := h.journal.Failures(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read journal", err)
	}
	return &struct{ Body map[string]int }{Body: counts}, nil
}
