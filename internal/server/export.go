package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

const rowsSchemaURL = "export_request.json"

// rowsSchemaJSON describes the body of POST /api/v1/export. Absent fields are
// exported as empty cells.
const rowsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["rows"],
  "additionalProperties": false,
  "properties": {
    "rows": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "nota":       {"type": "string"},
          "emissor":    {"type": "string"},
          "cliente":    {"type": "string"},
          "rua":        {"type": "string"},
          "numero":     {"type": "string"},
          "municipio":  {"type": "string"},
          "peso_bruto": {"type": "string"}
        }
      }
    }
  }
}`

type rowsValidator struct {
	schema *jsonschema.Schema
}

func newRowsValidator() (*rowsValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(rowsSchemaURL, strings.NewReader(rowsSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(rowsSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &rowsValidator{schema: schema}, nil
}

// Validate checks raw JSON against the export request schema.
func (v *rowsValidator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

type exportRequest struct {
	Rows entity.InvoiceTable `json:"rows"`
}

// handleExport serializes a table the client already holds, such as the rows
// returned by POST /api/v1/batches.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.rowsSchema.Validate(body); err != nil {
		s.writeError(w, common.InvalidArgumentError(err.Error()))
		return
	}

	var req exportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, common.InvalidArgumentErrorf("decode body: %v", err))
		return
	}

	data, err := s.exporter.ExportXLSX(r.Context(), req.Rows)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "rows", len(req.Rows), "err", err)
		s.writeError(w, err)
		return
	}
	s.writeXLSX(w, data)
}
