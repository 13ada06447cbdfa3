package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// formField is the multipart field carrying uploaded NF-e files.
const formField = "files"

// maxFilenameLength bounds uploaded file names, which are echoed in results and run history.
const maxFilenameLength = 255

// HeaderDocumentErrors carries the number of malformed documents on export responses.
const HeaderDocumentErrors = "X-Document-Errors"

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	res, err := s.runUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProcessExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.runUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := s.exporter.ExportXLSX(r.Context(), res.Table)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "run_id", res.RunID, "err", err)
		s.writeError(w, err)
		return
	}
	w.Header().Set(HeaderDocumentErrors, strconv.Itoa(len(res.Failures)))
	s.writeXLSX(w, data)
}

func (s *Server) runUpload(w http.ResponseWriter, r *http.Request) (*entity.BatchResult, error) {
	docs, err := s.readUpload(w, r)
	if err != nil {
		return nil, err
	}
	ctx := common.WithSource(r.Context(), "http")
	s.logger.Info("http.batch.start", "documents", len(docs))
	return s.processor.ProcessBatch(ctx, docs)
}

// readUpload returns the uploaded files in submission order. A part that
// cannot be read keeps its slot with Document.Err set.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]entity.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, common.InvalidArgumentErrorf("invalid multipart form: %v", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		return nil, common.InvalidArgumentErrorf("at least one file is required in field %q", formField)
	}

	v := common.NewValidator()
	for _, fh := range headers {
		v.Field("files.filename", fh.Filename, common.MaxLength(maxFilenameLength))
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	docs := make([]entity.Document, 0, len(headers))
	for _, fh := range headers {
		name := filepath.Base(fh.Filename)
		data, err := readPart(fh)
		if err != nil {
			s.logger.Warn("http.upload.read_failed", "document", name, "error", err)
			docs = append(docs, entity.Document{Name: name, Err: err})
			continue
		}
		docs = append(docs, entity.Document{Name: name, Data: data})
	}
	return docs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
