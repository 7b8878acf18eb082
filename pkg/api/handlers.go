package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/binstruct/pkg/binstruct"
	"github.com/ssargent/binstruct/pkg/catalog"
	"github.com/ssargent/binstruct/pkg/interchange"
	"github.com/ssargent/binstruct/pkg/storage"
)

const (
	contentTypeOctetStream = "application/octet-stream"
	defaultMaxBodyBytes    = 8 << 20
)

// Server holds the API server state
type Server struct {
	catalog StructCatalog
	store   RecordStore
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(catalog StructCatalog, store RecordStore, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	metrics.SetCatalogStructs(len(catalog.Names()))
	return &Server{
		catalog: catalog,
		store:   store,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	var structErr *binstruct.StructError
	switch {
	case errors.Is(err, catalog.ErrStructNotFound), errors.Is(err, storage.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.As(err, &structErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
	}
	sendError(w, fmt.Sprintf("%s: %v", message, err), status)
}

// lookupStruct resolves the {name} URL parameter
func (s *Server) lookupStruct(w http.ResponseWriter, r *http.Request) (string, *binstruct.Struct, bool) {
	name := chi.URLParam(r, "name")
	if name == "" {
		sendError(w, "Struct name is required", http.StatusBadRequest)
		return "", nil, false
	}
	st, err := s.catalog.Lookup(name)
	if err != nil {
		s.fail(w, r, "Failed to find struct", err)
		return "", nil, false
	}
	return name, st, true
}

func parseRecordID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid record id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}

// accepts reports whether the Accept header lists contentType
func accepts(r *http.Request, contentType string) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if mediaType(strings.TrimSpace(part)) == contentType {
			return true
		}
	}
	return false
}

func toMaps(recs []binstruct.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = interchange.ToMap(rec)
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func summarize(name string, st *binstruct.Struct) StructSummary {
	return StructSummary{Name: name, Size: st.Size(), Format: st.Format()}
}

func (s *Server) handleListStructs(w http.ResponseWriter, r *http.Request) {
	names := s.catalog.Names()
	summaries := make([]StructSummary, 0, len(names))
	for _, name := range names {
		st, err := s.catalog.Lookup(name)
		if err != nil {
			s.fail(w, r, "Failed to load struct", err)
			return
		}
		summaries = append(summaries, summarize(name, st))
	}
	sendSuccess(w, summaries)
}

func (s *Server) handleGetStruct(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}

	detail := StructDetail{StructSummary: summarize(name, st)}
	for tok, fieldName := range st.All() {
		info := FieldInfo{Format: tok.String(), Size: tok.Size()}
		if !fieldName.IsZero() {
			info.Name = fieldName.String()
		}
		detail.Fields = append(detail.Fields, info)
	}
	sendSuccess(w, detail)
}

// handleDecode decodes binary data into records. The data is either the raw
// request body (application/octet-stream, count in the query string) or a
// JSON DecodeRequest carrying hex.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	count := 1
	var data []byte
	if mediaType(r.Header.Get("Content-Type")) == contentTypeOctetStream {
		data = body
		if q := r.URL.Query().Get("count"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				sendError(w, "Invalid count", http.StatusBadRequest)
				return
			}
			count = n
		}
	} else {
		var req DecodeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
			return
		}
		decoded, err := hex.DecodeString(req.Data)
		if err != nil {
			sendError(w, "Invalid hex data", http.StatusBadRequest)
			return
		}
		data = decoded
		if req.Count != nil {
			count = *req.Count
		}
	}

	if limit := st.MaxRecords(len(data)); count > limit {
		sendError(w, fmt.Sprintf("Count %d exceeds the %d records %d bytes can hold", count, limit, len(data)),
			http.StatusBadRequest)
		return
	}

	recs, err := st.DecodeN(data, count)
	if err != nil {
		s.metrics.RecordCodecOperation(name, "decode", false, 0, 0)
		s.fail(w, r, "Failed to decode", err)
		return
	}
	s.metrics.RecordCodecOperation(name, "decode", true, len(recs), len(recs)*st.Size())

	if accepts(r, interchange.ContentTypeCBOR) {
		out, err := interchange.MarshalCBOR(recs)
		if err != nil {
			s.fail(w, r, "Failed to encode CBOR", err)
			return
		}
		sendBinary(w, interchange.ContentTypeCBOR, out)
		return
	}

	sendSuccess(w, DecodeResponse{Struct: name, Count: len(recs), Records: toMaps(recs)})
}

// decodeRecords reads records from a CBOR body or the "records" member of a
// JSON body.
func (s *Server) decodeRecords(w http.ResponseWriter, r *http.Request, st *binstruct.Struct) ([]binstruct.Record, bool) {
	body, ok := s.readBody(w, r)
	if !ok {
		return nil, false
	}

	var (
		recs []binstruct.Record
		err  error
	)
	if mediaType(r.Header.Get("Content-Type")) == interchange.ContentTypeCBOR {
		recs, err = interchange.UnmarshalCBOR(st, body)
	} else {
		var req struct {
			Records json.RawMessage `json:"records"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
			return nil, false
		}
		if len(req.Records) == 0 {
			sendError(w, "records are required", http.StatusBadRequest)
			return nil, false
		}
		recs, err = interchange.UnmarshalJSON(st, req.Records)
	}
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		sendError(w, fmt.Sprintf("Invalid records: %v", err), status)
		return nil, false
	}
	return recs, true
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}
	recs, ok := s.decodeRecords(w, r, st)
	if !ok {
		return
	}

	data, err := st.EncodeAll(recs)
	if err != nil {
		s.metrics.RecordCodecOperation(name, "encode", false, 0, 0)
		s.fail(w, r, "Failed to encode", err)
		return
	}
	s.metrics.RecordCodecOperation(name, "encode", true, len(recs), len(data))

	if accepts(r, contentTypeOctetStream) {
		sendBinary(w, contentTypeOctetStream, data)
		return
	}
	sendSuccess(w, EncodeResponse{Struct: name, Data: hex.EncodeToString(data), Size: len(data)})
}

// recordResponse decodes stored bytes for display
func recordResponse(name string, st *binstruct.Struct, id ksuid.KSUID, data []byte) (RecordResponse, error) {
	rec, err := st.Decode(data)
	if err != nil {
		return RecordResponse{}, err
	}
	return RecordResponse{
		ID:     id.String(),
		Struct: name,
		Data:   hex.EncodeToString(data),
		Record: interchange.ToMap(rec),
	}, nil
}

// encodeOne encodes the single record of a create or update request
func (s *Server) encodeOne(w http.ResponseWriter, r *http.Request, name string, st *binstruct.Struct) ([]byte, bool) {
	recs, ok := s.decodeRecords(w, r, st)
	if !ok {
		return nil, false
	}
	if len(recs) != 1 {
		sendError(w, fmt.Sprintf("Expected exactly one record, got %d", len(recs)), http.StatusBadRequest)
		return nil, false
	}
	data, err := st.Encode(recs[0])
	if err != nil {
		s.metrics.RecordCodecOperation(name, "encode", false, 0, 0)
		s.fail(w, r, "Failed to encode", err)
		return nil, false
	}
	s.metrics.RecordCodecOperation(name, "encode", true, 1, len(data))
	return data, true
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}
	data, ok := s.encodeOne(w, r, name, st)
	if !ok {
		return
	}

	start := time.Now()
	id, err := s.store.Create(name, data)
	s.metrics.RecordStorageOperation("create", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to store record", err)
		return
	}

	resp, err := recordResponse(name, st, id, data)
	if err != nil {
		s.fail(w, r, "Failed to decode record", err)
		return
	}
	sendCreated(w, resp)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	data, err := s.store.Read(name, id)
	s.metrics.RecordStorageOperation("read", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to read record", err)
		return
	}

	if accepts(r, contentTypeOctetStream) {
		sendBinary(w, contentTypeOctetStream, data)
		return
	}

	resp, err := recordResponse(name, st, id, data)
	if err != nil {
		s.fail(w, r, "Failed to decode record", err)
		return
	}
	sendSuccess(w, resp)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}
	data, ok := s.encodeOne(w, r, name, st)
	if !ok {
		return
	}

	start := time.Now()
	err := s.store.Update(name, id, data)
	s.metrics.RecordStorageOperation("update", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to update record", err)
		return
	}

	resp, err := recordResponse(name, st, id, data)
	if err != nil {
		s.fail(w, r, "Failed to decode record", err)
		return
	}
	sendSuccess(w, resp)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	name, _, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := s.store.Delete(name, id)
	s.metrics.RecordStorageOperation("delete", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to delete record", err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Record deleted successfully"})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	name, _, ok := s.lookupStruct(w, r)
	if !ok {
		return
	}

	start := time.Now()
	ids, err := s.store.List(name)
	s.metrics.RecordStorageOperation("list", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to list records", err)
		return
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sendSuccess(w, map[string]interface{}{
		"struct": name,
		"ids":    out,
		"count":  len(out),
	})
}
