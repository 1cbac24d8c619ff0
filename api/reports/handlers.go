package reports

import (
	"SheetReports/api"
	"SheetReports/api/constants"
	"SheetReports/internal/report"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// ReportEngine is what the HTTP layer needs from *report.Engine.
type ReportEngine interface {
	GenerateReport(ctx context.Context, sheetName string, start, end time.Time) (*report.ReportResult, error)
	PreviewReport(ctx context.Context, sheetName string, start, end time.Time) (*report.ReportResult, error)
	ListSheetNames(ctx context.Context) ([]string, error)
	ListTemplates(ctx context.Context) ([]report.TemplateDetails, error)
	TemplateInfo(ctx context.Context, fileName string) (report.TemplateDetails, error)
	MappingsForSheet(ctx context.Context, sheetName string) ([]report.MappingRecord, error)
	MappingsForSheets(ctx context.Context, sheetNames []string) (map[string][]report.MappingRecord, error)
	MappingsForSheetID(ctx context.Context, sheetID int64) ([]report.MappingRecord, error)
	TemplateForSheetID(ctx context.Context, sheetID int64) (report.TemplateFile, []byte, error)
}

type reportRequest struct {
	SheetName string `json:"sheetName"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type previewResponse struct {
	RunID     string                 `json:"runId"`
	SheetName string                 `json:"sheetName"`
	StartDate string                 `json:"startDate"`
	EndDate   string                 `json:"endDate"`
	Cells     []report.CellEntry     `json:"cells"`
	Values    map[string]interface{} `json:"values"`
}

// NewRouter registers every reports endpoint under /reports.
func NewRouter(engine ReportEngine) *mux.Router {
	router := mux.NewRouter()
	r := router.PathPrefix("/reports").Subrouter()

	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	r.HandleFunc("/templates", ListTemplates(engine)).Methods(http.MethodGet)
	r.HandleFunc("/template/{fileName}", TemplateInfo(engine)).Methods(http.MethodGet)
	r.HandleFunc("/sheets", ListSheets(engine)).Methods(http.MethodGet)
	r.HandleFunc("/mappings", MappingsForSheets(engine)).Methods(http.MethodGet)
	r.HandleFunc("/mappings/sheet/{sheetId:[0-9]+}", MappingsBySheetID(engine)).Methods(http.MethodGet)
	r.HandleFunc("/mappings/{sheetName}", MappingsBySheet(engine)).Methods(http.MethodGet)
	r.HandleFunc("/preview/{sheetName}", Preview(engine)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/generate/{sheetName}", Generate(engine)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/generate", GenerateJSON(engine)).Methods(http.MethodPost)
	r.HandleFunc("/file/{sheetId:[0-9]+}", FileBySheetID(engine)).Methods(http.MethodGet)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
	})
	return router
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "UP",
		"service":   constants.ServiceName,
		"timestamp": time.Now().Format(constants.DateFormatISO),
	})
}

func ListTemplates(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := engine.ListTemplates(r.Context())
		if err != nil {
			api.LogError("list templates: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrListTemplates)
			return
		}
		api.RespondWithPayload(w, true, "", templates)
	}
}

func TemplateInfo(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["fileName"]
		info, err := engine.TemplateInfo(r.Context(), name)
		if err != nil {
			respondWithEngineError(w, "template info "+name, err)
			return
		}
		api.RespondWithPayload(w, true, "", info)
	}
}

func ListSheets(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := engine.ListSheetNames(r.Context())
		if err != nil {
			api.LogError("list sheets: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrListSheets)
			return
		}
		if names == nil {
			names = []string{}
		}
		api.RespondWithPayload(w, true, "", names)
	}
}

func MappingsBySheet(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet := mux.Vars(r)["sheetName"]
		mappings, err := engine.MappingsForSheet(r.Context(), sheet)
		if err != nil {
			respondWithEngineError(w, "mappings for "+sheet, err)
			return
		}
		respondWithMappings(w, mappings)
	}
}

func MappingsBySheetID(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["sheetId"], 10, 64)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSheetID)
			return
		}
		mappings, err := engine.MappingsForSheetID(r.Context(), id)
		if err != nil {
			respondWithEngineError(w, fmt.Sprintf("mappings for sheet id %d", id), err)
			return
		}
		respondWithMappings(w, mappings)
	}
}

// MappingsForSheets serves GET /reports/mappings?sheets=a,b.
func MappingsForSheets(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var names []string
		for _, v := range r.URL.Query()["sheets"] {
			for _, n := range strings.Split(v, ",") {
				if n = strings.TrimSpace(n); n != "" {
					names = append(names, n)
				}
			}
		}
		if len(names) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingSheets)
			return
		}
		grouped, err := engine.MappingsForSheets(r.Context(), names)
		if err != nil {
			respondWithEngineError(w, "batch mappings", err)
			return
		}
		api.RespondWithPayload(w, true, "", grouped)
	}
}

func respondWithMappings(w http.ResponseWriter, mappings []report.MappingRecord) {
	if len(mappings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	api.RespondWithPayload(w, true, "", mappings)
}

func Preview(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		req.SheetName = mux.Vars(r)["sheetName"]
		start, end, msg := parsePeriod(req)
		if msg != "" {
			api.RespondWithError(w, http.StatusBadRequest, msg)
			return
		}

		api.LogInfo("preview request for sheet %s, %s to %s", req.SheetName, req.StartDate, req.EndDate)
		res, err := engine.PreviewReport(r.Context(), req.SheetName, start, end)
		if err != nil {
			respondWithEngineError(w, "preview "+req.SheetName, err)
			return
		}

		entries := res.Cells.Entries()
		values := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			values[e.Cell] = e.Value.Interface()
		}
		api.RespondWithPayload(w, true, "", previewResponse{
			RunID:     res.RunID.String(),
			SheetName: res.SheetName,
			StartDate: start.Format(constants.DateFormat),
			EndDate:   end.Format(constants.DateFormat),
			Cells:     entries,
			Values:    values,
		})
	}
}

// Generate serves /reports/generate/{sheetName}?startDate=..&endDate=..
func Generate(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := reportRequest{
			SheetName: mux.Vars(r)["sheetName"],
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
		}
		generate(engine, w, r, req)
	}
}

// GenerateJSON serves POST /reports/generate with a JSON body.
func GenerateJSON(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if strings.TrimSpace(req.SheetName) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingSheetName)
			return
		}
		generate(engine, w, r, req)
	}
}

func generate(engine ReportEngine, w http.ResponseWriter, r *http.Request, req reportRequest) {
	start, end, msg := parsePeriod(req)
	if msg != "" {
		api.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	api.LogInfo("generating report for sheet %s, %s to %s", req.SheetName, req.StartDate, req.EndDate)
	res, err := engine.GenerateReport(r.Context(), req.SheetName, start, end)
	if err != nil {
		respondWithEngineError(w, "generate "+req.SheetName, err)
		return
	}
	api.LogInfo("report run %s for %s: %d cells, %d bytes", res.RunID, req.SheetName, res.Cells.Len(), len(res.Content))
	api.RespondWithFile(w, res.FileName(req.SheetName, start, end), res.Content)
}

func FileBySheetID(engine ReportEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["sheetId"], 10, 64)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSheetID)
			return
		}
		tf, data, err := engine.TemplateForSheetID(r.Context(), id)
		if err != nil {
			respondWithEngineError(w, fmt.Sprintf("file for sheet id %d", id), err)
			return
		}
		name := tf.StoredFileName
		if name == "" {
			name = path.Base(tf.FilePath)
		}
		api.RespondWithFile(w, name, data)
	}
}

// decodeRequest reads an optional JSON body and lets query parameters
// fill whatever the body left empty.
func decodeRequest(r *http.Request) (reportRequest, error) {
	var req reportRequest
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, err
		}
	}
	q := r.URL.Query()
	if req.StartDate == "" {
		req.StartDate = q.Get("startDate")
	}
	if req.EndDate == "" {
		req.EndDate = q.Get("endDate")
	}
	return req, nil
}

// parsePeriod returns a user facing message when the dates are unusable.
func parsePeriod(req reportRequest) (time.Time, time.Time, string) {
	if req.StartDate == "" || req.EndDate == "" {
		return time.Time{}, time.Time{}, constants.ErrMissingDates
	}
	start, err := time.Parse(constants.DateFormat, strings.TrimSpace(req.StartDate))
	if err != nil {
		return time.Time{}, time.Time{}, constants.ErrInvalidDate
	}
	end, err := time.Parse(constants.DateFormat, strings.TrimSpace(req.EndDate))
	if err != nil {
		return time.Time{}, time.Time{}, constants.ErrInvalidDate
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, constants.ErrDateOrder
	}
	return start, end, ""
}

func respondWithEngineError(w http.ResponseWriter, op string, err error) {
	api.LogError("%s: %v", op, err)
	switch {
	case errors.Is(err, report.ErrTemplateNotFound):
		api.RespondWithError(w, http.StatusNotFound, constants.ErrTemplateNotFound)
	case errors.Is(err, report.ErrSheetNotFound):
		api.RespondWithError(w, http.StatusNotFound, constants.ErrSheetNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.RespondWithError(w, http.StatusServiceUnavailable, constants.ErrRequestCancelled)
	default:
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrGenerationFailed)
	}
}
