package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/kelayakan-cli/internal/aggregate"
	"github.com/sells-group/kelayakan-cli/internal/fetcher"
	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/preprocess"
	"github.com/sells-group/kelayakan-cli/internal/profile"
	"github.com/sells-group/kelayakan-cli/internal/report"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// scoreRequest is the JSON body of POST /v1/score and /v1/missing. The
// dataset is given either as columns plus rows or as a list of records.
type scoreRequest struct {
	Profile    string          `json:"profile"`
	Threshold  *float64        `json:"threshold"`
	Imputation string          `json:"imputation"`
	Categories []string        `json:"categories"`
	Columns    []string        `json:"columns"`
	Rows       [][]model.Value `json:"rows"`
	Records    []model.Record  `json:"records"`
}

type categoryInfo struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
}

type profileInfo struct {
	Name        string              `json:"name"`
	Version     string              `json:"version,omitempty"`
	Description string              `json:"description,omitempty"`
	Threshold   float64             `json:"threshold"`
	Imputation  profile.Imputation  `json:"imputation"`
	Denominator profile.Denominator `json:"denominator"`
	Categories  []categoryInfo      `json:"categories"`
	Default     bool                `json:"default"`
}

// requestError is a client mistake reported with a 4xx status.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, _ *http.Request) {
	names := s.ProfileNames()
	out := make([]profileInfo, 0, len(names))
	for _, n := range names {
		p := s.profiles[n]
		info := profileInfo{
			Name:        p.Name,
			Version:     p.Version,
			Description: p.Description,
			Threshold:   p.Threshold,
			Imputation:  p.Imputation,
			Denominator: p.Denominator,
			Default:     n == s.opts.DefaultProfile,
		}
		for _, c := range p.Categories {
			info.Categories = append(info.Categories, categoryInfo{Key: c.Key, Name: c.Name, Questions: c.Questions})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.profiles[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown profile "+strconv.Quote(name))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	req, ds, err := s.decode(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	prof, ok := s.profiles[req.Profile]
	if !ok {
		s.fail(w, &requestError{status: http.StatusNotFound, msg: "unknown profile " + strconv.Quote(req.Profile)})
		return
	}
	for _, key := range req.Categories {
		if _, ok := prof.Category(key); !ok {
			s.fail(w, badRequest("unknown category "+strconv.Quote(key)))
			return
		}
	}

	opts, err := scorer.OptionsFromConfig(s.opts.Scoring)
	if err != nil {
		s.fail(w, err)
		return
	}
	if t := req.Threshold; t != nil {
		if *t < 0 || *t > 100 || math.IsNaN(*t) {
			s.fail(w, badRequest("threshold must be between 0 and 100"))
			return
		}
		opts.Threshold = t
	}
	if req.Imputation != "" {
		if !profile.ValidImputation(profile.Imputation(req.Imputation)) {
			s.fail(w, badRequest("unknown imputation "+strconv.Quote(req.Imputation)))
			return
		}
		opts.Imputation = profile.Imputation(req.Imputation)
	}

	eng, err := scorer.NewEngine(prof, opts)
	if err != nil {
		s.fail(w, err)
		return
	}

	keys := req.Categories
	if len(keys) == 0 {
		keys = prof.CategoryKeys()
	}
	run, err := eng.ScoreCategories(r.Context(), ds, keys)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report.NewOutput(run, aggregate.Build(run, prof)))
}

func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	_, ds, err := s.decode(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":    ds.Len(),
		"missing": preprocess.MissingReport(ds),
	})
}

// decode reads the dataset from a JSON, CSV or XLSX body. For CSV and XLSX
// bodies the scoring options come from the query string.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (scoreRequest, *model.Dataset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req scoreRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var ds *model.Dataset
	var err error
	switch ct {
	case "text/csv", mimeXLSX:
		q := r.URL.Query()
		req.Profile = q.Get("profile")
		req.Imputation = q.Get("imputation")
		req.Categories = q["category"]
		if t := q.Get("threshold"); t != "" {
			v, perr := strconv.ParseFloat(t, 64)
			if perr != nil {
				return req, nil, badRequest("threshold must be a number")
			}
			req.Threshold = &v
		}
		format := "csv"
		if ct == mimeXLSX {
			format = "xlsx"
		}
		data, rerr := io.ReadAll(r.Body)
		if rerr != nil {
			return req, nil, bodyError(rerr)
		}
		ds, err = fetcher.Load(r.Context(), bytes.NewReader(data), format, s.opts.Input)
		var mErr *model.MalformedInputError
		if err != nil && !errors.As(err, &mErr) {
			err = badRequest(err.Error())
		}
	case "", "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var mErr *model.MalformedInputError
			if errors.As(err, &mErr) {
				return req, nil, mErr
			}
			return req, nil, bodyError(err)
		}
		ds, err = req.dataset()
	default:
		return req, nil, &requestError{status: http.StatusUnsupportedMediaType, msg: "unsupported content type " + strconv.Quote(ct)}
	}
	if err != nil {
		return req, nil, err
	}

	if req.Profile == "" {
		req.Profile = s.opts.DefaultProfile
	}
	return req, ds, nil
}

func bodyError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
	}
	return badRequest("invalid request body: " + err.Error())
}

// dataset builds the table carried by a JSON request.
func (req scoreRequest) dataset() (*model.Dataset, error) {
	switch {
	case len(req.Columns) > 0 && len(req.Records) > 0:
		return nil, badRequest("give either columns and rows or records, not both")
	case len(req.Columns) > 0:
		rows := make([][]string, len(req.Rows))
		for i, row := range req.Rows {
			rows[i] = make([]string, len(row))
			for j, v := range row {
				rows[i][j] = v.String()
			}
		}
		return model.NewDataset(req.Columns, rows)
	case len(req.Records) > 0:
		seen := make(map[string]bool)
		var cols []string
		for _, rec := range req.Records {
			for k := range rec {
				if !seen[k] {
					seen[k] = true
					cols = append(cols, k)
				}
			}
		}
		sort.Strings(cols)
		ds := &model.Dataset{Columns: cols, Records: req.Records}
		return ds, ds.Validate()
	default:
		return nil, badRequest("request has no dataset: set columns and rows, or records")
	}
}

// fail maps an error to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var reqErr *requestError
	var mErr *model.MalformedInputError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, reqErr.msg)
	case errors.As(err, &mErr):
		writeError(w, http.StatusBadRequest, mErr.Error())
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
