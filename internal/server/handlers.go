package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ppiankov/docket/internal/agreement"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/query"
)

// casesParams is the raw query string of /api/v1/cases
type casesParams struct {
	Justices         []string `validate:"dive,roster"`
	Mode             string   `validate:"omitempty,oneof=all majority dissent"`
	ExcludeUnanimous string   `validate:"omitempty,boolean"`
}

type paramValidator struct {
	validate *validator.Validate
}

func newParamValidator(roster model.Roster) (*paramValidator, error) {
	v := validator.New()
	err := v.RegisterValidation("roster", func(fl validator.FieldLevel) bool {
		return roster.Contains(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register roster validation: %w", err)
	}
	return &paramValidator{validate: v}, nil
}

func (p *paramValidator) check(params any) error {
	err := p.validate.Struct(params)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "boolean":
		return fmt.Sprintf("%s must be true or false", field)
	case "roster":
		return fmt.Sprintf("%s: unknown justice %q", field, e.Value())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Source  string `json:"source"`
	Records int    `json:"records"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Source:  s.snap.Source,
		Records: len(s.snap.Records),
	})
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.aggregator.Summarize(s.snap.Records))
}

func (s *Server) justices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.aggregator.JusticeStats(s.snap.Records))
}

func (s *Server) agreement(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, agreement.Compute(s.snap.Records, s.roster))
}

func (s *Server) splits(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.aggregator.VoteSplits(s.snap.Records))
}

func (s *Server) decisionTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.aggregator.DecisionTypes(s.snap.Records))
}

// caseView is a case as the explorer shows it
type caseView struct {
	CaseTitle          string   `json:"caseTitle"`
	Date               string   `json:"date,omitempty"`
	OpinionType        string   `json:"opinionType,omitempty"`
	VotingFor          []string `json:"votingFor"`
	ConcurringJustices []string `json:"concurringJustices,omitempty"`
	DissentingJustices []string `json:"dissentingJustices"`
	VotesFor           *int     `json:"votesFor,omitempty"`
	VotesAgainst       *int     `json:"votesAgainst,omitempty"`
	LinkURL            string   `json:"linkUrl,omitempty"`
}

type casesResponse struct {
	Justices         []string   `json:"justices"`
	Mode             query.Mode `json:"mode"`
	ExcludeUnanimous bool       `json:"exclude_unanimous"`
	Matched          int        `json:"matched"`
	Total            int        `json:"total"`
	Percent          float64    `json:"percent"`
	Summary          string     `json:"summary"`
	Cases            []caseView `json:"cases"`
}

func (s *Server) cases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := casesParams{
		Justices:         q["justice"],
		Mode:             q.Get("mode"),
		ExcludeUnanimous: q.Get("exclude_unanimous"),
	}
	if err := s.params.check(raw); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	mode, err := query.ParseMode(raw.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	exclude := false
	if raw.ExcludeUnanimous != "" {
		exclude, _ = strconv.ParseBool(raw.ExcludeUnanimous)
	}

	p := query.Params{Justices: raw.Justices, Mode: mode, ExcludeUnanimous: exclude}
	res := s.engine.Run(p)

	views := make([]caseView, 0, len(res.Cases))
	for _, c := range res.Cases {
		views = append(views, caseView{
			CaseTitle:          c.CaseTitle,
			Date:               c.Date,
			OpinionType:        c.OpinionType,
			VotingFor:          nonNil(c.VotingFor),
			ConcurringJustices: c.ConcurringJustices,
			DissentingJustices: nonNil(c.DissentingJustices),
			VotesFor:           c.VotesFor,
			VotesAgainst:       c.VotesAgainst,
			LinkURL:            c.LinkURL,
		})
	}

	respondJSON(w, http.StatusOK, casesResponse{
		Justices:         nonNil(raw.Justices),
		Mode:             mode,
		ExcludeUnanimous: exclude,
		Matched:          res.Matched,
		Total:            res.Total,
		Percent:          res.Percent,
		Summary:          query.Summary(p, res),
		Cases:            views,
	})
}

func (s *Server) integrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.checker.Check(s.snap.Records)
	if err != nil {
		s.logger.Error("integrity check failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Integrity check failed")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
