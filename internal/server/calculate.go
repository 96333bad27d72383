package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/d-led/iiwsit/pkg/decision"
	"github.com/d-led/iiwsit/pkg/units"
)

// CalculateResponse represents the response from a single evaluation.
//
//nolint:govet // fieldalignment: API struct field order optimized for readability
type CalculateResponse struct {
	RequestID   string             `json:"request_id"`
	Result      decision.Formatted `json:"result"`
	Mode        decision.Mode      `json:"mode"`
	Factors     []decision.Factor  `json:"factors"`
	Explanation string             `json:"explanation"`
	Message     string             `json:"message"`
	FactorsText string             `json:"factors_summary"`
	Timestamp   time.Time          `json:"timestamp"`
	Commit      string             `json:"commit"`
}

// BatchScenario is one named scenario in a batch request. Params is merged
// over the defaults, so it may list only the inputs that differ.
type BatchScenario struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

// BatchRequest represents a request to evaluate several scenarios at once.
type BatchRequest struct {
	Scenarios []BatchScenario `json:"scenarios"`
}

// BatchItem is the outcome of one scenario. Exactly one of Result and Error is set.
//
//nolint:govet // fieldalignment: API struct field order optimized for readability
type BatchItem struct {
	Name   string                `json:"name"`
	Index  int                   `json:"index"`
	Result *decision.Formatted   `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
	Fields []decision.FieldError `json:"fields,omitempty"`
}

// BatchResponse represents the response from a batch evaluation.
//
//nolint:govet // fieldalignment: API struct field order optimized for readability
type BatchResponse struct {
	RequestID string      `json:"request_id"`
	Results   []BatchItem `json:"results"`
	Evaluated int         `json:"evaluated"`
	Skipped   int         `json:"skipped"`
	Timestamp time.Time   `json:"timestamp"`
	Commit    string      `json:"commit"`
}

// handleCalculate evaluates one set of inputs from the query string (GET) or JSON body (POST).
func (s *Server) handleCalculate(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	s.logger.InfoContext(ctx, "[handleCalculate] Incoming request",
		"client_ip", clientIP(request), "method", request.Method, "path", request.URL.Path, "request_id", requestID(ctx))

	if !s.allow(writer, request, "handleCalculate") {
		return
	}

	params, err := s.parseParams(ctx, request)
	if err != nil {
		s.logger.WarnContext(ctx, "[handleCalculate] Failed to parse request", "remote_addr", request.RemoteAddr, errorKey, err)
		s.writeError(writer, request, err)
		return
	}

	if err := decision.Validate(params); err != nil {
		s.logger.WarnContext(ctx, "[handleCalculate] Invalid parameters", "remote_addr", request.RemoteAddr, errorKey, err)
		s.writeError(writer, request, err)
		return
	}

	response := s.processCalculate(ctx, params)
	s.writeJSON(writer, request, http.StatusOK, response, "handleCalculate")

	s.logger.InfoContext(ctx, "[handleCalculate] Request completed",
		"decision", response.Result.Decision, "confidence", response.Result.Confidence, "mode", response.Mode)
}

// processCalculate runs the engine and assembles the response.
func (s *Server) processCalculate(ctx context.Context, params decision.Params) *CalculateResponse {
	result := decision.Calculate(params)
	s.metrics.observeResult(result)

	return &CalculateResponse{
		RequestID:   requestID(ctx),
		Result:      result.Format(),
		Mode:        result.Mode,
		Factors:     result.Factors,
		Explanation: decision.ConfidenceExplanation(result.Confidence),
		Message:     decision.ConfidenceMessage(result.Confidence, result.Decision, params.OptimizationPreference),
		FactorsText: decision.ConfidenceFactorsText(params.OptimizationPreference, params.HasFailureRates()),
		Timestamp:   time.Now(),
		Commit:      s.serverCommit,
	}
}

// parseParams reads inputs merged over the defaults.
func (s *Server) parseParams(ctx context.Context, r *http.Request) (decision.Params, error) {
	if r.Method == http.MethodGet {
		return parseParamsFromQuery(r.URL.Query())
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestSize)

	params := decision.DefaultParams()
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.logger.ErrorContext(ctx, "[parseParams] Failed to decode JSON", errorKey, err)
		return params, &RequestError{
			Err:        fmt.Errorf("%w: %w", ErrInvalidRequest, err),
			Message:    fmt.Sprintf("invalid JSON: %v", err),
			StatusCode: http.StatusBadRequest,
		}
	}
	return params, nil
}

// queryFloat fields are numeric inputs accepted in the query string.
var queryFloat = map[string]func(*decision.Params, float64){
	"rate":                   func(p *decision.Params, v float64) { p.Rate = v },
	"duration":               func(p *decision.Params, v float64) { p.Duration = v },
	"speedGain":              func(p *decision.Params, v float64) { p.SpeedGain = v },
	"maintenance":            func(p *decision.Params, v float64) { p.Maintenance = v },
	"implementationTime":     func(p *decision.Params, v float64) { p.ImplementationTime = v },
	"timeHorizon":            func(p *decision.Params, v float64) { p.TimeHorizon = v },
	"computeCostPerHour":     func(p *decision.Params, v float64) { p.ComputeCostPerHour = v },
	"developerHourlyRate":    func(p *decision.Params, v float64) { p.DeveloperHourlyRate = v },
	"optimizationPreference": func(p *decision.Params, v float64) { p.OptimizationPreference = v },
	"currentFailure":         func(p *decision.Params, v float64) { p.CurrentFailure = &v },
	"bugFailure":             func(p *decision.Params, v float64) { p.BugFailure = &v },
}

// parseParamsFromQuery overlays query parameters on the defaults. Unit names
// are taken as given and checked by validation; numbers must parse.
func parseParamsFromQuery(query url.Values) (decision.Params, error) {
	params := decision.DefaultParams()

	var bad []decision.FieldError
	for name, set := range queryFloat {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			bad = append(bad, decision.FieldError{Field: name, Rule: "number"})
			continue
		}
		set(&params, v)
	}
	if len(bad) > 0 {
		// Map iteration order is random.
		slices.SortFunc(bad, func(a, b decision.FieldError) int { return strings.Compare(a.Field, b.Field) })
		return params, &RequestError{
			Err:        ErrInvalidRequest,
			Message:    "invalid number in query",
			Fields:     bad,
			StatusCode: http.StatusBadRequest,
		}
	}

	if v := query.Get("rateUnit"); v != "" {
		params.RateUnit = units.RateUnit(v)
	}
	if v := query.Get("durationUnit"); v != "" {
		params.DurationUnit = units.TimeUnit(v)
	}
	if v := query.Get("maintenanceUnit"); v != "" {
		params.MaintenanceUnit = units.MaintenanceUnit(v)
	}
	if v := query.Get("timeHorizonUnit"); v != "" {
		params.TimeHorizonUnit = units.HorizonUnit(v)
	}

	return params, nil
}

// handleBatch evaluates several named scenarios in one request.
func (s *Server) handleBatch(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	s.logger.InfoContext(ctx, "[handleBatch] Incoming request",
		"client_ip", clientIP(request), "request_id", requestID(ctx))

	if !s.allow(writer, request, "handleBatch") {
		return
	}

	scenarios, err := s.parseBatchRequest(ctx, request)
	if err != nil {
		s.logger.WarnContext(ctx, "[handleBatch] Failed to parse request", "remote_addr", request.RemoteAddr, errorKey, err)
		s.writeError(writer, request, err)
		return
	}

	response, err := s.processBatch(ctx, scenarios)
	if err != nil {
		s.logger.ErrorContext(ctx, "[handleBatch] Error processing request", "remote_addr", request.RemoteAddr, errorKey, err)
		s.writeError(writer, request, err)
		return
	}

	s.writeJSON(writer, request, http.StatusOK, response, "handleBatch")

	s.logger.InfoContext(ctx, "[handleBatch] Request completed",
		"evaluated", response.Evaluated, "skipped", response.Skipped)
}

// parseBatchRequest decodes the scenarios, merging each over the defaults.
func (s *Server) parseBatchRequest(ctx context.Context, r *http.Request) ([]decision.Scenario, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestSize)

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.ErrorContext(ctx, "[parseBatchRequest] Failed to decode JSON", errorKey, err)
		return nil, &RequestError{
			Err:        fmt.Errorf("%w: %w", ErrInvalidRequest, err),
			Message:    fmt.Sprintf("invalid JSON: %v", err),
			StatusCode: http.StatusBadRequest,
		}
	}

	if len(req.Scenarios) == 0 {
		return nil, &RequestError{Err: decision.ErrNoScenarios, Message: decision.ErrNoScenarios.Error(), StatusCode: http.StatusBadRequest}
	}
	if len(req.Scenarios) > MaxBatchScenarios {
		return nil, &RequestError{
			Err:        ErrBatchTooLarge,
			Message:    fmt.Sprintf("%v: %d (max %d)", ErrBatchTooLarge, len(req.Scenarios), MaxBatchScenarios),
			StatusCode: http.StatusBadRequest,
		}
	}

	scenarios := make([]decision.Scenario, len(req.Scenarios))
	for i, sc := range req.Scenarios {
		params := decision.DefaultParams()
		if len(sc.Params) > 0 {
			if err := json.Unmarshal(sc.Params, &params); err != nil {
				return nil, &RequestError{
					Err:        fmt.Errorf("%w: %w", ErrInvalidRequest, err),
					Message:    fmt.Sprintf("scenario %d: invalid params: %v", i, err),
					StatusCode: http.StatusBadRequest,
				}
			}
		}
		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("scenario-%d", i+1)
		}
		scenarios[i] = decision.Scenario{Name: name, Params: params}
	}
	return scenarios, nil
}

// processBatch evaluates the scenarios. Invalid scenarios are reported per item;
// the request only fails when it was cancelled before anything was evaluated.
func (s *Server) processBatch(ctx context.Context, scenarios []decision.Scenario) (*BatchResponse, error) {
	result, err := decision.Evaluate(ctx, &decision.BatchRequest{
		Scenarios:   scenarios,
		Logger:      s.logger,
		Concurrency: s.batchConcurrency,
	})
	if result == nil {
		return nil, err
	}
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("batch cancelled: %w", ctx.Err())
	}

	response := &BatchResponse{
		RequestID: requestID(ctx),
		Results:   make([]BatchItem, len(result.Outcomes)),
		Evaluated: result.Evaluated,
		Skipped:   result.Skipped,
		Timestamp: time.Now(),
		Commit:    s.serverCommit,
	}
	for i, o := range result.Outcomes {
		item := BatchItem{Name: o.Name, Index: o.Index}
		if o.Err != nil {
			item.Error = o.Err.Error()
			var verr *decision.ValidationError
			if errors.As(o.Err, &verr) {
				item.Error = decision.ErrInvalidParams.Error()
				item.Fields = verr.Fields
			}
		} else {
			s.metrics.observeResult(o.Result)
			formatted := o.Result.Format()
			item.Result = &formatted
		}
		response.Results[i] = item
	}
	return response, nil
}

// handleDefaults returns the default inputs.
func (s *Server) handleDefaults(writer http.ResponseWriter, request *http.Request) {
	if !s.allow(writer, request, "handleDefaults") {
		return
	}
	s.writeJSON(writer, request, http.StatusOK, decision.DefaultParams(), "handleDefaults")
}
