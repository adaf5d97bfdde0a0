package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rewards/internal/core"
	"rewards/internal/log"
)

// transactionResponse is the body of a created transaction.
type transactionResponse struct {
	ID              int64       `json:"id"`
	CustomerID      int64       `json:"customerId"`
	Amount          json.Number `json:"amount"`
	TransactionDate core.Date   `json:"transactionDate"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		CustomerID:      t.CustomerID,
		Amount:          json.Number(core.FormatAmount(t.Amount.Decimal)),
		TransactionDate: t.OccurredOn,
	}
}

type pointsResponse struct {
	Amount json.Number `json:"amount"`
	Points int64       `json:"points"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.svc.Ready(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Storage readiness check failed", log.FieldError, err)
		checks["storage"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	if p, ok := s.idemStore.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["idempotency_store"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["idempotency_store"] = "ok"
		}
	}

	rl := s.rateLimiter.GetMetrics()
	tm := s.traceMiddleware.GetMetrics()
	checks["rate_limiter"] = map[string]any{"active_clients": rl.ClientCount, "hits": rl.TotalHits}
	checks["requests"] = map[string]any{"total": tm.TotalRequests, "failed": tm.FailedRequests}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleCustomerRewards(w http.ResponseWriter, r *http.Request) {
	id, err := ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	result, err := s.svc.GetRewardsForCustomer(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Body(result).Write(w)
}

func (s *Server) handleAllRewards(w http.ResponseWriter, r *http.Request) {
	req, err := ParsePageRequest(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	page, err := s.svc.GetRewardsForAllCustomers(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpList)
		return
	}
	NewJSONResponse().Body(page).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Malformed transaction body", log.FieldError, err)
		BadRequestError("Malformed request body").Write(w)
		return
	}

	in, perr := ParseTransactionInput(parser)
	if perr.HasErrors() {
		// Report missing fields alongside unparsable ones.
		if _, err := in.Validate(); err != nil {
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				for _, f := range verr.Fields {
					if !hasField(perr, f.Field) {
						perr.Add(f.Field, f.Message)
					}
				}
			}
		}
		ValidationErrorResponse(perr).Write(w)
		return
	}

	t, err := s.svc.CreateTransaction(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate)
		return
	}

	s.events.LogTransactionRecorded(r.Context(), t.ID, t.CustomerID, core.FormatAmount(t.Amount.Decimal), t.OccurredOn.String())
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(newTransactionResponse(t)).
		Write(w)
}

// handlePoints previews the points one purchase would earn.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		BadRequestError("amount is required").Write(w)
		return
	}
	amount, err := core.ParseAmount(raw)
	if errors.Is(err, core.ErrAmountTooLarge) {
		BadRequestError("amount must not exceed " + core.FormatAmount(core.MaxAmount)).Write(w)
		return
	}
	if err != nil {
		BadRequestError("amount must be a decimal number").Write(w)
		return
	}
	NewJSONResponse().Body(pointsResponse{
		Amount: json.Number(core.FormatAmount(amount)),
		Points: s.svc.PointsFor(amount),
	}).Write(w)
}

// writeServiceError maps domain errors to status codes. Unexpected errors
// are logged and hidden behind a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationErrorResponse(verr).Write(w)
	case errors.Is(err, core.ErrCustomerNotFound):
		NotFoundError("Customer not found").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Resource not found").Write(w)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(http.StatusServiceUnavailable, KindUnavailable, "Request timed out").Write(w)
	default:
		s.events.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
		InternalServerError().Write(w)
	}
}

func hasField(verr *core.ValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
