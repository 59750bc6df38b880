package cascade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskmith/taskmith/config"
	"github.com/taskmith/taskmith/model"
	"github.com/taskmith/taskmith/provider"
)

// cascadeOrder is the fixed fallback chain. A call starting at any role
// walks the suffix of this list beginning at that role.
var cascadeOrder = []config.Role{config.RoleMain, config.RoleFallback, config.RoleResearch}

// Retry defaults. One retry with exponential backoff from half a second
// covers the common transient failures (rate limits, overload) without
// stalling interactive runs.
const (
	defaultRetries = 1
	defaultBackoff = 500 * time.Millisecond
)

// ConfigSource supplies role bindings and credentials. The file-backed
// implementation is FileConfig; tests substitute fakes.
type ConfigSource interface {
	// Resolve returns the provider/model binding for a role.
	// config.ErrNoProviderForRole means the role is unbound and the
	// cascade should advance past it.
	Resolve(role config.Role) (config.Resolved, error)

	// APIKey returns the credential for a provider and whether a usable
	// one was found. It is only consulted for providers that require a
	// key; credential-free providers are never asked.
	APIKey(providerID string) (string, bool)
}

// FileConfig is the ConfigSource backed by the project's configuration
// file, the session overrides, the process environment, and the
// project .env file. An empty Root means no project context: built-in
// role defaults and environment credentials only.
type FileConfig struct {
	Root    string
	Session *config.Session
}

func (f FileConfig) Resolve(role config.Role) (config.Resolved, error) {
	return config.ResolveRole(role, f.Root)
}

func (f FileConfig) APIKey(providerID string) (string, bool) {
	return config.APIKey(providerID, f.Session, f.Root)
}

// ClientFactory creates a provider client by id. The default uses the
// provider registry with an empty Config.
type ClientFactory func(providerID string) (provider.Client, error)

// ExhaustedError reports that every role in the chain was skipped or
// failed. Attempted lists the roles whose providers were actually
// called, in cascade order; it is empty when every role was skipped
// before any call was made. Last is the final underlying failure, nil
// under the same condition.
type ExhaustedError struct {
	Start     config.Role
	Attempted []config.Role
	Last      error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("all configured roles failed or were skipped (cascade from %q)", e.Start)
	if len(e.Attempted) > 0 {
		names := make([]string, len(e.Attempted))
		for i, r := range e.Attempted {
			names[i] = string(r)
		}
		msg += "; attempted " + strings.Join(names, ", ")
	}
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Orchestrator runs generation calls through the role cascade.
type Orchestrator struct {
	cfg     ConfigSource
	factory ClientFactory
	logger  *slog.Logger
	tracker *model.CostTracker
	prices  model.PriceTable
	retries int
	backoff time.Duration

	// sleep is swapped out by tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracker sets the cost tracker receiving usage records.
func WithTracker(t *model.CostTracker) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracker = t
		}
	}
}

// WithPrices sets the price table used to cost usage records.
func WithPrices(p model.PriceTable) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.prices = p
		}
	}
}

// WithClientFactory overrides client construction. Tests use this to
// inject mocks without touching the provider registry.
func WithClientFactory(f ClientFactory) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithRetries sets the per-role retry count for transient and content
// errors.
func WithRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithBackoff sets the base backoff delay. Each retry doubles it.
func WithBackoff(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.backoff = d
		}
	}
}

// New creates an orchestrator over the given configuration source.
func New(cfg ConfigSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		factory: func(providerID string) (provider.Client, error) {
			return provider.New(providerID, provider.Config{})
		},
		logger:  slog.Default(),
		tracker: model.NewCostTracker(),
		prices:  model.DefaultPrices,
		retries: defaultRetries,
		backoff: defaultBackoff,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Tracker returns the cost tracker recording this orchestrator's usage.
func (o *Orchestrator) Tracker() *model.CostTracker {
	return o.tracker
}

// TextResult is a successful text generation together with the usage
// record the telemetry tracker stored for it.
type TextResult struct {
	provider.Response

	// Record is the telemetry record for this call.
	Record model.UsageRecord
}

// ObjectResult is a successful structured generation together with the
// usage record the telemetry tracker stored for it.
type ObjectResult struct {
	provider.ObjectResponse

	// Record is the telemetry record for this call.
	Record model.UsageRecord
}

// GenerateText runs a text generation call through the cascade starting
// at the given role.
func (o *Orchestrator) GenerateText(ctx context.Context, role config.Role, messages []provider.Message) (*TextResult, error) {
	var resp *provider.Response
	rec, err := o.run(ctx, role, func(ctx context.Context, client provider.Client, req provider.Request) (provider.TokenUsage, error) {
		req.Messages = messages
		r, err := client.GenerateText(ctx, req)
		if err != nil {
			return provider.TokenUsage{}, err
		}
		resp = r
		return r.Usage, nil
	})
	if err != nil {
		return nil, err
	}
	return &TextResult{Response: *resp, Record: rec}, nil
}

// GenerateObject runs a structured generation call through the cascade.
// Schema-validation and malformed-output failures count as retryable:
// the call is re-invoked, since a fresh completion may satisfy the
// schema where the last one did not.
func (o *Orchestrator) GenerateObject(ctx context.Context, role config.Role, messages []provider.Message, schemaJSON json.RawMessage, objectName string) (*ObjectResult, error) {
	var resp *provider.ObjectResponse
	rec, err := o.run(ctx, role, func(ctx context.Context, client provider.Client, req provider.Request) (provider.TokenUsage, error) {
		objReq := provider.ObjectRequest{
			Request:    req,
			Schema:     schemaJSON,
			ObjectName: objectName,
		}
		objReq.Messages = messages
		r, err := client.GenerateObject(ctx, objReq)
		if err != nil {
			return provider.TokenUsage{}, err
		}
		resp = r
		return r.Usage, nil
	})
	if err != nil {
		return nil, err
	}
	return &ObjectResult{ObjectResponse: *resp, Record: rec}, nil
}

// attemptFunc performs one provider call and reports its token usage.
type attemptFunc func(ctx context.Context, client provider.Client, req provider.Request) (provider.TokenUsage, error)

// run walks the cascade from the starting role until one role's call
// succeeds or the chain is exhausted. On success it returns the usage
// record stored with the tracker.
func (o *Orchestrator) run(ctx context.Context, start config.Role, attempt attemptFunc) (model.UsageRecord, error) {
	if !start.Valid() {
		return model.UsageRecord{}, fmt.Errorf("unknown role %q", start)
	}

	var lastErr error
	var attempted []config.Role
	for _, role := range rolesFrom(start) {
		resolved, err := o.cfg.Resolve(role)
		if err != nil {
			if errors.Is(err, config.ErrNoProviderForRole) {
				o.logger.Debug("role has no provider binding, advancing", "role", role)
				continue
			}
			// A present-but-broken config file is fatal, not skippable.
			return model.UsageRecord{}, err
		}

		var key *string
		if provider.RequiresAPIKey(resolved.ProviderID) {
			k, ok := o.cfg.APIKey(resolved.ProviderID)
			if !ok {
				o.logger.Warn(fmt.Sprintf("Skipping role '%s' (Provider: %s): API key not set or invalid.", role, resolved.ProviderID))
				continue
			}
			key = &k
		}

		attempted = append(attempted, role)

		client, err := o.factory(resolved.ProviderID)
		if err != nil {
			lastErr = err
			o.logger.Error(fmt.Sprintf("Service call failed for role %s", role),
				"provider", resolved.ProviderID, "error", err)
			continue
		}

		req := provider.Request{
			APIKey:      key,
			Model:       resolved.ModelID,
			MaxTokens:   resolved.Params.MaxTokens,
			Temperature: resolved.Params.Temperature,
		}

		usage, err := o.attemptWithRetry(ctx, client, req, attempt)
		client.Close()
		if err != nil {
			lastErr = err
			o.logger.Error(fmt.Sprintf("Service call failed for role %s", role),
				"provider", resolved.ProviderID, "model", resolved.ModelID, "error", err)
			continue
		}

		rec := model.NewUsageRecord(o.prices, string(role), resolved.ProviderID, resolved.ModelID, usage)
		o.tracker.Record(rec)
		o.logger.Log(ctx, LevelSuccess, "generation call succeeded",
			"role", role, "provider", resolved.ProviderID, "model", resolved.ModelID,
			"tokens", usage.TotalTokens)
		return rec, nil
	}

	return model.UsageRecord{}, &ExhaustedError{Start: start, Attempted: attempted, Last: lastErr}
}

// attemptWithRetry calls attempt, retrying transient and content errors
// up to the configured retry count with doubling backoff.
func (o *Orchestrator) attemptWithRetry(ctx context.Context, client provider.Client, req provider.Request, attempt attemptFunc) (provider.TokenUsage, error) {
	delay := o.backoff
	for try := 0; ; try++ {
		usage, err := attempt(ctx, client, req)
		if err == nil {
			return usage, nil
		}
		if try >= o.retries {
			return provider.TokenUsage{}, err
		}
		if !provider.IsRetryable(err) && !provider.IsContentError(err) {
			return provider.TokenUsage{}, err
		}
		if ctx.Err() != nil {
			return provider.TokenUsage{}, ctx.Err()
		}

		o.logger.Info("retryable error detected, retrying",
			"provider", client.Provider(), "attempt", try+1, "delay", delay, "error", err)
		o.sleep(delay)
		delay *= 2
	}
}

// rolesFrom returns the suffix of the cascade order starting at role.
func rolesFrom(role config.Role) []config.Role {
	for i, r := range cascadeOrder {
		if r == role {
			return cascadeOrder[i:]
		}
	}
	return []config.Role{role}
}
