// Package dispatch runs the invocation pipeline: resolve the rule's
// argument, look up the plugin, serialize Action plugins against the
// session's driver handle, execute, and convert any execution failure into
// a structured response. Macro plugins skip the driver and report their
// result through the response entity. The dispatcher is the failure
// boundary between plugin code and the caller.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/g4-api/g4-plugins-go/pkg/history"
	"github.com/g4-api/g4-plugins-go/pkg/macro"
	"github.com/g4-api/g4-plugins-go/pkg/manifest"
	"github.com/g4-api/g4-plugins-go/pkg/metrics"
	"github.com/g4-api/g4-plugins-go/pkg/registry"
	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// History receives one record per completed invocation.
type History interface {
	Append(ctx context.Context, rec history.Record) error
}

// ParamSink receives the parameter channels of successful responses.
type ParamSink interface {
	Merge(sessionID string, application, session map[string]string)
}

// Dispatcher executes plugin invocations against borrowed session
// contexts.
type Dispatcher struct {
	reg      *registry.Registry
	resolver *macro.Resolver
	guards   *session.GuardSet
	params   ParamSink
	recorder metrics.Recorder
	history  History
	logger   *slog.Logger
	allow    []glob.Glob
	deny     []glob.Glob
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithParams wires the ambient parameter store the dispatcher merges
// response parameters into.
func WithParams(sink ParamSink) Option {
	return func(d *Dispatcher) { d.params = sink }
}

// WithMetrics wires an invocation metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(d *Dispatcher) { d.recorder = recorder }
}

// WithHistory wires the invocation audit log.
func WithHistory(h History) Option {
	return func(d *Dispatcher) { d.history = h }
}

// WithLogger overrides the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithInvocationPatterns restricts which plugin keys are invocable. A plugin
// is invocable when it matches some allow pattern (an empty allow list
// matches everything) and no deny pattern. Denied plugins surface as not
// found.
func WithInvocationPatterns(allow, deny []string) (Option, error) {
	compile := func(patterns []string) ([]glob.Glob, error) {
		globs := make([]glob.Glob, 0, len(patterns))
		for _, p := range patterns {
			g, err := glob.Compile(strings.ToLower(p))
			if err != nil {
				return nil, fmt.Errorf("invalid plugin pattern %q: %w", p, err)
			}
			globs = append(globs, g)
		}
		return globs, nil
	}
	allowGlobs, err := compile(allow)
	if err != nil {
		return nil, err
	}
	denyGlobs, err := compile(deny)
	if err != nil {
		return nil, err
	}
	return func(d *Dispatcher) {
		d.allow = allowGlobs
		d.deny = denyGlobs
	}, nil
}

// New creates a Dispatcher.
func New(reg *registry.Registry, resolver *macro.Resolver, guards *session.GuardSet, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:      reg,
		resolver: resolver,
		guards:   guards,
		recorder: metrics.NewNop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke runs one invocation through the pipeline. Errors raised before the
// plugin executes (resolution, lookup, guard timeout) are returned as errors
// and no driver interaction occurs. Failures raised by plugin logic are
// caught and returned as a failure-status response, never as an error.
func (d *Dispatcher) Invoke(ctx context.Context, pluginType manifest.Type, rule types.ActionRule, sess *session.Context) (*types.PluginResponse, error) {
	traceID := types.NewTraceID()
	logger := d.logger.With(
		slog.String("trace_id", traceID),
		slog.String("plugin", rule.PluginName),
		slog.String("session", sess.ID),
	)
	started := time.Now()

	response, err := d.invoke(ctx, logger, pluginType, rule, sess)

	status := types.StatusFailure
	var errText string
	if err != nil {
		errText = err.Error()
	} else {
		status = response.Status
		if response.Failed() && len(response.Exceptions) > 0 {
			errText = response.Exceptions[0].ReasonPhrase
		}
	}
	d.recorder.RecordInvocation(string(pluginType), rule.PluginName, status, time.Since(started))
	if d.history != nil {
		rec := history.Record{
			TraceID:    traceID,
			PluginType: string(pluginType),
			PluginName: rule.PluginName,
			SessionID:  sess.ID,
			Status:     status,
			Error:      errText,
			Duration:   time.Since(started),
			StartedAt:  started,
		}
		if histErr := d.history.Append(context.WithoutCancel(ctx), rec); histErr != nil {
			logger.Warn("failed to record invocation history", slog.Any("error", histErr))
		}
	}
	return response, err
}

func (d *Dispatcher) invoke(ctx context.Context, logger *slog.Logger, pluginType manifest.Type, rule types.ActionRule, sess *session.Context) (*types.PluginResponse, error) {
	logger.Debug("invocation received")
	hadToken := macro.HasToken(rule.Argument)

	// Resolving: macro failures abort before any driver interaction.
	if rule.Argument != "" {
		resolveStart := time.Now()
		resolved, err := d.resolver.Resolve(ctx, sess.ID, rule.Argument)
		if err != nil {
			d.recorder.RecordResolution(types.StatusFailure, time.Since(resolveStart))
			logger.Info("macro resolution failed", slog.Any("error", err))
			return nil, err
		}
		d.recorder.RecordResolution(types.StatusSuccess, time.Since(resolveStart))
		rule.Argument = resolved
	}

	// Dispatching: plugin lookup and the invocation allowlist. The
	// allowlist matches the canonical key, so aliases cannot bypass it.
	man, err := d.reg.ByTypeAndName(pluginType, rule.PluginName)
	if err != nil {
		logger.Info("plugin not found", slog.Any("error", err))
		return nil, err
	}
	if !d.invocable(man.Key) {
		return nil, &types.NotFoundError{Kind: "plugin", Name: rule.PluginName}
	}

	// Macro plugins run without a session guard or driver interaction and
	// report their scalar result through the response entity.
	if man.PluginType == manifest.TypeMacro {
		logger.Debug("executing macro", slog.String("key", man.Key))
		return d.executeMacro(man, &rule, hadToken)
	}

	factory, err := d.reg.ActionFactory(man.Key)
	if err != nil {
		return nil, err
	}

	release, err := d.guards.Acquire(ctx, sess.ID)
	if err != nil {
		logger.Info("session guard not acquired", slog.Any("error", err))
		return nil, err
	}
	defer release()

	// Executing: everything the plugin raises stays behind this boundary.
	logger.Debug("executing plugin", slog.String("key", man.Key))
	response := d.execute(ctx, factory(sess), man.Key, &rule)
	if response.Failed() {
		logger.Info("invocation failed", slog.String("key", man.Key))
		return response, nil
	}

	if d.params != nil {
		d.params.Merge(sess.ID, response.ApplicationParameters, response.SessionParameters)
	}
	logger.Debug("invocation completed")
	return response, nil
}

// executeMacro serves invocations of Macro plugins. When the rule's
// argument carried a token, the resolver has already invoked the macro and
// the resolved argument is the result; a bare invocation calls the macro
// directly with no arguments.
func (d *Dispatcher) executeMacro(man *manifest.Manifest, rule *types.ActionRule, resolved bool) (*types.PluginResponse, error) {
	result := rule.Argument
	if !resolved {
		impl, err := d.reg.Macro(man.Key)
		if err != nil {
			return nil, err
		}
		value, err := impl.Invoke(map[string]any{})
		if err != nil {
			return nil, err
		}
		result = value
	}
	response := types.NewPluginResponse()
	response.Entity[types.MacroResultKey] = result
	return response, nil
}

// execute calls the plugin and converts every failure mode, error returns
// and panics alike, into a failure-status response.
func (d *Dispatcher) execute(ctx context.Context, action registry.Action, key string, rule *types.ActionRule) (response *types.PluginResponse) {
	defer func() {
		if r := recover(); r != nil {
			err := &types.RuntimeError{PluginName: key, Err: fmt.Errorf("panic: %v", r)}
			response = types.NewPluginResponse().Fail(key, err)
		}
	}()

	result, err := action.Invoke(ctx, rule)
	if err != nil {
		return types.NewPluginResponse().Fail(key, &types.RuntimeError{PluginName: key, Err: err})
	}
	if result == nil {
		result = types.NewPluginResponse()
	}
	return result
}

func (d *Dispatcher) invocable(name string) bool {
	lower := strings.ToLower(name)
	for _, g := range d.deny {
		if g.Match(lower) {
			return false
		}
	}
	if len(d.allow) == 0 {
		return true
	}
	for _, g := range d.allow {
		if g.Match(lower) {
			return true
		}
	}
	return false
}
