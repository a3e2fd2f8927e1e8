package relax

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-relax/pkg/activity"
	"github.com/goliatone/go-relax/pkg/metrics"
	"github.com/goliatone/go-relax/pkg/state"
)

// DefaultInstanceLimit is the number of live bindings sharing a unit name
// before the watchdog reports relax.too_many_instances.
const DefaultInstanceLimit = 20

// Option configures stores, bindings and providers. A binding starts from its
// store's configuration and applies its own options on top.
type Option func(*config)

type config struct {
	name            string
	engine          string
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	logger          Logger
	evaluatorLogger EvaluatorLogger
	activityHooks   activity.Hooks
	activityChannel string
	debug           bool
	registry        StoreRegistry
	metrics         metrics.Recorder
	instanceLimit   int
	warnUnsupported bool
	actions         map[string]Action
	actionOrder     []string
	persistence     *persistence
}

type persistence struct {
	store  state.Store[map[string]any]
	domain string
}

func defaultConfig() config {
	return config{
		logger:          noopLogger{},
		evaluatorLogger: noopEvaluatorLogger{},
		registry:        NoopRegistry{},
		metrics:         metrics.Noop{},
		instanceLimit:   DefaultInstanceLimit,
	}
}

func applyOptions(opts []Option) config {
	return defaultConfig().with(opts)
}

// with returns a copy of cfg with opts applied. Shared registries are cloned
// so options never write through to the parent configuration.
func (cfg config) with(opts []Option) config {
	out := cfg
	out.functions = cfg.functions.Clone()
	out.activityHooks = cfg.activityHooks.Clone()
	if len(cfg.actions) > 0 {
		out.actions = make(map[string]Action, len(cfg.actions))
		for name, action := range cfg.actions {
			out.actions[name] = action
		}
		out.actionOrder = append([]string(nil), cfg.actionOrder...)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

func (cfg config) emitter() *activity.Emitter {
	return activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: cfg.debug,
		Channel: cfg.activityChannel,
	})
}

// buildEvaluator honours an explicit evaluator first, then the engine name.
func (cfg config) buildEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.engine)) {
	case "", engineExpr:
		var opts []ExprEvaluatorOption
		if cfg.programCache != nil {
			opts = append(opts, ExprWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			opts = append(opts, ExprWithFunctionRegistry(cfg.functions))
		}
		return NewExprEvaluator(opts...), nil
	case engineCEL:
		var opts []CELEvaluatorOption
		if cfg.programCache != nil {
			opts = append(opts, CELWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			opts = append(opts, CELWithFunctionRegistry(cfg.functions))
		}
		return NewCELEvaluator(opts...), nil
	case engineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("relax: js engine requires the js_eval build tag")
		}
		var opts []JSEvaluatorOption
		if cfg.programCache != nil {
			opts = append(opts, JSWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			opts = append(opts, JSWithFunctionRegistry(cfg.functions))
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("relax: unknown evaluator engine %q", cfg.engine)
	}
}

// WithName names the store or binding in diagnostics and the store registry.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = strings.TrimSpace(name)
	}
}

// WithEvaluator sets the evaluator used for expression queries.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithEngineName selects a built-in evaluator: expr, cel or js.
func WithEngineName(engine string) Option {
	return func(cfg *config) {
		cfg.engine = engine
	}
}

// WithDebug enables activity emission for lifecycle diagnostics.
func WithDebug(enabled bool) Option {
	return func(cfg *config) {
		cfg.debug = enabled
	}
}

// WithActivityHooks attaches lifecycle hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel sets the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.activityChannel = channel
	}
}

// WithRegistry sets where providers register their store while mounted.
func WithRegistry(registry StoreRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			cfg.registry = NoopRegistry{}
			return
		}
		cfg.registry = registry
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(cfg *config) {
		if recorder == nil {
			cfg.metrics = metrics.Noop{}
			return
		}
		cfg.metrics = recorder
	}
}

// WithInstanceLimit overrides DefaultInstanceLimit. Zero or less disables the
// watchdog.
func WithInstanceLimit(limit int) Option {
	return func(cfg *config) {
		cfg.instanceLimit = limit
	}
}

// WithWarnUnsupported logs and reports dependencies that cannot be classified
// instead of dropping them silently.
func WithWarnUnsupported(enabled bool) Option {
	return func(cfg *config) {
		cfg.warnUnsupported = enabled
	}
}

// WithAction registers a store action. Later registrations of the same name
// replace earlier ones.
func WithAction(name string, action Action) Option {
	return func(cfg *config) {
		key := actionKey(name)
		if key == "" || action == nil {
			return
		}
		if cfg.actions == nil {
			cfg.actions = map[string]Action{}
		}
		if _, exists := cfg.actions[key]; !exists {
			cfg.actionOrder = append(cfg.actionOrder, key)
		}
		cfg.actions[key] = action
	}
}

// WithPersistence makes providers restore their store from store on creation
// and save it after every sync, keyed by domain and provider name.
func WithPersistence(store state.Store[map[string]any], domain string) Option {
	return func(cfg *config) {
		if store == nil {
			cfg.persistence = nil
			return
		}
		cfg.persistence = &persistence{store: store, domain: strings.TrimSpace(domain)}
	}
}
