package relax

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-relax/pkg/activity"
)

func TestLoadConfig(t *testing.T) {
	doc := `
name: todos
debug: true
engine: cel
instance_limit: 5
warn_unsupported: true
activity:
  channel: ui
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "todos" || !cfg.Debug || cfg.Engine != "cel" || !cfg.WarnUnsupported {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.InstanceLimit == nil || *cfg.InstanceLimit != 5 {
		t.Fatalf("expected instance limit 5, got %v", cfg.InstanceLimit)
	}
	if cfg.Activity.Channel != "ui" {
		t.Fatalf("expected channel ui, got %q", cfg.Activity.Channel)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	applied := applyOptions(opts)
	if applied.name != "todos" || !applied.debug || applied.engine != "cel" || applied.instanceLimit != 5 || !applied.warnUnsupported {
		t.Fatalf("options not applied: %+v", applied)
	}
	if applied.activityChannel != "ui" {
		t.Fatalf("expected channel ui, got %q", applied.activityChannel)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	if _, err := LoadConfig(strings.NewReader("nmae: typo\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadConfigEmptyDocument(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if applied := applyOptions(opts); applied.instanceLimit != DefaultInstanceLimit {
		t.Fatalf("expected default instance limit, got %d", applied.instanceLimit)
	}
}

func TestConfigOptionsValidation(t *testing.T) {
	negative := -1
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown engine", Config{Engine: "lua"}},
		{"negative limit", Config{InstanceLimit: &negative}},
	}
	if !JSEvaluatorAvailable() {
		cases = append(cases, struct {
			name string
			cfg  Config
		}{"js without build tag", Config{Engine: "js"}})
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.cfg.Options(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relax.yaml")
	if err := os.WriteFile(path, []byte("name: files\nengine: expr\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "files" || cfg.Engine != "expr" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestBindingInheritsStoreConfig(t *testing.T) {
	hook := &activity.CaptureHook{}
	store := NewStore(nil, WithName("shared"), WithDebug(true), WithActivityHooks(activity.Hooks{hook}), WithActivityChannel("ui"))
	b := NewBinding(Unit{Name: uniqueName(t)}, store, nil, nil)
	defer b.Unmount()
	if err := b.WillMount(); err != nil {
		t.Fatalf("will mount: %v", err)
	}
	events := hook.Snapshot()
	if len(events) != 1 || events[0].Channel != "ui" || events[0].Store != "shared" {
		t.Fatalf("binding should inherit debug, hooks and channel, got %+v", events)
	}

	quiet := NewBinding(Unit{Name: uniqueName(t)}, store, nil, nil, WithDebug(false))
	defer quiet.Unmount()
	_ = quiet.WillMount()
	if len(hook.Snapshot()) != 1 {
		t.Fatalf("binding options override the store configuration")
	}
	if store.Name() != "shared" {
		t.Fatalf("binding options must not write through to the store")
	}
}
