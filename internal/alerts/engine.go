package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalcerwatch/kalcerwatch/internal/config"
	"github.com/kalcerwatch/kalcerwatch/internal/contacts"
	"github.com/kalcerwatch/kalcerwatch/internal/telemetry"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Condition  string     `json:"condition"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Source supplies the reading the engine evaluates on every tick.
type Source interface {
	Current(ctx context.Context) (telemetry.Reading, error)
}

// Recipients lists the emergency contacts Telegram notifications go to.
type Recipients interface {
	DeviceList(ctx context.Context) ([]contacts.DeviceContact, error)
}

// Engine evaluates alert rules against the wearable's current reading and
// delivers webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	recipients  Recipients
	client      *http.Client
	telegramAPI string

	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts
	onFire   func(Alert)
	inflight sync.WaitGroup
}

// New creates an Engine from the alert configuration. recipients may be nil,
// in which case Telegram targets are skipped.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig, recipients Recipients) *Engine {
	return &Engine{
		recipients:  recipients,
		client:      &http.Client{Timeout: 10 * time.Second},
		telegramAPI: defaultTelegramAPI,
		rules:       cfg.Rules,
		webhooks:    cfg.Webhooks,
		active:      make(map[string]*Alert),
		lastFire:    make(map[string]time.Time),
	}
}

// OnFire registers fn to be called for every alert that fires.
func (e *Engine) OnFire(fn func(Alert)) {
	e.mu.Lock()
	e.onFire = fn
	e.mu.Unlock()
}

// SetRules replaces rules and webhook targets, typically after a config reload.
// Active alerts whose rule no longer exists are dropped.
func (e *Engine) SetRules(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		names[r.Name] = true
	}
	for name := range e.active {
		if !names[name] {
			delete(e.active, name)
			delete(e.lastFire, name)
		}
	}
}

// Evaluate tests all configured rules against r.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(r telemetry.Reading) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := time.Now()
	for _, rule := range rules {
		fires, value := evalCondition(rule.Condition, r)
		if fires {
			e.fire(rule, value, now)
		} else {
			e.resolve(rule, now)
		}
	}
}

func (e *Engine) fire(rule config.AlertRule, value float64, now time.Time) {
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	e.mu.Lock()
	if last, ok := e.lastFire[rule.Name]; ok && now.Sub(last) <= cooldown {
		e.mu.Unlock()
		return
	}
	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        uuid.NewString(),
		RuleName:  rule.Name,
		Condition: rule.Condition,
		Severity:  sev,
		Value:     value,
		Message:   fmt.Sprintf("[%s] %s fired: %s (value %.2f)", sev, rule.Name, rule.Condition, value),
		FiredAt:   now,
		State:     "firing",
	}
	e.active[rule.Name] = a
	e.lastFire[rule.Name] = now
	alertCopy := *a
	onFire := e.onFire
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Warn("alert fired",
		"rule", rule.Name,
		"value", value,
		"severity", sev,
	)
	if onFire != nil {
		onFire(alertCopy)
	}
	e.dispatch(webhooks, &alertCopy)
}

func (e *Engine) resolve(rule config.AlertRule, now time.Time) {
	e.mu.Lock()
	a, ok := e.active[rule.Name]
	if !ok || a.State != "firing" {
		e.mu.Unlock()
		return
	}
	resolved := now
	a.State = "resolved"
	a.ResolvedAt = &resolved
	delete(e.active, rule.Name)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	alertCopy := *a
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Info("alert resolved", "rule", rule.Name)
	e.dispatch(webhooks, &alertCopy)
}

func (e *Engine) dispatch(webhooks []config.WebhookConfig, a *Alert) {
	if len(webhooks) == 0 {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.deliver(webhooks, a)
	}()
}

// Wait blocks until all in-flight webhook deliveries have finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *Alert) int {
		return b.FiredAt.Compare(a.FiredAt)
	})
	return out
}

// Run evaluates the source's current reading every interval until ctx is
// cancelled. Read failures are logged and the tick is skipped.
func (e *Engine) Run(ctx context.Context, src Source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r, err := src.Current(ctx)
			if err != nil {
				slog.Warn("alerts: read current reading", "err", err)
				continue
			}
			e.Evaluate(r)
		}
	}
}
