// Package orchestrator decides whether a consultation can be answered from
// the local rule set or must be escalated to the remote generative model,
// and executes remote calls against a ranked pool of (credential, model)
// slots with cooldown and failure isolation.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pocketmedic/triage-gateway/internal/conversation"
	"github.com/pocketmedic/triage-gateway/internal/metrics"
	"github.com/pocketmedic/triage-gateway/internal/provider"
	"github.com/pocketmedic/triage-gateway/internal/quickreply"
	"github.com/pocketmedic/triage-gateway/internal/session"
	"github.com/pocketmedic/triage-gateway/internal/triage"
)

const (
	// DefaultCooldown is applied to a slot after a rate-limit fault.
	DefaultCooldown = 5 * time.Minute
	// DefaultMaxResponseLen truncates remote answers for chat delivery.
	DefaultMaxResponseLen = 2000

	historyWindow = 5
)

type slotState int

const (
	slotAvailable slotState = iota
	slotFailed
	slotCooling
)

// slot is one (credential, model) pair. Ranking is credential index outer,
// model index inner; the pool is walked in that fixed order, never
// load-balanced.
type slot struct {
	credIdx       int
	model         string
	client        provider.Client
	state         slotState
	cooldownUntil time.Time
}

// HistorySource supplies recent session messages for prompt context.
type HistorySource interface {
	History(userID string, limit int) []session.Message
}

// Status is a read-only snapshot of the slot pool.
type Status struct {
	CurrentSlot  string
	PoolSize     int
	Available    int
	Failed       int
	CoolingDown  int
	Credentials  int
	Models       int
	CurrentModel string
}

// Options configures the orchestrator. Credentials and Models are ranked;
// the pool is their cross product.
type Options struct {
	Credentials    []string
	Models         []string
	Factory        provider.Factory
	Cooldown       time.Duration
	MaxResponseLen int
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Orchestrator owns the fallback pool plus the local-answer decision.
// Slot bookkeeping happens in short critical sections; the mutex is never
// held across a remote call.
type Orchestrator struct {
	mu      sync.Mutex
	slots   []*slot
	current int

	matcher       *quickreply.Matcher
	conversations *conversation.Store
	history       HistorySource

	cooldown time.Duration
	maxLen   int
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the orchestrator. The pool is the ranked cross product of
// credentials and models; the current pointer starts at the first slot.
func New(opts Options, matcher *quickreply.Matcher, conversations *conversation.Store, history HistorySource) (*Orchestrator, error) {
	if len(opts.Credentials) == 0 {
		return nil, fmt.Errorf("orchestrator: at least one credential is required")
	}
	if len(opts.Models) == 0 {
		return nil, fmt.Errorf("orchestrator: at least one model is required")
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("orchestrator: provider factory is required")
	}

	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	maxLen := opts.MaxResponseLen
	if maxLen <= 0 {
		maxLen = DefaultMaxResponseLen
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var slots []*slot
	for credIdx, key := range opts.Credentials {
		for _, model := range opts.Models {
			slots = append(slots, &slot{
				credIdx: credIdx,
				model:   model,
				client:  opts.Factory(key, model),
			})
		}
	}

	o := &Orchestrator{
		slots:         slots,
		matcher:       matcher,
		conversations: conversations,
		history:       history,
		cooldown:      cooldown,
		maxLen:        maxLen,
		timeout:       opts.RequestTimeout,
		logger:        logger,
		now:           time.Now,
	}
	o.publishGauges()
	return o, nil
}

// Query routes one consultation. The returned text is always user-ready:
// remote faults degrade to a service message, never to an error.
func (o *Orchestrator) Query(ctx context.Context, userID, message string, tri triage.Result) string {
	state := o.conversations.Update(userID, message, &tri.Level)

	ack, escalate := o.localDecision(message, state)
	if !escalate {
		metrics.QuickRepliesTotal.Inc()
		return ack
	}

	prompt := o.buildPrompt(userID, message, tri, state)
	answer, ok := o.callWithFallback(ctx, prompt)
	if !ok {
		metrics.PoolExhaustedTotal.Inc()
		answer = o.degradedMessage()
	}

	if ack != "" {
		return ack + "\n\n" + answer
	}
	return answer
}

// localDecision mirrors the quick-reply contract: a canned reply with no
// full-AI requirement answers the message outright; emergencies and
// professional-judgment cases keep the canned text as an acknowledgment and
// still escalate.
func (o *Orchestrator) localDecision(message string, state conversation.State) (ack string, escalate bool) {
	if reply, ok := o.matcher.Contextual(message, state.MessageCount); ok {
		if reply.Level == triage.LevelEmergency || reply.RequiresFullAI {
			return reply.Text, true
		}
		text := reply.Text
		if reply.FollowUp != "" {
			text += " " + reply.FollowUp
		}
		return text, false
	}

	if state.Mode == conversation.ModeEmergency {
		return emergencyAck, true
	}
	if o.matcher.IsEmergencyKeyword(message) {
		return concernAck, true
	}
	return "", true
}

// callWithFallback walks the pool once, starting at the current slot,
// honoring failure and cooldown marks. At most one full pass is made; a
// slot is never attempted twice within the pass even when its failure left
// the slot state untouched.
func (o *Orchestrator) callWithFallback(ctx context.Context, prompt string) (string, bool) {
	size := len(o.slots)
	tried := make(map[int]bool, size)
	for step := 0; step < size; step++ {
		idx, ok := o.nextAvailable(tried)
		if !ok {
			break
		}
		tried[idx] = true

		answer, err := o.generate(ctx, o.slots[idx].client, prompt)
		if err == nil {
			o.markSuccess(idx)
			metrics.RemoteAttemptsTotal.WithLabelValues("success").Inc()
			return o.formatResponse(answer), true
		}

		kind := provider.KindOf(err)
		metrics.RemoteAttemptsTotal.WithLabelValues(kind.String()).Inc()
		o.markFailure(idx, kind)
		o.logger.Warn("remote call failed",
			"slot", o.slotName(idx), "kind", kind.String(), "error", err)

		if ctx.Err() != nil {
			break
		}
	}
	return "", false
}

// nextAvailable picks the first selectable untried slot at or after the
// current pointer in ranked order. Expired cooldowns self-clear here.
func (o *Orchestrator) nextAvailable(tried map[int]bool) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	size := len(o.slots)
	now := o.now()
	for i := 0; i < size; i++ {
		idx := (o.current + i) % size
		s := o.slots[idx]
		if tried[idx] {
			continue
		}
		if s.state == slotCooling && !now.Before(s.cooldownUntil) {
			s.state = slotAvailable
			s.cooldownUntil = time.Time{}
		}
		if s.state == slotAvailable {
			return idx, true
		}
	}
	return 0, false
}

func (o *Orchestrator) generate(ctx context.Context, client provider.Client, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	start := time.Now()
	answer, err := client.Generate(ctx, prompt)
	metrics.RemoteLatency.Observe(time.Since(start).Seconds())
	return answer, err
}

func (o *Orchestrator) markSuccess(idx int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = idx
	o.publishGaugesLocked()
}

// markFailure applies the fault bookkeeping: rate limits cool the slot
// down, quota and auth faults retire it until reset, anything else leaves
// the slot untouched under a transient-fault assumption.
func (o *Orchestrator) markFailure(idx int, kind provider.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.slots[idx]
	switch {
	case kind == provider.KindRateLimit:
		s.state = slotCooling
		s.cooldownUntil = o.now().Add(o.cooldown)
	case kind.Permanent():
		s.state = slotFailed
		s.cooldownUntil = time.Time{}
	}
	o.publishGaugesLocked()
}

// Status returns a pool snapshot for the status command and HTTP endpoint.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{
		CurrentSlot:  o.slotName(o.current),
		PoolSize:     len(o.slots),
		CurrentModel: o.slots[o.current].model,
	}
	seen := map[int]bool{}
	now := o.now()
	for _, s := range o.slots {
		seen[s.credIdx] = true
		switch {
		case s.state == slotFailed:
			st.Failed++
		case s.state == slotCooling && now.Before(s.cooldownUntil):
			st.CoolingDown++
		default:
			st.Available++
		}
	}
	st.Credentials = len(seen)
	if st.Credentials > 0 {
		st.Models = len(o.slots) / st.Credentials
	}
	return st
}

// Reset clears all failure and cooldown marks, re-enabling the full pool.
// Idempotent.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, s := range o.slots {
		s.state = slotAvailable
		s.cooldownUntil = time.Time{}
	}
	o.current = 0
	o.publishGaugesLocked()
}

// degradedMessage distinguishes a pool that is merely cooling down from one
// whose every slot failed permanently.
func (o *Orchestrator) degradedMessage() string {
	st := o.Status()
	if st.Failed == st.PoolSize {
		return persistentUnavailableMessage
	}
	return transientUnavailableMessage
}

// formatResponse truncates over-long answers and appends the disclaimer
// footer when the model left it out.
func (o *Orchestrator) formatResponse(text string) string {
	if len(text) > o.maxLen {
		cut := o.maxLen - 50
		if cut < 1 {
			cut = o.maxLen
		}
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "\n\n[...resposta truncada...]"
	}
	if !strings.Contains(strings.ToLower(text), "consulta médica") {
		text += disclaimerFooter
	}
	return text
}

func (o *Orchestrator) slotName(idx int) string {
	s := o.slots[idx]
	return fmt.Sprintf("api%d/%s", s.credIdx+1, s.model)
}

func (o *Orchestrator) publishGauges() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.publishGaugesLocked()
}

func (o *Orchestrator) publishGaugesLocked() {
	available := 0
	now := o.now()
	for _, s := range o.slots {
		if s.state == slotAvailable || (s.state == slotCooling && !now.Before(s.cooldownUntil)) {
			available++
		}
	}
	metrics.SlotsAvailable.Set(float64(available))
}
