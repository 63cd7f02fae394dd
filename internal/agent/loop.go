// Package agent runs the consultation loop: it consumes normalized channel
// messages, dispatches commands, gates on session liveness, classifies
// urgency and hands the message to the orchestrator for an answer.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pocketmedic/triage-gateway/internal/botmsg"
	"github.com/pocketmedic/triage-gateway/internal/channel"
	"github.com/pocketmedic/triage-gateway/internal/conversation"
	"github.com/pocketmedic/triage-gateway/internal/enrichment"
	"github.com/pocketmedic/triage-gateway/internal/metrics"
	"github.com/pocketmedic/triage-gateway/internal/orchestrator"
	"github.com/pocketmedic/triage-gateway/internal/session"
	"github.com/pocketmedic/triage-gateway/internal/triage"
)

// DefaultEnrichmentWait bounds how long a reply waits for the optional
// knowledge lookup before going out without it.
const DefaultEnrichmentWait = 2 * time.Second

// Enricher is the slice of the enrichment client the loop needs.
type Enricher interface {
	Resources(ctx context.Context, query string) []enrichment.Resource
}

// AgentLoop processes inbound messages for all channels.
type AgentLoop struct {
	sessions       *session.Store
	conversations  *conversation.Store
	orch           *orchestrator.Orchestrator
	enricher       Enricher
	enrichmentWait time.Duration
	logger         *slog.Logger
}

// NewAgentLoop builds the loop. enricher may be nil when no enrichment
// service is configured.
func NewAgentLoop(sessions *session.Store, conversations *conversation.Store, orch *orchestrator.Orchestrator, enricher Enricher, logger *slog.Logger) *AgentLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentLoop{
		sessions:       sessions,
		conversations:  conversations,
		orch:           orch,
		enricher:       enricher,
		enrichmentWait: DefaultEnrichmentWait,
		logger:         logger,
	}
}

// Run consumes the adapter's incoming stream until the context ends or the
// stream closes. Each message is processed on its own goroutine so a slow
// remote call never blocks other users.
func (a *AgentLoop) Run(ctx context.Context, adapter channel.ChannelAdapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-adapter.Incoming():
			if !ok {
				return
			}
			go a.Process(ctx, msg, adapter)
		}
	}
}

// Process handles one inbound message end to end.
func (a *AgentLoop) Process(ctx context.Context, msg *channel.Message, adapter channel.ChannelAdapter) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("message processing panicked", "channel", msg.Channel, "panic", r)
			a.send(adapter, msg.UserID, botmsg.ProcessingFailed)
		}
	}()

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	if strings.HasPrefix(content, "/") {
		a.handleCommand(msg, content, adapter)
		return
	}
	a.consult(ctx, msg, content, adapter)
}

func (a *AgentLoop) handleCommand(msg *channel.Message, content string, adapter channel.ChannelAdapter) {
	switch command(content) {
	case "start":
		a.sessions.Create(msg.UserID, msg.UserName)
		metrics.ActiveSessions.Set(float64(a.sessions.ActiveCount()))
		a.logger.Info("session started", "channel", msg.Channel, "user", msg.UserID)
		a.send(adapter, msg.UserID, botmsg.Welcome)
		a.send(adapter, msg.UserID, botmsg.Disclaimer)
	case "help":
		a.send(adapter, msg.UserID, botmsg.Help)
	case "status":
		a.send(adapter, msg.UserID, botmsg.StatusReport(a.orch.Status()))
	case "reset":
		a.orch.Reset()
		a.conversations.Reset(msg.UserID)
		a.logger.Info("pool reset requested", "user", msg.UserID)
		a.send(adapter, msg.UserID, botmsg.ResetDone)
	default:
		a.send(adapter, msg.UserID, botmsg.Help)
	}
}

// command extracts the bare command name: "/status@MedicoDeBolsoBot arg"
// yields "status".
func command(content string) string {
	name := strings.Fields(content)[0]
	name = strings.TrimPrefix(name, "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

func (a *AgentLoop) consult(ctx context.Context, msg *channel.Message, content string, adapter channel.ChannelAdapter) {
	if !a.sessions.HasActive(msg.UserID) {
		a.send(adapter, msg.UserID, botmsg.SessionExpired)
		return
	}
	a.sessions.Touch(msg.UserID)

	metrics.ConsultationsTotal.WithLabelValues(msg.Channel).Inc()

	tri := triage.Classify(content)
	metrics.TriageLevelTotal.WithLabelValues(tri.Level.String()).Inc()
	if tri.RequiresImmediate {
		a.logger.Warn("emergency consultation",
			"channel", msg.Channel, "user", msg.UserID, "symptoms", tri.Symptoms)
	}

	sources := a.lookupSources(ctx, tri)

	a.sessions.AddMessage(msg.UserID, session.RoleUser, content)
	answer := a.orch.Query(ctx, msg.UserID, content, tri)

	if extra := a.joinSources(sources); extra != "" {
		answer += extra
	}
	a.sessions.AddMessage(msg.UserID, session.RoleAssistant, answer)

	a.send(adapter, msg.UserID, answer)
}

// lookupSources starts the knowledge lookup concurrently with the remote
// call. Only urgent consultations with detected symptoms are enriched.
func (a *AgentLoop) lookupSources(ctx context.Context, tri triage.Result) <-chan []enrichment.Resource {
	if a.enricher == nil || len(tri.Symptoms) == 0 || tri.Level < triage.LevelUrgent {
		return nil
	}

	ch := make(chan []enrichment.Resource, 1)
	go func() {
		ch <- a.enricher.Resources(ctx, strings.Join(tri.Symptoms, " "))
	}()
	return ch
}

// joinSources waits briefly for the lookup; a slow or absent enrichment
// service never delays the reply past the wait window.
func (a *AgentLoop) joinSources(sources <-chan []enrichment.Resource) string {
	if sources == nil {
		return ""
	}

	select {
	case resources := <-sources:
		if len(resources) == 0 {
			return ""
		}
		if len(resources) > 2 {
			resources = resources[:2]
		}
		var b strings.Builder
		b.WriteString("\n\n📚 *Fontes úteis:*")
		for _, r := range resources {
			fmt.Fprintf(&b, "\n• %s", r.Name)
		}
		return b.String()
	case <-time.After(a.enrichmentWait):
		return ""
	}
}

func (a *AgentLoop) send(adapter channel.ChannelAdapter, userID, content string) {
	if err := adapter.SendMessage(userID, &channel.Response{Content: content}); err != nil {
		a.logger.Error("send failed", "adapter", adapter.Name(), "user", userID, "error", err)
	}
}
