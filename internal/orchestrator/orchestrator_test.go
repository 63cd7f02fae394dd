package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketmedic/triage-gateway/internal/conversation"
	"github.com/pocketmedic/triage-gateway/internal/provider"
	"github.com/pocketmedic/triage-gateway/internal/quickreply"
	"github.com/pocketmedic/triage-gateway/internal/session"
	"github.com/pocketmedic/triage-gateway/internal/triage"
)

type testHarness struct {
	orch     *Orchestrator
	clients  map[string]*provider.MockClient
	sessions *session.Store
}

func newHarness(t *testing.T, creds, models []string) *testHarness {
	t.Helper()

	clients := make(map[string]*provider.MockClient)
	factory := func(apiKey, model string) provider.Client {
		c := &provider.MockClient{Reply: "resposta de " + apiKey + "/" + model}
		clients[apiKey+"/"+model] = c
		return c
	}

	sessions := session.NewStore(time.Hour)
	orch, err := New(Options{
		Credentials: creds,
		Models:      models,
		Factory:     factory,
	}, quickreply.NewMatcher(), conversation.NewStore(), sessions)
	require.NoError(t, err)

	return &testHarness{orch: orch, clients: clients, sessions: sessions}
}

func (h *testHarness) totalCalls() int {
	total := 0
	for _, c := range h.clients {
		total += c.Calls
	}
	return total
}

func TestNewValidation(t *testing.T) {
	factory := func(apiKey, model string) provider.Client { return &provider.MockClient{} }

	_, err := New(Options{Models: []string{"m"}, Factory: factory},
		quickreply.NewMatcher(), conversation.NewStore(), session.NewStore(time.Hour))
	assert.Error(t, err)

	_, err = New(Options{Credentials: []string{"k"}, Factory: factory},
		quickreply.NewMatcher(), conversation.NewStore(), session.NewStore(time.Hour))
	assert.Error(t, err)

	_, err = New(Options{Credentials: []string{"k"}, Models: []string{"m"}},
		quickreply.NewMatcher(), conversation.NewStore(), session.NewStore(time.Hour))
	assert.Error(t, err)
}

func TestPoolIsCredentialOuterModelInner(t *testing.T) {
	h := newHarness(t, []string{"k1", "k2"}, []string{"m1", "m2"})

	var names []string
	for i := range h.orch.slots {
		names = append(names, h.orch.slotName(i))
	}
	assert.Equal(t, []string{"api1/m1", "api1/m2", "api2/m1", "api2/m2"}, names)

	st := h.orch.Status()
	assert.Equal(t, 4, st.PoolSize)
	assert.Equal(t, 4, st.Available)
	assert.Equal(t, 2, st.Credentials)
	assert.Equal(t, 2, st.Models)
	assert.Equal(t, "api1/m1", st.CurrentSlot)
}

func TestGreetingAnsweredLocally(t *testing.T) {
	h := newHarness(t, []string{"k1"}, []string{"m1"})

	answer := h.orch.Query(context.Background(), "user-1", "boa tarde", triage.Classify("boa tarde"))

	assert.NotEmpty(t, answer)
	assert.Equal(t, 0, h.totalCalls(), "a canned reply must not reach the remote pool")
}

func TestEmergencySymptomStillEscalates(t *testing.T) {
	h := newHarness(t, []string{"k1"}, []string{"m1"})

	msg := "estou com dor no peito"
	answer := h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))

	assert.Equal(t, 1, h.totalCalls(), "emergency canned text is an acknowledgment, not an answer")
	assert.Contains(t, answer, "resposta de k1/m1")
	// Acknowledgment precedes the remote answer.
	assert.Less(t, strings.Index(answer, "EMERGÊNCIA"), strings.Index(answer, "resposta de"))
}

func TestFallbackWalksRankedOrderOnce(t *testing.T) {
	h := newHarness(t, []string{"k1", "k2"}, []string{"m1", "m2"})
	h.clients["k1/m1"].Err = provider.NewFault(provider.KindAuth, errors.New("invalid key"))
	h.clients["k1/m2"].Err = provider.NewFault(provider.KindQuota, errors.New("insufficient_quota"))

	msg := "qual a diferença entre virose e gripe"
	answer := h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))

	assert.Contains(t, answer, "resposta de k2/m1")
	assert.Equal(t, 1, h.clients["k1/m1"].Calls)
	assert.Equal(t, 1, h.clients["k1/m2"].Calls)
	assert.Equal(t, 1, h.clients["k2/m1"].Calls)
	assert.Equal(t, 0, h.clients["k2/m2"].Calls)

	st := h.orch.Status()
	assert.Equal(t, 2, st.Failed)
	assert.Equal(t, 2, st.Available)
	assert.Equal(t, "api2/m1", st.CurrentSlot)
}

func TestFailedSlotsSkippedOnLaterQueries(t *testing.T) {
	h := newHarness(t, []string{"k1", "k2"}, []string{"m1"})
	h.clients["k1/m1"].Err = provider.NewFault(provider.KindAuth, errors.New("invalid key"))

	msg := "qual a diferença entre virose e gripe"
	h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))
	h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))

	assert.Equal(t, 1, h.clients["k1/m1"].Calls, "a retired slot must not be retried")
	assert.Equal(t, 2, h.clients["k2/m1"].Calls)
}

func TestTransientFaultLeavesSlotAvailable(t *testing.T) {
	h := newHarness(t, []string{"k1", "k2"}, []string{"m1"})
	h.clients["k1/m1"].Err = errors.New("connection reset")

	msg := "qual a diferença entre virose e gripe"
	answer := h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))

	assert.Contains(t, answer, "resposta de k2/m1")
	// Within the pass the faulty slot was tried exactly once.
	assert.Equal(t, 1, h.clients["k1/m1"].Calls)
	assert.Equal(t, 2, h.orch.Status().Available, "an unclassified fault never changes slot state")
}

func TestRateLimitCooldownSelfClears(t *testing.T) {
	h := newHarness(t, []string{"k1"}, []string{"m1"})
	base := time.Now()
	h.orch.now = func() time.Time { return base }
	h.clients["k1/m1"].Err = provider.NewFault(provider.KindRateLimit, errors.New("429"))

	msg := "qual a diferença entre virose e gripe"
	answer := h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))
	assert.Equal(t, transientUnavailableMessage, answer)
	assert.Equal(t, 1, h.orch.Status().CoolingDown)
	assert.Equal(t, 0, h.orch.Status().Available)

	// Still inside the cooldown window: the slot stays parked.
	base = base.Add(DefaultCooldown - time.Second)
	h.clients["k1/m1"].Err = nil
	answer = h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))
	assert.Equal(t, transientUnavailableMessage, answer)
	assert.Equal(t, 1, h.clients["k1/m1"].Calls)

	// Past the window the slot re-enables without any explicit reset.
	base = base.Add(2 * time.Second)
	answer = h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))
	assert.Contains(t, answer, "resposta de k1/m1")
	assert.Equal(t, 1, h.orch.Status().Available)
}

func TestExhaustedPoolMessages(t *testing.T) {
	t.Run("all slots permanently failed", func(t *testing.T) {
		h := newHarness(t, []string{"k1", "k2"}, []string{"m1"})
		h.clients["k1/m1"].Err = provider.NewFault(provider.KindAuth, errors.New("invalid key"))
		h.clients["k2/m1"].Err = provider.NewFault(provider.KindQuota, errors.New("billing"))

		msg := "qual a diferença entre virose e gripe"
		answer := h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))

		assert.Equal(t, persistentUnavailableMessage, answer)
		st := h.orch.Status()
		assert.Equal(t, 0, st.Available)
		assert.Equal(t, 2, st.Failed)
	})

	t.Run("pool merely cooling down", func(t *testing.T) {
		h := newHarness(t, []string{"k1", "k2"}, []string{"m1"})
		h.clients["k1/m1"].Err = provider.NewFault(provider.KindRateLimit, errors.New("429"))
		h.clients["k2/m1"].Err = provider.NewFault(provider.KindRateLimit, errors.New("429"))

		msg := "qual a diferença entre virose e gripe"
		answer := h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))

		assert.Equal(t, transientUnavailableMessage, answer)
	})
}

func TestResetRestoresFullPool(t *testing.T) {
	h := newHarness(t, []string{"k1", "k2"}, []string{"m1"})
	h.clients["k1/m1"].Err = provider.NewFault(provider.KindAuth, errors.New("invalid key"))
	h.clients["k2/m1"].Err = provider.NewFault(provider.KindQuota, errors.New("billing"))

	msg := "qual a diferença entre virose e gripe"
	h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))
	require.Equal(t, 0, h.orch.Status().Available)

	h.orch.Reset()
	st := h.orch.Status()
	assert.Equal(t, st.PoolSize, st.Available)
	assert.Equal(t, 0, st.Failed)
	assert.Equal(t, 0, st.CoolingDown)
	assert.Equal(t, "api1/m1", st.CurrentSlot)

	h.orch.Reset() // idempotent
	assert.Equal(t, st, h.orch.Status())
}

func TestSuccessPinsCurrentSlot(t *testing.T) {
	h := newHarness(t, []string{"k1", "k2"}, []string{"m1"})
	h.clients["k1/m1"].Err = errors.New("connection reset")

	msg := "qual a diferença entre virose e gripe"
	h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))
	require.Equal(t, "api2/m1", h.orch.Status().CurrentSlot)

	// Later queries start at the pinned slot, not back at the top.
	h.clients["k1/m1"].Err = nil
	h.orch.Query(context.Background(), "user-1", msg, triage.Classify(msg))
	assert.Equal(t, 1, h.clients["k1/m1"].Calls)
	assert.Equal(t, 2, h.clients["k2/m1"].Calls)
}

func TestPromptCarriesHistoryAndContext(t *testing.T) {
	h := newHarness(t, []string{"k1"}, []string{"m1"})
	h.sessions.Create("user-1", "Ana")
	h.sessions.AddMessage("user-1", session.RoleUser, "estou com febre")
	h.sessions.AddMessage("user-1", session.RoleAssistant, "há quanto tempo?")

	msg := "começou ontem à noite"
	tri := triage.Classify("estou com febre alta")
	state := h.orch.conversations.Update("user-1", msg, &tri.Level)
	prompt := h.orch.buildPrompt("user-1", msg, tri, state)

	assert.Contains(t, prompt, "Paciente: estou com febre")
	assert.Contains(t, prompt, "Médico de Bolso: há quanto tempo?")
	assert.Contains(t, prompt, msg)
	assert.Contains(t, prompt, "Número de mensagens: 1")
	assert.Contains(t, prompt, tri.Level.String())
}

func TestFormatResponse(t *testing.T) {
	h := newHarness(t, []string{"k1"}, []string{"m1"})

	t.Run("appends disclaimer when missing", func(t *testing.T) {
		out := h.orch.formatResponse("beba bastante água")
		assert.True(t, strings.HasSuffix(out, disclaimerFooter))
	})

	t.Run("skips disclaimer when model already advises a visit", func(t *testing.T) {
		out := h.orch.formatResponse("procure uma consulta médica ainda hoje")
		assert.False(t, strings.Contains(out, disclaimerFooter))
	})

	t.Run("truncates long answers without splitting runes", func(t *testing.T) {
		long := strings.Repeat("orientação ", 400)
		out := h.orch.formatResponse(long)
		assert.Less(t, len(out), len(long))
		assert.Contains(t, out, "[...resposta truncada...]")
		assert.True(t, utf8ValidString(out))
	})
}

func utf8ValidString(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func TestConcurrentQueries(t *testing.T) {
	h := newHarness(t, []string{"k1", "k2"}, []string{"m1", "m2"})

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			msg := "qual a diferença entre virose e gripe"
			answer := h.orch.Query(context.Background(), "user-c", msg, triage.Classify(msg))
			assert.NotEmpty(t, answer)
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
