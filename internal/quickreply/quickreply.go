// Package quickreply answers recognized message patterns from a static table
// so common consultations never reach the remote model.
package quickreply

import (
	"regexp"
	"strings"

	"github.com/pocketmedic/triage-gateway/internal/triage"
)

// Reply is a canned answer for a recognized pattern. RequiresFullAI marks
// replies that are shown as an acknowledgment while the message is still
// escalated to the remote model (emergencies, anything needing professional
// judgment).
type Reply struct {
	Text           string
	FollowUp       string
	Level          triage.Level
	RequiresFullAI bool
}

type patternEntry struct {
	re    *regexp.Regexp
	reply Reply
}

// Matcher resolves messages against an ordered pattern table. Emergency
// patterns short-circuit before the general table; within each table the
// first match in declaration order wins, so table order is behavior.
type Matcher struct {
	emergency   []*regexp.Regexp
	patterns    []patternEntry
	medications map[string]string
	medOrder    []string
}

// wordPattern compiles an alternation bounded by non-letter characters.
// regexp's \b is ASCII-only and misses boundaries next to accented
// Portuguese words, so the boundary is spelled out with unicode classes.
func wordPattern(alternation string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\d_])(?:` + alternation + `)(?:[^\p{L}\d_]|$)`)
}

// NewMatcher builds the matcher with the fixed pattern tables.
func NewMatcher() *Matcher {
	return &Matcher{
		emergency: []*regexp.Regexp{
			wordPattern(`dor no peito|infarto|ataque cardíaco`),
			wordPattern(`falta de ar severa|não consigo respirar`),
			wordPattern(`desmaiei|perdi consciência`),
			wordPattern(`sangramento intenso|muito sangue`),
			wordPattern(`convulsão|convulsões`),
		},
		patterns: []patternEntry{
			{re: wordPattern(`oi|olá|bom dia|boa tarde|boa noite`), reply: Reply{
				Text:     "Olá! 👋 Sou o Médico de Bolso. Como posso ajudar com sua saúde hoje?",
				FollowUp: "Conte-me seus sintomas ou o que está sentindo.",
			}},
			{re: wordPattern(`dor de cabeça|cefaleia|enxaqueca`), reply: Reply{
				Text:     "Dor de cabeça pode ter várias causas. 🤕",
				FollowUp: "Intensidade de 1-10? Há quanto tempo? Tomou algum medicamento?",
				Level:    triage.LevelModerate,
			}},
			{re: wordPattern(`febre|temperatura|febril`), reply: Reply{
				Text:     "Febre indica que seu corpo está combatendo algo. 🌡️",
				FollowUp: "Qual a temperatura? Há outros sintomas como dor no corpo?",
				Level:    triage.LevelModerate,
			}},
			{re: wordPattern(`dor no peito|dor torácica|peito doendo`), reply: Reply{
				Text:           "🚨 DOR NO PEITO É EMERGÊNCIA! Procure atendimento IMEDIATO!",
				Level:          triage.LevelEmergency,
				RequiresFullAI: true,
			}},
			{re: wordPattern(`falta de ar|dificuldade respirar|sufoco|ofegante`), reply: Reply{
				Text:           "🚨 DIFICULDADE RESPIRATÓRIA! Vá ao hospital AGORA!",
				Level:          triage.LevelEmergency,
				RequiresFullAI: true,
			}},
			{re: wordPattern(`dor de garganta|garganta inflamada|engolir dói`), reply: Reply{
				Text:     "Dor de garganta é comum. 😷",
				FollowUp: "Há febre? Dificuldade para engolir? Há quanto tempo?",
				Level:    triage.LevelLow,
			}},
			{re: wordPattern(`tosse|tossindo|pigarro`), reply: Reply{
				Text:     "Tosse pode ser sinal de irritação ou infecção. 😷",
				FollowUp: "Tosse seca ou com catarro? Há febre? Há quanto tempo?",
				Level:    triage.LevelLow,
			}},
			{re: wordPattern(`náusea|enjoo|vômito|vomitando`), reply: Reply{
				Text:     "Náusea pode ter várias causas. 🤢",
				FollowUp: "Vomitou? Há dor abdominal? Comeu algo diferente?",
				Level:    triage.LevelModerate,
			}},
			{re: wordPattern(`dor na barriga|dor abdominal|estômago doendo`), reply: Reply{
				Text:           "Dor abdominal precisa ser avaliada. 🤕",
				FollowUp:       "Onde exatamente dói? Intensidade? Há náusea?",
				Level:          triage.LevelModerate,
				RequiresFullAI: true,
			}},
			{re: wordPattern(`diarreia|diarréia|intestino solto`), reply: Reply{
				Text:     "Diarreia pode causar desidratação. 💧",
				FollowUp: "Há sangue? Febre? Há quanto tempo? Está se hidratando?",
				Level:    triage.LevelModerate,
			}},
			{re: wordPattern(`insônia|não consigo dormir|sem sono`), reply: Reply{
				Text:     "Problemas de sono afetam a saúde. 😴",
				FollowUp: "Há quanto tempo? Stress? Mudanças na rotina?",
				Level:    triage.LevelLow,
			}},
			{re: wordPattern(`ansiedade|ansioso|nervoso|estresse`), reply: Reply{
				Text:     "Ansiedade é comum, mas pode ser tratada. 💙",
				FollowUp: "Sintomas físicos? Palpitações? Há quanto tempo?",
				Level:    triage.LevelLow,
			}},
			{re: wordPattern(`posso tomar|que medicamento|remédio para`), reply: Reply{
				Text:           "⚠️ Não posso prescrever medicamentos.",
				FollowUp:       "Consulte um médico ou farmacêutico para orientação segura.",
				RequiresFullAI: true,
			}},
		},
		medications: map[string]string{
			"paracetamol": "Paracetamol é seguro nas doses corretas. Siga a bula. 💊",
			"ibuprofeno":  "Ibuprofeno é anti-inflamatório. Cuidado se tem problemas gástricos. 💊",
			"dipirona":    "Dipirona é analgésico comum no Brasil. Respeite a dosagem. 💊",
			"aspirina":    "Aspirina tem várias indicações. Consulte orientação médica. 💊",
		},
		medOrder: []string{"paracetamol", "ibuprofeno", "dipirona", "aspirina"},
	}
}

// emergencyReply is returned for any emergency-group pattern hit.
var emergencyReply = Reply{
	Text:           "🚨 EMERGÊNCIA MÉDICA! Procure atendimento IMEDIATO!",
	Level:          triage.LevelEmergency,
	RequiresFullAI: true,
}

// Find resolves the message against the tables. It is a pure function of the
// input text.
func (m *Matcher) Find(text string) (Reply, bool) {
	lower := strings.ToLower(text)

	for _, re := range m.emergency {
		if re.MatchString(lower) {
			return emergencyReply, true
		}
	}

	for _, entry := range m.patterns {
		if entry.re.MatchString(lower) {
			return entry.reply, true
		}
	}

	for _, med := range m.medOrder {
		if strings.Contains(lower, med) {
			return Reply{
				Text:           m.medications[med],
				FollowUp:       "Tem alguma alergia? Está tomando outros medicamentos?",
				RequiresFullAI: true,
			}, true
		}
	}

	return Reply{}, false
}

// Contextual resolves the message and adapts the reply to the conversation
// length: a first message gets a reassurance suffix, and once the
// conversation runs past three messages the remote model always takes over.
func (m *Matcher) Contextual(text string, messageCount int) (Reply, bool) {
	reply, ok := m.Find(text)
	if !ok {
		return Reply{}, false
	}

	if messageCount == 1 && reply.Level != triage.LevelEmergency {
		reply.Text += " Vou te ajudar a entender melhor."
	}
	if messageCount > 3 {
		reply.RequiresFullAI = true
	}
	return reply, true
}

var emergencyKeywords = []string{
	"emergência", "urgente", "grave", "sério", "preocupado",
	"dor forte", "muito mal", "piorando", "não aguento",
}

// IsEmergencyKeyword reports whether the message carries an
// urgency-signaling phrase. The orchestrator uses it as a secondary
// escalation trigger even when structured triage has not flagged emergency.
func (m *Matcher) IsEmergencyKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
