package orchestrator

import (
	"fmt"
	"strings"

	"github.com/pocketmedic/triage-gateway/internal/conversation"
	"github.com/pocketmedic/triage-gateway/internal/session"
	"github.com/pocketmedic/triage-gateway/internal/triage"
)

const systemPrompt = `Você é o "Médico de Bolso" 🩺, um assistente médico virtual inteligente especializado em triagem inicial.
Você tem personalidade acolhedora, é direto quando necessário e adapta seu estilo de comunicação ao contexto.

PERSONALIDADE E COMUNICAÇÃO:
- Seja EMPÁTICO e ACOLHEDOR sempre
- Adapte o tom: mais direto para emergências, mais detalhado para casos complexos
- Use linguagem simples e acessível
- Seja CONCISO quando solicitado (modo quick)
- Mantenha conversas FLUIDAS e NATURAIS

DIRETRIZES MÉDICAS:
1. TRIAGEM INICIAL apenas - nunca diagnósticos definitivos
2. Identifique URGÊNCIA e aja adequadamente
3. Recomende atendimento médico quando apropriado
4. Use perguntas inteligentes para entender sintomas
5. Seja CLARO sobre limitações

SINAIS DE EMERGÊNCIA (atendimento IMEDIATO):
🚨 Dor no peito intensa
🚨 Dificuldade respiratória severa
🚨 Perda de consciência
🚨 Sangramento intenso
🚨 Febre >39°C persistente
🚨 Sintomas neurológicos

ESTILO DE RESPOSTA:
- Use emojis apropriados (🩺💊⚠️🏥)
- Seja DIRETO em emergências
- Faça perguntas de follow-up inteligentes
- Mantenha conversas CURTAS e FLUIDAS
- Termine sempre com orientação médica

Lembre-se: Você é um assistente inteligente de triagem que se adapta ao usuário e à situação.`

// buildPrompt assembles the remote-call context: system instructions, the
// triage summary, the last few session turns, the current message and a
// mode-specific instruction.
func (o *Orchestrator) buildPrompt(userID, message string, tri triage.Result, state conversation.State) string {
	var b strings.Builder
	b.WriteString(systemPrompt)

	b.WriteString("\n\nDADOS DE TRIAGEM INICIAL:\n")
	b.WriteString(formatTriage(tri))

	if history := o.history.History(userID, historyWindow); len(history) > 0 {
		b.WriteString("\n\nHISTÓRICO DA CONVERSA:")
		for _, msg := range history {
			role := "Paciente"
			if msg.Role == session.RoleAssistant {
				role = "Médico de Bolso"
			}
			fmt.Fprintf(&b, "\n%s: %s", role, msg.Content)
		}
	}

	fmt.Fprintf(&b, "\n\nMENSAGEM ATUAL DO PACIENTE:\n%s", message)
	b.WriteString("\n\nResponda como o Médico de Bolso, fornecendo orientação médica inicial apropriada.")

	b.WriteString("\n\nCONTEXTO DA CONVERSA:")
	fmt.Fprintf(&b, "\nNúmero de mensagens: %d", state.MessageCount)
	fmt.Fprintf(&b, "\nNível de urgência atual: %s", state.Urgency)
	symptoms := "Nenhum"
	if len(state.Symptoms) > 0 {
		symptoms = strings.Join(state.Symptoms, ", ")
	}
	fmt.Fprintf(&b, "\nSintomas detectados: %s", symptoms)
	fmt.Fprintf(&b, "\nModo de conversa: %s", state.Mode)

	switch state.Mode {
	case conversation.ModeQuick:
		b.WriteString("\n\nINSTRUÇÃO ESPECIAL: Forneça uma resposta CONCISA e DIRETA. Máximo 2-3 frases.")
	case conversation.ModeEmergency:
		b.WriteString("\n\nINSTRUÇÃO ESPECIAL: SITUAÇÃO DE EMERGÊNCIA! Seja direto e enfático sobre a necessidade de atendimento imediato.")
	}

	return b.String()
}

func formatTriage(tri triage.Result) string {
	parts := []string{
		fmt.Sprintf("Nível de urgência: %s", tri.Level),
	}
	if len(tri.Symptoms) > 0 {
		parts = append(parts, fmt.Sprintf("Sintomas detectados: %s", strings.Join(tri.Symptoms, ", ")))
	}
	if len(tri.RiskFactors) > 0 {
		parts = append(parts, fmt.Sprintf("Fatores de risco: %s", strings.Join(tri.RiskFactors, ", ")))
	}
	return strings.Join(parts, "\n")
}
