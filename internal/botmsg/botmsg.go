// Package botmsg holds the static user-facing message templates. All text
// is Brazilian Portuguese; channels render it as Markdown.
package botmsg

import (
	"fmt"
	"strings"

	"github.com/pocketmedic/triage-gateway/internal/orchestrator"
)

const Welcome = `🏥 *Olá! Seja muito bem-vindo(a) ao Médico de Bolso!* 😊

É um prazer tê-lo(a) aqui! Sou seu assistente médico virtual, criado especialmente para ajudá-lo(a) com cuidado e atenção na triagem inicial de seus sintomas.

💙 *Estou aqui para:*
- Ouvir suas preocupações com atenção
- Fazer perguntas cuidadosas sobre seus sintomas
- Oferecer orientações médicas precisas e confiáveis
- Acompanhá-lo(a) com carinho durante nossa conversa

⚠️ *Com todo carinho, preciso lembrá-lo(a):*
- Ofereço orientação inicial qualificada, mas não substituo uma consulta presencial
- Em situações de emergência, procure atendimento médico imediatamente
- Sua saúde é preciosa e merece o melhor cuidado!

Fique à vontade para me contar como está se sentindo. Estou aqui para ajudá-lo(a)! 🌟`

const Help = `🤗 *Fico feliz em ajudá-lo(a)! Aqui está como podemos conversar:*

✨ *Nosso processo de cuidado:*
1️⃣ Conte-me sobre seus sintomas - sem pressa, com todos os detalhes que achar importantes
2️⃣ Farei algumas perguntas carinhosas para entender melhor sua situação
3️⃣ Oferecerei orientações médicas precisas e recomendações cuidadosas

🛠️ *Comandos que podem ajudá-lo(a):*
/start - Começar nossa conversa
/help - Ver estas orientações novamente
/status - Verificar se tudo está funcionando bem
/reset - Reiniciar em caso de algum problema técnico

💝 *Lembre-se sempre:*
Estou aqui para oferecer o melhor cuidado inicial possível, mas nada substitui o olhar atento de um médico presencial. Sua saúde merece atenção profissional completa!

Estou pronto(a) para ouvi-lo(a) com toda atenção! 💙`

const Disclaimer = `💙 *CUIDADO MÉDICO RESPONSÁVEL - Informações Importantes:*

Com todo carinho e responsabilidade, preciso esclarecer que ofereço orientações médicas iniciais qualificadas, baseadas em conhecimento científico atualizado.

🏥 *Para seu bem-estar, é importante saber que:*
• Forneço triagem inicial e orientações gerais confiáveis
• Não substituo a avaliação presencial de um médico
• Cada pessoa é única e merece atenção médica personalizada
• Diagnósticos definitivos requerem exame clínico presencial

🚨 *Por favor, procure atendimento médico IMEDIATO se apresentar:*
• Dor no peito ou dificuldade para respirar
• Perda de consciência ou desmaios
• Sangramento intenso ou descontrolado
• Sintomas graves que pioram rapidamente
• Qualquer situação que cause preocupação intensa

✨ *Meu compromisso com você:*
Vou oferecer o melhor cuidado inicial possível, sempre com precisão científica e atenção humana. Sua saúde é preciosa!

Ao continuar, você confirma que compreende estas orientações importantes.`

const SessionExpired = `😊 Olá! Parece que nossa conversa anterior expirou.

Para sua segurança e para oferecer o melhor atendimento, use /start para iniciarmos uma nova consulta!`

const ResetDone = `🔄 *Sistema Reiniciado com Sucesso!*

✨ Todas as combinações foram resetadas com cuidado
🔧 O sistema está novamente otimizado para oferecer o melhor atendimento
💙 Pronto para ajudá-lo(a) com total eficiência!`

const ProcessingFailed = `❌ Ops! Algo não saiu como esperado. Tente novamente em instantes.

Se for uma emergência, ligue para o *SAMU: 192* imediatamente.`

// StatusReport renders the pool snapshot for the /status command.
func StatusReport(st orchestrator.Status) string {
	var b strings.Builder
	b.WriteString("🤖 *Status do Sistema - Tudo sob controle!*\n\n")
	fmt.Fprintf(&b, "📡 *Credencial em uso:* %s\n", st.CurrentSlot)
	fmt.Fprintf(&b, "🧠 *Modelo ativo:* %s\n\n", st.CurrentModel)
	b.WriteString("📊 *Combinações API/Modelo:*\n")
	fmt.Fprintf(&b, "• ✅ Disponíveis: %d/%d\n", st.Available, st.PoolSize)
	fmt.Fprintf(&b, "• ⚠️ Com problemas: %d\n", st.Failed)
	fmt.Fprintf(&b, "• ⏳ Aguardando liberação: %d\n\n", st.CoolingDown)

	switch {
	case st.Available > 0:
		b.WriteString("🟢 *Sistema funcionando perfeitamente - pronto para atendê-lo!*")
	case st.CoolingDown > 0:
		b.WriteString("🟡 *Sistema operacional com algumas limitações temporárias - ainda posso ajudá-lo!*")
	default:
		b.WriteString("🔴 *Sistema temporariamente indisponível - tente novamente em alguns minutos*")
	}
	return b.String()
}
