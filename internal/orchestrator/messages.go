package orchestrator

const (
	emergencyAck = `🚨 *ATENÇÃO - SITUAÇÃO DE EMERGÊNCIA*

Com base no que você relatou, procure atendimento médico IMEDIATAMENTE:

📞 *SAMU: 192*
🏥 Vá ao pronto-socorro mais próximo

Vou te passar mais orientações enquanto isso:`

	concernAck = `⚠️ Percebo que você está preocupado(a) com seus sintomas. Vou te ajudar a entender melhor a situação:`

	transientUnavailableMessage = `🤖 *Assistente Médico Temporariamente Indisponível*

Nosso sistema de orientação está com alta demanda no momento. Tente novamente em alguns minutos.

⚠️ *Importante:*
• Em caso de emergência, ligue para o *SAMU: 192*
• Para sintomas graves, procure o pronto-socorro mais próximo
• Para dúvidas simples, procure uma UBS ou farmácia

💙 Sua saúde é prioridade. Não hesite em buscar ajuda presencial.`

	persistentUnavailableMessage = `🤖 *Assistente Médico Indisponível*

Nosso sistema de orientação está fora do ar no momento e não há previsão imediata de retorno.

⚠️ *Importante:*
• Em caso de emergência, ligue para o *SAMU: 192*
• Para sintomas graves, procure o pronto-socorro mais próximo
• Para dúvidas simples, procure uma UBS ou farmácia

💙 Sua saúde é prioridade. Busque orientação presencial com um profissional.`

	disclaimerFooter = "\n\n⚠️ *Lembre-se:* Esta é apenas uma orientação inicial. Consulte um médico para avaliação completa."
)
