package triage

import (
	"strings"
	"time"
)

// Level is the urgency tier assigned to a message.
type Level int

const (
	LevelLow Level = iota
	LevelModerate
	LevelUrgent
	LevelEmergency
)

func (l Level) String() string {
	switch l {
	case LevelEmergency:
		return "EMERGENCIA"
	case LevelUrgent:
		return "URGENTE"
	case LevelModerate:
		return "MODERADO"
	default:
		return "BAIXO"
	}
}

// Color returns the indicator emoji used in user-facing status lines.
func (l Level) Color() string {
	switch l {
	case LevelEmergency:
		return "🔴"
	case LevelUrgent:
		return "🟡"
	case LevelModerate:
		return "🟢"
	default:
		return "⚪"
	}
}

// Result is the outcome of classifying a single message.
type Result struct {
	Level             Level
	Symptoms          []string
	RiskFactors       []string
	Recommendations   []string
	RequiresImmediate bool
	AnalyzedAt        time.Time
}

// keywordTable maps a symptom tag to the phrases that signal it. Tables are
// walked in declaration order; the first phrase hit per tag wins.
type keywordTable []tableEntry

type tableEntry struct {
	tag      string
	keywords []string
}

var emergencyTable = keywordTable{
	{"dor_peito", []string{"dor no peito", "dor torácica", "aperto no peito", "pressão no peito"}},
	{"respiracao", []string{"falta de ar", "dificuldade respirar", "sufocando", "não consigo respirar"}},
	{"consciencia", []string{"desmaiei", "perdi consciência", "tonto", "confuso", "desorientado"}},
	{"sangramento", []string{"sangramento", "hemorragia", "sangue", "sangrando muito"}},
	{"neurologico", []string{"paralisia", "não consigo mover", "fala alterada", "convulsão"}},
	{"dor_intensa", []string{"dor insuportável", "dor muito forte", "dor terrível", "dor 10"}},
}

var warningTable = keywordTable{
	{"febre_alta", []string{"febre alta", "febre 39", "febre 40", "muito quente"}},
	{"vomito", []string{"vomitando", "vômito", "enjoo forte", "não para de vomitar"}},
	{"dor_abdominal", []string{"dor na barriga", "dor abdominal", "dor no estômago"}},
	{"cefaleia", []string{"dor de cabeça forte", "enxaqueca", "cefaleia intensa"}},
	{"alteracao_visual", []string{"visão turva", "não enxergo", "vista embaçada"}},
}

var commonTable = keywordTable{
	{"febre_baixa", []string{"febre", "febril", "temperatura"}},
	{"tosse", []string{"tosse", "tossindo", "pigarro"}},
	{"dor_garganta", []string{"dor de garganta", "garganta inflamada"}},
	{"coriza", []string{"coriza", "nariz entupido", "escorrendo"}},
	{"dor_cabeca", []string{"dor de cabeça", "cefaleia leve"}},
	{"cansaco", []string{"cansado", "fadiga", "sem energia"}},
	{"dor_muscular", []string{"dor muscular", "dor no corpo", "corpo dolorido"}},
}

var riskTable = keywordTable{
	{"idade_avancada", []string{"idoso", "terceira idade", "70 anos", "80 anos"}},
	{"gravidez", []string{"grávida", "gestante", "gravidez"}},
	{"diabetes", []string{"diabetes", "diabético"}},
	{"hipertensao", []string{"pressão alta", "hipertensão"}},
	{"cardiopatia", []string{"problema coração", "cardíaco", "infarto anterior"}},
	{"imunossupressao", []string{"imunidade baixa", "transplantado", "quimioterapia"}},
}

// Classify analyzes a message and assigns an urgency tier with the detected
// symptom tags, risk factors and a fixed recommendation set. It is
// deterministic for identical input and never fails: any internal fault
// degrades to a conservative MODERATE result so triage cannot block the
// response path.
func Classify(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = defaultResult()
		}
	}()

	lower := strings.ToLower(text)

	emergency := detect(lower, emergencyTable)
	warning := detect(lower, warningTable)
	common := detect(lower, commonTable)

	level := LevelLow
	switch {
	case len(emergency) > 0:
		level = LevelEmergency
	case len(warning) > 0:
		level = LevelUrgent
	case len(common) > 0:
		level = LevelModerate
	}

	symptoms := make([]string, 0, len(emergency)+len(warning)+len(common))
	symptoms = append(symptoms, emergency...)
	symptoms = append(symptoms, warning...)
	symptoms = append(symptoms, common...)

	return Result{
		Level:             level,
		Symptoms:          symptoms,
		RiskFactors:       detect(lower, riskTable),
		Recommendations:   recommendations(level),
		RequiresImmediate: len(emergency) > 0,
		AnalyzedAt:        time.Now(),
	}
}

func detect(lower string, table keywordTable) []string {
	var tags []string
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, entry.tag)
				break
			}
		}
	}
	return tags
}

func recommendations(level Level) []string {
	switch level {
	case LevelEmergency:
		return []string{
			"🚨 Por favor, PROCURE ATENDIMENTO MÉDICO IMEDIATO - sua segurança é prioridade!",
			"📞 Não hesite em chamar emergência (SAMU 192) - eles estão preparados para ajudá-lo(a)",
			"🏥 Dirija-se ao pronto-socorro mais próximo com cuidado e, se possível, acompanhado(a)",
			"💙 Mantenha-se calmo(a) - você está tomando a decisão certa ao buscar ajuda",
		}
	case LevelUrgent:
		return []string{
			"⚠️ É importante que você procure atendimento médico ainda hoje - não deixe para depois",
			"🏥 Recomendo que vá a uma UPA ou pronto-socorro para uma avaliação cuidadosa",
			"📱 Enquanto isso, monitore seus sintomas com atenção e anote qualquer mudança",
			"🤝 Se possível, peça para alguém acompanhá-lo(a) - cuidado nunca é demais",
		}
	case LevelModerate:
		return []string{
			"🩺 Recomendo agendar uma consulta médica nas próximas 24-48 horas para uma avaliação tranquila",
			"💧 Cuide-se mantendo uma boa hidratação - beba água regularmente",
			"🛏️ Permita-se descansar adequadamente - seu corpo precisa de energia para se recuperar",
			"📝 Anote seus sintomas para compartilhar com o médico - isso ajudará muito no atendimento",
		}
	default:
		return []string{
			"📅 Quando conveniente, considere agendar uma consulta de rotina para acompanhamento",
			"💧 Continue cuidando bem de si - mantenha uma boa hidratação",
			"😴 Descanse quando necessário e continue observando como se sente",
			"🌟 Lembre-se: cuidar da saúde preventivamente é sempre uma escolha sábia",
		}
	}
}

func defaultResult() Result {
	return Result{
		Level: LevelModerate,
		Recommendations: []string{
			"🩺 Para sua tranquilidade, recomendo uma consulta médica para avaliação cuidadosa",
			"📱 Continue observando como se sente e anote qualquer mudança",
			"⚠️ Se os sintomas piorarem ou surgirem novas preocupações, não hesite em procurar atendimento",
			"💙 Lembre-se: cuidar da sua saúde é sempre a decisão mais acertada",
		},
		AnalyzedAt: time.Now(),
	}
}
