package agent

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rules holds the tunable keyword tables behind the rule-based classifiers.
// Every pattern is a regular expression matched case-insensitively against the
// folded message (lower-cased, accents stripped), so tables are written
// without accents.
type Rules struct {
	QuestionPatterns []string             `yaml:"question_patterns"`
	Intents          []IntentRuleConfig   `yaml:"intents"`
	OffTopic         []OffTopicRuleConfig `yaml:"off_topic"`
	Greetings        []string             `yaml:"greetings"`
	Exemptions       []string             `yaml:"exemptions"`
	NameStopWords    []string             `yaml:"name_stop_words"`
	ServicesOverview []string             `yaml:"services_overview"`
	ContactIntent    []string             `yaml:"contact_intent"`
	QuoteRequest     []string             `yaml:"quote_request"`
	DetailRequest    []string             `yaml:"detail_request"`
	BusinessImpact   []string             `yaml:"business_impact"`
	CategoryKeywords map[string][]string  `yaml:"category_keywords"`
	Rejection        []string             `yaml:"rejection"`
	Decline          []string             `yaml:"decline"`
	Cancel           []string             `yaml:"cancel"`
}

// IntentRuleConfig maps command phrases (substring match) and single command
// tokens (whole-token match) to an intent.
type IntentRuleConfig struct {
	Intent  IntentType `yaml:"intent"`
	Phrases []string   `yaml:"phrases"`
	Tokens  []string   `yaml:"tokens"`
}

type OffTopicRuleConfig struct {
	Category OffTopicCategory `yaml:"category"`
	Patterns []string         `yaml:"patterns"`
}

// DefaultRules returns the built-in Spanish/English tables.
func DefaultRules() *Rules {
	return &Rules{
		QuestionPatterns: []string{
			`^\s*¿`,
			`\?\s*$`,
			`^\s*(que|como|cual|cuales|cuanto|cuanta|cuantos|cuantas|donde|cuando|por que|quien|quienes)\b`,
			`^\s*(puedes|podrias|me puedes|me podrias|sabes|tienen|ofrecen|hacen)\b`,
			`^\s*(what|how|which|why|where|when|who|can you|could you|do you|does|is there|are there)\b`,
			`\b(puedes ayudarme|me ayudas|ayudame con|can you help|could you help|help me)\b`,
			`^\s*(explica|explicame|cuentame|dime|explain|tell me)\b`,
		},
		Intents: []IntentRuleConfig{
			{
				Intent: IntentCreatePackage,
				Phrases: []string{
					"crear un paquete", "crear paquete", "crea un paquete", "crea el paquete",
					"nuevo paquete", "agregar un paquete", "agregar paquete", "anadir paquete",
					"create a package", "create package", "new package", "add a package",
				},
				Tokens: []string{"/paquete", "/package"},
			},
			{
				Intent: IntentCreateCategory,
				Phrases: []string{
					"crear una categoria", "crear categoria", "crea una categoria", "crea la categoria",
					"nueva categoria", "agregar una categoria", "agregar categoria", "anadir categoria",
					"create a category", "create category", "new category", "add a category",
				},
				Tokens: []string{"/categoria", "/category"},
			},
			{
				Intent: IntentCreateService,
				Phrases: []string{
					"crear un servicio", "crear servicio", "crea un servicio", "crea el servicio",
					"nuevo servicio", "agregar un servicio", "agregar servicio", "anadir servicio",
					"registrar un servicio", "registrar servicio",
					"create a service", "create service", "new service", "add a service",
				},
				Tokens: []string{"/servicio", "/service"},
			},
			{
				Intent: IntentListServices,
				Phrases: []string{
					"lista de servicios", "listar servicios", "listado de servicios", "ver servicios",
					"ver los servicios", "ver el catalogo", "mostrar servicios", "muestrame los servicios",
					"list services", "show services", "show the catalog",
				},
				Tokens: []string{"/servicios", "/catalogo", "/services", "/catalog"},
			},
		},
		OffTopic: []OffTopicRuleConfig{
			{Category: OffTopicSpam, Patterns: []string{
				`^\s*(test|testing|prueba|probando)[\s\d!.]*$`,
				`\b(asdf|qwerty|zxcv|hjkl)`,
				`\b(a{6,}|s{6,}|d{6,}|j{6,}|k{6,}|x{6,}|z{6,})\b`,
				`^[^\p{L}\p{N}]+$`,
				`\b(viagra|casino|apuestas online|gana dinero rapido|bitcoin gratis|free money)\b`,
			}},
			{Category: OffTopicAcademic, Patterns: []string{
				`\b(mi tarea|hazme la tarea|deberes|monografia|ensayo sobre|resolver (este|el) (problema|ejercicio)|examen de)\b`,
				`\b(ecuacion|derivada|integral de|teorema)\b`,
				`\b(homework|essay about|solve this equation|my exam)\b`,
			}},
			{Category: OffTopicTrivia, Patterns: []string{
				`\b(capital de|quien (fue|es) el presidente|quien descubrio|en que ano (fue|se)|dato curioso)\b`,
				`\b(capital of|who (was|is) the president|fun fact)\b`,
			}},
			{Category: OffTopicEntertainment, Patterns: []string{
				`\b(chiste|chistes|pelicula|peliculas|cancion|canciones|horoscopo|netflix|videojuego)\b`,
				`\b(joke|movie|song|horoscope)\b`,
			}},
			{Category: OffTopicProgramming, Patterns: []string{
				`\b(escribe|escribeme|hazme) (un|una|el) (codigo|funcion|programa|script)\b`,
				`\b(ensename a programar|error en mi codigo|como programo|debug(ear)? mi codigo)\b`,
				`\b(write (a|me a) (function|program|script)|fix my code|how do i code)\b`,
			}},
			{Category: OffTopicAdvice, Patterns: []string{
				`\b(diagnostico|sintomas|que medicamento|dolor de|mi medico)\b`,
				`\b(abogado|demanda judicial|divorcio|herencia)\b`,
				`\b(consejo (amoroso|sentimental)|mi (novia|novio|pareja|esposa|esposo) me)\b`,
				`\b(medical advice|legal advice|symptoms|lawsuit|relationship advice)\b`,
			}},
		},
		Greetings: []string{
			`^\s*¡?\s*(hola|holi|buenas|buen dia|buenos dias|buenas tardes|buenas noches|hey|hi|hello|saludos|que tal)[\s!.,]*$`,
		},
		Exemptions: []string{
			`\b(servicio|servicios|paquete|paquetes|categoria|catalogo|precio|precios|costo|tarifa)\b`,
			`\b(cotizacion|cotizar|presupuesto|propuesta|empresa|negocio|asesor|contratar)\b`,
			`\b(service|services|package|pricing|price|quote|business)\b`,
		},
		NameStopWords: []string{
			"hola", "holi", "buenas", "buenos", "dias", "tardes", "noches", "hey", "hi", "hello", "saludos",
			"gracias", "si", "no", "ok", "okay", "vale", "claro", "bueno", "listo", "dale", "perfecto",
			"excelente", "genial", "correcto", "exacto", "entendido", "yes", "thanks", "sure",
			"quiero", "quisiera", "necesito", "busco", "tengo", "me", "mi", "mis", "te", "tu", "su",
			"un", "una", "el", "la", "los", "las", "de", "del", "y", "o", "a", "en", "con", "para", "por",
			"que", "como", "cual", "es", "soy", "esto", "eso", "favor", "porfa", "porfavor",
			"servicio", "servicios", "paquete", "paquetes", "categoria", "catalogo", "precio", "precios",
			"costo", "cotizacion", "presupuesto", "informacion", "info", "consultoria", "marketing",
			"web", "diseno", "desarrollo", "correo", "email", "telefono", "numero", "celular", "whatsapp",
			"cliente", "empresa", "negocio", "ayuda", "asesor", "contacto", "omitir", "cancelar",
		},
		ServicesOverview: []string{
			`\b(que servicios|cuales son (sus|tus) servicios|que ofrecen|que ofreces|que hacen|a que se dedican)\b`,
			`\b(what services|what do you offer|what do you do)\b`,
		},
		ContactIntent: []string{
			`\b(contactar|contacten|contactarme|llamen|llamenme|llamar|agendar|reunion|cita)\b`,
			`\b(hablar con (un|una) (asesor|persona|humano|vendedor)|quiero contratar|me interesa contratar|como contrato)\b`,
			`\b(contact me|call me|talk to (a|someone)|schedule a (call|meeting)|sign up)\b`,
		},
		QuoteRequest: []string{
			`\b(cotizacion|cotizar|cotizame|presupuesto|propuesta economica)\b`,
			`\b(quiero que me contacten|que me llamen|que me escriban)\b`,
			`\b(quote|estimate)\b`,
		},
		DetailRequest: []string{
			`\b(precio|precios|cuanto cuesta|cuanto vale|costo|tarifa|incluye|detalles|caracteristicas|duracion|plazo)\b`,
			`\b(price|cost|how much|details|includes|timeline)\b`,
		},
		BusinessImpact: []string{
			`\b(roi|retorno|beneficio|beneficios|resultados|ventas|clientes nuevos|crecer|crecimiento|rentabilidad|impacto)\b`,
			`\b(return on investment|results|growth|revenue|impact)\b`,
		},
		CategoryKeywords: map[string][]string{
			"Marketing Digital": {"marketing", "redes sociales", "publicidad", "anuncios", "seo", "sem", "facebook ads", "google ads"},
			"Desarrollo Web":    {"pagina web", "sitio web", "tienda online", "ecommerce", "landing", "aplicacion web"},
			"Diseño":            {"logo", "branding", "identidad visual", "diseno grafico"},
			"Consultoría":       {"consultoria", "asesoria", "estrategia", "plan de negocio"},
		},
		Rejection: []string{
			`\b(no gracias|no quiero|ya no|olvidalo|olvida eso|cancelar|cancela|dejalo|no me interesa)\b`,
			`\b(no thanks|never mind|forget it|cancel)\b`,
		},
		Decline: []string{
			`\b(no tengo (correo|email|mail|telefono|celular|numero))\b`,
			`\b(prefiero no (dar|compartir)|sin correo|sin email|solo (por )?(telefono|whatsapp|correo))\b`,
			`\b(i don'?t have (an )?(email|phone))\b`,
		},
		Cancel: []string{
			`^\s*(cancelar|cancela|cancel|salir|detener)[\s!.]*$`,
		},
	}
}

// LoadRules reads a YAML rules file. Sections present in the file replace the
// matching default section; absent sections keep their defaults. An empty path
// returns the defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: read rules: %w", err)
	}
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("agent: parse rules: %w", err)
	}
	rules.merge(&override)
	if _, err := compileAll(rules.allPatterns()...); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Rules) merge(o *Rules) {
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&r.QuestionPatterns, o.QuestionPatterns)
	replace(&r.Greetings, o.Greetings)
	replace(&r.Exemptions, o.Exemptions)
	replace(&r.NameStopWords, o.NameStopWords)
	replace(&r.ServicesOverview, o.ServicesOverview)
	replace(&r.ContactIntent, o.ContactIntent)
	replace(&r.QuoteRequest, o.QuoteRequest)
	replace(&r.DetailRequest, o.DetailRequest)
	replace(&r.BusinessImpact, o.BusinessImpact)
	replace(&r.Rejection, o.Rejection)
	replace(&r.Decline, o.Decline)
	replace(&r.Cancel, o.Cancel)
	if len(o.Intents) > 0 {
		r.Intents = o.Intents
	}
	if len(o.OffTopic) > 0 {
		r.OffTopic = o.OffTopic
	}
	if len(o.CategoryKeywords) > 0 {
		r.CategoryKeywords = o.CategoryKeywords
	}
}

func (r *Rules) allPatterns() []string {
	var all []string
	all = append(all, r.QuestionPatterns...)
	all = append(all, r.Greetings...)
	all = append(all, r.Exemptions...)
	all = append(all, r.ServicesOverview...)
	all = append(all, r.ContactIntent...)
	all = append(all, r.QuoteRequest...)
	all = append(all, r.DetailRequest...)
	all = append(all, r.BusinessImpact...)
	all = append(all, r.Rejection...)
	all = append(all, r.Decline...)
	all = append(all, r.Cancel...)
	for _, ot := range r.OffTopic {
		all = append(all, ot.Patterns...)
	}
	return all
}

func compileAll(patterns ...string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("agent: invalid rule pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out, err := compileAll(patterns...)
	if err != nil {
		panic(err)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
