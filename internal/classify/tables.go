package classify

import "github.com/aretw0/conserje/pkg/domain"

// labelRule maps a label to the keywords voting for it. Tables are ordered;
// the first label wins a tie.
type labelRule struct {
	Label    string
	Keywords []string
}

var intentTable = []labelRule{
	{"trabajo", []string{"trabajo", "negocio", "negocios", "empresa", "reunion", "oficina", "corporativo"}},
	{"descanso", []string{"descanso", "relax", "relajo", "tranquilo", "vacaciones"}},
	{"aventura", []string{"aventura", "explorar", "turismo", "tour", "surf", "experiencia", "experiencias"}},
}

var profileTable = []labelRule{
	{"solo", []string{"solo", "sola", "individual"}},
	{"pareja", []string{"pareja", "esposo", "esposa", "novio", "novia"}},
	{"grupo", []string{"grupo", "amigos", "equipo", "colegas"}},
	{"familia", []string{"familia", "ninos", "hijos", "hijas"}},
	{"primera_vez", []string{"primera vez", "primer viaje"}},
}

var categoryTable = []labelRule{
	{string(domain.CategoryRooms), []string{"habitacion", "habitaciones", "suite", "cama", "cuarto"}},
	{string(domain.CategoryServices), []string{"servicio", "servicios", "transfer", "traslado", "pet", "mascota"}},
	{string(domain.CategoryFacilities), []string{"instalacion", "instalaciones", "lobby", "gym", "gimnasio", "desayuno", "piscina", "spa"}},
	{string(domain.CategoryRecommendations), []string{"recomendacion", "recomendaciones", "cerca", "alrededor", "lugares", "barrio"}},
}

// categoryQueryCues are the generic nouns that ask for a whole category.
// Specific facilities ("spa", "gym") are resolved as items instead.
var categoryQueryCues = []labelRule{
	{string(domain.CategoryRooms), []string{"habitacion", "habitaciones", "cuarto", "cuartos"}},
	{string(domain.CategoryServices), []string{"servicio", "servicios"}},
	{string(domain.CategoryFacilities), []string{"instalacion", "instalaciones"}},
	{string(domain.CategoryRecommendations), []string{"recomendacion", "recomendaciones", "alrededor", "cerca", "lugares", "local", "locales"}},
}

// bareCategoryWords are messages that, alone, can only mean "list the category".
var bareCategoryWords = map[string]bool{
	"habitacion": true, "habitaciones": true,
	"servicio": true, "servicios": true,
	"instalacion": true, "instalaciones": true,
	"recomendaciones": true, "recomendaciones locales": true,
}

var escalationTerms = []string{
	"reclamo", "reclamos", "queja", "quejas", "fraude", "estafa", "denuncia",
	"abogado", "legal", "demanda", "cobro indebido", "doble cobro",
	"cargo no reconocido", "reembolso", "disputa", "libro de reclamaciones",
}

var insideHotelPhrases = []string{
	"dentro del hotel", "algo dentro", "algo en el hotel", "que hay en el hotel",
	"que mas hay", "que mas tienen", "que puedo hacer en el hotel",
}

var affirmatives = map[string]bool{
	"si": true, "ok": true, "okay": true, "dale": true, "claro": true, "perfecto": true,
	"si por favor": true, "claro que si": true, "de acuerdo": true, "vale": true, "por favor": true,
}

var negatives = map[string]bool{
	"no": true, "no gracias": true, "no por ahora": true, "no ahora": true,
	"tal vez despues": true, "quizas despues": true, "quiza despues": true,
}

// actionStems match any word starting with the stem ("reserv" matches "reservar").
var actionStems = []string{"reserv", "coordin", "solicit", "disponib", "precio", "tarifa", "cotiz", "confirm"}

var listCues = []string{
	"lista", "ver", "mostrar", "muestrame", "opciones", "menu", "todos", "todas",
	"disponibles", "que hay", "cuales", "que tienen",
}

// questionWords and questionStems detect question-shaped messages besides a literal "?".
var questionWords = []string{"cuando", "como", "donde", "cual", "cuales"}

var questionStems = []string{"hora", "cuant", "precio", "costo", "condicion", "requisito", "disponib"}

var hoursCues = []string{"hora", "horario", "horarios", "abre", "abren", "cierra", "cierran", "apertura"}

var priceCues = []string{"precio", "precios", "costo", "costos", "tarifa", "tarifas", "cuanto cuesta", "cuanto sale"}

var conditionCues = []string{"condicion", "condiciones", "requisito", "requisitos", "disponibilidad", "restriccion", "restricciones"}

var wayfindingCues = []string{"como llego", "como llegar", "llegar", "direccion", "ubicacion", "mapa", "donde queda", "donde esta", "ruta", "indicaciones"}

var monthNames = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto",
	"septiembre", "setiembre", "octubre", "noviembre", "diciembre",
}

var numberWords = map[string]int{
	"uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

var guestNouns = []string{"persona", "personas", "pax", "huesped", "huespedes", "adulto", "adultos"}

var petWords = []string{
	"mascota", "mascotas", "pet", "perro", "perros", "perrito", "perritos", "gato", "gatos",
	"gatito", "loro", "perico", "ave", "pajaro", "conejo", "hamster", "canario", "tortuga",
	"cuy", "cobayo", "cachorro",
}

var smallAnimals = []string{
	"perico", "loro", "pajaro", "ave", "canario", "hamster", "conejito", "conejo",
	"cuy", "cobayo", "tortuga", "perrito", "gatito", "cachorro",
}

var bringVerbs = []string{"llevar", "traer", "viajar con", "ir con", "venir con", "hospedar con", "alojar con", "entrar con"}

var allowWords = []string{"puedo", "puede", "permiten", "se puede", "es permitido", "aceptan"}

// timePreferences maps normalized cues to their display form, checked in order.
var timePreferences = []struct{ Cue, Label string }{
	{"mediodia", "mediodía"},
	{"manana", "mañana"},
	{"tarde", "tarde"},
	{"noche", "noche"},
}

func labels(table []labelRule) []string {
	out := make([]string, len(table))
	for i, r := range table {
		out[i] = r.Label
	}
	return out
}

// Intents returns the intent labels the classifier can produce.
func Intents() []string { return labels(intentTable) }

// Profiles returns the traveler profile labels the classifier can produce.
func Profiles() []string { return labels(profileTable) }
