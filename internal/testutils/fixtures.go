package testutils

import (
	"testing"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Fixture item IDs used across package tests.
const (
	DeluxeKing   = "HAB_DELUXE_KING"
	SuiteTerraza = "HAB_SUITE_TERRAZA"
	FamilyRoom   = "HAB_FAMILY_ROOM"
	DobleTwin    = "HAB_DOBLE_TWIN"
	Transfer     = "SERV_TRANSFER"
	Mascotas     = "SERV_MASCOTAS"
	Lavanderia   = "SERV_LAVANDERIA"
	Coworking    = "INST_COWORKING"
	Spa          = "INST_SPA"
	Kennedy      = "REC_PARQUE_KENNEDY"
	Malecon      = "REC_MALECON"
)

// FixtureBookingURL is the hotel-wide booking reference of the fixture catalog.
const FixtureBookingURL = "https://reservas.humanohoteles.com"

// FixtureHotel returns the property of the fixture catalog.
func FixtureHotel() domain.Hotel {
	return domain.Hotel{Name: "Hotel Humano", BookingURL: FixtureBookingURL}
}

// FixtureRules returns a small governance rule set.
func FixtureRules() []domain.GovernanceRule {
	return []domain.GovernanceRule{
		{ID: "R1", Key: "sin_presion", Practice: "No insistas en reservar si el huésped no lo pide."},
		{ID: "R2", Key: "canal_oficial", Practice: "Para reservas, deriva siempre al enlace oficial."},
		{ID: "R3", Key: "escalamiento", Practice: "Cobros y reclamos se derivan a recepción."},
	}
}

// FixtureItems returns a representative catalog: four rooms (two restricted for
// groups), three services, two facilities and two local recommendations.
func FixtureItems() []domain.CatalogItem {
	return []domain.CatalogItem{
		{
			ID: DeluxeKing, Name: "Deluxe King", Category: domain.CategoryRooms, Subcategory: "habitacion",
			Factual:      "Habitación de 32 m2 con cama king y escritorio amplio. Ventanas con aislamiento acústico.",
			Experiential: "Pensada para dormir profundo después de recorrer la ciudad. La luz de la mañana entra suave.",
			Intents:      []string{"descanso", "trabajo"},
			Profiles:     []string{"pareja", "solo"},
			Restrictions: []string{"grupos"},
			CheckIn:      "15:00", CheckOut: "12:00", PriceFrom: "USD 180",
			BookingURL: "https://reservas.humanohoteles.com/deluxe-king",
		},
		{
			ID: SuiteTerraza, Name: "Suite Terraza", Category: domain.CategoryRooms, Subcategory: "suite",
			Factual:      "Suite de 48 m2 con terraza privada y tina. Vista a los jardines del barrio.",
			Experiential: "Perfecta para una escapada romántica con desayuno al aire libre.",
			Intents:      []string{"descanso"},
			Profiles:     []string{"pareja"},
			Restrictions: []string{"grupos", "familias"},
			CheckIn:      "15:00", CheckOut: "12:00", PriceFrom: "USD 260",
		},
		{
			ID: FamilyRoom, Name: "Family Room", Category: domain.CategoryRooms, Subcategory: "habitacion",
			Factual:      "Habitación de 40 m2 con dos camas queen y sofá cama. Capacidad hasta 5 personas.",
			Experiential: "Espacio para que todos se acomoden sin apuros.",
			Intents:      []string{"descanso", "aventura"},
			Profiles:     []string{"familia", "grupo"},
			CheckIn:      "15:00", CheckOut: "12:00", PriceFrom: "USD 240",
		},
		{
			ID: DobleTwin, Name: "Doble Twin", Category: domain.CategoryRooms, Subcategory: "habitacion",
			Factual:      "Habitación con dos camas twin y escritorio compartido.",
			Experiential: "Práctica para viajes entre colegas.",
			Intents:      []string{"trabajo", "aventura"},
			Profiles:     []string{"grupo", "solo"},
			CheckIn:      "15:00", CheckOut: "12:00", PriceFrom: "USD 150",
		},
		{
			ID: Transfer, Name: "Transfer aeropuerto", Category: domain.CategoryServices, Subcategory: "traslado",
			Factual:      "Traslado privado desde y hacia el aeropuerto Jorge Chávez. Disponible las 24 horas.",
			Experiential: "Llegas y te estamos esperando con tu nombre.",
			Intents:      []string{"trabajo", "descanso", "aventura"},
			Profiles:     []string{"solo", "pareja", "grupo", "familia"},
			Conditions:   []string{"reserva con 24 horas de anticipación"},
		},
		{
			ID: Mascotas, Name: "Pet friendly", Category: domain.CategoryServices, Subcategory: "mascotas",
			Factual:      "Aceptamos mascotas de hasta 15 kg en habitaciones seleccionadas. Incluye cama y plato.",
			Experiential: "Tu compañero también merece vacaciones.",
			Intents:      []string{"descanso"},
			Profiles:     []string{"solo", "pareja", "familia"},
			Conditions:   []string{"cargo_adicional por noche", "vacunas al día"},
			Restrictions: []string{"máximo una mascota por habitación"},
		},
		{
			ID: Lavanderia, Name: "Lavandería", Category: domain.CategoryServices, Subcategory: "lavanderia",
			Factual:  "Lavado y planchado con entrega en el día.",
			Intents:  []string{"trabajo"},
			Profiles: []string{"solo", "pareja"},
			Phrases:  []string{"Tu ropa lista para la reunión de mañana."},
		},
		{
			ID: Coworking, Name: "Coworking", Category: domain.CategoryFacilities, Subcategory: "trabajo",
			Factual:      "Sala de trabajo con wifi de alta velocidad y café de especialidad.",
			Experiential: "Un rincón tranquilo para concentrarte.",
			Intents:      []string{"trabajo"},
			Profiles:     []string{"solo", "grupo"},
			Opening:      "07:00", Closing: "22:00",
		},
		{
			ID: Spa, Name: "Spa", Category: domain.CategoryFacilities, Subcategory: "bienestar",
			Factual:      "Sauna, masajes y tratamientos faciales.",
			Experiential: "Una pausa para reconectar después de caminar por Lima.",
			Intents:      []string{"descanso"},
			Profiles:     []string{"pareja", "solo"},
			Opening:      "09:00", Closing: "21:00",
		},
		{
			ID: Kennedy, Name: "Parque Kennedy", Category: domain.CategoryRecommendations, Subcategory: "parque",
			Factual:      "Parque central a cinco minutos caminando. Ferias de artesanía los fines de semana.",
			Experiential: "Buen lugar para tomar un café y ver la vida del barrio.",
			Intents:      []string{"aventura", "descanso"},
			Profiles:     []string{"solo", "pareja", "familia", "grupo"},
			MapURL:       "https://maps.example/parque-kennedy",
		},
		{
			ID: Malecon, Name: "Malecón de Miraflores", Category: domain.CategoryRecommendations, Subcategory: "paseo",
			Factual:      "Paseo frente al mar con parques y ciclovía.",
			Experiential: "Ideal para ver el atardecer sobre el Pacífico.",
			Intents:      []string{"aventura"},
			Profiles:     []string{"pareja", "familia", "grupo"},
			MapURL:       "https://maps.example/malecon",
		},
	}
}

// Catalog builds the fixture catalog, failing the test on validation errors.
func Catalog(t testing.TB) *domain.Catalog {
	t.Helper()
	c, err := domain.NewCatalog(FixtureHotel(), FixtureItems(), FixtureRules())
	require.NoError(t, err)
	return c
}

// GroupRestrictedItems returns the fixture items with every room closed to groups.
func GroupRestrictedItems() []domain.CatalogItem {
	items := FixtureItems()
	for i := range items {
		if items[i].Category == domain.CategoryRooms {
			items[i].Restrictions = append(items[i].Restrictions, "grupos")
		}
	}
	return items
}
