// Package classify turns a raw guest message into the per-turn signals the
// dispatcher, resolver and composer branch on. Every table is Spanish and
// matched on the normalized form of the message.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
)

var (
	datePattern     = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?\b`)
	yearPattern     = regexp.MustCompile(`\b20\d{2}\b`)
	numberPattern   = regexp.MustCompile(`\b(\d{1,2})\b`)
	possessive      = regexp.MustCompile(`\bmis?\s+\w+`)
	ownsAnimal      = regexp.MustCompile(`\btengo\s+(un|una|mi)\s+\w+`)
	bareNumberShape = regexp.MustCompile(`^\d{1,2}$`)
)

// Signals is everything the engine derives from one message, computed once per turn.
type Signals struct {
	Raw        string
	Normalized string
	Tokens     []string

	Informative bool
	Question    bool
	Affirmative bool
	Negative    bool
	Action      bool
	ListCue     bool
	Escalation  bool
	InsideHotel bool
	Wayfinding  bool

	AsksHours      bool
	AsksPrice      bool
	AsksConditions bool

	Intent   string
	Profile  string
	Category domain.Category
	// QueryCategory is set when the message names a whole category ("habitaciones").
	QueryCategory domain.Category
	// BareCategory is true when the message is nothing but a category word.
	BareCategory bool

	DateHint       string
	GuestsHint     string
	PetSize        string
	TimePreference string
	MentionsPet    bool
	SmallAnimal    bool
}

// Analyze computes the signals of message. History is used only to read a bare
// number as a guest count when the last assistant turn asked about personas.
func Analyze(message string, history []domain.Message) Signals {
	n := text.Normalize(message)
	s := Signals{
		Raw:         message,
		Normalized:  n,
		Tokens:      strings.Fields(n),
		Informative: text.Informative(message),
	}

	s.Question = strings.ContainsAny(message, "?¿") || containsAny(n, questionWords) || hasAnyStem(n, questionStems)
	s.Affirmative = affirmatives[n]
	s.Negative = negatives[n]
	s.Action = hasAnyStem(n, actionStems)
	s.ListCue = containsAny(n, listCues)
	s.Escalation = containsAny(n, escalationTerms)
	s.InsideHotel = containsAny(n, insideHotelPhrases)
	s.Wayfinding = containsAny(n, wayfindingCues)

	s.AsksHours = containsAny(n, hoursCues)
	s.AsksPrice = containsAny(n, priceCues)
	s.AsksConditions = containsAny(n, conditionCues)

	if s.Informative {
		s.Intent = bestLabel(n, intentTable)
		s.Profile = bestLabel(n, profileTable)
		s.Category = domain.Category(firstLabel(n, categoryTable))
		s.QueryCategory = domain.Category(firstLabel(n, categoryQueryCues))
	}
	s.BareCategory = bareCategoryWords[n]

	s.DateHint = DateHint(message)
	s.GuestsHint = GuestsHint(message, history)
	s.PetSize = PetSize(message)
	s.TimePreference = TimePreference(message)
	s.MentionsPet = MentionsPet(message)
	s.SmallAnimal = SmallAnimal(message)
	return s
}

// StateUpdate returns the slots this message fills.
func (s Signals) StateUpdate() domain.ConversationState {
	return domain.ConversationState{
		Dates:   s.DateHint,
		Guests:  s.GuestsHint,
		Profile: s.Profile,
		Intent:  s.Intent,
	}
}

// LowInformation reports the short follow-up shape: at most three tokens and
// not a question, or a bare date/guest/pet-size/affirmative answer.
func (s Signals) LowInformation() bool {
	if s.DateHint != "" || s.GuestsHint != "" || s.PetSize != "" {
		return true
	}
	if s.Affirmative && len(s.Tokens) <= 2 {
		return true
	}
	return len(s.Tokens) <= 3 && !s.Question
}

// SlotHint reports whether the message carries a date or guest hint.
func (s Signals) SlotHint() bool {
	return s.DateHint != "" || s.GuestsHint != ""
}

// DetectIntent returns the best travel-intent label, or "".
func DetectIntent(message string) string {
	if !text.Informative(message) {
		return ""
	}
	return bestLabel(text.Normalize(message), intentTable)
}

// DetectProfile returns the best traveler-profile label, or "".
func DetectProfile(message string) string {
	if !text.Informative(message) {
		return ""
	}
	return bestLabel(text.Normalize(message), profileTable)
}

// DetectCategory returns the first category whose keywords appear, or "".
func DetectCategory(message string) domain.Category {
	if !text.Informative(message) {
		return ""
	}
	return domain.Category(firstLabel(text.Normalize(message), categoryTable))
}

// DateHint returns the trimmed message when it mentions a date, month or year.
func DateHint(message string) string {
	lower := strings.ToLower(message)
	if datePattern.MatchString(lower) {
		return strings.TrimSpace(message)
	}
	n := text.Normalize(message)
	for _, m := range monthNames {
		if text.Contains(n, m) {
			return strings.TrimSpace(message)
		}
	}
	if yearPattern.MatchString(n) {
		return strings.TrimSpace(message)
	}
	return ""
}

// GuestsHint extracts a party size description ("2 personas").
func GuestsHint(message string, history []domain.Message) string {
	n := text.Normalize(message)
	if n == "" {
		return ""
	}
	if text.Contains(n, "pareja") {
		return "2 personas"
	}
	if text.Contains(n, "solo") || text.Contains(n, "sola") {
		return "1 persona"
	}
	if containsAny(n, guestNouns) {
		if count := countIn(n); count > 0 {
			return formatGuests(count)
		}
	}
	if bareNumberShape.MatchString(n) || numberWords[n] > 0 {
		last := text.Normalize(domain.LastAssistant(history))
		if strings.Contains(last, "personas") || text.Contains(last, "pax") {
			return formatGuests(countIn(n))
		}
	}
	return ""
}

// ParseGuestCount reads the first number (digits or a Spanish number word) in value.
// It returns 0 when no count is present.
func ParseGuestCount(value string) int {
	return countIn(text.Normalize(value))
}

func countIn(normalized string) int {
	if m := numberPattern.FindStringSubmatch(normalized); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	tokens := strings.Fields(normalized)
	for i, tok := range tokens {
		if v, ok := numberWords[tok]; ok && i+1 < len(tokens) && containsAny(tokens[i+1], guestNouns) {
			return v
		}
	}
	for _, tok := range tokens {
		// "una habitación" is an article, not a head count.
		if v, ok := numberWords[tok]; ok && v > 1 {
			return v
		}
	}
	if len(tokens) == 1 {
		return numberWords[tokens[0]]
	}
	return 0
}

func formatGuests(count int) string {
	if count == 1 {
		return "1 persona"
	}
	return strconv.Itoa(count) + " personas"
}

// PetSize returns pequeño, mediano or grande when the message names a size.
func PetSize(message string) string {
	n := text.Normalize(message)
	switch {
	case text.HasPrefixWord(n, "pequen"):
		return "pequeño"
	case text.Contains(n, "mediano"), text.Contains(n, "mediana"):
		return "mediano"
	case text.Contains(n, "grande"):
		return "grande"
	}
	return ""
}

// TimePreference returns mañana, mediodía, tarde or noche.
func TimePreference(message string) string {
	n := text.Normalize(message)
	for _, tp := range timePreferences {
		if text.Contains(n, tp.Cue) {
			return tp.Label
		}
	}
	return ""
}

// SmallAnimal reports a mention of a caged or small animal that needs no size.
func SmallAnimal(message string) bool {
	return containsAny(text.Normalize(message), smallAnimals)
}

// MentionsPet reports whether the guest talks about travelling with an animal.
func MentionsPet(message string) bool {
	n := text.Normalize(message)
	if containsAny(n, petWords) {
		return true
	}
	hasBring := containsAny(n, bringVerbs)
	hasAllow := containsAny(n, allowWords) && text.Contains(n, "con")
	return (possessive.MatchString(n) && (hasBring || hasAllow)) || ownsAnimal.MatchString(n)
}

// IsCategoryWord reports whether message is nothing but a category name.
func IsCategoryWord(message string) bool {
	return bareCategoryWords[text.Normalize(message)]
}

func containsAny(normalized string, phrases []string) bool {
	for _, p := range phrases {
		if text.Contains(normalized, p) {
			return true
		}
	}
	return false
}

func hasAnyStem(normalized string, stems []string) bool {
	for _, stem := range stems {
		if text.HasPrefixWord(normalized, stem) {
			return true
		}
	}
	return false
}

func score(normalized string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if text.Contains(normalized, k) {
			hits++
		}
	}
	return hits
}

func bestLabel(normalized string, table []labelRule) string {
	best, bestScore := "", 0
	for _, rule := range table {
		if sc := score(normalized, rule.Keywords); sc > bestScore {
			best, bestScore = rule.Label, sc
		}
	}
	return best
}

func firstLabel(normalized string, table []labelRule) string {
	for _, rule := range table {
		if score(normalized, rule.Keywords) > 0 {
			return rule.Label
		}
	}
	return ""
}
