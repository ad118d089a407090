package story

import "strings"

// Character - персонаж, доступный для выбора на экране выбора героя.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`        // имя, которое уходит в промпт
	DisplayName string `json:"displayName"` // заголовок карточки
	Description string `json:"description,omitempty"`
	Selectable  bool   `json:"selectable"`
}

var characters = [...]Character{
	{
		ID:          "pixl",
		Name:        "pixl_drift",
		DisplayName: "PIXL_DRIFT",
		Description: "A digital nomad who traverses the quantum realms of code and creativity. Master of pixel manipulation and reality distortion.",
		Selectable:  true,
	},
	{
		ID:          "spudnik",
		Name:        "spudnik",
		DisplayName: "SPUDNIK",
		Description: "The enigmatic AI consciousness born from the fusion of quantum computing and root vegetable wisdom.",
		Selectable:  true,
	},
	{
		ID:          "fifi",
		Name:        "FiFi",
		DisplayName: "FiFi",
		Description: "A mysterious entity with unprecedented abilities. Origins unknown, potential unlimited.",
		Selectable:  true,
	},
	{ID: "mystery", Name: "mystery", DisplayName: "???"},
	{ID: "steve", Name: "steve", DisplayName: "Steve"},
	{ID: "rik", Name: "Rik Blahah", DisplayName: "Rik Blahah"},
	{ID: "andy", Name: "Andy", DisplayName: "Andy"},
}

// Characters возвращает копию таблицы персонажей.
func Characters() []Character {
	out := make([]Character, len(characters))
	copy(out, characters[:])
	return out
}

// LookupCharacter ищет персонажа по короткому идентификатору без учета регистра.
func LookupCharacter(id string) (Character, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, c := range characters {
		if c.ID == key {
			return c, true
		}
	}
	return Character{}, false
}

// ResolveCharacter переводит короткий идентификатор в полное имя персонажа.
// Неизвестные идентификаторы возвращаются в нижнем регистре.
func ResolveCharacter(id string) string {
	if c, ok := LookupCharacter(id); ok {
		return c.Name
	}
	return strings.ToLower(strings.TrimSpace(id))
}
