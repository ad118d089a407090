package story

import (
	"regexp"
	"strings"

	"comic-server/internal/models"
)

const (
	storyMarker   = "STORY:"
	choicesMarker = "CHOICES:"
)

var choiceNumbering = regexp.MustCompile(`^\d+\.\s*`)

// Completion - результат разбора ответа модели.
type Completion struct {
	StoryText string
	Choices   []string
}

// ParseCompletion разбирает ответ в формате STORY:/CHOICES:.
// Разбор нестрогий: без маркера CHOICES: весь текст считается историей,
// а список выборов остается пустым.
func ParseCompletion(raw string) Completion {
	storySection, choicesSection, hasChoices := strings.Cut(raw, choicesMarker)

	result := Completion{
		StoryText: strings.TrimSpace(strings.Replace(storySection, storyMarker, "", 1)),
		Choices:   []string{},
	}
	if !hasChoices {
		return result
	}

	// Повторный маркер обрезает секцию выборов
	choicesSection, _, _ = strings.Cut(choicesSection, choicesMarker)

	for _, line := range strings.Split(strings.TrimSpace(choicesSection), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		choice := strings.TrimSpace(choiceNumbering.ReplaceAllString(line, ""))
		if choice == "" {
			continue
		}
		result.Choices = append(result.Choices, choice)
		if len(result.Choices) == models.MaxChoices {
			break
		}
	}
	return result
}
