package story

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	"comic-server/internal/models"
)

const (
	// FirstPage и TerminalPage ограничивают номера страниц, для которых есть шаблоны.
	FirstPage    = 1
	TerminalPage = 5

	noPreviousStory   = "No previous story."
	noPreviousChoices = "None"
)

//go:embed prompts/*.md
var promptFS embed.FS

// promptTemplates загружаются один раз при инициализации пакета и дальше не меняются.
var promptTemplates = mustLoadTemplates()

func mustLoadTemplates() map[int]string {
	templates := make(map[int]string, TerminalPage)
	for page := FirstPage; page <= TerminalPage; page++ {
		name := fmt.Sprintf("prompts/page_%d.md", page)
		content, err := promptFS.ReadFile(name)
		if err != nil {
			panic(fmt.Sprintf("prompt template %s is missing: %v", name, err))
		}
		templates[page] = string(content)
	}
	return templates
}

// PromptInput - данные для подстановки в шаблон страницы.
type PromptInput struct {
	Character       string
	PageNumber      int
	PreviousChoices []models.PreviousChoice
	PreviousStory   string
}

// BuildPrompt выбирает шаблон по номеру страницы и подставляет в него значения.
func BuildPrompt(in PromptInput) (string, error) {
	tmpl, ok := promptTemplates[in.PageNumber]
	if !ok {
		return "", fmt.Errorf("%w: page number %d is out of range %d..%d",
			models.ErrInvalidInput, in.PageNumber, FirstPage, TerminalPage)
	}

	previousStory := strings.TrimSpace(in.PreviousStory)
	if previousStory == "" {
		previousStory = noPreviousStory
	}

	r := strings.NewReplacer(
		"{{CHARACTER}}", in.Character,
		"{{PAGE_NUMBER}}", strconv.Itoa(in.PageNumber),
		"{{PREVIOUS_STORY}}", previousStory,
		"{{PREVIOUS_CHOICES}}", FormatChoiceHistory(in.PreviousChoices),
	)
	return strings.TrimSpace(r.Replace(tmpl)), nil
}

// FormatChoiceHistory склеивает номера сделанных выборов через запятую.
func FormatChoiceHistory(choices []models.PreviousChoice) string {
	if len(choices) == 0 {
		return noPreviousChoices
	}
	parts := make([]string, 0, len(choices))
	for _, c := range choices {
		parts = append(parts, strconv.Itoa(c.Choice))
	}
	return strings.Join(parts, ", ")
}
