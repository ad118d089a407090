package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"comic-server/internal/models"
)

const (
	marginMM   = 15.0
	lineHeight = 6.0
)

// SessionPDF пишет в w сценарий комикса: по разделу на каждую страницу
// с текстом истории и вариантами выбора (выбранный отмечен).
func SessionPDF(w io.Writer, session *models.Session, pages []models.PageRecord) error {
	if len(pages) == 0 {
		return fmt.Errorf("нет страниц для экспорта: %w", models.ErrNotFound)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.SetTitle("Digital Dreamers", true)
	// Встроенные шрифты в cp1252, без перевода "déjà vu" превратится в мусор
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Digital Dreamers", "", 1, "C", false, 0, "")
	if session != nil {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, lineHeight, tr("Character: "+session.Character), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, lineHeight, "Session "+session.ID.String(), "", 1, "C", false, 0, "")
	}
	pdf.Ln(lineHeight)

	for i := range pages {
		page := &pages[i]

		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 9, fmt.Sprintf("Page %d", page.PageNumber), "B", 1, "L", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, lineHeight, tr(page.StoryText), "", "L", false)
		pdf.Ln(2)

		for _, line := range choiceLines(page) {
			style := ""
			if line.chosen {
				style = "B"
			}
			pdf.SetFont("Helvetica", style, 11)
			pdf.MultiCell(0, lineHeight, tr(line.text), "", "L", false)
		}
		if page.ImageURL != nil && *page.ImageURL != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, tr("Panel: "+*page.ImageURL), "", "L", false)
		}
		pdf.Ln(lineHeight)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("ошибка формирования PDF: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("ошибка записи PDF: %w", err)
	}
	return nil
}

type choiceLine struct {
	text   string
	chosen bool
}

// choiceLines - варианты страницы с отметкой выбранного и итоговая строка "Chosen: ...".
func choiceLines(page *models.PageRecord) []choiceLine {
	chosen := 0
	if page.ChoiceMade != nil {
		chosen = *page.ChoiceMade
	}
	lines := make([]choiceLine, 0, len(page.Choices)+1)
	for idx, choice := range page.Choices {
		marker := "   "
		if idx+1 == chosen {
			marker = ">> "
		}
		lines = append(lines, choiceLine{
			text:   fmt.Sprintf("%s%d. %s", marker, idx+1, choice),
			chosen: idx+1 == chosen,
		})
	}
	if text := page.ChoiceText(chosen); text != "" {
		lines = append(lines, choiceLine{text: "Chosen: " + text, chosen: true})
	}
	return lines
}
