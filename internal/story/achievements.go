package story

import "comic-server/internal/models"

// EarnedAchievements возвращает достижения, которые дает сохраненная страница.
func EarnedAchievements(pageNumber, terminalPage, previousPlaythroughs int) []models.AchievementType {
	var earned []models.AchievementType
	if pageNumber == FirstPage {
		earned = append(earned, models.AchievementStoryStarted)
	}
	if previousPlaythroughs > 0 {
		earned = append(earned, models.AchievementDejaVu)
	}
	if pageNumber >= terminalPage {
		earned = append(earned, models.AchievementPlaythroughComplete)
	}
	return earned
}
