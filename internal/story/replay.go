package story

// replayReferences - фразы для повторных прохождений, порядок фиксирован.
var replayReferences = [...]string{
	"A sense of déjà vu washes over you...",
	"You've been here before, though something feels different this time...",
	"The digital realm seems to remember your previous adventures...",
	"Echoes of past decisions ripple through the code...",
}

// ReplayReference возвращает фразу для заданного числа прошлых прохождений.
func ReplayReference(previousPlaythroughs int) string {
	if previousPlaythroughs < 0 {
		previousPlaythroughs = -previousPlaythroughs
	}
	return replayReferences[previousPlaythroughs%len(replayReferences)]
}

// AnnotateReplay добавляет в начало текста фразу о прошлых прохождениях.
// При previousPlaythroughs == 0 текст не меняется.
func AnnotateReplay(storyText string, previousPlaythroughs int) string {
	if previousPlaythroughs <= 0 {
		return storyText
	}
	return ReplayReference(previousPlaythroughs) + " " + storyText
}
