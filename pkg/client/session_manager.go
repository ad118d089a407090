package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ключи состояния прохождения в Storage.
const (
	KeySelectedCharacter = "selectedCharacter"
	KeyStoryHistory      = "storyHistory"
	KeyStoryChoices      = "storyChoices"
	KeySessionID         = "sessionId"
	KeyCurrentPage       = "currentPage"
	KeyCurrentChoices    = "currentChoices"
)

const (
	// DefaultCreditsPage - номер страницы, начиная с которого показываются титры.
	DefaultCreditsPage = 6
	// CreditsDestination - куда ведет навигация после последней страницы.
	CreditsDestination = "credits"

	saveChoiceTimeout = 10 * time.Second
)

var (
	ErrNoCharacter         = errors.New("no character selected")
	ErrLoadStory           = errors.New("error loading story")
	ErrNotDisplaying       = errors.New("no page is displayed")
	ErrInvalidChoice       = errors.New("invalid choice")
	ErrPlaythroughFinished = errors.New("playthrough finished")
)

// State - состояние менеджера сессии.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingCharacter
	StateDisplayingPage
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateAwaitingCharacter:
		return "AwaitingCharacter"
	case StateDisplayingPage:
		return "DisplayingPage"
	case StateSubmitting:
		return "Submitting"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// PageView - то, что показывается игроку на текущей странице.
type PageView struct {
	PageNumber           int
	StoryText            string
	Choices              []string
	ImageURL             *string
	PreviousPlaythroughs int
}

// SessionManager держит локальную копию прохождения и синхронизирует ее с сервером.
type SessionManager struct {
	api         StoryAPI
	storage     Storage
	logger      *zap.Logger
	creditsPage int

	mu      sync.Mutex
	state   State
	current *PageView

	pending sync.WaitGroup
}

// NewSessionManager создает менеджер. creditsPage <= 0 заменяется на DefaultCreditsPage.
func NewSessionManager(api StoryAPI, storage Storage, creditsPage int, logger *zap.Logger) *SessionManager {
	if creditsPage <= 0 {
		creditsPage = DefaultCreditsPage
	}
	return &SessionManager{
		api:         api,
		storage:     storage,
		logger:      logger.Named("SessionManager"),
		creditsPage: creditsPage,
		state:       StateUninitialized,
	}
}

// State возвращает текущее состояние.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current возвращает показанную страницу или nil.
func (m *SessionManager) Current() *PageView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SelectCharacter начинает новое прохождение за персонажа: новая сессия, пустая история.
func (m *SessionManager) SelectCharacter(ctx context.Context, characterID string) error {
	characterID = strings.TrimSpace(characterID)
	if characterID == "" {
		return fmt.Errorf("%w: empty character id", ErrNoCharacter)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	values := []struct{ key, value string }{
		{KeySelectedCharacter, characterID},
		{KeySessionID, uuid.NewString()},
		{KeyStoryHistory, "[]"},
		{KeyStoryChoices, "[]"},
		{KeyCurrentPage, "1"},
	}
	for _, kv := range values {
		if err := m.storage.Set(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("failed to store %s: %w", kv.key, err)
		}
	}
	if err := m.storage.Delete(ctx, KeyCurrentChoices); err != nil {
		return fmt.Errorf("failed to reset current choices: %w", err)
	}

	m.state = StateUninitialized
	m.current = nil
	m.logger.Info("Character selected", zap.String("character", characterID))
	return nil
}

// Initialize показывает текущую страницу. Если локальная история отстает от выборов,
// запрашивает у сервера новую страницу.
func (m *SessionManager) Initialize(ctx context.Context) (*PageView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	character, err := m.getString(ctx, KeySelectedCharacter)
	if err != nil {
		return nil, err
	}
	if character == "" {
		m.state = StateAwaitingCharacter
		return nil, ErrNoCharacter
	}

	history, err := m.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	choices, err := m.loadChoices(ctx)
	if err != nil {
		return nil, err
	}

	done, err := m.finished(ctx, choices)
	if err != nil {
		return nil, err
	}
	if done {
		m.state = StateAwaitingCharacter
		m.current = nil
		return nil, ErrPlaythroughFinished
	}

	var view *PageView
	if len(history) < len(choices)+1 {
		view, err = m.requestPage(ctx, character, history, choices)
		if err != nil {
			return nil, err
		}
	} else {
		view, err = m.cachedPage(ctx, history)
		if err != nil {
			return nil, err
		}
	}

	m.state = StateDisplayingPage
	m.current = view
	return view, nil
}

// finished сообщает, что навигация уже ушла на титры (по счетчику страниц
// или по числу сделанных выборов) и нужен новый персонаж.
func (m *SessionManager) finished(ctx context.Context, choices []Choice) (bool, error) {
	if len(choices) >= m.creditsPage-1 {
		return true, nil
	}
	raw, err := m.getString(ctx, KeyCurrentPage)
	if err != nil {
		return false, err
	}
	n, convErr := strconv.Atoi(raw)
	return convErr == nil && n >= m.creditsPage, nil
}

func (m *SessionManager) requestPage(ctx context.Context, character string, history []string, choices []Choice) (*PageView, error) {
	sessionID, err := m.getString(ctx, KeySessionID)
	if err != nil {
		return nil, err
	}
	pageNumber := len(history) + 1

	page, err := m.api.GenerateStory(ctx, GenerateStoryRequest{
		Character:       character,
		PageNumber:      pageNumber,
		PreviousChoices: choices,
		PreviousStory:   strings.Join(history, "\n\n"),
		SessionID:       sessionID,
	})
	if err != nil {
		m.logger.Error("Error generating story", zap.Int("pageNumber", pageNumber), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLoadStory, err)
	}

	history = append(history, page.StoryText)
	if err := m.setJSON(ctx, KeyStoryHistory, history); err != nil {
		return nil, err
	}
	if err := m.setJSON(ctx, KeyCurrentChoices, page.Choices); err != nil {
		return nil, err
	}

	return &PageView{
		PageNumber:           pageNumber,
		StoryText:            page.StoryText,
		Choices:              page.Choices,
		ImageURL:             page.ImageURL,
		PreviousPlaythroughs: page.PreviousPlaythroughs,
	}, nil
}

func (m *SessionManager) cachedPage(ctx context.Context, history []string) (*PageView, error) {
	var currentChoices []string
	if err := m.getJSON(ctx, KeyCurrentChoices, &currentChoices); err != nil {
		return nil, err
	}
	if currentChoices == nil {
		currentChoices = []string{}
	}
	view := &PageView{PageNumber: len(history), Choices: currentChoices}
	if len(history) > 0 {
		view.StoryText = history[len(history)-1]
	}
	return view, nil
}

// Choose записывает выбор, асинхронно отправляет его на сервер и возвращает
// следующую точку навигации: "page<N>" либо CreditsDestination.
func (m *SessionManager) Choose(ctx context.Context, choiceIndex int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisplayingPage || m.current == nil {
		return "", ErrNotDisplaying
	}
	maxChoice := len(m.current.Choices)
	if maxChoice == 0 {
		maxChoice = 3
	}
	if choiceIndex < 1 || choiceIndex > maxChoice {
		return "", fmt.Errorf("%w: %d not in 1..%d", ErrInvalidChoice, choiceIndex, maxChoice)
	}

	character, err := m.getString(ctx, KeySelectedCharacter)
	if err != nil {
		return "", err
	}
	choices, err := m.loadChoices(ctx)
	if err != nil {
		return "", err
	}
	choices = append(choices, Choice{Choice: choiceIndex, Character: character})
	if err := m.setJSON(ctx, KeyStoryChoices, choices); err != nil {
		return "", err
	}
	m.state = StateSubmitting

	sessionID, err := m.getString(ctx, KeySessionID)
	if err != nil {
		return "", err
	}
	m.saveChoiceAsync(ctx, sessionID, m.current.PageNumber, choiceIndex)

	currentPage := 1
	if raw, err := m.getString(ctx, KeyCurrentPage); err != nil {
		return "", err
	} else if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
		currentPage = n
	}
	currentPage++
	if err := m.storage.Set(ctx, KeyCurrentPage, strconv.Itoa(currentPage)); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", KeyCurrentPage, err)
	}

	if currentPage >= m.creditsPage {
		return CreditsDestination, nil
	}
	return "page" + strconv.Itoa(currentPage), nil
}

// saveChoiceAsync отправляет выбор в фоне. Ошибка только логируется, навигация ее не ждет.
func (m *SessionManager) saveChoiceAsync(ctx context.Context, sessionID string, pageNumber, choiceIndex int) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveChoiceTimeout)
		defer cancel()
		if err := m.api.SaveChoice(saveCtx, sessionID, pageNumber, choiceIndex); err != nil {
			m.logger.Warn("Error saving choice",
				zap.String("sessionId", sessionID),
				zap.Int("pageNumber", pageNumber),
				zap.Int("choiceIndex", choiceIndex),
				zap.Error(err),
			)
		}
	}()
}

// Wait ждет завершения фоновых отправок выбора.
func (m *SessionManager) Wait() {
	m.pending.Wait()
}

func (m *SessionManager) getString(ctx context.Context, key string) (string, error) {
	v, err := m.storage.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// getJSON читает JSON значение. Отсутствующий или испорченный ключ оставляет out пустым.
func (m *SessionManager) getJSON(ctx context.Context, key string, out any) error {
	raw, err := m.getString(ctx, key)
	if err != nil || raw == "" {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		m.logger.Warn("Corrupted client state, ignoring", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (m *SessionManager) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := m.storage.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (m *SessionManager) loadHistory(ctx context.Context) ([]string, error) {
	var history []string
	if err := m.getJSON(ctx, KeyStoryHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (m *SessionManager) loadChoices(ctx context.Context) ([]Choice, error) {
	var choices []Choice
	if err := m.getJSON(ctx, KeyStoryChoices, &choices); err != nil {
		return nil, err
	}
	return choices, nil
}
