package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trichoscope/internal/container"
	"trichoscope/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я помогаю размечать трихоскопические снимки кожи головы.

📸 Отправьте снимок, и я посчитаю волосы, фолликулярные юниты и фазы роста.

📋 Команды:
/check — начать новый анализ
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте снимок (лучше файлом, без сжатия)
2️⃣ Если подключён ИИ, бот сделает предварительную разметку
3️⃣ Вы получите отчёт и снимок с отметками

✏️ Разметка вручную (координаты в пикселях снимка):
/mark <код> <x> <y> [радиус] — поставить отметку
/undo — убрать последнюю отметку
/clear — удалить всю разметку
/patient <id> [имя] — указать пациента
/report — текущий отчёт
/export — снимок с отчётом

🏷 Коды признаков:
%s`

	msgAwaitingPhoto    = "📸 Отправьте трихоскопический снимок."
	msgCancelled        = "❌ Операция отменена. Отправьте /check для нового анализа."
	msgSendPhoto        = "📸 Пожалуйста, отправьте снимок или используйте /help."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing       = "⏳ Обрабатываю снимок..."
	msgProcessingError  = "⚠️ Не удалось обработать снимок. Попробуйте другой файл."
	msgTooLarge         = "⚠️ Файл слишком большой."
	msgNotImage         = "⚠️ Это не изображение. Отправьте снимок в формате JPEG, PNG, TIFF, BMP или WebP."
	msgNoSession        = "📸 Сначала отправьте снимок."
	msgAIFailed         = "⚠️ ИИ-разметка недоступна: %v\nМожно размечать вручную командой /mark."
	msgNoDetections     = "ℹ️ ИИ не нашёл волос на снимке. Разметка не изменилась."
	msgAIApplied        = "🤖 ИИ поставил отметок: %d (отброшено: %d)."
	msgMarkUsage        = "Использование: /mark <код> <x> <y> [радиус]\nНапример: /mark terminal 120 340 6"
	msgMarked           = "✅ %s в (%.0f, %.0f). Всего волос: %d, ФЮ: %d."
	msgUndone           = "↩️ Убрана отметка %s в (%.0f, %.0f)."
	msgNothingToUndo    = "Отметок нет, отменять нечего."
	msgClearConfirm     = "🗑 Удалить всю разметку? Ответьте «да» для подтверждения."
	msgCleared          = "🗑 Разметка удалена."
	msgClearAborted     = "Очистка отменена, разметка сохранена."
	msgPatientUsage     = "Использование: /patient <id> [имя]"
	msgPatientSet       = "👤 Пациент: %s"
	msgInvalidMark      = "⚠️ Отметка не поставлена: %v"
	msgExportFailed     = "⚠️ Не удалось собрать итоговый снимок."
	msgInternalError    = "⚠️ Что-то пошло не так. Попробуйте ещё раз."
	minBrushRadius      = 1
	maxBrushRadius      = 20
	documentImagePrefix = "image/"
)

// Bot представляет Telegram-бота
type Bot struct {
	api           *tgbotapi.BotAPI
	app           *container.Container
	client        *http.Client
	maxImageBytes int64
}

// NewBot создаёт нового бота. maxImageBytes <= 0 снимает ограничение на размер файла.
func NewBot(token string, c *container.Container, maxImageBytes int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		app:           c,
		client:        http.DefaultClient,
		maxImageBytes: maxImageBytes,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	user, err := b.app.UserService.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		log.Printf("Error getting user: %v", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото: сжатое фото или файл-изображение
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleImage(ctx, msg, user, photo.FileID, int64(photo.FileSize))
		return
	}
	if msg.Document != nil {
		if !strings.HasPrefix(msg.Document.MimeType, documentImagePrefix) {
			b.sendMessage(msg.Chat.ID, msgNotImage)
			return
		}
		b.handleImage(ctx, msg, user, msg.Document.FileID, int64(msg.Document.FileSize))
		return
	}

	if user.State == entity.StateAwaitingClearConfirm {
		b.handleClearConfirmation(ctx, msg, user)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	command := msg.Command()
	updated, err := b.app.UserService.BeginCommand(ctx, user.ID, user.ChatID, command)
	if err != nil {
		log.Printf("Error updating user %d state: %v", user.ID, err)
	} else {
		*user = *updated
	}

	switch command {
	case "start":
		b.transition(ctx, user, b.app.UserService.Cancel)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgHelp, featureCodes()))

	case "check":
		b.transition(ctx, user, b.app.UserService.BeginCheck)
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "mark":
		b.handleMark(ctx, msg, user)

	case "undo":
		b.handleUndo(ctx, msg, user)

	case "clear":
		b.transition(ctx, user, b.app.UserService.AskClearConfirmation)
		b.sendMessage(msg.Chat.ID, msgClearConfirm)

	case "patient":
		b.handlePatient(ctx, msg, user)

	case "report":
		_, lines, err := b.app.SessionService.Report(ctx, user.SessionID())
		if err != nil {
			b.replyError(msg.Chat.ID, err)
			return
		}
		b.sendMessage(msg.Chat.ID, strings.Join(lines, "\n"))

	case "export":
		b.sendExport(ctx, msg.Chat.ID, user)

	case "cancel":
		b.transition(ctx, user, b.app.UserService.Cancel)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handleImage загружает снимок в сессию пользователя, размечает ИИ и отправляет отчёт
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, user *entity.User, fileID string, size int64) {
	if b.maxImageBytes > 0 && size > b.maxImageBytes {
		b.sendMessage(msg.Chat.ID, msgTooLarge)
		return
	}

	b.transition(ctx, user, b.app.UserService.BeginProcessing)
	defer b.transition(ctx, user, b.app.UserService.Cancel)

	b.sendMessage(msg.Chat.ID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.Printf("Error downloading image: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	state, err := b.app.SessionService.LoadImage(ctx, user.SessionID(), imageData)
	if err != nil {
		log.Printf("Error loading image for user %d: %v", user.ID, err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}
	log.Printf("Session %s: loaded %dx%d %s image", state.ID, state.ImageWidth, state.ImageHeight, state.ImageFormat)

	if b.app.AnalysisService.Enabled() {
		outcome, err := b.app.AnalysisService.Analyze(ctx, user.SessionID())
		switch {
		case err != nil:
			log.Printf("Session %s: analysis failed: %v", state.ID, err)
			b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgAIFailed, err))
		case outcome.Warning != "":
			b.sendMessage(msg.Chat.ID, msgNoDetections)
		default:
			b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgAIApplied, outcome.Accepted, len(outcome.Rejected)))
		}
	}

	b.sendExport(ctx, msg.Chat.ID, user)
}

// handleMark /mark <код> <x> <y> [радиус]
func (b *Bot) handleMark(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 3 || len(args) > 4 {
		b.sendMessage(msg.Chat.ID, msgMarkUsage)
		return
	}

	kind, ok := entity.ParseFeatureKind(args[0])
	if !ok {
		b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgInvalidMark, fmt.Sprintf("неизвестный код %q", args[0])))
		return
	}
	x, errX := strconv.ParseFloat(args[1], 64)
	y, errY := strconv.ParseFloat(args[2], 64)
	if errX != nil || errY != nil {
		b.sendMessage(msg.Chat.ID, msgMarkUsage)
		return
	}
	var radius float64
	if len(args) == 4 {
		r, err := strconv.ParseFloat(args[3], 64)
		if err != nil || r < minBrushRadius || r > maxBrushRadius {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgInvalidMark, fmt.Sprintf("радиус должен быть от %d до %d", minBrushRadius, maxBrushRadius)))
			return
		}
		radius = r
	}

	a, report, err := b.app.SessionService.PlaceNative(ctx, user.SessionID(), entity.Point{X: x, Y: y}, &kind, radius)
	if err != nil {
		b.replyError(msg.Chat.ID, err)
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgMarked, a.Kind.Label(), a.X, a.Y, report.TotalHairCount, report.TotalFollicularUnitCount))
}

func (b *Bot) handleUndo(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	undone, _, err := b.app.SessionService.Undo(ctx, user.SessionID())
	if err != nil {
		b.replyError(msg.Chat.ID, err)
		return
	}
	if undone == nil {
		b.sendMessage(msg.Chat.ID, msgNothingToUndo)
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgUndone, undone.Kind.Label(), undone.X, undone.Y))
}

// handleClearConfirmation ответ на вопрос /clear
func (b *Bot) handleClearConfirmation(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	confirmed, err := b.app.UserService.ConfirmClear(ctx, user.ID, user.ChatID, msg.Text)
	if err != nil {
		log.Printf("Error updating user %d state: %v", user.ID, err)
		return
	}
	user.SetState(entity.StateMainMenu)

	if !confirmed {
		b.sendMessage(msg.Chat.ID, msgClearAborted)
		return
	}
	if _, err := b.app.SessionService.Clear(ctx, user.SessionID()); err != nil {
		b.replyError(msg.Chat.ID, err)
		return
	}
	b.sendMessage(msg.Chat.ID, msgCleared)
}

func (b *Bot) handlePatient(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.sendMessage(msg.Chat.ID, msgPatientUsage)
		return
	}
	name := strings.Join(args[1:], " ")
	state, err := b.app.SessionService.SetPatient(ctx, user.SessionID(), args[0], name)
	if err != nil {
		b.replyError(msg.Chat.ID, err)
		return
	}
	who := state.PatientID
	if state.PatientName != "" {
		who += " (" + state.PatientName + ")"
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgPatientSet, who))
}

// sendExport отправляет отчёт текстом и итоговый PNG документом без сжатия
func (b *Bot) sendExport(ctx context.Context, chatID int64, user *entity.User) {
	out, err := b.app.ExportService.Export(ctx, user.SessionID())
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	b.sendMessage(chatID, strings.Join(out.Lines, "\n"))

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: out.Filename, Bytes: out.PNG})
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Error sending document: %v", err)
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if b.maxImageBytes > 0 {
		body = io.LimitReader(resp.Body, b.maxImageBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if b.maxImageBytes > 0 && int64(len(data)) > b.maxImageBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", b.maxImageBytes)
	}

	return data, nil
}

// transition применяет переход состояния из UserService и обновляет локальную копию
func (b *Bot) transition(ctx context.Context, user *entity.User, step func(ctx context.Context, userID, chatID int64) (*entity.User, error)) {
	updated, err := step(ctx, user.ID, user.ChatID)
	if err != nil {
		log.Printf("Error saving user %d state: %v", user.ID, err)
		return
	}
	*user = *updated
}

// replyError переводит ошибку сервиса в сообщение пользователю
func (b *Bot) replyError(chatID int64, err error) {
	switch {
	case errors.Is(err, entity.ErrSessionNotFound), errors.Is(err, entity.ErrNoImage):
		b.sendMessage(chatID, msgNoSession)
	case errors.Is(err, entity.ErrInvalidAnnotation):
		b.sendMessage(chatID, fmt.Sprintf(msgInvalidMark, err))
	case errors.Is(err, entity.ErrExport):
		log.Printf("Export failed: %v", err)
		b.sendMessage(chatID, msgExportFailed)
	default:
		log.Printf("Unexpected error: %v", err)
		b.sendMessage(chatID, msgInternalError)
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func featureCodes() string {
	var sb strings.Builder
	for _, f := range entity.Features() {
		fmt.Fprintf(&sb, "• %s — %s\n", f.Code, f.Label)
	}
	return strings.TrimRight(sb.String(), "\n")
}
