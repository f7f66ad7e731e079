// Package bot runs the Telegram command surface. It long-polls getUpdates
// and answers a small set of chat commands.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/database"
	"crypto-signal-bot/internal/scanner"
	"crypto-signal-bot/internal/stats"
)

const pollTimeout = 30 * time.Second

// SignalSource lists the open signals for the /active command.
type SignalSource interface {
	GetOpenSignals(ctx context.Context) ([]*database.SignalRecord, error)
}

// ScanTrigger runs a scan for the /force command.
type ScanTrigger interface {
	Scan() *scanner.ScanResult
}

// Config holds Telegram bot configuration
type Config struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
	Enabled  bool   `json:"enabled"`
}

// TelegramBot serves chat commands from the configured chat.
type TelegramBot struct {
	config   Config
	client   *http.Client
	signals  SignalSource
	reporter *stats.Reporter
	scans    ScanTrigger
	logger   zerolog.Logger

	offset   int64
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewTelegramBot creates a new Telegram command bot
func NewTelegramBot(
	config Config,
	signals SignalSource,
	reporter *stats.Reporter,
	scans ScanTrigger,
	logger zerolog.Logger,
) *TelegramBot {
	return &TelegramBot{
		config:   config,
		client:   &http.Client{Timeout: pollTimeout + 10*time.Second},
		signals:  signals,
		reporter: reporter,
		scans:    scans,
		logger:   logger.With().Str("component", "TelegramBot").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins long-polling in a background goroutine.
func (b *TelegramBot) Start() {
	if !b.config.Enabled || b.config.BotToken == "" {
		b.logger.Info().Msg("Telegram bot disabled")
		return
	}

	b.wg.Add(1)
	go b.pollLoop()
	b.logger.Info().Msg("Telegram bot started")
}

// Stop shuts down the polling loop.
func (b *TelegramBot) Stop() {
	close(b.stopChan)
	b.wg.Wait()
	b.logger.Info().Msg("Telegram bot stopped")
}

func (b *TelegramBot) pollLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopChan:
			return
		default:
		}

		updates, err := b.getUpdates()
		if err != nil {
			b.logger.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-b.stopChan:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			b.offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleCommand(update.Message)
		}
	}
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	Text string `json:"text"`
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

func (b *TelegramBot) getUpdates() ([]update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(b.offset, 10))
	params.Set("timeout", strconv.Itoa(int(pollTimeout.Seconds())))
	params.Set("allowed_updates", `["message"]`)

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?%s", b.config.BotToken, params.Encode())
	resp, err := b.client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to poll telegram updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	var parsed updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode telegram updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram API reported failure")
	}
	return parsed.Result, nil
}

func (b *TelegramBot) handleCommand(msg *message) {
	// Only the configured chat may issue commands.
	if b.config.ChatID != "" && strconv.FormatInt(msg.Chat.ID, 10) != b.config.ChatID {
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}

	cmd := strings.ToLower(fields[0])
	if idx := strings.Index(cmd, "@"); idx > 0 {
		cmd = cmd[:idx]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var reply string
	switch cmd {
	case "/start", "/help":
		reply = helpText()
	case "/force":
		reply = b.runForceScan()
	case "/stats":
		reply = b.buildStats(ctx)
	case "/active":
		reply = b.listActive(ctx)
	default:
		return
	}

	if err := b.sendMessage(msg.Chat.ID, reply); err != nil {
		b.logger.Warn().Err(err).Str("command", cmd).Msg("failed to send reply")
	}
}

func helpText() string {
	return strings.Join([]string{
		"🤖 *Signal Bot*",
		"",
		"/force - run a market scan now",
		"/stats - performance summary",
		"/active - open signals",
		"/help - this message",
	}, "\n")
}

func (b *TelegramBot) runForceScan() string {
	result := b.scans.Scan()
	if result == nil {
		return "A scan is already in progress."
	}
	return fmt.Sprintf(
		"Scan finished in %s\nScanned %d symbols, skipped %d, generated %d signals.",
		result.Duration.Round(time.Second), result.SymbolsScanned, result.SymbolsSkipped, result.SignalsGenerated,
	)
}

func (b *TelegramBot) buildStats(ctx context.Context) string {
	report, err := b.reporter.Build(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to build stats report")
		return "Failed to build the stats report."
	}
	return stats.Format(report)
}

func (b *TelegramBot) listActive(ctx context.Context) string {
	signals, err := b.signals.GetOpenSignals(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to load open signals")
		return "Failed to load open signals."
	}
	if len(signals) == 0 {
		return "No open signals."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📡 *Open signals: %d*\n\n", len(signals))
	for _, sig := range signals {
		fmt.Fprintf(&sb, "%s %s · entry %.4f · stop %.4f\n", sig.Symbol, sig.Side, sig.EntryA, sig.Stop)
	}
	return sb.String()
}

func (b *TelegramBot) sendMessage(chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", b.config.BotToken)
	resp, err := b.client.Post(endpoint, "application/json", strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
