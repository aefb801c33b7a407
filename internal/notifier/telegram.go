package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/client"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/common"
)

// TelegramNotifier sends sell notifications via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	WishWord string
	Client   *http.Client

	price *client.CoinGeckoClient
}

// NewTelegramNotifier creates a notifier for the configured chat.
func NewTelegramNotifier(botToken, chatID, wishWord string) *TelegramNotifier {
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		WishWord: wishWord,
		Client:   &http.Client{Timeout: 30 * time.Second},
		price:    client.NewCoinGeckoClient(),
	}
}

// NotifySell formats and sends a sell outcome. Errors are logged and
// swallowed: a lost notification must never disturb a lineage.
func (t *TelegramNotifier) NotifySell(note SellNote) {
	got := common.LamportsToSOL(uint64(max64(note.GotLamports, 0)))

	usd := ""
	if price, err := t.price.GetSOLPriceUSD(); err == nil && note.GotLamports > 0 {
		usd = fmt.Sprintf(" ($%.3f)", float64(note.GotLamports)/common.LamportsPerSOL*price)
	}

	text := fmt.Sprintf("🎉 %s %s\n💵 Sold: %d %s\n💎 Got: %s SOL%s",
		t.WishWord, Obfuscate(note.Wallet), note.SoldMinorUnits, note.TokenName, got, usd)

	if err := t.send(text); err != nil {
		log.Printf("[WARN] telegram notification failed: %v", err)
	}
}

// send posts a message to the configured chat.
func (t *TelegramNotifier) send(text string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	payload := map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := t.Client.Post(apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
