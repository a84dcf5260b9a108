package telegramrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"libraryrental/util/httpx"
)

type httpRepo struct {
	botToken string
	chatID   string
	client   *http.Client
}

func NewHTTP(botToken, chatID string) Repo {
	return &httpRepo{botToken: botToken, chatID: chatID, client: httpx.Client()}
}

func (r *httpRepo) Send(ctx context.Context, text string) error {
	body := map[string]any{
		"chat_id": r.chatID,
		"text":    text,
	}
	b, _ := json.Marshal(body)

	u := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", r.botToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram sendMessage failed: %s", resp.Status)
	}
	return nil
}
