// Package telegram is the delivery channel: a thin bot-API client with the
// image-then-text fallback the pipeline relies on.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// captionLimit is the platform's hard cap on photo captions. Longer content
// is delivered text-only, where the limit is 4096.
const captionLimit = 1024

const defaultAPIBase = "https://api.telegram.org"

type Client struct {
	apiBase   string
	token     string
	channelID string
	adminID   string
	hc        *http.Client
	imageHC   *http.Client
}

type Options struct {
	APIBase     string // override for tests
	Token       string
	ChannelID   string
	AdminChatID string
	Client      *http.Client
}

// DeliveryResult reports what actually happened. Success is true when any
// form of the message reached the channel, image or not.
type DeliveryResult struct {
	Success   bool
	MessageID string
	UsedImage bool
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is required")
	}
	if strings.TrimSpace(opts.ChannelID) == "" {
		return nil, errors.New("telegram channel id is required")
	}
	base := strings.TrimRight(opts.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiBase:   base,
		token:     opts.Token,
		channelID: opts.ChannelID,
		adminID:   strings.TrimSpace(opts.AdminChatID),
		hc:        hc,
		imageHC:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Deliver sends one posting to the channel. With an image URL it tries a
// photo+caption send first and falls back to text-only on any image-side
// failure; callers never branch on the image path.
func (c *Client) Deliver(ctx context.Context, text, imageURL string) (DeliveryResult, error) {
	if imageURL != "" && len([]rune(text)) <= captionLimit {
		id, err := c.sendPhoto(ctx, c.channelID, text, imageURL)
		if err == nil {
			return DeliveryResult{Success: true, MessageID: id, UsedImage: true}, nil
		}
		log.Printf("[telegram] photo send failed, falling back to text: %v", err)
	}

	id, err := c.SendText(ctx, c.channelID, text)
	if err != nil {
		return DeliveryResult{}, err
	}
	return DeliveryResult{Success: true, MessageID: id}, nil
}

// SendText posts a plain message and returns the platform message id.
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	return c.callForMessageID(ctx, "sendMessage", payload)
}

// Edit rewrites a previously-sent message in place. Used for the long-lived
// run progress message.
func (c *Client) Edit(ctx context.Context, chatID, messageID, text string) error {
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("bad message id %q: %w", messageID, err)
	}
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": id,
		"text":       text,
	}
	_, err = c.callForMessageID(ctx, "editMessageText", payload)
	return err
}

// Broadcast sends to the admin chat; no-op when none is configured.
func (c *Client) Broadcast(ctx context.Context, text string) error {
	if c.adminID == "" {
		return nil
	}
	_, err := c.SendText(ctx, c.adminID, text)
	return err
}

// AnswerCallback acknowledges an interaction so the client stops showing a
// spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}
	body, _ := json.Marshal(payload)
	_, err := c.post(ctx, "answerCallbackQuery", "application/json", bytes.NewReader(body))
	return err
}

// sendPhoto re-uploads the image bytes; the platform fetching the URL
// itself fails too often on hotlink-protected boards.
func (c *Client) sendPhoto(ctx context.Context, chatID, caption, imageURL string) (string, error) {
	img, contentType, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("chat_id", chatID)
	_ = w.WriteField("caption", caption)

	part, err := w.CreateFormFile("photo", photoFilename(contentType))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(img); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	raw, err := c.post(ctx, "sendPhoto", w.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	return messageIDFrom(raw)
}

func (c *Client) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, "", fmt.Errorf("bad image url %q", imageURL)
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	res, err := c.imageHC.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, "", fmt.Errorf("image status %s", res.Status)
	}

	img, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, "", err
	}
	if len(img) == 0 {
		return nil, "", errors.New("empty image body")
	}
	return img, res.Header.Get("Content-Type"), nil
}

func (c *Client) callForMessageID(ctx context.Context, method string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	raw, err := c.post(ctx, method, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return messageIDFrom(raw)
}

func (c *Client) post(ctx context.Context, method, contentType string, body io.Reader) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s read: %w", method, err)
	}

	var apiRes struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &apiRes); err != nil {
		return nil, fmt.Errorf("%s decode: %w", method, err)
	}
	if !apiRes.OK {
		return nil, fmt.Errorf("%s rejected: %s", method, apiRes.Description)
	}
	return raw, nil
}

func messageIDFrom(raw []byte) (string, error) {
	var res struct {
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", err
	}
	if res.Result.MessageID == 0 {
		return "", nil
	}
	return strconv.FormatInt(res.Result.MessageID, 10), nil
}

func photoFilename(contentType string) string {
	switch contentType {
	case "image/png":
		return "photo.png"
	case "image/webp":
		return "photo.webp"
	default:
		return "photo.jpg"
	}
}
