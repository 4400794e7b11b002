package vk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
)

// SendMessage delivers a direct message. randomID is the platform's
// idempotency token and must be fresh per call.
func (c *Client) SendMessage(ctx context.Context, userID int64, text string, attachments []string, randomID int64) (int64, error) {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("message", text)
	params.Set("random_id", strconv.FormatInt(randomID, 10))
	if len(attachments) > 0 {
		params.Set("attachment", strings.Join(attachments, ","))
	}

	var messageID int64
	if err := c.call(ctx, "messages.send", params, &messageID); err != nil {
		return 0, err
	}
	return messageID, nil
}

type uploadServer struct {
	UploadURL string `json:"upload_url"`
}

type uploadResult struct {
	Server int             `json:"server"`
	Photo  string          `json:"photo"`
	Hash   string          `json:"hash"`
	Error  json.RawMessage `json:"error"`
}

type savedPhoto struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	AccessKey string `json:"access_key"`
}

// UploadMessagePhoto uploads an image for one recipient and returns the
// attachment reference ("photo{owner}_{id}").
func (c *Client) UploadMessagePhoto(ctx context.Context, peerID int64, filename string, data []byte) (string, error) {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))

	var server uploadServer
	if err := c.call(ctx, "photos.getMessagesUploadServer", params, &server); err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	var uploaded uploadResult
	if err := c.postJSON(ctx, server.UploadURL, mw.FormDataContentType(), body.Bytes(), &uploaded); err != nil {
		return "", err
	}
	if len(uploaded.Error) > 0 && string(uploaded.Error) != "null" {
		return "", fmt.Errorf("upload photo: %s", uploaded.Error)
	}
	if uploaded.Photo == "" || uploaded.Photo == "[]" {
		return "", fmt.Errorf("upload photo: server returned no photo")
	}

	save := url.Values{}
	save.Set("server", strconv.Itoa(uploaded.Server))
	save.Set("photo", uploaded.Photo)
	save.Set("hash", uploaded.Hash)

	var saved []savedPhoto
	if err := c.call(ctx, "photos.saveMessagesPhoto", save, &saved); err != nil {
		return "", err
	}
	if len(saved) == 0 {
		return "", fmt.Errorf("photos.saveMessagesPhoto: empty response")
	}
	return fmt.Sprintf("photo%d_%d", saved[0].OwnerID, saved[0].ID), nil
}
