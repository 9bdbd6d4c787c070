package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/models"
)

var downloadFileMethod = &Method{
	Name: "download_file",
	StatusHandlers: map[int]StatusHandler{
		http.StatusNotFound: func(r *Response) error {
			switch r.envelope().Reason {
			case "file_deleted":
				return &FileDeletedError{r.methodError("file was deleted")}
			case "file_metadata_not_found":
				return &FileMetadataNotFoundError{r.methodError("file metadata not found")}
			case "chat_not_found":
				return chatNotFound(r)
			}
			return &InvalidResponseStatusError{Method: r.Method, Status: r.Status, Body: string(r.Body)}
		},
	},
}

// DownloadFile streams the content of a chat file into w. The whole body is
// copied before the connection is released.
func (c *Caller) DownloadFile(ctx context.Context, botID, chatID, fileID uuid.UUID, w io.Writer) (int64, error) {
	req, err := c.authorizedRequest(ctx, botID, request{
		verb: http.MethodGet,
		path: "/api/v3/botx/files/download",
		query: url.Values{
			"group_chat_id": {chatID.String()},
			"file_id":       {fileID.String()},
			"is_preview":    {"false"},
		},
	})
	if err != nil {
		return 0, err
	}

	m := withUnauthorized(downloadFileMethod, c, botID)
	httpResp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: sending request: %w", m.Name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(httpResp.Body)
		return 0, c.checkStatus(&Response{
			Method: m.Name,
			Status: httpResp.StatusCode,
			Header: httpResp.Header,
			Body:   body,
		}, m)
	}

	n, err := io.Copy(w, httpResp.Body)
	if err != nil {
		return n, fmt.Errorf("%s: copying body: %w", m.Name, err)
	}
	return n, nil
}

// FileMeta is sent alongside an uploaded file.
type FileMeta struct {
	Duration Missable[int]    `json:"duration,omitzero"`
	Caption  Missable[string] `json:"caption,omitzero"`
}

var uploadFileMethod = &Method{
	Name:           "upload_file",
	StatusHandlers: map[int]StatusHandler{http.StatusNotFound: chatNotFound},
}

// UploadFile uploads content to the chat file service. The returned file
// can be referenced from messages without inlining it.
func (c *Caller) UploadFile(ctx context.Context, botID, chatID uuid.UUID, fileName, mimeType string, content io.Reader, meta FileMeta) (*models.AsyncFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("group_chat_id", chatID.String()); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding file meta: %w", err)
	}
	if err := mw.WriteField("meta", string(metaJSON)); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="content"; filename=%q`, fileName))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("reading upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}

	var file models.AsyncFile
	err = c.Call(ctx, botID, uploadFileMethod, request{
		verb:        http.MethodPost,
		path:        "/api/v3/botx/files/upload",
		raw:         &buf,
		contentType: mw.FormDataContentType(),
	}, &file)
	if err != nil {
		return nil, err
	}
	return &file, nil
}
