package rawmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// Bodies holds the text and HTML views of a message body. Either view may be
// empty when the message carries no part of that type.
type Bodies struct {
	Text string
	HTML string
}

// ExtractBodies walks a raw RFC 822 message and returns its text/plain and
// text/html views. Multipart messages are walked recursively; the first part
// of each type wins. Attachments and unrecognized parts are skipped.
func ExtractBodies(raw []byte) (*Bodies, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &Bodies{}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If content type is unparseable, treat as plain text
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		result.Text = string(body)
		return result, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := walkMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return result, nil
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	switch mediaType {
	case "text/html":
		result.HTML = string(body)
	default:
		result.Text = string(body)
	}
	return result, nil
}

// walkMultipart processes a multipart MIME body, collecting the first
// text/plain and text/html parts it encounters.
func walkMultipart(body io.Reader, boundary string, result *Bodies) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		// Nested multipart (e.g. multipart/alternative inside multipart/mixed)
		if strings.HasPrefix(mediaType, "multipart/") {
			nestedBoundary := params["boundary"]
			if nestedBoundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := walkMultipart(part, nestedBoundary, result); err != nil {
				slog.Warn("failed to parse nested multipart",
					"error", err,
				)
			}
			continue
		}

		if strings.HasPrefix(part.Header.Get("Content-Disposition"), "attachment") {
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		switch mediaType {
		case "text/plain":
			if result.Text == "" {
				result.Text = string(content)
			}
		case "text/html":
			if result.HTML == "" {
				result.HTML = string(content)
			}
		}
	}

	return nil
}

// readPartContent reads the full content of a MIME part, handling
// Content-Transfer-Encoding (base64, quoted-printable).
func readPartContent(part *multipart.Part) ([]byte, error) {
	encoding := part.Header.Get("Content-Transfer-Encoding")
	encoding = strings.ToLower(strings.TrimSpace(encoding))

	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	switch encoding {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Try with RawStdEncoding for unpadded base64
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	default:
		// For "7bit", "8bit", "binary", "quoted-printable", or empty,
		// return raw content. Go's multipart reader handles QP internally.
		return raw, nil
	}
}

// decodeBody reads a non-multipart body, applying its transfer encoding.
func decodeBody(body io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		return base64.StdEncoding.DecodeString(cleaned)
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(body))
	default:
		return io.ReadAll(body)
	}
}
