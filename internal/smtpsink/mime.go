package smtpsink

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Attachment 解析出的附件
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ParsedEmail 表示解析后的邮件内容。
type ParsedEmail struct {
	Subject     string
	From        string
	To          string
	ReplyTo     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// ParseEmail 解析邮件，提取文本、HTML 和附件。
func ParseEmail(rawEmail []byte) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(rawEmail))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	parsed := &ParsedEmail{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    decodeHeader(msg.Header.Get("From")),
		To:      decodeHeader(msg.Header.Get("To")),
		ReplyTo: decodeHeader(msg.Header.Get("Reply-To")),
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		// 没有 Content-Type 时当作纯文本
		body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), "")
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		parsed.Text = body
		return parsed, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}
		if err := parseMultipart(multipart.NewReader(msg.Body, boundary), parsed); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
		return parsed, nil
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if mediaType == "text/html" {
		parsed.HTML = body
	} else {
		parsed.Text = body
	}

	return parsed, nil
}

// parseMultipart 递归解析多部分邮件。
func parseMultipart(mr *multipart.Reader, parsed *ParsedEmail) error {
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}

		if disposition := part.Header.Get("Content-Disposition"); disposition != "" {
			dispType, dispParams, _ := mime.ParseMediaType(disposition)
			if dispType == "attachment" || (dispType == "inline" && !strings.HasPrefix(mediaType, "text/")) {
				filename := dispParams["filename"]
				if filename == "" {
					filename = params["name"]
				}
				if filename == "" {
					filename = "unnamed"
				}

				content, err := decodeBytes(part, part.Header.Get("Content-Transfer-Encoding"))
				if err != nil {
					return fmt.Errorf("decode attachment %s: %w", filename, err)
				}

				parsed.Attachments = append(parsed.Attachments, Attachment{
					Filename:    decodeHeader(filename),
					ContentType: mediaType,
					Content:     content,
				})
				continue
			}
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if boundary := params["boundary"]; boundary != "" {
				if err := parseMultipart(multipart.NewReader(part, boundary), parsed); err != nil {
					return err
				}
			}
			continue
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			continue
		}

		switch mediaType {
		case "text/html":
			if parsed.HTML == "" {
				parsed.HTML = body
			}
		case "text/plain":
			if parsed.Text == "" {
				parsed.Text = body
			}
		}
	}
}

// decodeBytes 按传输编码解码
func decodeBytes(reader io.Reader, transferEncoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		reader = quotedprintable.NewReader(reader)
	}
	return io.ReadAll(reader)
}

// decodeBody 解码传输编码并转换为 UTF-8。
func decodeBody(reader io.Reader, transferEncoding string, charset string) (string, error) {
	body, err := decodeBytes(reader, transferEncoding)
	if err != nil {
		return "", err
	}

	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if enc := getCharsetEncoding(charset); enc != nil {
			if converted, _, err := transform.Bytes(enc.NewDecoder(), body); err == nil {
				body = converted
			}
		}
	}

	return string(body), nil
}

// getCharsetEncoding 根据字符集名称返回编码
func getCharsetEncoding(charset string) encoding.Encoding {
	switch charset {
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	}
	if enc, err := htmlindex.Get(charset); err == nil {
		return enc
	}
	return nil
}

// decodeHeader 解码 RFC 2047 编码的头部，支持非 UTF-8 字符集
func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := &mime.WordDecoder{
		CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
			enc := getCharsetEncoding(strings.ToLower(charset))
			if enc == nil {
				return nil, fmt.Errorf("unsupported charset %q", charset)
			}
			return transform.NewReader(input, enc.NewDecoder()), nil
		},
	}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
