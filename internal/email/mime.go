package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/wmcube/settlesplit/internal/models"
)

// BuildRawMessage assembles an RFC 822 message (multipart/mixed wrapping a
// multipart/alternative text+HTML body plus one PDF attachment per file) and
// returns it base64url-encoded, the shape the Gmail drafts API expects.
func BuildRawMessage(to, cc, subject, body, htmlBody string, files []models.OutputFile) (string, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	if to != "" {
		fmt.Fprintf(&buf, "To: %s\r\n", to)
	}
	if cc != "" {
		fmt.Fprintf(&buf, "Cc: %s\r\n", cc)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	// Nested alternative part carrying the plain and HTML bodies.
	altHeader := textproto.MIMEHeader{}
	altBuf := &bytes.Buffer{}
	alt := multipart.NewWriter(altBuf)
	altHeader.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))

	plainPart, err := alt.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=UTF-8"},
	})
	if err != nil {
		return "", fmt.Errorf("create plain part: %w", err)
	}
	fmt.Fprint(plainPart, body)

	htmlPart, err := alt.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return "", fmt.Errorf("create html part: %w", err)
	}
	fmt.Fprint(htmlPart, htmlBody)
	if err := alt.Close(); err != nil {
		return "", fmt.Errorf("close alternative part: %w", err)
	}

	altWriter, err := mixed.CreatePart(altHeader)
	if err != nil {
		return "", fmt.Errorf("create body part: %w", err)
	}
	if _, err := altWriter.Write(altBuf.Bytes()); err != nil {
		return "", fmt.Errorf("write body part: %w", err)
	}

	for _, f := range files {
		attach, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/pdf"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", f.Filename)},
		})
		if err != nil {
			return "", fmt.Errorf("create attachment part for %s: %w", f.Filename, err)
		}
		enc := base64.NewEncoder(base64.StdEncoding, attach)
		if _, err := enc.Write(f.Content); err != nil {
			return "", fmt.Errorf("encode attachment %s: %w", f.Filename, err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("finalize attachment %s: %w", f.Filename, err)
		}
	}

	if err := mixed.Close(); err != nil {
		return "", fmt.Errorf("close message: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}
