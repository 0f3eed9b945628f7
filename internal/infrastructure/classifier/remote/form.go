package remote

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
)

// encodeUploadForm builds the multipart body expected by the service:
// repeated "files" parts carrying the documents plus the "name" and
// "lastname" fields. Returns the body and its content type.
func encodeUploadForm(firstName, lastName string, batch []domain.FileUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range batch {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(f.Name)))
		if f.ContentType != "" {
			header.Set("Content-Type", f.ContentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %q: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write file part %q: %w", f.Name, err)
		}
	}

	if err := writer.WriteField("name", firstName); err != nil {
		return nil, "", fmt.Errorf("write name field: %w", err)
	}
	if err := writer.WriteField("lastname", lastName); err != nil {
		return nil, "", fmt.Errorf("write lastname field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
