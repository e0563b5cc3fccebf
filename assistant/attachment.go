package assistant

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// FileAttachment is a file sent along with a draft prompt. Data is base64.
type FileAttachment struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MimeType   string `json:"type"`
	Data       string `json:"data"`
	PreviewURL string `json:"previewUrl"`
}

// NewAttachment builds an attachment from raw bytes. An empty mimeType is
// guessed from the name, then from the content.
func NewAttachment(name, mimeType string, data []byte) FileAttachment {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return FileAttachment{
		ID:         uuid.NewString(),
		Name:       name,
		MimeType:   mimeType,
		Data:       encoded,
		PreviewURL: "data:" + mimeType + ";base64," + encoded,
	}
}

// FromMultipart reads an uploaded file into an attachment.
func FromMultipart(fh *multipart.FileHeader) (FileAttachment, error) {
	f, err := fh.Open()
	if err != nil {
		return FileAttachment{}, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return FileAttachment{}, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	return NewAttachment(fh.Filename, fh.Header.Get("Content-Type"), data), nil
}

// Complete fills ID and PreviewURL for attachments decoded from JSON.
func (a *FileAttachment) Complete() {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.PreviewURL == "" {
		a.PreviewURL = "data:" + a.MimeType + ";base64," + a.Data
	}
}

// Validate checks that the attachment can be sent at all. Empty files are
// allowed; the model decides what to make of them.
func (a FileAttachment) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.MimeType, validation.Required),
		validation.Field(&a.Data, validation.By(isBase64)),
	)
}

// Bytes decodes the attachment payload.
func (a FileAttachment) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

func isBase64(value any) error {
	s, _ := value.(string)
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return fmt.Errorf("must be base64 encoded")
	}
	return nil
}
