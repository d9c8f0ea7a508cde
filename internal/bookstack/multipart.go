package bookstack

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strconv"

	"github.com/google/uuid"

	"github.com/faithconnect/bookstack-sync/internal/domain"
)

// encodeBookForm renders a book draft as multipart/form-data: scalar fields as
// form values, tags in BookStack's indexed form and the cover as the "image" part.
func encodeBookForm(draft domain.BookDraft) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"name", draft.Name},
		{"slug", draft.Slug},
		{"description", draft.Description},
		{"description_html", draft.DescriptionHTML},
	}
	if draft.DefaultTemplateID != nil {
		fields = append(fields, [2]string{"default_template_id", strconv.FormatInt(*draft.DefaultTemplateID, 10)})
	}
	for i, tag := range draft.Tags {
		prefix := fmt.Sprintf("tags[%d]", i)
		fields = append(fields,
			[2]string{prefix + "[name]", tag.Name},
			[2]string{prefix + "[value]", tag.Value},
			[2]string{prefix + "[order]", strconv.Itoa(tag.Order)},
		)
	}

	for _, f := range fields {
		if f[1] == "" && f[0] != "name" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	contentType := http.DetectContentType(draft.Image)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, coverFilename(draft.Cover, contentType)))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(draft.Image); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// coverFilename keeps the source file name when known. Otherwise a random name
// is generated with an extension matching the sniffed content type.
func coverFilename(cover *domain.Cover, contentType string) string {
	if cover != nil {
		if cover.Name != "" && path.Ext(cover.Name) != "" {
			return path.Base(cover.Name)
		}
		if cover.Path != "" && path.Ext(cover.Path) != "" {
			return path.Base(cover.Path)
		}
	}

	ext := ".bin"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return "cover-" + uuid.NewString() + ext
}
