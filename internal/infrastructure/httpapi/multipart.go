package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"

	"github.com/procurehub/portal-client/internal/domain/errors"
	"github.com/procurehub/portal-client/internal/domain/tender"
)

// documentsField is the form field name the backend expects file parts
// under.
const documentsField = "documents"

// sendMultipart issues method with a multipart body: scalar fields
// verbatim, followed by one file part per upload.
func (c *Client) sendMultipart(ctx context.Context, method, path string, fields map[string]string, uploads []tender.Upload) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// deterministic field order keeps request logs and tests stable
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := w.WriteField(name, fields[name]); err != nil {
			return nil, errors.NewInternalError("writing form field").WithCause(err)
		}
	}

	for _, upload := range uploads {
		part, err := createFilePart(w, upload)
		if err != nil {
			return nil, errors.NewInternalError("writing file part").WithCause(err)
		}
		if _, err := part.Write(upload.Content); err != nil {
			return nil, errors.NewInternalError("writing file content").WithCause(err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, errors.NewInternalError("finalizing multipart body").WithCause(err)
	}

	return c.do(ctx, method, path, nil, w.FormDataContentType(), &buf)
}

func createFilePart(w *multipart.Writer, upload tender.Upload) (interface{ Write([]byte) (int, error) }, error) {
	if upload.ContentType == "" {
		return w.CreateFormFile(documentsField, upload.Name)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, documentsField, upload.Name))
	h.Set("Content-Type", upload.ContentType)
	return w.CreatePart(h)
}
