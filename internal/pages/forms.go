package pages

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ashureev/eventdash/internal/apiclient"
)

const (
	maxFormMemory = 8 << 20
	maxImageSize  = 5 << 20
)

var errImageTooLarge = errors.New("image must be 5MB or smaller")

// formValues parses a urlencoded or multipart body and returns its first values.
func formValues(r *http.Request) (map[string]string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}

	values := make(map[string]string, len(r.PostForm))
	for key, vs := range r.PostForm {
		if len(vs) > 0 {
			values[key] = vs[0]
		}
	}
	return values, nil
}

// formImage returns the uploaded "image" part, or nil when none was sent.
func formImage(r *http.Request) (*apiclient.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	defer closeFile(f)

	if hdr.Size == 0 {
		return nil, nil
	}
	if hdr.Size > maxImageSize {
		return nil, errImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, errImageTooLarge
	}

	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.New("please upload an image file")
	}

	return &apiclient.File{
		Filename:    hdr.Filename,
		ContentType: contentType,
		Content:     bytes.NewReader(data),
	}, nil
}

func closeFile(f multipart.File) {
	_ = f.Close()
}
