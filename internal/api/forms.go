package api

import (
	"bytes"
	"mime/multipart"
	"strconv"

	"github.com/go-faster/errors"
)

// The backend consumes sign-up, profile, and product mutations as multipart
// forms because each may carry file uploads alongside scalar fields.

func (f SignUpForm) encode() (*bytes.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"email":     f.Email,
		"password":  f.Password,
		"firstName": f.FirstName,
		"lastName":  f.LastName,
	}
	if err := writeFields(w, fields); err != nil {
		return nil, "", err
	}
	if f.Avatar != nil {
		if err := writeFile(w, "avatar", *f.Avatar); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close form")
	}
	return bytes.NewReader(buf.Bytes()), w.FormDataContentType(), nil
}

func (f ProfileForm) encode() (*bytes.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// Partial update: empty fields are omitted rather than sent as "".
	fields := map[string]string{}
	if f.FirstName != "" {
		fields["firstName"] = f.FirstName
	}
	if f.LastName != "" {
		fields["lastName"] = f.LastName
	}
	if err := writeFields(w, fields); err != nil {
		return nil, "", err
	}
	if f.Avatar != nil {
		if err := writeFile(w, "avatar", *f.Avatar); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close form")
	}
	return bytes.NewReader(buf.Bytes()), w.FormDataContentType(), nil
}

func (f ProductForm) encode() (*bytes.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       f.Title,
		"description": f.Description,
		"price":       f.Price.String(),
		"name":        f.LocationName,
		"latitude":    strconv.FormatFloat(f.Latitude, 'f', -1, 64),
		"longitude":   strconv.FormatFloat(f.Longitude, 'f', -1, 64),
	}
	if err := writeFields(w, fields); err != nil {
		return nil, "", err
	}
	for _, img := range f.Images {
		if err := writeFile(w, "images", img); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close form")
	}
	return bytes.NewReader(buf.Bytes()), w.FormDataContentType(), nil
}

func writeFields(w *multipart.Writer, fields map[string]string) error {
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return errors.Wrapf(err, "write field %s", name)
		}
	}
	return nil
}

func writeFile(w *multipart.Writer, name string, f FileUpload) error {
	fw, err := w.CreateFormFile(name, f.Name)
	if err != nil {
		return errors.Wrapf(err, "create file part %s", name)
	}
	if _, err := fw.Write(f.Data); err != nil {
		return errors.Wrapf(err, "write file part %s", name)
	}
	return nil
}
