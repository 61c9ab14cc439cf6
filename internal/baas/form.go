package baas

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"
)

// File is a binary attachment sent with a create or update request.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Form collects the values and attachments of a create/update request.
// Repeated keys are kept in insertion order.
type Form struct {
	values map[string][]any
	files  map[string][]File
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{values: map[string][]any{}, files: map[string][]File{}}
}

// FormFromMap copies the map into a new form.
func FormFromMap(values map[string]any) *Form {
	f := NewForm()
	for k, v := range values {
		f.Set(k, v)
	}
	return f
}

// Set replaces the value stored under key.
func (f *Form) Set(key string, value any) *Form {
	f.values[key] = []any{value}
	return f
}

// Add appends a value under key.
func (f *Form) Add(key string, value any) *Form {
	f.values[key] = append(f.values[key], value)
	return f
}

// AddFile appends an attachment under key.
func (f *Form) AddFile(key string, file File) *Form {
	f.files[key] = append(f.files[key], file)
	return f
}

// Delete removes all values and files under key.
func (f *Form) Delete(key string) {
	delete(f.values, key)
	delete(f.files, key)
}

// Get returns the value stored under key. Repeated values come back as []any.
func (f *Form) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	vals, ok := f.values[key]
	if !ok {
		return nil, false
	}
	if len(vals) == 1 {
		return vals[0], true
	}
	return append([]any(nil), vals...), true
}

// Keys returns the value keys in sorted order.
func (f *Form) Keys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values flattens the form into a JSON friendly map.
func (f *Form) Values() map[string]any {
	out := map[string]any{}
	for _, key := range f.Keys() {
		out[key], _ = f.Get(key)
	}
	return out
}

// Files returns the attachments keyed by field.
func (f *Form) Files() map[string][]File {
	if f == nil {
		return nil
	}
	return f.files
}

// FileKeys returns the attachment keys in sorted order.
func (f *Form) FileKeys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, 0, len(f.files))
	for k, files := range f.files {
		if len(files) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// HasFiles reports whether any attachment was added.
func (f *Form) HasFiles() bool {
	return len(f.FileKeys()) > 0
}

// Len counts value keys and attachment keys.
func (f *Form) Len() int {
	if f == nil {
		return 0
	}
	return len(f.values) + len(f.FileKeys())
}

// WriteMultipart encodes the form as multipart/form-data and returns the
// content type including the boundary.
func (f *Form) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, key := range f.Keys() {
		for _, value := range f.values[key] {
			if err := mw.WriteField(key, FormatValue(value)); err != nil {
				return "", err
			}
		}
	}
	for _, key := range f.FileKeys() {
		for _, file := range f.files[key] {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(key), escapeQuotes(file.Name)))
			contentType := file.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			header.Set("Content-Type", contentType)
			part, err := mw.CreatePart(header)
			if err != nil {
				return "", err
			}
			if _, err := io.Copy(part, bytes.NewReader(file.Data)); err != nil {
				return "", err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

// FormatValue renders a value the way the backend expects it in form fields.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(DateLayout)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
