package store

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/pubshare/internal/baas"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

var (
	errRequired       = baas.FieldError{Code: "validation_required", Message: "Missing required value."}
	errInvalidEmail   = baas.FieldError{Code: "validation_is_email", Message: "Must be a valid email address."}
	errInvalidURL     = baas.FieldError{Code: "validation_is_url", Message: "Must be a valid url."}
	errInvalidNumber  = baas.FieldError{Code: "validation_invalid_number", Message: "Must be a valid number."}
	errInvalidDate    = baas.FieldError{Code: "validation_invalid_date", Message: "Must be a valid date."}
	errMissingRecords = baas.FieldError{Code: "validation_missing_rel_records", Message: "Failed to find all relation records with the provided ids."}
	errImmutable      = baas.FieldError{Code: "validation_immutable", Message: "The value cannot be changed."}
	errNotUnique      = baas.FieldError{Code: "validation_not_unique", Message: "Value must be unique."}
	errMismatch       = baas.FieldError{Code: "validation_values_mismatch", Message: "Values don't match."}
	errInvalidOldPass = baas.FieldError{Code: "validation_invalid_old_password", Message: "Missing or invalid old password."}
	errEmptyFile      = baas.FieldError{Code: "validation_invalid_file", Message: "The file is empty or invalid."}
)

func invalidValue(value string) baas.FieldError {
	return baas.FieldError{Code: "validation_invalid_value", Message: fmt.Sprintf("Invalid value %s.", value)}
}

func passwordLength() baas.FieldError {
	return baas.FieldError{
		Code:    "validation_length_out_of_range",
		Message: fmt.Sprintf("The length must be between %d and %d.", minPasswordLength, maxPasswordLength),
	}
}

// changeSet is the result of applying a form to a record.
type changeSet struct {
	data     map[string]any
	uploads  map[string][]baas.File // field -> new files
	removed  []string               // stored file names to delete after the write
	password string
	errs     map[string]baas.FieldError
}

func (cs *changeSet) fail(field string, fe baas.FieldError) {
	if _, exists := cs.errs[field]; !exists {
		cs.errs[field] = fe
	}
}

// apply merges form into base (nil for creates) following the collection schema.
func (o *op) apply(schema *Schema, base *baas.Record, form *baas.Form) *changeSet {
	cs := &changeSet{
		data:    map[string]any{},
		uploads: map[string][]baas.File{},
		errs:    map[string]baas.FieldError{},
	}
	creating := base == nil
	if !creating {
		for k, v := range base.Data {
			cs.data[k] = v
		}
	}

	for _, key := range form.Keys() {
		raw, _ := form.Get(key)
		name, modifier := key, byte(0)
		if n := len(key); n > 1 && (key[n-1] == '+' || key[n-1] == '-') {
			name, modifier = key[:n-1], key[n-1]
		}
		field, ok := schema.Field(name)
		if !ok {
			continue
		}
		if field.Immutable && !creating {
			if modifier != 0 || !sameValue(raw, base.Get(name)) {
				cs.fail(name, errImmutable)
			}
			continue
		}
		o.applyField(cs, field, modifier, raw)
	}

	for _, key := range form.FileKeys() {
		field, ok := schema.Field(key)
		if !ok || field.Kind != KindFile {
			continue
		}
		for _, file := range form.Files()[key] {
			if len(file.Data) == 0 {
				cs.fail(key, errEmptyFile)
				continue
			}
			cs.uploads[key] = append(cs.uploads[key], file)
		}
		if !field.Multiple && len(cs.uploads[key]) > 1 {
			cs.uploads[key] = cs.uploads[key][len(cs.uploads[key])-1:]
		}
	}

	if schema.Auth {
		o.applyPassword(cs, schema, base, form)
	}
	o.validate(cs, schema, base)
	return cs
}

func (o *op) applyField(cs *changeSet, field Field, modifier byte, raw any) {
	name := field.Name
	switch field.Kind {
	case KindNumber:
		n, ok := parseNumber(raw)
		if !ok {
			cs.fail(name, errInvalidNumber)
			return
		}
		current, _ := baas.ToFloat(cs.data[name])
		switch modifier {
		case '+':
			n = current + n
		case '-':
			n = current - n
		}
		cs.data[name] = n
	case KindBool:
		cs.data[name] = parseBool(raw)
	case KindRelation, KindFile:
		values := splitValues(raw)
		current := toStrings(cs.data[name])
		switch modifier {
		case '+':
			if field.Kind == KindFile {
				return
			}
			for _, v := range values {
				if !containsString(current, v) {
					current = append(current, v)
				}
			}
			values = current
		case '-':
			kept := current[:0:0]
			for _, v := range current {
				if !containsString(values, v) {
					kept = append(kept, v)
				}
			}
			values = kept
		}
		if field.Kind == KindFile {
			for _, v := range toStrings(cs.data[name]) {
				if !containsString(values, v) {
					cs.removed = append(cs.removed, v)
				}
			}
		}
		cs.data[name] = relationValue(field, values)
	case KindDate:
		s := strings.TrimSpace(baas.FormatValue(raw))
		if s == "" {
			cs.data[name] = ""
			return
		}
		t, err := baas.ParseTime(s)
		if err != nil {
			cs.fail(name, errInvalidDate)
			return
		}
		cs.data[name] = t.Format(baas.DateLayout)
	default:
		s := baas.FormatValue(raw)
		if field.Kind == KindEmail {
			s = strings.TrimSpace(s)
			if field.Name == "email" {
				s = strings.ToLower(s)
			}
		}
		cs.data[name] = s
	}
}

func (o *op) applyPassword(cs *changeSet, schema *Schema, base *baas.Record, form *baas.Form) {
	password, hasPassword := form.Get("password")
	confirm, _ := form.Get("passwordConfirm")
	if base == nil || hasPassword {
		p := baas.FormatValue(password)
		switch {
		case p == "":
			cs.fail("password", errRequired)
		case len(p) < minPasswordLength || len(p) > maxPasswordLength:
			cs.fail("password", passwordLength())
		}
		if baas.FormatValue(confirm) != p {
			cs.fail("passwordConfirm", errMismatch)
		}
		cs.password = p
	}
	if base != nil && hasPassword {
		old, _ := form.Get("oldPassword")
		if !o.checkPassword(schema.Name, base.ID, baas.FormatValue(old)) {
			cs.fail("oldPassword", errInvalidOldPass)
		}
	}
}

func (o *op) validate(cs *changeSet, schema *Schema, base *baas.Record) {
	for _, field := range schema.Fields {
		value := cs.data[field.Name]
		if _, failed := cs.errs[field.Name]; failed {
			continue
		}
		if field.Required && isEmptyValue(field, value) && len(cs.uploads[field.Name]) == 0 {
			cs.fail(field.Name, errRequired)
			continue
		}
		s, _ := value.(string)
		if s == "" {
			if field.Kind == KindRelation {
				o.checkRelations(cs, field, toStrings(value))
			}
			continue
		}
		switch field.Kind {
		case KindEmail:
			if _, err := mail.ParseAddress(s); err != nil || strings.ContainsAny(s, " <>") {
				cs.fail(field.Name, errInvalidEmail)
			}
		case KindURL:
			u, err := url.Parse(s)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				cs.fail(field.Name, errInvalidURL)
			}
		case KindSelect:
			if !containsString(field.Values, s) {
				cs.fail(field.Name, invalidValue(s))
			}
		case KindRelation:
			o.checkRelations(cs, field, []string{s})
		}
	}

	if schema.Auth {
		email, _ := cs.data["email"].(string)
		if email != "" && o.emailTaken(schema.Name, email, base) {
			cs.fail("email", errNotUnique)
		}
	}
}

func (o *op) checkRelations(cs *changeSet, field Field, ids []string) {
	for _, id := range ids {
		if o.load(field.Collection, id) == nil {
			cs.fail(field.Name, errMissingRecords)
			return
		}
	}
}

func isEmptyValue(field Field, value any) bool {
	switch field.Kind {
	case KindNumber:
		n, _ := baas.ToFloat(value)
		return n == 0
	case KindBool:
		b, _ := value.(bool)
		return !b
	case KindRelation, KindFile:
		return len(toStrings(value)) == 0
	default:
		s, _ := value.(string)
		return strings.TrimSpace(s) == ""
	}
}

func parseNumber(raw any) (float64, bool) {
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return 0, true
	}
	if raw == nil {
		return 0, true
	}
	if _, isBool := raw.(bool); isBool {
		return 0, false
	}
	return baas.ToFloat(raw)
}

func parseBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on", "yes":
			return true
		}
	default:
		if n, ok := baas.ToFloat(v); ok {
			return n != 0
		}
	}
	return false
}

// splitValues flattens single, repeated and JSON list values into ids.
func splitValues(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case nil:
	case []any:
		for _, item := range v {
			out = append(out, splitValues(item)...)
		}
	case []string:
		for _, item := range v {
			out = append(out, splitValues(item)...)
		}
	default:
		s := strings.TrimSpace(baas.FormatValue(v))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func relationValue(field Field, values []string) any {
	if field.Multiple {
		out := make([]any, 0, len(values))
		for _, v := range values {
			out = append(out, v)
		}
		return out
	}
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

func sameValue(a, b any) bool {
	left, right := splitValues(a), splitValues(b)
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !strings.EqualFold(left[i], right[i]) {
			return false
		}
	}
	return true
}
