// Package validation checks request payloads against JSON Schemas and turns
// violations into field-level validation errors.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"culturetech/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://culturetech.local/schemas/"

// Schema names, one per request body the API accepts.
const (
	SchemaPost     = "post"
	SchemaComment  = "comment"
	SchemaRegister = "register"
	SchemaLogin    = "login"
)

var printer = message.NewPrinter(language.English)

// Credentials is the body of the register and login endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validator holds the compiled schemas. Safe for concurrent use.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	compiler.AssertFormat()

	names := []string{SchemaPost, SchemaComment, SchemaRegister, SchemaLogin}
	for _, name := range names {
		raw, err := schemaFS.ReadFile(path.Join("schemas", name+".json"))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaBaseURL+name+".json", parsed); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", name, err)
		}
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		schema, err := compiler.Compile(schemaBaseURL + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// Post validates and decodes a create-post body.
func (v *Validator) Post(body []byte) (models.NewPost, error) {
	var in models.NewPost
	err := v.decode(SchemaPost, body, &in)
	return in, err
}

// Comment validates and decodes a create-comment body.
func (v *Validator) Comment(body []byte) (models.NewComment, error) {
	var in models.NewComment
	err := v.decode(SchemaComment, body, &in)
	return in, err
}

// Register validates and decodes a registration body.
func (v *Validator) Register(body []byte) (Credentials, error) {
	var in Credentials
	if err := v.decode(SchemaRegister, body, &in); err != nil {
		return in, err
	}
	// maxLength counts characters; bcrypt's limit is in bytes
	if len(in.Password) > MaxPasswordBytes {
		return in, PasswordTooLong()
	}
	return in, nil
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordTooLong is the validation error for a password over MaxPasswordBytes.
func PasswordTooLong() *models.AppError {
	return models.NewValidationError("Invalid register data", models.FieldError{
		Path:    "/password",
		Message: fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes),
	})
}

// Login validates and decodes a login body.
func (v *Validator) Login(body []byte) (Credentials, error) {
	var in Credentials
	err := v.decode(SchemaLogin, body, &in)
	return in, err
}

func (v *Validator) decode(name string, body []byte, out any) error {
	schema, ok := v.schemas[name]
	if !ok {
		return models.NewInternalError(fmt.Errorf("schema %q not registered", name))
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return models.NewValidationError("Invalid request body")
	}

	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return models.NewValidationError("Invalid "+name+" data", fieldErrors(ve)...)
		}
		return models.NewValidationError("Invalid " + name + " data")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// fieldErrors flattens the leaves of a validation error tree.
func fieldErrors(ve *jsonschema.ValidationError) []models.FieldError {
	if len(ve.Causes) == 0 {
		return leafErrors(ve)
	}
	var out []models.FieldError
	for _, cause := range ve.Causes {
		out = append(out, fieldErrors(cause)...)
	}
	return out
}

func leafErrors(ve *jsonschema.ValidationError) []models.FieldError {
	loc := pointer(ve.InstanceLocation)

	// report each missing property at its own path
	if req, ok := ve.ErrorKind.(*kind.Required); ok {
		out := make([]models.FieldError, 0, len(req.Missing))
		for _, name := range req.Missing {
			out = append(out, models.FieldError{
				Path:    strings.TrimSuffix(loc, "/") + "/" + name,
				Message: "is required",
			})
		}
		return out
	}

	return []models.FieldError{{
		Path:    loc,
		Message: ve.ErrorKind.LocalizedString(printer),
	}}
}

func pointer(location []string) string {
	if len(location) == 0 {
		return "/"
	}
	return "/" + strings.Join(location, "/")
}

// ParseCategory validates a category path parameter.
func ParseCategory(s string) (models.Category, error) {
	c, ok := models.ParseCategory(s)
	if !ok {
		return "", models.NewValidationError("Invalid category", models.FieldError{
			Path:    "/category",
			Message: fmt.Sprintf("must be one of %s", categoryList()),
		})
	}
	return c, nil
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
