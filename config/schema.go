package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/semstreams-robotics/errors"
)

//go:embed framework.schema.json
var frameworkSchema []byte

var compileFrameworkSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(frameworkSchema))
})

// validateSchema checks the shape of a framework document: unknown keys,
// wrong types and out of range values. Required fields are checked by
// Framework.Validate.
func validateSchema(data []byte) error {
	schema, err := compileFrameworkSchema()
	if err != nil {
		return errors.WrapFatal(err, "config", "validateSchema", "compile framework schema")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"config", "validateSchema", "decode framework parameters")
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
		"config", "validateSchema", "validate framework parameters")
}
