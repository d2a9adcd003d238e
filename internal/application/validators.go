package application

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/infrastructure/units"
)

// ValidateUnitParameters checks the parameters of a built-in unit type by
// decoding them strictly into the unit's config struct. Types registered at
// runtime are validated when their factory runs.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	paramMap, err := decodeParameters(params)
	if err != nil {
		return err
	}

	switch unitType {
	case units.TypePathGenerator:
		_, err = units.DecodePathGeneratorConfig(paramMap)
	case units.TypeSelfConsistency:
		_, err = units.DecodeSelfConsistencyConfig(paramMap)
	case units.TypeExactMatch:
		_, err = units.DecodeExactMatchConfig(paramMap)
	case units.TypeFuzzyMatch:
		_, err = units.DecodeFuzzyMatchConfig(paramMap)
	case units.TypeConsistency, units.TypeTreeQuality:
		if len(paramMap) > 0 {
			err = fmt.Errorf("%s takes no parameters", unitType)
		}
	}
	return err
}

// decodeParameters turns a parameters node into a map. An absent node
// yields an empty map.
func decodeParameters(params yaml.Node) (map[string]any, error) {
	if params.Kind == 0 {
		return map[string]any{}, nil
	}
	var paramMap map[string]any
	if err := params.Decode(&paramMap); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	if paramMap == nil {
		paramMap = map[string]any{}
	}
	return paramMap, nil
}

// semverPattern matches X.Y.Z with an optional pre-release suffix.
var semverPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-[0-9A-Za-z.-]+)?$`)

// validateSemver is a validator.Func for the "semver" tag.
func validateSemver(fl validator.FieldLevel) bool {
	return semverPattern.MatchString(fl.Field().String())
}

// registerCustomValidators adds the graph-specific tags to v.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	return nil
}
