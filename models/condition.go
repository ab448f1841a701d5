package models

import (
	"regexp"

	"github.com/go-playground/validator"
)

type WeatherCondition string

const (
	ConditionSunny  WeatherCondition = "sunny"
	ConditionCloudy WeatherCondition = "cloudy"
	ConditionRainy  WeatherCondition = "rainy"
	ConditionSnowy  WeatherCondition = "snowy"
	ConditionStormy WeatherCondition = "stormy"
	ConditionFoggy  WeatherCondition = "foggy"
	ConditionWindy  WeatherCondition = "windy"
)

var conditionPattern = regexp.MustCompile(`^(sunny|cloudy|rainy|snowy|stormy|foggy|windy)$`)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func ValidateCondition(fl validator.FieldLevel) bool {
	return conditionPattern.MatchString(fl.Field().String())
}

func IsCondition(value string) bool {
	return conditionPattern.MatchString(value)
}

func ValidateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}
