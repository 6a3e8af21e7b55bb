package pixelize

import (
	"fmt"
	"strings"
)

// InjectionPoint is the place in a camera's frame at which the effect runs.
// Values are ordered: a pipeline fires passes in ascending order.
type InjectionPoint int

const (
	BeforeRendering InjectionPoint = iota
	BeforeOpaques
	AfterOpaques
	BeforeSkybox
	AfterSkybox
	BeforeTransparents
	AfterTransparents
	BeforePostProcessing
	AfterPostProcessing
	AfterRendering
)

var injectionPointNames = [...]string{
	BeforeRendering:      "before-rendering",
	BeforeOpaques:        "before-opaques",
	AfterOpaques:         "after-opaques",
	BeforeSkybox:         "before-skybox",
	AfterSkybox:          "after-skybox",
	BeforeTransparents:   "before-transparents",
	AfterTransparents:    "after-transparents",
	BeforePostProcessing: "before-post-processing",
	AfterPostProcessing:  "after-post-processing",
	AfterRendering:       "after-rendering",
}

// InjectionPoints lists every injection point in firing order.
func InjectionPoints() []InjectionPoint {
	points := make([]InjectionPoint, len(injectionPointNames))
	for i := range points {
		points[i] = InjectionPoint(i)
	}
	return points
}

// Valid reports whether p is one of the declared injection points.
func (p InjectionPoint) Valid() bool {
	return p >= BeforeRendering && p <= AfterRendering
}

func (p InjectionPoint) String() string {
	if !p.Valid() {
		return fmt.Sprintf("InjectionPoint(%d)", int(p))
	}
	return injectionPointNames[p]
}

// ParseInjectionPoint accepts the kebab-case name of an injection point.
// Underscores and case are ignored.
func ParseInjectionPoint(s string) (InjectionPoint, error) {
	key := normalizeName(s)
	for i, name := range injectionPointNames {
		if name == key {
			return InjectionPoint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown injection point %q", s)
}

func (p InjectionPoint) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid injection point %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *InjectionPoint) UnmarshalText(text []byte) error {
	v, err := ParseInjectionPoint(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p InjectionPoint) MarshalYAML() (interface{}, error) {
	text, err := p.MarshalText()
	return string(text), err
}

func (p *InjectionPoint) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}

// Strategy selects how intermediate targets are laid out.
type Strategy int

const (
	// SingleBuffer quantizes straight into one grid-sized target and copies
	// it back: two blits.
	SingleBuffer Strategy = iota
	// AntialiasSuppressing first copies the scene into a full-size
	// point-filtered target, which strips filtering the scene buffer would
	// otherwise apply, then quantizes into the grid target: three blits.
	AntialiasSuppressing
)

var strategyNames = [...]string{
	SingleBuffer:         "single-buffer",
	AntialiasSuppressing: "antialias-suppressing",
}

func (s Strategy) Valid() bool {
	return s == SingleBuffer || s == AntialiasSuppressing
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy accepts "single-buffer" or "antialias-suppressing".
func ParseStrategy(s string) (Strategy, error) {
	key := normalizeName(s)
	for i, name := range strategyNames {
		if name == key {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Strategy) MarshalYAML() (interface{}, error) {
	text, err := s.MarshalText()
	return string(text), err
}

func (s *Strategy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(str))
}

func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

// Settings configures one pixelize stage. They are fixed for the lifetime
// of the stage.
type Settings struct {
	PixelHeight    int            `yaml:"pixel_height"`
	InjectionPoint InjectionPoint `yaml:"injection_point"`
	Strategy       Strategy       `yaml:"strategy"`
}

// DefaultSettings returns a 144-row grid fired before post-processing.
func DefaultSettings() Settings {
	return Settings{
		PixelHeight:    144,
		InjectionPoint: BeforePostProcessing,
		Strategy:       SingleBuffer,
	}
}

// Validate checks the settings and returns a *ConfigurationError for the
// first bad field.
func (s Settings) Validate() error {
	if s.PixelHeight <= 0 {
		return &ConfigurationError{Field: "pixel_height", Value: s.PixelHeight, Reason: "must be positive"}
	}
	if !s.InjectionPoint.Valid() {
		return &ConfigurationError{Field: "injection_point", Value: int(s.InjectionPoint), Reason: "unknown injection point"}
	}
	if !s.Strategy.Valid() {
		return &ConfigurationError{Field: "strategy", Value: int(s.Strategy), Reason: "unknown strategy"}
	}
	return nil
}
