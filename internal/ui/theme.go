package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"

	"kuttalk/internal/utils"
)

// ThemeConfig represents a theme loaded from YAML
type ThemeConfig struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Author      string            `yaml:"author"`
	Colors      map[string]string `yaml:"colors"`
}

// Theme represents a processed theme with tcell colors
type Theme struct {
	Name        string
	Description string
	Author      string
	colors      map[string]tcell.Color
}

// defaultColors backs every theme: a user theme only overrides the keys it
// names.
var defaultColors = map[string]tcell.Color{
	"background":       tcell.NewRGBColor(24, 24, 32),
	"background-light": tcell.NewRGBColor(40, 40, 52),
	"foreground":       tcell.NewRGBColor(220, 220, 220),
	"foreground-dark":  tcell.NewRGBColor(130, 130, 140),
	"primary":          tcell.NewRGBColor(125, 196, 228),
	"accent":           tcell.NewRGBColor(240, 198, 116),
	"border":           tcell.NewRGBColor(70, 70, 88),
	"border-focus":     tcell.NewRGBColor(125, 196, 228),
	"input-field":      tcell.NewRGBColor(40, 40, 52),
	"button-active":    tcell.NewRGBColor(125, 196, 228),
	"button-text":      tcell.NewRGBColor(24, 24, 32),
	"modal-background": tcell.NewRGBColor(32, 32, 42),
	"red":              tcell.NewRGBColor(228, 104, 118),
	"unread":           tcell.NewRGBColor(240, 198, 116),
}

// DefaultTheme returns the built-in palette, used when no theme file exists.
func DefaultTheme() *Theme {
	colors := make(map[string]tcell.Color, len(defaultColors))
	for k, v := range defaultColors {
		colors[k] = v
	}
	return &Theme{Name: "default", colors: colors}
}

// LoadTheme loads a theme from a YAML file, layered over the defaults.
func LoadTheme(themePath string) (*Theme, error) {
	data, err := os.ReadFile(themePath)
	if err != nil {
		return nil, utils.NewKuttalkError(fmt.Sprintf("failed to read theme file: %v", err))
	}

	var config ThemeConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, utils.NewKuttalkError(fmt.Sprintf("failed to parse theme YAML: %v", err))
	}

	theme := DefaultTheme()
	theme.Name = config.Name
	theme.Description = config.Description
	theme.Author = config.Author

	for key, value := range config.Colors {
		color, err := parseColor(value)
		if err != nil {
			return nil, utils.NewKuttalkError(fmt.Sprintf("failed to parse color '%s': %v", key, err))
		}
		theme.colors[key] = color
	}

	return theme, nil
}

// LoadThemeFromDir resolves <themesDir>/<name>.yaml, falling back to the
// built-in palette when the file is missing.
func LoadThemeFromDir(themesDir, themeName string) (*Theme, error) {
	themePath := filepath.Join(themesDir, themeName+".yaml")
	if _, err := os.Stat(themePath); err != nil {
		return DefaultTheme(), nil
	}
	return LoadTheme(themePath)
}

// GetColor returns a color by name, with fallback to white
func (t *Theme) GetColor(name string) tcell.Color {
	if color, exists := t.colors[name]; exists {
		return color
	}
	return tcell.ColorWhite
}

// HasColor checks if a color exists in the theme
func (t *Theme) HasColor(name string) bool {
	_, exists := t.colors[name]
	return exists
}

// parseColor converts hex and named color strings to tcell.Color
func parseColor(value string) (tcell.Color, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "#") {
		return parseHexColor(value)
	}
	return parseNamedColor(value)
}

// parseHexColor parses hex color strings like #FF0000 or #f00
func parseHexColor(hex string) (tcell.Color, error) {
	hex = strings.TrimPrefix(hex, "#")

	var r, g, b int64
	var err error

	switch len(hex) {
	case 3: // #RGB -> #RRGGBB
		r, err = strconv.ParseInt(string(hex[0])+string(hex[0]), 16, 64)
		if err != nil {
			return tcell.ColorWhite, err
		}
		g, err = strconv.ParseInt(string(hex[1])+string(hex[1]), 16, 64)
		if err != nil {
			return tcell.ColorWhite, err
		}
		b, err = strconv.ParseInt(string(hex[2])+string(hex[2]), 16, 64)
		if err != nil {
			return tcell.ColorWhite, err
		}
	case 6: // #RRGGBB
		r, err = strconv.ParseInt(hex[0:2], 16, 64)
		if err != nil {
			return tcell.ColorWhite, err
		}
		g, err = strconv.ParseInt(hex[2:4], 16, 64)
		if err != nil {
			return tcell.ColorWhite, err
		}
		b, err = strconv.ParseInt(hex[4:6], 16, 64)
		if err != nil {
			return tcell.ColorWhite, err
		}
	default:
		return tcell.ColorWhite, utils.NewKuttalkError(fmt.Sprintf("invalid hex color format: %s", hex))
	}

	return tcell.NewRGBColor(int32(r), int32(g), int32(b)), nil
}

// parseNamedColor converts named colors to tcell colors
func parseNamedColor(name string) (tcell.Color, error) {
	name = strings.ToLower(name)

	namedColors := map[string]tcell.Color{
		"black":   tcell.ColorBlack,
		"red":     tcell.ColorRed,
		"green":   tcell.ColorGreen,
		"yellow":  tcell.ColorYellow,
		"blue":    tcell.ColorBlue,
		"magenta": tcell.ColorDarkMagenta,
		"cyan":    tcell.ColorLightCyan,
		"white":   tcell.ColorWhite,
		"gray":    tcell.ColorGray,
		"grey":    tcell.ColorGray,
	}

	if color, exists := namedColors[name]; exists {
		return color, nil
	}

	return tcell.ColorWhite, utils.NewKuttalkError(fmt.Sprintf("unknown color name: %s", name))
}

// Helper methods for common UI components
func (t *Theme) FormColors() (bg, fieldBg, buttonBg, buttonText, fieldText tcell.Color) {
	return t.GetColor("background"),
		t.GetColor("input-field"),
		t.GetColor("button-active"),
		t.GetColor("button-text"),
		t.GetColor("foreground")
}

func (t *Theme) ModalColors() (bg, text, border tcell.Color) {
	return t.GetColor("modal-background"),
		t.GetColor("foreground"),
		t.GetColor("border")
}
