package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/OCAP2/sceneeditor/internal/util"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// parseIntFromFloat parses a string that may be an integer ("32") or float ("32.00") into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// invalid wraps a parse failure so callers can test for core.ErrInvalidValue.
func invalid(what, arg string) error {
	return fmt.Errorf("%w: %s %q", core.ErrInvalidValue, what, arg)
}

// Parser turns command lines and their arguments into editor values.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Tokenize splits a command line on whitespace. Double quotes group words and
// a doubled quote inside a quoted run is a literal quote:
//
//	set description "said ""go"" twice"  ->  [set description said "go" twice]
//
// Quotes in the middle of a token (key="a b") are kept for ParseProps.
func (p *Parser) Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inQuote bool
		started bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			started = true
			current.WriteRune(r)
			if inQuote && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			if started {
				tokens = append(tokens, util.Unquote(current.String()))
				current.Reset()
				started = false
			}
		default:
			started = true
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", core.ErrInvalidValue)
	}
	if started {
		tokens = append(tokens, util.Unquote(current.String()))
	}
	return tokens, nil
}

// ParseCategory resolves a category argument.
func (p *Parser) ParseCategory(arg string) (core.Category, error) {
	return core.ParseCategory(arg)
}

// ParseProps parses key=value arguments. Values may be quoted.
func (p *Parser) ParseProps(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	props := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, invalid("property", arg)
		}
		props[key] = util.Unquote(value)
	}
	return props, nil
}

// ParseSpeed parses a playback speed multiplier (a positive integer).
func (p *Parser) ParseSpeed(arg string) (int, error) {
	v, err := parseIntFromFloat(arg)
	if err != nil || v < 1 {
		return 0, invalid("speed", arg)
	}
	return int(v), nil
}
