package argument

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/keshon/cmdcore/pkg/message"
)

// String accepts any non-empty phrase.
func String(_ context.Context, _ message.Message, phrase string) (any, error) {
	if phrase == "" {
		return nil, nil
	}
	return phrase, nil
}

func Lowercase(_ context.Context, _ message.Message, phrase string) (any, error) {
	if phrase == "" {
		return nil, nil
	}
	return strings.ToLower(phrase), nil
}

func Uppercase(_ context.Context, _ message.Message, phrase string) (any, error) {
	if phrase == "" {
		return nil, nil
	}
	return strings.ToUpper(phrase), nil
}

// Integer parses a base-10 int.
func Integer(_ context.Context, _ message.Message, phrase string) (any, error) {
	n, err := strconv.Atoi(phrase)
	if err != nil {
		return nil, nil
	}
	return n, nil
}

// Number parses a float64.
func Number(_ context.Context, _ message.Message, phrase string) (any, error) {
	f, err := strconv.ParseFloat(phrase, 64)
	if err != nil {
		return nil, nil
	}
	return f, nil
}

// Boolean accepts yes/no style words. false is a successful cast.
func Boolean(_ context.Context, _ message.Message, phrase string) (any, error) {
	switch strings.ToLower(phrase) {
	case "true", "yes", "y", "on", "1", "enable":
		return true, nil
	case "false", "no", "n", "off", "0", "disable":
		return false, nil
	}
	return nil, nil
}

// URL accepts absolute URLs, optionally wrapped in angle brackets.
func URL(_ context.Context, _ message.Message, phrase string) (any, error) {
	phrase = strings.TrimSuffix(strings.TrimPrefix(phrase, "<"), ">")
	u, err := url.ParseRequestURI(phrase)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, nil
	}
	return u, nil
}

// UUID parses a uuid.UUID.
func UUID(_ context.Context, _ message.Message, phrase string) (any, error) {
	id, err := uuid.Parse(phrase)
	if err != nil {
		return nil, nil
	}
	return id, nil
}

// Duration parses a time.Duration such as "1m30s".
func Duration(_ context.Context, _ message.Message, phrase string) (any, error) {
	d, err := time.ParseDuration(phrase)
	if err != nil {
		return nil, nil
	}
	return d, nil
}

// Choice accepts one of options, case-insensitively, and returns the option as
// written.
func Choice(options ...string) Caster {
	return func(_ context.Context, _ message.Message, phrase string) (any, error) {
		for _, o := range options {
			if strings.EqualFold(o, phrase) {
				return o, nil
			}
		}
		return nil, nil
	}
}

// Regex matches phrase against re and returns the submatches.
func Regex(re *regexp.Regexp) Caster {
	return func(_ context.Context, _ message.Message, phrase string) (any, error) {
		if m := re.FindStringSubmatch(phrase); m != nil {
			return m, nil
		}
		return nil, nil
	}
}

// Union returns the first successful cast.
func Union(casters ...Caster) Caster {
	return func(ctx context.Context, m message.Message, phrase string) (any, error) {
		var last any
		for _, c := range casters {
			v, err := c(ctx, m, phrase)
			if err != nil {
				return nil, err
			}
			if !isFailure(v) {
				return v, nil
			}
			last = v
		}
		return last, nil
	}
}

// Compose feeds the string form of each result into the next caster.
func Compose(casters ...Caster) Caster {
	return func(ctx context.Context, m message.Message, phrase string) (any, error) {
		var v any = phrase
		for _, c := range casters {
			var err error
			if v, err = c(ctx, m, toPhrase(v)); err != nil {
				return nil, err
			}
			if isFailure(v) {
				return v, nil
			}
		}
		return v, nil
	}
}

func toPhrase(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Range bounds the result of c. Numbers are compared by value, strings by
// rune count. max is exclusive unless inclusive is set.
func Range(c Caster, min, max float64, inclusive bool) Caster {
	return Validate(c, func(v any, _ string) bool {
		var n float64
		switch x := v.(type) {
		case int:
			n = float64(x)
		case int64:
			n = float64(x)
		case float64:
			n = x
		case string:
			n = float64(utf8.RuneCountInString(x))
		default:
			return false
		}
		if inclusive {
			return n >= min && n <= max
		}
		return n >= min && n < max
	})
}

// Validate fails the cast when ok rejects the value.
func Validate(c Caster, ok func(v any, phrase string) bool) Caster {
	return func(ctx context.Context, m message.Message, phrase string) (any, error) {
		v, err := c(ctx, m, phrase)
		if err != nil || isFailure(v) {
			return v, err
		}
		if !ok(v, phrase) {
			return nil, nil
		}
		return v, nil
	}
}

// WithFail wraps c so a failed cast carries value for defaults and prompts.
func WithFail(c Caster, value func(phrase string) any) Caster {
	return func(ctx context.Context, m message.Message, phrase string) (any, error) {
		v, err := c(ctx, m, phrase)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return Fail(value(phrase)), nil
		}
		return v, nil
	}
}
