// Package tokenizer splits command content into phrases, flags and option flags.
//
// Tokenization is lossless: joining the Raw text of every token in Result.All
// gives back the input byte for byte, so callers can always rebuild the exact
// tail of a message from any token position.
package tokenizer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the type of a token.
type Kind int

const (
	Phrase Kind = iota
	Flag
	OptionFlag
	// Separator only holds separators found before the first real token.
	Separator
)

func (k Kind) String() string {
	switch k {
	case Phrase:
		return "phrase"
	case Flag:
		return "flag"
	case OptionFlag:
		return "option"
	case Separator:
		return "separator"
	}
	return "unknown"
}

// Token is one unit of content. Raw includes the separators that follow the
// token; Value is the usable text (quotes removed, option value extracted).
type Token struct {
	Kind   Kind
	Raw    string
	Value  string
	Key    string
	Quoted bool
}

// Options configures Parse.
type Options struct {
	FlagWords       []string
	OptionFlagWords []string
	Quoted          bool
	// Separator splits words instead of whitespace when set.
	Separator string
}

// Result is the parsed content. It must not be modified once returned.
type Result struct {
	All         []Token
	Phrases     []Token
	Flags       []Token
	OptionFlags []Token

	phrasePos []int
}

// PhrasePosition maps a phrase index to its index in All, or -1.
func (r *Result) PhrasePosition(i int) int {
	if i < 0 || i >= len(r.phrasePos) {
		return -1
	}
	return r.phrasePos[i]
}

// JoinRaw concatenates the raw text of tokens.
func JoinRaw(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Raw)
	}
	return b.String()
}

var quotePairs = map[rune]rune{
	'"': '"',
	'“': '”',
}

type parser struct {
	input   string
	opts    Options
	flags   map[string]struct{}
	options []string
	pos     int
	out     *Result
}

// Parse tokenizes content.
func Parse(content string, opts Options) *Result {
	p := &parser{
		input: content,
		opts:  opts,
		flags: make(map[string]struct{}, len(opts.FlagWords)),
		out:   &Result{},
	}
	for _, f := range opts.FlagWords {
		if f != "" {
			p.flags[f] = struct{}{}
		}
	}
	for _, o := range opts.OptionFlagWords {
		if o != "" {
			p.options = append(p.options, o)
		}
	}
	sort.SliceStable(p.options, func(i, j int) bool {
		return len(p.options[i]) > len(p.options[j])
	})

	if end := p.skipSeparators(0); end > 0 {
		p.emit(Token{Kind: Separator, Raw: content[:end]})
		p.pos = end
	}
	for p.pos < len(p.input) {
		p.next()
	}
	return p.out
}

func (p *parser) emit(t Token) {
	switch t.Kind {
	case Phrase:
		p.out.phrasePos = append(p.out.phrasePos, len(p.out.All))
		p.out.Phrases = append(p.out.Phrases, t)
	case Flag:
		p.out.Flags = append(p.out.Flags, t)
	case OptionFlag:
		p.out.OptionFlags = append(p.out.OptionFlags, t)
	}
	p.out.All = append(p.out.All, t)
}

func (p *parser) next() {
	start := p.pos

	if p.opts.Quoted {
		if value, end, ok := p.quoted(start); ok {
			end = p.skipSeparators(end)
			p.emit(Token{Kind: Phrase, Raw: p.input[start:end], Value: value, Quoted: true})
			p.pos = end
			return
		}
	}

	wend := p.wordEnd(start)
	word := p.trim(p.input[start:wend])

	if _, ok := p.flags[word]; ok {
		end := p.skipSeparators(wend)
		p.emit(Token{Kind: Flag, Raw: p.input[start:end], Key: word})
		p.pos = end
		return
	}

	if key, ok := p.exactOption(word); ok {
		end := p.skipSeparators(wend)
		value := ""
		if end < len(p.input) && !p.isSwitchAt(end) {
			if v, e, ok := p.quotedValue(end); ok {
				value, end = v, p.skipSeparators(e)
			} else {
				vend := p.wordEnd(end)
				value, end = p.trim(p.input[end:vend]), p.skipSeparators(vend)
			}
		}
		p.emit(Token{Kind: OptionFlag, Raw: p.input[start:end], Key: key, Value: value})
		p.pos = end
		return
	}

	if key, ok := p.prefixOption(word); ok {
		end := p.skipSeparators(wend)
		p.emit(Token{Kind: OptionFlag, Raw: p.input[start:end], Key: key, Value: word[len(key):]})
		p.pos = end
		return
	}

	end := p.skipSeparators(wend)
	p.emit(Token{Kind: Phrase, Raw: p.input[start:end], Value: word})
	p.pos = end
}

func (p *parser) quotedValue(i int) (string, int, bool) {
	if !p.opts.Quoted {
		return "", 0, false
	}
	return p.quoted(i)
}

// quoted reads a quoted phrase starting at i. An unterminated quote runs to the
// end of the input.
func (p *parser) quoted(i int) (string, int, bool) {
	open, size := utf8.DecodeRuneInString(p.input[i:])
	closing, ok := quotePairs[open]
	if !ok {
		return "", 0, false
	}

	var b strings.Builder
	j := i + size
	for j < len(p.input) {
		r, sz := utf8.DecodeRuneInString(p.input[j:])
		if r == '\\' && j+sz < len(p.input) {
			nr, nsz := utf8.DecodeRuneInString(p.input[j+sz:])
			if nr == closing {
				b.WriteRune(nr)
				j += sz + nsz
				continue
			}
		}
		if r == closing {
			return b.String(), j + sz, true
		}
		b.WriteRune(r)
		j += sz
	}
	return b.String(), len(p.input), true
}

func (p *parser) skipSeparators(i int) int {
	for i < len(p.input) {
		if p.opts.Separator != "" && strings.HasPrefix(p.input[i:], p.opts.Separator) {
			i += len(p.opts.Separator)
			continue
		}
		r, size := utf8.DecodeRuneInString(p.input[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

func (p *parser) wordEnd(i int) int {
	if p.opts.Separator != "" {
		if j := strings.Index(p.input[i:], p.opts.Separator); j >= 0 {
			return i + j
		}
		return len(p.input)
	}
	for j, r := range p.input[i:] {
		if unicode.IsSpace(r) {
			return i + j
		}
	}
	return len(p.input)
}

func (p *parser) trim(s string) string {
	if p.opts.Separator != "" {
		return strings.TrimSpace(s)
	}
	return s
}

func (p *parser) exactOption(word string) (string, bool) {
	for _, o := range p.options {
		if word == o {
			return o, true
		}
	}
	return "", false
}

// prefixOption returns the longest option word that word starts with.
func (p *parser) prefixOption(word string) (string, bool) {
	for _, o := range p.options {
		if len(word) > len(o) && strings.HasPrefix(word, o) {
			return o, true
		}
	}
	return "", false
}

// isSwitchAt reports whether the word at i is a flag or option word.
func (p *parser) isSwitchAt(i int) bool {
	word := p.trim(p.input[i:p.wordEnd(i)])
	if _, ok := p.flags[word]; ok {
		return true
	}
	if _, ok := p.exactOption(word); ok {
		return true
	}
	_, ok := p.prefixOption(word)
	return ok
}
