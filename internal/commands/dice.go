package commands

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	tokenRegex = regexp.MustCompile(`(?i)(\d*d\d+|\d+|[+\-*/])`)
	diceRegex  = regexp.MustCompile(`(?i)^(\d*)d(\d+)$`)
	validOps   = map[string]bool{"+": true, "-": true, "*": true, "/": true}
)

var (
	ErrEmptyFormula   = errors.New("can't parse the formula, try something like `2d6+1d4*2-3`")
	ErrDivisionByZero = errors.New("division by zero is forbidden, even in games")
	ErrDanglingOp     = errors.New("operator without left operand")
)

// Roll is an evaluated dice formula.
type Roll struct {
	Formula string
	// Detail shows every term with its individual dice.
	Detail string
	Total  int
}

type term struct {
	value int
	desc  string
	op    string
}

// EvalDice evaluates formulas like `2d6+1d4*2-3`. * and / bind tighter than
// + and -. roll returns a number in [1, sides].
func EvalDice(formula string, roll func(sides int) int) (Roll, error) {
	formula = strings.ReplaceAll(formula, " ", "")
	tokens := tokenRegex.FindAllString(formula, -1)
	if len(tokens) == 0 {
		return Roll{}, ErrEmptyFormula
	}

	var terms []term
	op := "+"
	for _, token := range tokens {
		if validOps[token] {
			op = token
			continue
		}
		val, desc, err := evalToken(token, roll)
		if err != nil {
			return Roll{}, fmt.Errorf("failed to evaluate `%s`: %w", token, err)
		}
		terms = append(terms, term{value: val, desc: desc, op: op})
		op = "+"
	}
	if len(terms) == 0 {
		return Roll{}, ErrEmptyFormula
	}

	var merged []term
	for _, t := range terms {
		if t.op != "*" && t.op != "/" {
			merged = append(merged, t)
			continue
		}
		if len(merged) == 0 {
			return Roll{}, ErrDanglingOp
		}
		prev := merged[len(merged)-1]
		if t.op == "/" && t.value == 0 {
			return Roll{}, ErrDivisionByZero
		}
		if t.op == "*" {
			prev.value *= t.value
		} else {
			prev.value /= t.value
		}
		prev.desc = fmt.Sprintf("%s %s %s", prev.desc, t.op, t.desc)
		merged[len(merged)-1] = prev
	}

	var (
		total   int
		details strings.Builder
	)
	for i, t := range merged {
		if i > 0 {
			fmt.Fprintf(&details, " %s ", t.op)
		}
		details.WriteString(t.desc)
		if t.op == "-" {
			total -= t.value
		} else {
			total += t.value
		}
	}
	return Roll{Formula: formula, Detail: details.String(), Total: total}, nil
}

func evalToken(token string, roll func(int) int) (int, string, error) {
	matches := diceRegex.FindStringSubmatch(token)
	if matches == nil {
		n, err := strconv.Atoi(token)
		if err != nil {
			return 0, "", fmt.Errorf("invalid number")
		}
		return n, token, nil
	}

	count := 1
	if matches[1] != "" {
		n, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, "", fmt.Errorf("invalid dice count")
		}
		count = n
	}
	sides, err := strconv.Atoi(matches[2])
	if err != nil || sides < 2 {
		return 0, "", fmt.Errorf("invalid dice sides")
	}
	if count > 100 || sides > 1000 {
		return 0, "", fmt.Errorf("too big. max 100 dice, 1000 sides")
	}

	sum := 0
	rolls := make([]string, count)
	for i := range count {
		r := roll(sides)
		sum += r
		rolls[i] = strconv.Itoa(r)
	}
	return sum, fmt.Sprintf("`%s` [%s]", token, strings.Join(rolls, ", ")), nil
}
