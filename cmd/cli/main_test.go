package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTokensCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"tokens", "--flag", "--loud", "--option", "times:", `say "hello there" --loud times:3`})
	require.NoError(t, root.Execute())

	var got struct {
		Tokens []struct {
			Kind  string `yaml:"kind"`
			Key   string `yaml:"key"`
			Value string `yaml:"value"`
		} `yaml:"tokens"`
		Phrases []string `yaml:"phrases"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []string{"say", "hello there"}, got.Phrases)

	kinds := make([]string, 0, len(got.Tokens))
	for _, tok := range got.Tokens {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []string{"phrase", "phrase", "flag", "option"}, kinds)
	assert.Equal(t, "3", got.Tokens[3].Value)
}
